package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/nevelline/storefront/internal/domain"
)

// MockOrderCreator implements OrderCreator for testing
type MockOrderCreator struct {
	mu       sync.Mutex
	Order    *domain.CreatedOrder
	Err      error
	Block    chan struct{} // when set, CreateOrder waits for it to close
	Started  chan struct{} // when set, signalled on entry
	Delay    time.Duration
	Requests []OrderRequest
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockOrderCreator) CreateOrder(ctx context.Context, req OrderRequest) (*domain.CreatedOrder, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	block, started, delay := m.Block, m.Started, m.Delay
	m.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Order, m.Err
}

func (m *MockOrderCreator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockOrderCreator) SetResult(order *domain.CreatedOrder, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Order, m.Err = order, err
}

// MockWidget implements PaymentWidget for testing
type MockWidget struct {
	mu       sync.Mutex
	Session  *WidgetSession
	Err      error
	Delay    time.Duration
	Requests []PaymentRequest
}

func (m *MockWidget) Open(ctx context.Context, req PaymentRequest) (*WidgetSession, error) {
	if err := wait(ctx, m.Delay); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Session == nil {
		return &WidgetSession{}, nil
	}
	return m.Session, nil
}

// MockJournal implements AttemptJournal for testing
type MockJournal struct {
	mu       sync.RWMutex
	Attempts []domain.CheckoutAttempt
	Err      error
}

func (m *MockJournal) Record(_ context.Context, a domain.CheckoutAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, a)
	return m.Err
}

func (m *MockJournal) States() []domain.CheckoutState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make([]domain.CheckoutState, len(m.Attempts))
	for i, a := range m.Attempts {
		states[i] = a.State
	}
	return states
}

// MockCart implements CartClearer for testing
type MockCart struct {
	mu      sync.Mutex
	Cleared int
}

func (m *MockCart) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared++
}

func (m *MockCart) ClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cleared
}
