package events

import (
	"context"
	"errors"
	"sync"

	"github.com/nevelline/storefront/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MockWriter captures messages instead of sending them to Kafka
type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	FailOn   int // 1-based call that fails; 0 never fails
	calls    int
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.FailOn != 0 && m.calls == m.FailOn {
		return errors.New("broker not available")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	return nil
}

// MockOutboxRepo serves a fixed set of events
type MockOutboxRepo struct {
	mu        sync.Mutex
	Events    []*repository.OutboxEvent
	Processed []int64
	GetErr    error
}

func (m *MockOutboxRepo) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	done := map[int64]bool{}
	for _, id := range m.Processed {
		done[id] = true
	}
	var out []*repository.OutboxEvent
	for _, e := range m.Events {
		if !done[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepo) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Processed = append(m.Processed, id)
	return nil
}

func (m *MockOutboxRepo) ProcessedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.Processed...)
}

// MockReader replays queued messages, then blocks until the context ends
type MockReader struct {
	mu       sync.Mutex
	Messages []kafka.Message
	Err      error
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if m.Err != nil {
		err := m.Err
		m.Err = nil
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.Messages) > 0 {
		msg := m.Messages[0]
		m.Messages = m.Messages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockReader) Close() error {
	return nil
}
