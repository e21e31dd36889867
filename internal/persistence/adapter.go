package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

const defaultWriteTimeout = 5 * time.Second

// Adapter round-trips one cart's lines through a KV. Saves are fire-and-forget:
// a single writer goroutine persists the latest state, older pending states are dropped.
// An empty cart removes the key.
type Adapter struct {
	kv      KV
	key     string
	timeout time.Duration
	logger  *zap.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	pending []domain.LineItem
	dirty   bool
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func NewAdapter(kv KV, key string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{
		kv:      kv,
		key:     key,
		timeout: defaultWriteTimeout,
		logger:  logger.With(zap.String("storage_key", key)),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

// Load reads the saved lines. A missing, unreadable or corrupted value is an empty cart.
func (a *Adapter) Load(ctx context.Context) []domain.LineItem {
	data, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		return []domain.LineItem{}
	}
	if err != nil {
		a.logger.Warn("cart load failed, starting empty", zap.Error(err))
		return []domain.LineItem{}
	}

	lines, err := decode(a.key, data)
	if err != nil {
		a.logger.Warn("saved cart is corrupted, starting empty", zap.Error(err))
		return []domain.LineItem{}
	}
	return lines
}

// Save schedules a full overwrite with lines and returns immediately. After Close it
// writes inline, once the writer has flushed what was pending.
func (a *Adapter) Save(lines []domain.LineItem) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.stopped
		a.write(lines)
		return
	}
	a.pending = domain.CloneLines(lines)
	a.dirty = true
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close stops the writer after flushing the pending state.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.done)
	select {
	case <-a.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) run() {
	defer close(a.stopped)
	for {
		select {
		case <-a.wake:
			a.drain()
		case <-a.done:
			a.drain()
			return
		}
	}
}

func (a *Adapter) drain() {
	for {
		a.mu.Lock()
		if !a.dirty {
			a.mu.Unlock()
			return
		}
		lines := a.pending
		a.pending = nil
		a.dirty = false
		a.mu.Unlock()

		a.write(lines)
	}
}

func (a *Adapter) write(lines []domain.LineItem) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if len(lines) == 0 {
		if err := a.kv.Delete(ctx, a.key); err != nil {
			a.logger.Warn("cart delete failed", zap.Error(err))
		}
		return
	}

	data, err := encode(lines)
	if err != nil {
		a.logger.Error("cart encode failed", zap.Error(err))
		return
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		a.logger.Warn("cart save failed", zap.Error(err), zap.Int("lines", len(lines)))
	}
}

func encode(lines []domain.LineItem) ([]byte, error) {
	return json.Marshal(lines)
}

func decode(key string, data []byte) ([]domain.LineItem, error) {
	var lines []domain.LineItem
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, &StorageDecodeError{Key: key, Err: err}
	}
	if lines == nil {
		lines = []domain.LineItem{}
	}
	return lines, nil
}
