// Package journal fans checkout attempt snapshots out to the configured sinks
// (Postgres outbox, Kafka) off the request path.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull = errors.New("attempt journal queue is full")
	ErrClosed    = errors.New("attempt journal is closed")
)

const (
	defaultQueueSize = 1024
	defaultTimeout   = 5 * time.Second
)

type Sink interface {
	Record(ctx context.Context, attempt domain.CheckoutAttempt) error
}

// Journal queues attempts and writes each to every sink concurrently.
// Attempts are written in the order they were recorded.
type Journal struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan domain.CheckoutAttempt
	stopped chan struct{}
}

func New(logger *zap.Logger, sinks ...Sink) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Journal{
		sinks:   sinks,
		timeout: defaultTimeout,
		logger:  logger,
		queue:   make(chan domain.CheckoutAttempt, defaultQueueSize),
		stopped: make(chan struct{}),
	}
	go j.run()
	return j
}

// Record enqueues the attempt without waiting for the sinks.
func (j *Journal) Record(_ context.Context, a domain.CheckoutAttempt) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}
	select {
	case j.queue <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting attempts and waits for the queue to drain.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) run() {
	defer close(j.stopped)
	for a := range j.queue {
		j.write(a)
	}
}

func (j *Journal) write(a domain.CheckoutAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var g errgroup.Group
	for i, sink := range j.sinks {
		g.Go(func() error {
			if err := sink.Record(ctx, a); err != nil {
				j.logger.Warn("attempt journal sink failed",
					zap.Int("sink", i),
					zap.String("attempt_id", a.ID),
					zap.String("state", a.State.String()),
					zap.Error(err))
				return fmt.Errorf("sink %d: %w", i, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
