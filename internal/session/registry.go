package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nevelline/storefront/internal/cart"
	"github.com/nevelline/storefront/internal/checkout"
	"github.com/nevelline/storefront/internal/persistence"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 5 * time.Second

// Session is everything the storefront keeps for one browser session.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Orchestrator

	adapter  *persistence.Adapter
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CheckoutFactory builds the orchestrator for a session around its cart.
type CheckoutFactory func(sessionID string, c *cart.Store) *checkout.Orchestrator

// Registry hands out sessions, restoring each cart from storage on first use.
type Registry struct {
	kv          persistence.KV
	newCheckout CheckoutFactory
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	loads    singleflight.Group
}

func NewRegistry(kv persistence.KV, newCheckout CheckoutFactory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		kv:          kv,
		newCheckout: newCheckout,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Get returns the session for id. Concurrent first requests for the same id share one
// storage load.
func (r *Registry) Get(ctx context.Context, id string) *Session {
	if s := r.lookup(id); s != nil {
		return s
	}

	v, _, _ := r.loads.Do(id, func() (interface{}, error) {
		if s := r.lookup(id); s != nil {
			return s, nil
		}
		s := r.open(ctx, id)

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	return v.(*Session)
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	s.touch(r.now())
	return s
}

func (r *Registry) open(ctx context.Context, id string) *Session {
	log := r.logger.With(zap.String("session_id", id))

	// the load is shared by every waiter, so it must outlive the first caller's request
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	adapter := persistence.NewAdapter(r.kv, persistence.Key(id), log)
	store := cart.NewStore()
	store.Restore(adapter.Load(loadCtx))
	store.Subscribe(adapter.Save)

	log.Debug("session opened", zap.Int("lines", len(store.Lines())))
	return &Session{
		ID:       id,
		Cart:     store,
		Checkout: r.newCheckout(id, store),
		adapter:  adapter,
		lastSeen: r.now(),
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle flushes and forgets sessions idle for longer than maxIdle. Sessions with a
// checkout in progress are kept.
func (r *Registry) EvictIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) && !s.Checkout.State().InProgress() {
			evicted = append(evicted, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		if err := s.adapter.Close(ctx); err != nil {
			r.logger.Warn("failed to flush evicted session", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	return len(evicted)
}

// RunEviction evicts idle sessions every interval until ctx is done.
func (r *Registry) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.EvictIdle(ctx, maxIdle); n > 0 {
				r.logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll flushes every session's pending cart write.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.adapter.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
