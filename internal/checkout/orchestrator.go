package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultJournalTimeout = 5 * time.Second
	defaultOrderTimeout   = 15 * time.Second
	defaultPaymentTimeout = 15 * time.Second
)

// Orchestrator drives the checkout state machine of one session. It owns one attempt at a
// time; the lock is never held across network calls.
type Orchestrator struct {
	sessionID string
	cart      CartClearer
	orders    OrderCreator
	widget    PaymentWidget
	journal   AttemptJournal
	logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
	newID     func() string

	orderTimeout   time.Duration
	paymentTimeout time.Duration

	mu      sync.Mutex
	state   domain.CheckoutState
	attempt *domain.CheckoutAttempt
}

type Option func(*Orchestrator)

func WithJournal(j AttemptJournal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStepTimeouts bounds order creation and the payment handoff separately, so a slow
// order API does not eat into the widget's time.
func WithStepTimeouts(order, payment time.Duration) Option {
	return func(o *Orchestrator) {
		if order > 0 {
			o.orderTimeout = order
		}
		if payment > 0 {
			o.paymentTimeout = payment
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func NewOrchestrator(sessionID string, cart CartClearer, orders OrderCreator, widget PaymentWidget, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessionID: sessionID,
		cart:      cart,
		orders:    orders,
		widget:    widget,
		logger:    zap.NewNop(),
		validate:  newValidator(),
		now:       time.Now,
		newID:     uuid.NewString,
		state:     domain.CheckoutStateIdle,

		orderTimeout:   defaultOrderTimeout,
		paymentTimeout: defaultPaymentTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("session_id", sessionID))
	return o
}

// Budget is the longest Submit can spend on network calls.
func (o *Orchestrator) Budget() time.Duration {
	return o.orderTimeout + o.paymentTimeout
}

func (o *Orchestrator) State() domain.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Attempt returns a copy of the current attempt, or nil before the first submission.
func (o *Orchestrator) Attempt() *domain.CheckoutAttempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == nil {
		return nil
	}
	a := *o.attempt
	return &a
}

// transitionLocked moves to the next state. Caller holds o.mu.
func (o *Orchestrator) transitionLocked(to domain.CheckoutState) error {
	if !domain.CanTransitionTo(o.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, to)
	}
	o.state = to
	if o.attempt != nil {
		o.attempt.State = to
		o.attempt.UpdatedAt = o.now().UTC()
	}
	return nil
}

func (o *Orchestrator) snapshotLocked() domain.CheckoutAttempt {
	return *o.attempt
}

// record hands attempt snapshots to the journal. Journal failures never affect checkout.
func (o *Orchestrator) record(attempts ...domain.CheckoutAttempt) {
	if o.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultJournalTimeout)
	defer cancel()

	for _, a := range attempts {
		if err := o.journal.Record(ctx, a); err != nil {
			o.logger.Warn("checkout attempt not journaled",
				zap.String("attempt_id", a.ID),
				zap.String("state", a.State.String()),
				zap.Error(err))
		}
	}
}
