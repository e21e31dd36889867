package checkout

import (
	"context"
	"errors"

	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

// Handoff is returned once the order exists and the payment widget is open.
type Handoff struct {
	AttemptID        string `json:"attemptId"`
	Reference        string `json:"reference"`
	OrderID          string `json:"orderId"`
	OrderNumber      string `json:"orderNumber,omitempty"`
	Amount           int64  `json:"amount"`
	Email            string `json:"email"`
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
	AccessCode       string `json:"accessCode,omitempty"`
	PublicKey        string `json:"publicKey,omitempty"`
}

// Submit creates the order for snapshot and opens the payment widget for it.
// The amount charged is always recomputed from snapshot.
func (o *Orchestrator) Submit(ctx context.Context, snapshot []domain.LineItem, customer domain.Customer) (*Handoff, error) {
	lines := domain.CloneLines(snapshot)
	customer = customer.Normalized()

	o.mu.Lock()
	if o.state.InProgress() {
		o.mu.Unlock()
		return nil, ErrAlreadyInProgress
	}
	if err := o.validateSubmission(lines, customer); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.state.IsTerminal() {
		if err := o.transitionLocked(domain.CheckoutStateIdle); err != nil {
			o.mu.Unlock()
			return nil, err
		}
	}

	total := domain.Total(lines)
	now := o.now().UTC()
	o.attempt = &domain.CheckoutAttempt{
		ID:              o.newID(),
		SessionID:       o.sessionID,
		State:           domain.CheckoutStateIdle,
		Total:           total,
		ItemCount:       domain.ItemCount(lines),
		CartFingerprint: domain.Fingerprint(lines),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.transitionLocked(domain.CheckoutStateSubmitting); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	attemptID := o.attempt.ID
	submitted := o.snapshotLocked()
	o.mu.Unlock()
	o.record(submitted)

	log := o.logger.With(zap.String("attempt_id", attemptID))

	orderCtx, cancel := context.WithTimeout(ctx, o.orderTimeout)
	order, err := o.orders.CreateOrder(orderCtx, OrderRequest{
		Customer: customer,
		Lines:    lines,
		Subtotal: total,
		Shipping: 0,
		Total:    total,
	})
	cancel()
	if err == nil && order == nil {
		err = errors.New("order API returned no order")
	}
	if err != nil {
		o.mu.Lock()
		o.attempt.Error = err.Error()
		_ = o.transitionLocked(domain.CheckoutStateIdle)
		failed := o.snapshotLocked()
		o.mu.Unlock()
		o.record(failed)

		log.Warn("order creation failed", zap.Error(err))
		return nil, &OrderCreationError{Err: err}
	}

	o.mu.Lock()
	o.attempt.OrderID = order.ID
	o.attempt.OrderNumber = order.OrderNumber
	_ = o.transitionLocked(domain.CheckoutStateOrderCreated)
	created := o.snapshotLocked()

	reference := newReference(*order, o.now())
	o.attempt.Reference = reference
	_ = o.transitionLocked(domain.CheckoutStatePaymentInFlight)
	inFlight := o.snapshotLocked()
	o.mu.Unlock()
	o.record(created, inFlight)

	log = log.With(zap.String("order_id", order.ID), zap.String("reference", reference))
	log.Info("order created, opening payment")

	payCtx, cancel := context.WithTimeout(ctx, o.paymentTimeout)
	session, err := o.widget.Open(payCtx, PaymentRequest{
		Reference: reference,
		Amount:    total,
		Customer:  customer,
		Lines:     lines,
	})
	cancel()
	if err != nil {
		o.mu.Lock()
		var failed *domain.CheckoutAttempt
		if o.attempt != nil && o.attempt.ID == attemptID && o.state == domain.CheckoutStatePaymentInFlight {
			o.attempt.Error = err.Error()
			_ = o.transitionLocked(domain.CheckoutStatePaymentFailed)
			snap := o.snapshotLocked()
			failed = &snap
		}
		o.mu.Unlock()
		if failed != nil {
			o.record(*failed)
		}

		log.Error("payment widget could not be opened", zap.Error(err))
		return nil, &PaymentHandoffError{Reference: reference, Err: err}
	}

	return &Handoff{
		AttemptID:        attemptID,
		Reference:        reference,
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		Amount:           total,
		Email:            customer.Email,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		PublicKey:        session.PublicKey,
	}, nil
}
