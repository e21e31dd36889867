package checkout

import (
	"context"
	"fmt"

	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

// Confirmation is handed to the success page.
type Confirmation struct {
	Reference   string `json:"reference"`
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Amount      int64  `json:"amount"`
}

// OnPaymentSuccess confirms the payment in flight and clears the cart. Repeating the call
// for an already confirmed reference returns the same confirmation.
func (o *Orchestrator) OnPaymentSuccess(_ context.Context, reference string) (*Confirmation, error) {
	o.mu.Lock()
	if o.state != domain.CheckoutStatePaymentInFlight && o.state != domain.CheckoutStatePaymentConfirmed {
		state := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, state, domain.CheckoutStatePaymentConfirmed)
	}
	if o.attempt.Reference != reference {
		o.mu.Unlock()
		return nil, ErrReferenceMismatch
	}
	if o.state == domain.CheckoutStatePaymentConfirmed {
		conf := o.confirmationLocked()
		o.mu.Unlock()
		return conf, nil
	}
	if err := o.transitionLocked(domain.CheckoutStatePaymentConfirmed); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.cart.Clear()
	conf := o.confirmationLocked()
	confirmed := o.snapshotLocked()
	o.mu.Unlock()
	o.record(confirmed)

	o.logger.Info("payment confirmed",
		zap.String("reference", reference),
		zap.String("order_id", confirmed.OrderID))
	return conf, nil
}

// OnPaymentCancelled records that the customer closed the widget. The cart is kept.
func (o *Orchestrator) OnPaymentCancelled(_ context.Context) error {
	return o.finish(domain.CheckoutStatePaymentCancelled, "")
}

// OnPaymentFailed records a widget-reported failure. The cart is kept.
func (o *Orchestrator) OnPaymentFailed(_ context.Context, reason string) error {
	return o.finish(domain.CheckoutStatePaymentFailed, reason)
}

func (o *Orchestrator) finish(to domain.CheckoutState, reason string) error {
	o.mu.Lock()
	if err := o.transitionLocked(to); err != nil {
		o.mu.Unlock()
		return err
	}
	if reason != "" {
		o.attempt.Error = reason
	}
	done := o.snapshotLocked()
	o.mu.Unlock()
	o.record(done)

	o.logger.Info("payment ended",
		zap.String("reference", done.Reference),
		zap.String("state", to.String()),
		zap.String("reason", reason))
	return nil
}

func (o *Orchestrator) confirmationLocked() *Confirmation {
	return &Confirmation{
		Reference:   o.attempt.Reference,
		OrderID:     o.attempt.OrderID,
		OrderNumber: o.attempt.OrderNumber,
		Amount:      o.attempt.Total,
	}
}
