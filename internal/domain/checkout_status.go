package domain

type CheckoutState string

const (
	CheckoutStateIdle             CheckoutState = "IDLE"
	CheckoutStateSubmitting       CheckoutState = "SUBMITTING"
	CheckoutStateOrderCreated     CheckoutState = "ORDER_CREATED"
	CheckoutStatePaymentInFlight  CheckoutState = "PAYMENT_IN_FLIGHT"
	CheckoutStatePaymentConfirmed CheckoutState = "PAYMENT_CONFIRMED"
	CheckoutStatePaymentCancelled CheckoutState = "PAYMENT_CANCELLED"
	CheckoutStatePaymentFailed    CheckoutState = "PAYMENT_FAILED"
)

var transitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:            {CheckoutStateSubmitting},
	CheckoutStateSubmitting:      {CheckoutStateOrderCreated, CheckoutStateIdle},
	CheckoutStateOrderCreated:    {CheckoutStatePaymentInFlight, CheckoutStatePaymentFailed},
	CheckoutStatePaymentInFlight: {CheckoutStatePaymentConfirmed, CheckoutStatePaymentCancelled, CheckoutStatePaymentFailed},
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStatePaymentConfirmed || s == CheckoutStatePaymentCancelled || s == CheckoutStatePaymentFailed
}

// InProgress reports whether a submission is running or awaiting the payment widget.
func (s CheckoutState) InProgress() bool {
	return s == CheckoutStateSubmitting || s == CheckoutStateOrderCreated || s == CheckoutStatePaymentInFlight
}

// CanTransitionTo reports whether from -> to is an edge of the checkout state machine.
// A terminal state may only restart at Idle.
func CanTransitionTo(from, to CheckoutState) bool {
	if from.IsTerminal() {
		return to == CheckoutStateIdle
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
