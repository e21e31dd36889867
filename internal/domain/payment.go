package domain

type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
	PaymentOutcomePending PaymentOutcome = "pending"
)

// ClassifyGatewayStatus maps a gateway transaction status to an outcome.
// Anything that is neither settled nor failed is still pending.
func ClassifyGatewayStatus(status string) PaymentOutcome {
	switch status {
	case "success":
		return PaymentOutcomeSuccess
	case "failed":
		return PaymentOutcomeFailed
	default:
		return PaymentOutcomePending
	}
}

type PaymentCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (c PaymentCustomer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Verification is the resolved status of a payment reference.
type Verification struct {
	Reference string                 `json:"reference"`
	Outcome   PaymentOutcome         `json:"status"`
	Amount    int64                  `json:"amount"` // minor units
	Customer  PaymentCustomer        `json:"customer"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
