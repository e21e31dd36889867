package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAlreadyInProgress = errors.New("checkout already in progress")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
	ErrReferenceMismatch = errors.New("payment reference does not match the attempt in flight")
)

// ValidationError lists the fields that failed validation, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// OrderCreationError means the order API did not create an order. Nothing was charged,
// so the submission can be retried.
type OrderCreationError struct {
	Err error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Err)
}

func (e *OrderCreationError) Unwrap() error {
	return e.Err
}

// PaymentHandoffError means the order exists but the payment widget could not be opened.
type PaymentHandoffError struct {
	Reference string
	Err       error
}

func (e *PaymentHandoffError) Error() string {
	return fmt.Sprintf("payment handoff for %s failed: %v", e.Reference, e.Err)
}

func (e *PaymentHandoffError) Unwrap() error {
	return e.Err
}
