package payment

import (
	"errors"
	"fmt"
)

var (
	ErrMissingReference = errors.New("payment reference not found")
	errUnsuccessful     = errors.New("verification endpoint reported failure")
)

// VerificationError is returned once every verification attempt has failed.
type VerificationError struct {
	Reference string
	Attempts  int
	Message   string // last message returned by the endpoint, if any
	Err       error
}

func (e *VerificationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("verification of %s failed after %d attempts: %s", e.Reference, e.Attempts, e.Message)
	}
	return fmt.Sprintf("verification of %s failed after %d attempts: %v", e.Reference, e.Attempts, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer from the payments API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payments API returned %d: %s", e.Code, e.Body)
}
