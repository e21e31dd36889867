package orderapi

import (
	"errors"
	"fmt"
)

var ErrMissingOrderID = errors.New("order API response carries neither _id nor orderNumber")

// StatusError is a non-2xx answer from the order API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("order API returned %d: %s", e.Code, e.Body)
}
