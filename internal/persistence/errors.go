package persistence

import "fmt"

// StorageDecodeError means the stored blob could not be decoded. It never leaves
// this package; Load treats it as an empty cart.
type StorageDecodeError struct {
	Key string
	Err error
}

func (e *StorageDecodeError) Error() string {
	return fmt.Sprintf("decode cart at %q: %v", e.Key, e.Err)
}

func (e *StorageDecodeError) Unwrap() error {
	return e.Err
}
