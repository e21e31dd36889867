package persistence

import (
	"context"
	"errors"
	"fmt"
)

// KV is a durable byte store addressed by key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("storage key not found")

// Key returns the namespaced storage key holding a session's cart.
func Key(sessionID string) string {
	return fmt.Sprintf("nevelline_cart:%s", sessionID)
}
