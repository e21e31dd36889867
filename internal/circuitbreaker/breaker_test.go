package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour
	cb := New[int]("test", cfg, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	calls := 0
	_, err := cb.Execute(func() (int, error) { calls++; return 1, nil })
	assert.True(t, IsOpen(err))
	assert.Equal(t, 0, calls)
}

func TestBreaker_IgnoresSuccessfulErrors(t *testing.T) {
	errClient := errors.New("bad request")
	cfg := DefaultConfig()
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errClient) }
	cb := New[int]("test", cfg, nil)

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errClient })
		require.ErrorIs(t, err, errClient)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errBoom))
	assert.False(t, IsOpen(nil))
}
