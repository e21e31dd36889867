package payment

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"go.uber.org/zap"
)

const (
	maxAttempts           = 2
	defaultRetryDelay     = time.Second
	defaultAttemptTimeout = 10 * time.Second
)

// Verifier resolves a payment reference to its outcome. It never touches carts or orders.
type Verifier struct {
	client         *Client
	retryDelay     time.Duration
	attemptTimeout time.Duration
	trackLinks     bool
	logger         *zap.Logger
}

type Option func(*Verifier)

func WithRetryDelay(d time.Duration) Option {
	return func(v *Verifier) { v.retryDelay = d }
}

// WithAttemptTimeout bounds each call to the payments API, so a hung first call still
// leaves room for the retry.
func WithAttemptTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.attemptTimeout = d
		}
	}
}

// WithLinkTracking makes Verify report a payment link view before verifying.
func WithLinkTracking(enabled bool) Option {
	return func(v *Verifier) { v.trackLinks = enabled }
}

func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

func NewVerifier(client *Client, opts ...Option) *Verifier {
	v := &Verifier{
		client:         client,
		retryDelay:     defaultRetryDelay,
		attemptTimeout: defaultAttemptTimeout,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Budget is the longest Verify can take: the link tracking call, every attempt and the
// retry delay. Callers size their deadline from it.
func (v *Verifier) Budget() time.Duration {
	calls := maxAttempts
	if v.trackLinks {
		calls++
	}
	return time.Duration(calls)*v.attemptTimeout + time.Duration(maxAttempts-1)*v.retryDelay
}

// Verify asks the payments API for the status of reference. A failed call is retried
// once after the retry delay. Pending is a final answer for this call.
func (v *Verifier) Verify(ctx context.Context, reference string) (*domain.Verification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrMissingReference
	}
	log := v.logger.With(zap.String("reference", reference))

	if v.trackLinks {
		trackCtx, cancel := context.WithTimeout(ctx, v.attemptTimeout)
		err := v.client.trackLink(trackCtx, reference)
		cancel()
		if err != nil {
			log.Info("failed to track payment link view", zap.Error(err))
		}
	}

	var (
		lastErr error
		lastMsg string
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(v.retryDelay):
			case <-ctx.Done():
				return nil, &VerificationError{Reference: reference, Attempts: attempt - 1, Message: lastMsg, Err: ctx.Err()}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, v.attemptTimeout)
		resp, err := v.client.verify(attemptCtx, reference)
		cancel()
		if err == nil && !resp.Success {
			err = errUnsuccessful
			lastMsg = resp.Message
		}
		if err == nil {
			return toVerification(reference, resp), nil
		}

		lastErr = err
		log.Warn("payment verification attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	return nil, &VerificationError{Reference: reference, Attempts: maxAttempts, Message: lastMsg, Err: lastErr}
}

func toVerification(reference string, resp *verifyResponse) *domain.Verification {
	ref := resp.Data.Reference
	if ref == "" {
		ref = reference
	}
	return &domain.Verification{
		Reference: ref,
		Outcome:   domain.ClassifyGatewayStatus(resp.Data.Status),
		Amount:    resp.Data.Amount,
		Customer: domain.PaymentCustomer{
			Email:     resp.Data.Customer.Email,
			FirstName: resp.Data.Customer.FirstName,
			LastName:  resp.Data.Customer.LastName,
		},
		Metadata: resp.Data.Metadata,
	}
}

// ReferenceFromQuery reads the reference a gateway redirect carries, preferring
// reference over the gateway's trxref.
func ReferenceFromQuery(q url.Values) string {
	if ref := strings.TrimSpace(q.Get("reference")); ref != "" {
		return ref
	}
	return strings.TrimSpace(q.Get("trxref"))
}
