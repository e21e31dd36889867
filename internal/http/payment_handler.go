package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nevelline/storefront/internal/checkout"
	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/payment"
	"github.com/nevelline/storefront/internal/session"
	"go.uber.org/zap"
)

type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*domain.Verification, error)
}

type PaymentHandler struct {
	verifier PaymentVerifier
	sessions *session.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPaymentHandler(verifier PaymentVerifier, sessions *session.Registry, timeout time.Duration, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{
		verifier: verifier,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

type VerifyResponseDTO struct {
	Verification *domain.Verification   `json:"verification"`
	Confirmation *checkout.Confirmation `json:"confirmation,omitempty"`
}

// GET /api/v1/payments/verify?reference=|trxref=
// The gateway return page. A successful payment for the session's attempt in flight
// confirms it, which clears the cart.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	reference := payment.ReferenceFromQuery(r.URL.Query())
	v, err := h.verifier.Verify(ctx, reference)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	resp := VerifyResponseDTO{Verification: v}
	if v.Outcome == domain.PaymentOutcomeSuccess {
		s := h.sessions.Get(ctx, getSessionID(ctx))
		conf, err := s.Checkout.OnPaymentSuccess(ctx, reference)
		switch {
		case err == nil:
			resp.Confirmation = conf
		case errors.Is(err, checkout.ErrReferenceMismatch), errors.Is(err, checkout.ErrIllegalTransition):
			// paid through a link or from another session
			h.logger.Info("verified payment has no attempt in this session",
				zap.String("reference", reference),
				zap.String("session_id", s.ID))
		default:
			handleError(w, h.logger, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
