package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/session"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	sessions *session.Registry
	timeout  time.Duration
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions *session.Registry, timeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

type SubmitCheckoutRequestDTO struct {
	Customer domain.Customer `json:"customer"`
}

type CheckoutStatusDTO struct {
	State   domain.CheckoutState    `json:"state"`
	Attempt *domain.CheckoutAttempt `json:"attempt,omitempty"`
}

type PaymentCallbackRequestDTO struct {
	Reference string `json:"reference"`
	Status    string `json:"status"` // success, failed or cancelled
	Reason    string `json:"reason,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubmitCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.sessions.Get(ctx, getSessionID(ctx))
	handoff, err := s.Checkout.Submit(ctx, s.Cart.Lines(), req.Customer)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, handoff)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, CheckoutStatusDTO{
		State:   s.Checkout.State(),
		Attempt: s.Checkout.Attempt(),
	})
}

// POST /api/v1/checkout/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	if err := s.Checkout.OnPaymentCancelled(r.Context()); err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutStatusDTO{State: s.Checkout.State(), Attempt: s.Checkout.Attempt()})
}

// POST /api/v1/checkout/callback
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req PaymentCallbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	switch req.Status {
	case "", "success":
		if req.Reference == "" {
			respondError(w, http.StatusBadRequest, "missing_reference", "reference is required")
			return
		}
		conf, err := s.Checkout.OnPaymentSuccess(r.Context(), req.Reference)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, conf)
		return
	case "cancelled":
		if err := s.Checkout.OnPaymentCancelled(r.Context()); err != nil {
			handleError(w, h.logger, err)
			return
		}
	case "failed":
		if err := s.Checkout.OnPaymentFailed(r.Context(), req.Reason); err != nil {
			handleError(w, h.logger, err)
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "invalid_status", "status must be success, failed or cancelled")
		return
	}

	respondJSON(w, http.StatusOK, CheckoutStatusDTO{State: s.Checkout.State(), Attempt: s.Checkout.Attempt()})
}
