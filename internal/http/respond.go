package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/nevelline/storefront/internal/checkout"
	"github.com/nevelline/storefront/internal/circuitbreaker"
	"github.com/nevelline/storefront/internal/payment"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts checkout and payment errors to HTTP status codes.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validationErr   *checkout.ValidationError
		orderErr        *checkout.OrderCreationError
		handoffErr      *checkout.PaymentHandoffError
		verificationErr *payment.VerificationError
	)

	switch {
	case errors.As(err, &validationErr):
		names := make([]string, 0, len(validationErr.Fields))
		for name := range validationErr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation_failed",
			Details: strings.Join(names, ", "),
			Fields:  validationErr.Fields,
		})
	case errors.Is(err, checkout.ErrAlreadyInProgress):
		respondError(w, http.StatusConflict, "checkout_in_progress", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrReferenceMismatch):
		respondError(w, http.StatusConflict, "reference_mismatch", err.Error())
	case errors.As(err, &orderErr) && circuitbreaker.IsOpen(err):
		respondError(w, http.StatusServiceUnavailable, "order_service_unavailable", "order service is temporarily unavailable, please retry shortly")
	case errors.As(err, &orderErr):
		logger.Warn("order creation failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "order_creation_failed", "could not create your order, please retry")
	case errors.As(err, &handoffErr):
		logger.Error("payment handoff failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "could not start payment",
			Code:    "payment_handoff_failed",
			Details: handoffErr.Reference,
		})
	case errors.Is(err, payment.ErrMissingReference):
		respondError(w, http.StatusBadRequest, "missing_reference", err.Error())
	case errors.As(err, &verificationErr):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "unable to verify your payment, please contact support",
			Code:    "verification_failed",
			Details: verificationErr.Message,
		})
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
