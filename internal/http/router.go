package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nevelline/storefront/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Sessions           *session.Registry
	Verifier           PaymentVerifier
	RequestTimeout     time.Duration
	CheckoutTimeout    time.Duration // order creation plus payment handoff
	VerifyTimeout      time.Duration // defaults to the verifier's Budget when it has one
	MaxRequestBodySize int64
	Logger             *zap.Logger
}

type budgeted interface {
	Budget() time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = cfg.RequestTimeout
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = cfg.RequestTimeout
		if b, ok := cfg.Verifier.(budgeted); ok && b.Budget() > 0 {
			cfg.VerifyTimeout = b.Budget()
		}
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}

	cartHandler := NewCartHandler(cfg.Sessions)
	checkoutHandler := NewCheckoutHandler(cfg.Sessions, cfg.CheckoutTimeout, logger)
	paymentHandler := NewPaymentHandler(cfg.Verifier, cfg.Sessions, cfg.VerifyTimeout, logger)
	requestTimeout := middleware.Timeout(cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Use(requestTimeout)
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.With(requestTimeout).Get("/", checkoutHandler.GetStatus)
			r.With(middleware.Timeout(cfg.CheckoutTimeout)).Post("/", checkoutHandler.Submit)
			r.With(requestTimeout).Post("/cancel", checkoutHandler.Cancel)
			r.With(requestTimeout).Post("/callback", checkoutHandler.Callback)
		})

		r.With(middleware.Timeout(cfg.VerifyTimeout)).Get("/payments/verify", paymentHandler.Verify)
	})

	return otelhttp.NewHandler(r, "storefront")
}
