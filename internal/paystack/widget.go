// Package paystack opens Paystack transactions for checkout handoffs.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nevelline/storefront/internal/checkout"
	"github.com/nevelline/storefront/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.paystack.co"

var ErrNotConfigured = errors.New("paystack secret key is not configured")

var _ checkout.PaymentWidget = (*Widget)(nil)

type Config struct {
	BaseURL     string
	PublicKey   string
	SecretKey   string
	Currency    string
	CallbackURL string
	Timeout     time.Duration
}

// Widget initializes a transaction for each handoff and returns where the customer pays.
type Widget struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewWidget(cfg Config, logger *zap.Logger) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Widget{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

type customField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
	Metadata    struct {
		CustomFields []customField `json:"custom_fields"`
	} `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func cartSummary(lines []domain.LineItem) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		name := l.Name
		if name == "" {
			name = l.ProductID
		}
		parts[i] = fmt.Sprintf("%s x%d", name, l.Quantity)
	}
	return strings.Join(parts, ", ")
}

func newInitializeRequest(cfg Config, req checkout.PaymentRequest) initializeRequest {
	body := initializeRequest{
		Email:       req.Customer.Email,
		Amount:      req.Amount,
		Currency:    cfg.Currency,
		Reference:   req.Reference,
		CallbackURL: cfg.CallbackURL,
	}
	body.Metadata.CustomFields = []customField{
		{DisplayName: "Customer Name", VariableName: "customer_name", Value: req.Customer.Name},
		{DisplayName: "Phone Number", VariableName: "phone_number", Value: req.Customer.Phone},
		{DisplayName: "Cart Items", VariableName: "cart_items", Value: cartSummary(req.Lines)},
	}
	return body
}

// Open initializes a transaction. Amount is already in minor units.
func (w *Widget) Open(ctx context.Context, req checkout.PaymentRequest) (*checkout.WidgetSession, error) {
	if w.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(newInitializeRequest(w.cfg, req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+w.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		w.logger.Warn("paystack initialize request failed", zap.Error(err), zap.String("reference", req.Reference))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("paystack returned %d: %s", resp.StatusCode, string(body))
	}

	var out initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack rejected transaction: %s", out.Message)
	}

	return &checkout.WidgetSession{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		PublicKey:        w.cfg.PublicKey,
	}, nil
}
