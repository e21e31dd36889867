package orderapi

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
	"github.com/nevelline/storefront/internal/circuitbreaker"
	"github.com/nevelline/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const paymentMethod = "paystack"

// Client creates orders through the storefront REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*domain.CreatedOrder]
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cfg := circuitbreaker.DefaultConfig()
	// a rejected payload is not an outage
	cfg.IsSuccessful = func(err error) bool {
		var se *StatusError
		return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[*domain.CreatedOrder]("order-api", cfg, logger),
		logger:  logger,
	}
}

type orderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
}

type createOrderRequest struct {
	CustomerName    string               `json:"customerName"`
	CustomerEmail   string               `json:"customerEmail"`
	CustomerPhone   string               `json:"customerPhone"`
	CustomerAddress string               `json:"customerAddress"`
	Items           []orderItem          `json:"items"`
	Subtotal        int64                `json:"subtotal"`
	Shipping        int64                `json:"shipping"`
	Total           int64                `json:"total"`
	PaymentMethod   string               `json:"paymentMethod"`
	Status          domain.OrderStatus   `json:"status"`
	PaymentStatus   domain.PaymentStatus `json:"paymentStatus"`
}

type orderIdentity struct {
	ID          string `json:"_id"`
	OrderNumber string `json:"orderNumber"`
}

// createOrderResponse accepts the identifiers at the top level or under data/order.
type createOrderResponse struct {
	orderIdentity
	Data  *orderIdentity `json:"data"`
	Order *orderIdentity `json:"order"`
}

func (r createOrderResponse) identity() orderIdentity {
	for _, id := range []*orderIdentity{&r.orderIdentity, r.Data, r.Order} {
		if id != nil && (id.ID != "" || id.OrderNumber != "") {
			return *id
		}
	}
	return orderIdentity{}
}

func newCreateOrderRequest(req checkout.OrderRequest) createOrderRequest {
	items := make([]orderItem, len(req.Lines))
	for i, l := range req.Lines {
		items[i] = orderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Color:     l.VariantKey,
		}
	}
	return createOrderRequest{
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   req.Customer.Phone,
		CustomerAddress: req.Customer.FullAddress(),
		Items:           items,
		Subtotal:        req.Subtotal,
		Shipping:        req.Shipping,
		Total:           req.Total,
		PaymentMethod:   paymentMethod,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
	}
}

// CreateOrder posts the order. Only the returned _id and orderNumber are used.
func (c *Client) CreateOrder(ctx context.Context, req checkout.OrderRequest) (*domain.CreatedOrder, error) {
	body, err := json.Marshal(newCreateOrderRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}

	return c.breaker.Execute(func() (*domain.CreatedOrder, error) {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) (*domain.CreatedOrder, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("order API request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	id := out.identity()
	if id.ID == "" && id.OrderNumber == "" {
		return nil, ErrMissingOrderID
	}
	return &domain.CreatedOrder{ID: id.ID, OrderNumber: id.OrderNumber}, nil
}
