package checkout

import (
	"context"

	"github.com/nevelline/storefront/internal/domain"
)

// OrderRequest is the order creation payload built from a cart snapshot.
type OrderRequest struct {
	Customer domain.Customer
	Lines    []domain.LineItem
	Subtotal int64
	Shipping int64
	Total    int64
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*domain.CreatedOrder, error)
}

// PaymentRequest is what the payment widget is opened with.
type PaymentRequest struct {
	Reference string
	Amount    int64 // minor units
	Customer  domain.Customer
	Lines     []domain.LineItem
}

// WidgetSession describes how the client continues the payment.
type WidgetSession struct {
	AuthorizationURL string
	AccessCode       string
	PublicKey        string
}

type PaymentWidget interface {
	Open(ctx context.Context, req PaymentRequest) (*WidgetSession, error)
}

type AttemptJournal interface {
	Record(ctx context.Context, attempt domain.CheckoutAttempt) error
}

// CartClearer is the part of the cart store checkout needs.
type CartClearer interface {
	Clear()
}
