package domain

import "strings"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Customer is the shipping form. Only presence of the required fields is checked.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

// Normalized returns the customer with surrounding whitespace removed from every field.
func (c Customer) Normalized() Customer {
	return Customer{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		City:    strings.TrimSpace(c.City),
		State:   strings.TrimSpace(c.State),
		ZipCode: strings.TrimSpace(c.ZipCode),
	}
}

// FullAddress joins the street address with the optional city, state and zip code.
func (c Customer) FullAddress() string {
	parts := []string{c.Address}
	for _, p := range []string{c.City, c.State, c.ZipCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CreatedOrder is what the order API hands back. Only the identifiers are trusted.
type CreatedOrder struct {
	ID          string
	OrderNumber string
}

// Ref returns the identifier used for payment reference minting.
func (o CreatedOrder) Ref() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}
