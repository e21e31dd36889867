package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nevelline/storefront/internal/domain"
	"github.com/nevelline/storefront/internal/session"
)

const maxLineQuantity = 99

type CartHandler struct {
	sessions *session.Registry
}

func NewCartHandler(sessions *session.Registry) *CartHandler {
	return &CartHandler{sessions: sessions}
}

type AddItemRequestDTO struct {
	ProductID  string `json:"productId"`
	VariantKey string `json:"variantKey"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.LineItem `json:"items"`
	Total     int64             `json:"total"`
	ItemCount int               `json:"itemCount"`
}

func newCartResponse(sessionID string, lines []domain.LineItem) CartResponseDTO {
	return CartResponseDTO{
		SessionID: sessionID,
		Items:     lines,
		Total:     domain.Total(lines),
		ItemCount: domain.ItemCount(lines),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, newCartResponse(s.ID, s.Cart.Lines()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "unitPrice must not be negative")
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	if lineQuantity(s.Cart.Lines(), req.ProductID, req.VariantKey)+req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "a cart line cannot hold more than 99")
		return
	}
	lines := s.Cart.Add(domain.LineItem{
		ProductID:  req.ProductID,
		VariantKey: req.VariantKey,
		Name:       req.Name,
		UnitPrice:  req.UnitPrice,
		Quantity:   req.Quantity,
	})

	respondJSON(w, http.StatusCreated, newCartResponse(s.ID, lines))
}

func lineQuantity(lines []domain.LineItem, productID, variantKey string) int {
	for _, l := range lines {
		if l.ProductID == productID && l.VariantKey == variantKey {
			return l.Quantity
		}
	}
	return 0
}

// PUT /api/v1/cart/items/{product_id}?variant=
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	lines := s.Cart.UpdateQuantity(productID, r.URL.Query().Get("variant"), req.Quantity)

	respondJSON(w, http.StatusOK, newCartResponse(s.ID, lines))
}

// DELETE /api/v1/cart/items/{product_id}?variant=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	lines := s.Cart.Remove(productID, r.URL.Query().Get("variant"))

	respondJSON(w, http.StatusOK, newCartResponse(s.ID, lines))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	s.Cart.Clear()

	respondJSON(w, http.StatusOK, newCartResponse(s.ID, s.Cart.Lines()))
}
