package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// CheckoutAttempt is the journal record of one pass through the checkout state machine.
type CheckoutAttempt struct {
	ID              string        `json:"attempt_id"`
	SessionID       string        `json:"session_id"`
	State           CheckoutState `json:"state"`
	OrderID         string        `json:"order_id,omitempty"`
	OrderNumber     string        `json:"order_number,omitempty"`
	Reference       string        `json:"reference,omitempty"`
	Total           int64         `json:"total"`
	ItemCount       int           `json:"item_count"`
	CartFingerprint string        `json:"cart_fingerprint"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Fingerprint hashes the cart contents independent of line order, so two attempts
// for the same cart snapshot share a fingerprint.
func Fingerprint(lines []LineItem) string {
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = fmt.Sprintf("%s\x1f%s\x1f%d\x1f%d", l.ProductID, l.VariantKey, l.UnitPrice, l.Quantity)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
