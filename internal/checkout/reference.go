package checkout

import (
	"fmt"
	"time"

	"github.com/nevelline/storefront/internal/domain"
)

const referencePrefix = "ORDER-"

// newReference mints the payment reference for an order. The timestamp keeps references
// unique across retries of the same order number.
func newReference(order domain.CreatedOrder, now time.Time) string {
	return fmt.Sprintf("%s%s-%d", referencePrefix, order.Ref(), now.UnixNano())
}
