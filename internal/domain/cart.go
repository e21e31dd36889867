package domain

// LineItem is one row of a cart. ProductID and VariantKey together identify the line.
type LineItem struct {
	ProductID  string `json:"productId" bson:"product_id"`
	VariantKey string `json:"variantKey,omitempty" bson:"variant_key,omitempty"`
	Name       string `json:"name,omitempty" bson:"name,omitempty"`
	UnitPrice  int64  `json:"unitPrice" bson:"unit_price"` // minor units
	Quantity   int    `json:"quantity" bson:"quantity"`
}

// Subtotal is the line price in minor units.
func (l LineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

func (l LineItem) sameLine(productID, variantKey string) bool {
	return l.ProductID == productID && l.VariantKey == variantKey
}

// Valid reports whether the line can exist in a cart.
func (l LineItem) Valid() bool {
	return l.ProductID != "" && l.Quantity > 0 && l.UnitPrice >= 0
}

type Cart struct {
	Lines []LineItem `json:"lines"`
}

func (c Cart) Total() int64 {
	return Total(c.Lines)
}

func (c Cart) ItemCount() int {
	return ItemCount(c.Lines)
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total sums UnitPrice × Quantity over lines.
func Total(lines []LineItem) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

func ItemCount(lines []LineItem) int {
	var count int
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// CloneLines returns a copy that shares nothing with lines.
func CloneLines(lines []LineItem) []LineItem {
	if lines == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(lines))
	copy(out, lines)
	return out
}
