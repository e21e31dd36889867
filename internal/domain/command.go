package domain

// Command is a cart mutation. The set of implementations is closed to this package.
type Command interface {
	apply(lines []LineItem) []LineItem
}

type Add struct {
	Item LineItem
}

type Remove struct {
	ProductID  string
	VariantKey string
}

type UpdateQuantity struct {
	ProductID  string
	VariantKey string
	Quantity   int
}

type Clear struct{}

// Apply is the cart transition function. It never mutates lines.
func Apply(lines []LineItem, cmd Command) []LineItem {
	if cmd == nil {
		return CloneLines(lines)
	}
	return cmd.apply(lines)
}

func (c Add) apply(lines []LineItem) []LineItem {
	out := CloneLines(lines)
	if !c.Item.Valid() {
		return out
	}
	for i := range out {
		if out[i].sameLine(c.Item.ProductID, c.Item.VariantKey) {
			out[i].Quantity += c.Item.Quantity
			return out
		}
	}
	return append(out, c.Item)
}

func (c Remove) apply(lines []LineItem) []LineItem {
	out := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		if !l.sameLine(c.ProductID, c.VariantKey) {
			out = append(out, l)
		}
	}
	return out
}

func (c UpdateQuantity) apply(lines []LineItem) []LineItem {
	if c.Quantity <= 0 {
		return Remove{ProductID: c.ProductID, VariantKey: c.VariantKey}.apply(lines)
	}
	out := CloneLines(lines)
	for i := range out {
		if out[i].sameLine(c.ProductID, c.VariantKey) {
			out[i].Quantity = c.Quantity
			break
		}
	}
	return out
}

func (Clear) apply([]LineItem) []LineItem {
	return []LineItem{}
}
