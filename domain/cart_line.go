package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CartLine is one product entry with quantity and selected options.
type CartLine struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	VariantSKU string          `json:"variantSku,omitempty"`
	Image      string          `json:"image,omitempty"`
	Color      string          `json:"color,omitempty"`
	Size       string          `json:"size,omitempty"`
	Model      string          `json:"model,omitempty"`
	ModelName  string          `json:"modelName,omitempty"`
}

// UnmarshalJSON accepts the shapes the storefront writes: "price" for staged
// buy-now lines, and the product id either flat or nested under "product".
func (l *CartLine) UnmarshalJSON(data []byte) error {
	type plain CartLine
	var raw struct {
		plain
		AltProductID string           `json:"product_id"`
		Price        *decimal.Decimal `json:"price"`
		Product      json.RawMessage  `json:"product"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = CartLine(raw.plain)

	if l.UnitPrice.IsZero() && raw.Price != nil {
		l.UnitPrice = *raw.Price
	}
	if l.ProductID == "" {
		l.ProductID = raw.AltProductID
	}
	if l.ProductID == "" && len(raw.Product) > 0 {
		l.ProductID = nestedProductID(raw.Product)
	}
	return nil
}

func nestedProductID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID  string `json:"_id"`
		Alt string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.ID != "" {
		return obj.ID
	}
	return obj.Alt
}

// HasProductID reports whether the line resolves to a product.
func (l CartLine) HasProductID() bool {
	return strings.TrimSpace(l.ProductID) != ""
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey identifies duplicate additions of the same product configuration.
// Guest and server carts both match on this key.
func LineKey(l CartLine) string {
	return strings.Join([]string{
		l.ProductID,
		l.ModelName,
		l.VariantSKU,
		l.Color,
		l.Model,
		l.Size,
	}, "|")
}

// Subtotal sums the line totals.
func Subtotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// MergeLines folds extra into base. Lines sharing a LineKey add their
// quantities; new lines are appended in their original order.
func MergeLines(base, extra []CartLine) []CartLine {
	merged := make([]CartLine, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))

	for _, l := range append(append([]CartLine{}, base...), extra...) {
		key := LineKey(l)
		if i, ok := index[key]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// CompactLines drops nil entries left behind by stored arrays.
func CompactLines(lines []*CartLine) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out
}
