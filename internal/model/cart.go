package model

import "github.com/shopspring/decimal"

// CartItem is a single cart line: a product snapshot plus its quantity.
// Lines in an authenticated cart also carry the server-assigned line ID,
// which is distinct from the product ID.
type CartItem struct {
	ID        int64           `json:"id,omitempty"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddItemPayload carries the product snapshot for an add-to-cart request.
type AddItemPayload struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Cart is the view-facing shape rendered by the cart and checkout pages.
type Cart struct {
	Items    []CartItem      `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ServerCart mirrors the upstream GET /fetchCart response body.
type ServerCart struct {
	CartID int64      `json:"cart_id"`
	Items  []CartItem `json:"items"`
	Count  int        `json:"count"`
}

// SumQuantities returns the total item count across all lines.
func SumQuantities(items []CartItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// Subtotal returns the sum of all line totals.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
