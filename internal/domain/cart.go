package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order type constants.
const (
	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeout  = "takeout"
	OrderTypeDelivery = "delivery"
)

// CartItem is a single line of an order. Price is the unit price captured
// when the line was added; Discount and Tax are maintained by later pricing
// stages.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Modifiers []Modifier      `json:"modifiers"`
	Product   Product         `json:"product"`
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is a snapshot of an open order owned by the order terminal.
type Cart struct {
	ID        string     `json:"id"`
	OrderType string     `json:"order_type"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Subtotal sums the line totals of all items.
func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items)
}

// Subtotal sums price times quantity over the given items.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
