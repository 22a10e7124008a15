package domain

import (
	"fmt"
	"time"

	apperrors "github.com/forrex322/shop/pkg/errors"
)

// MaxItemQuantity caps a single line.
const MaxItemQuantity = 100

// Cart is one owner's basket. TotalQuantity and TotalPrice are derived from
// Items and only ever set by Recalculate.
type Cart struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Items         []CartItem `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	TotalPrice    int64      `json:"total_price"`
	Finalized     bool       `json:"finalized"`
	OrderID       string     `json:"order_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CartItem is a product line. There is at most one per (owner, cart, product).
type CartItem struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cart_id"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id"`
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// LineTotal is quantity times the product price.
func (i CartItem) LineTotal() int64 {
	return int64(i.Quantity) * i.Product.Price
}

// Recalculate recomputes the totals from the current items, discarding
// whatever was there before.
func (c *Cart) Recalculate() {
	var (
		qty   int
		price int64
	)
	for _, item := range c.Items {
		qty += item.Quantity
		price += item.LineTotal()
	}
	c.TotalQuantity = qty
	c.TotalPrice = price
}

// EnsureMutable fails with InvalidState once the cart has been turned into
// an order.
func (c *Cart) EnsureMutable() error {
	if c.Finalized {
		return apperrors.InvalidState("cart is already part of an order")
	}
	return nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ValidateQuantity checks a requested line quantity.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return apperrors.InvalidArgument("quantity must be positive")
	}
	if qty > MaxItemQuantity {
		return apperrors.InvalidArgument(fmt.Sprintf("quantity must not exceed %d", MaxItemQuantity))
	}
	return nil
}
