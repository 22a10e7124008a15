package domain

import "time"

// BuyingType is how the customer receives the order.
type BuyingType string

const (
	BuyingTypeSelf     BuyingType = "self"
	BuyingTypeDelivery BuyingType = "delivery"
)

// BuyingTypes lists the fulfillment options in display order.
func BuyingTypes() []BuyingType {
	return []BuyingType{BuyingTypeSelf, BuyingTypeDelivery}
}

// Order status constants.
const (
	OrderStatusNew        = "new"
	OrderStatusInProgress = "in_progress"
	OrderStatusReady      = "is_ready"
	OrderStatusCompleted  = "completed"
)

// OrderDateLayout is the wire format of ContactFields.OrderDate.
const OrderDateLayout = "2006-01-02"

// ContactFields are the checkout form values, already validated.
type ContactFields struct {
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	BuyingType BuyingType
	OrderDate  time.Time
	Comment    string
}

// Order is created once from a cart and not modified afterwards.
type Order struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	CartID        string     `json:"cart_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	BuyingType    BuyingType `json:"buying_type"`
	Status        string     `json:"status"`
	Comment       string     `json:"comment"`
	OrderDate     time.Time  `json:"order_date"`
	TotalQuantity int        `json:"total_quantity"`
	TotalPrice    int64      `json:"total_price"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewOrder builds a new order for customerID from cart, snapshotting the
// cart totals.
func NewOrder(id, customerID string, cart *Cart, contact ContactFields, now time.Time) *Order {
	return &Order{
		ID:            id,
		CustomerID:    customerID,
		CartID:        cart.ID,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
		Phone:         contact.Phone,
		Address:       contact.Address,
		BuyingType:    contact.BuyingType,
		Status:        OrderStatusNew,
		Comment:       contact.Comment,
		OrderDate:     contact.OrderDate,
		TotalQuantity: cart.TotalQuantity,
		TotalPrice:    cart.TotalPrice,
		CreatedAt:     now,
	}
}
