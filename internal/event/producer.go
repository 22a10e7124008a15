package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forrex322/shop/internal/domain"
	pkgkafka "github.com/forrex322/shop/pkg/kafka"
	"github.com/forrex322/shop/pkg/logger"
)

// Kafka topics for storefront events.
const (
	TopicCartUpdated = "shop.cart.updated"
	TopicOrderPlaced = "shop.order.placed"
)

const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"

	SourceStorefront = "storefront"
)

// Cart actions carried by a cart.updated event.
const (
	CartActionAdded           = "item_added"
	CartActionRemoved         = "item_removed"
	CartActionQuantityChanged = "quantity_changed"
	CartActionAdopted         = "adopted"
)

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	CartID        string `json:"cart_id"`
	OwnerID       string `json:"owner_id"`
	Action        string `json:"action"`
	ProductID     string `json:"product_id,omitempty"`
	TotalQuantity int    `json:"total_quantity"`
	TotalPrice    int64  `json:"total_price"`
}

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	CartID        string `json:"cart_id"`
	BuyingType    string `json:"buying_type"`
	OrderDate     string `json:"order_date"`
	TotalQuantity int    `json:"total_quantity"`
	TotalPrice    int64  `json:"total_price"`
}

// Publisher is the part of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a producer on top of a Kafka publisher.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCartUpdated announces a cart mutation with the cart's new totals.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart, action, productID string) error {
	data := CartUpdatedData{
		CartID:        cart.ID,
		OwnerID:       cart.OwnerID,
		Action:        action,
		ProductID:     productID,
		TotalQuantity: cart.TotalQuantity,
		TotalPrice:    cart.TotalPrice,
	}
	return p.publish(ctx, TopicCartUpdated, cart.ID, AggregateTypeCart, data, "owner_id", cart.OwnerID)
}

// PublishOrderPlaced announces a committed order.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	data := OrderPlacedData{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		CartID:        order.CartID,
		BuyingType:    string(order.BuyingType),
		OrderDate:     order.OrderDate.Format(domain.OrderDateLayout),
		TotalQuantity: order.TotalQuantity,
		TotalPrice:    order.TotalPrice,
	}
	return p.publish(ctx, TopicOrderPlaced, order.ID, AggregateTypeOrder, data, "customer_id", order.CustomerID)
}

// publish wraps data in an envelope. The routing key/value pair is copied
// into the envelope metadata.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any, routeKey, routeValue string) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithMetadata(routeKey, routeValue)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// Nop drops every event. It stands in for Producer when no brokers are
// configured.
type Nop struct{}

func (Nop) PublishCartUpdated(context.Context, *domain.Cart, string, string) error { return nil }

func (Nop) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
