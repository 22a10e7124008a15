package service

import (
	"context"

	"github.com/forrex322/shop/internal/domain"
)

// EventPublisher announces cart and order changes. Failures are logged by
// the caller and never undo a committed change.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart, action, productID string) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}
