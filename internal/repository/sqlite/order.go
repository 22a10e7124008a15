package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/pagination"
)

// OrderRepository implements repository.OrderRepository with gorm.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a gorm-backed order repository.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(newOrderModel(o)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("order", "cart_id", o.CartID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var m orderModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o := m.toDomain()
	return &o, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, page pagination.Params) ([]domain.Order, int, error) {
	q := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Joins("JOIN customer_orders co ON co.order_id = orders.id").
		Where("co.customer_id = ?", customerID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var rows []orderModel
	if err := q.Order("orders.created_at DESC, orders.id").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, m := range rows {
		orders = append(orders, m.toDomain())
	}
	return orders, int(total), nil
}
