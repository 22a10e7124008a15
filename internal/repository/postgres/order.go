package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/pkg/database"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/pagination"
)

const orderColumns = `o.id, o.customer_id, o.cart_id, o.first_name, o.last_name, o.phone, o.address,
	o.buying_type, o.status, o.comment, o.order_date, o.total_quantity, o.total_price, o.created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func orderScanTargets(o *domain.Order) []any {
	return []any{
		&o.ID, &o.CustomerID, &o.CartID, &o.FirstName, &o.LastName, &o.Phone, &o.Address,
		&o.BuyingType, &o.Status, &o.Comment, &o.OrderDate, &o.TotalQuantity, &o.TotalPrice, &o.CreatedAt,
	}
}

// Create inserts a new order. A second order for the same cart violates
// orders.cart_id UNIQUE.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	query := `
		INSERT INTO orders (id, customer_id, cart_id, first_name, last_name, phone, address,
			buying_type, status, comment, order_date, total_quantity, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := trace(ctx, "CreateOrder", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		o.ID, o.CustomerID, o.CartID, o.FirstName, o.LastName, o.Phone, o.Address,
		string(o.BuyingType), o.Status, o.Comment, o.OrderDate, o.TotalQuantity, o.TotalPrice, o.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "cart_id", o.CartID)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	ctx, end := trace(ctx, "GetOrder", query)
	defer func() { end(err) }()

	var o domain.Order
	if err = r.pool.QueryRow(ctx, query, id).Scan(orderScanTargets(&o)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first, through the
// customer_orders association.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, page pagination.Params) (_ []domain.Order, _ int, err error) {
	query := `
		SELECT ` + orderColumns + `, count(*) OVER() AS total_count
		FROM orders o
		JOIN customer_orders co ON co.order_id = o.id
		WHERE co.customer_id = $1
		ORDER BY o.created_at DESC, o.id
		LIMIT $2 OFFSET $3`

	ctx, end := trace(ctx, "ListCustomerOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, customerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(append(orderScanTargets(&o), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, total, nil
}
