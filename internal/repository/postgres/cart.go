package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/pkg/database"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

const cartColumns = `id, owner_id, total_quantity, total_price, finalized, COALESCE(order_id::text, ''), created_at, updated_at`

// getOrCreateAttempts bounds the insert-then-read loop in GetOrCreateOpen. A
// retry is only needed when the cart is finalized between the two statements.
const getOrCreateAttempts = 3

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var c domain.Cart
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.TotalQuantity, &c.TotalPrice, &c.Finalized, &c.OrderID, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreateOpen inserts an empty cart unless the owner already has an
// open one, then reads whichever cart won. The partial unique index on
// open carts makes the insert a no-op for every caller but the first.
func (r *CartRepository) GetOrCreateOpen(ctx context.Context, ownerID string) (_ *domain.Cart, err error) {
	query := `
		INSERT INTO carts (id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (owner_id) WHERE NOT finalized DO NOTHING`

	ctx, end := trace(ctx, "GetOrCreateOpenCart", query)
	defer func() { end(err) }()

	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		if _, err = r.pool.Exec(ctx, query, uuid.NewString(), ownerID, now()); err != nil {
			return nil, fmt.Errorf("insert cart: %w", err)
		}

		cart, findErr := r.FindOpen(ctx, ownerID)
		if findErr == nil {
			return cart, nil
		}
		if !errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, findErr
		}
	}
	return nil, fmt.Errorf("get or create cart for %s: no open cart after %d attempts", ownerID, getOrCreateAttempts)
}

// FindOpen returns the owner's open cart header.
func (r *CartRepository) FindOpen(ctx context.Context, ownerID string) (_ *domain.Cart, err error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE owner_id = $1 AND NOT finalized`

	ctx, end := trace(ctx, "FindOpenCart", query)
	defer func() { end(err) }()

	cart, err := scanCart(r.pool.QueryRow(ctx, query, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("open cart for", ownerID)
		}
		return nil, fmt.Errorf("find open cart: %w", err)
	}
	return cart, nil
}

// GetForUpdate reads the cart header with a row lock held until the
// surrounding transaction ends.
func (r *CartRepository) GetForUpdate(ctx context.Context, cartID string) (_ *domain.Cart, err error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE id = $1 FOR UPDATE`

	ctx, end := trace(ctx, "LockCart", query)
	defer func() { end(err) }()

	cart, err := scanCart(r.pool.QueryRow(ctx, query, cartID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", cartID)
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return cart, nil
}

// ListItems returns the cart lines with their products, oldest first.
func (r *CartRepository) ListItems(ctx context.Context, cartID string) (_ []domain.CartItem, err error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.owner_id, ci.quantity, ci.created_at,
			p.id, p.category_id, p.title, p.slug, p.description, p.image_url, p.price, p.created_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`

	ctx, end := trace(ctx, "ListCartItems", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var (
			it domain.CartItem
			p  = &it.Product
		)
		if err := rows.Scan(
			&it.ID, &it.CartID, &it.OwnerID, &it.Quantity, &it.CreatedAt,
			&p.ID, &p.CategoryID, &p.Title, &p.Slug, &p.Description, &p.ImageURL, &p.Price, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.ProductID = p.ID
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}

	return items, nil
}

// AddItemIfAbsent inserts the line unless (owner, cart, product) already
// exists. The unique constraint decides, so two concurrent adds produce
// exactly one row.
func (r *CartRepository) AddItemIfAbsent(ctx context.Context, item *domain.CartItem) (_ bool, err error) {
	query := `
		INSERT INTO cart_items (id, cart_id, owner_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id, cart_id, product_id) DO NOTHING`

	ctx, end := trace(ctx, "AddCartItem", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		item.ID, item.CartID, item.OwnerID, item.ProductID, item.Quantity, item.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert cart item: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// DeleteItem removes the line for productID.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, productID string) (err error) {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	ctx, end := trace(ctx, "DeleteCartItem", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}

// SetItemQuantity updates the quantity of the line for productID.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, productID string, qty int) (err error) {
	query := `UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2`

	ctx, end := trace(ctx, "SetCartItemQuantity", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, cartID, productID, qty)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}

// SaveTotals stores the cart's derived totals.
func (r *CartRepository) SaveTotals(ctx context.Context, cart *domain.Cart) (err error) {
	query := `UPDATE carts SET total_quantity = $2, total_price = $3, updated_at = $4 WHERE id = $1`

	ctx, end := trace(ctx, "SaveCartTotals", query)
	defer func() { end(err) }()

	cart.UpdatedAt = now()
	ct, err := r.pool.Exec(ctx, query, cart.ID, cart.TotalQuantity, cart.TotalPrice, cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart totals: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart", cart.ID)
	}
	return nil
}

// Finalize binds an open cart to orderID.
func (r *CartRepository) Finalize(ctx context.Context, cartID, orderID string) (err error) {
	query := `UPDATE carts SET finalized = TRUE, order_id = $2, updated_at = $3 WHERE id = $1 AND NOT finalized`

	ctx, end := trace(ctx, "FinalizeCart", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, cartID, orderID, now())
	if err != nil {
		return fmt.Errorf("finalize cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.InvalidState("cart is already part of an order")
	}
	return nil
}

// TransferOwner reassigns an open cart and its lines to ownerID.
func (r *CartRepository) TransferOwner(ctx context.Context, cartID, ownerID string) (err error) {
	query := `UPDATE carts SET owner_id = $2, updated_at = $3 WHERE id = $1 AND NOT finalized`

	ctx, end := trace(ctx, "TransferCart", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, cartID, ownerID, now())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.InvalidState("owner already has an open cart")
		}
		return fmt.Errorf("transfer cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.InvalidState("cart is already part of an order")
	}

	if _, err = r.pool.Exec(ctx, `UPDATE cart_items SET owner_id = $2 WHERE cart_id = $1`, cartID, ownerID); err != nil {
		return fmt.Errorf("transfer cart items: %w", err)
	}
	return nil
}
