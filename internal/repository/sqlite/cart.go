package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

// CartRepository implements repository.CartRepository with gorm.
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a gorm-backed cart repository.
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetOrCreateOpen relies on idx_carts_open_owner: the insert is ignored when
// the owner already has an open cart.
func (r *CartRepository) GetOrCreateOpen(ctx context.Context, ownerID string) (*domain.Cart, error) {
	m := cartModel{ID: uuid.NewString(), OwnerID: ownerID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return r.FindOpen(ctx, ownerID)
}

func (r *CartRepository) FindOpen(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var m cartModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND finalized = ?", ownerID, false).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("open cart for", ownerID)
		}
		return nil, fmt.Errorf("find open cart: %w", err)
	}
	return m.toDomain(), nil
}

// GetForUpdate asks for a row lock. SQLite has none; the dialect drops the
// clause and the surrounding IMMEDIATE transaction already excludes other
// writers.
func (r *CartRepository) GetForUpdate(ctx context.Context, cartID string) (*domain.Cart, error) {
	var m cartModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cartID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("cart", cartID)
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return m.toDomain(), nil
}

func (r *CartRepository) ListItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	var rows []cartItemModel
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, m := range rows {
		items = append(items, m.toDomain())
	}
	return items, nil
}

// AddItemIfAbsent inserts with ON CONFLICT DO NOTHING against
// uq_cart_items_owner_cart_product.
func (r *CartRepository) AddItemIfAbsent(ctx context.Context, item *domain.CartItem) (bool, error) {
	m := cartItemModel{
		ID:        item.ID,
		OwnerID:   item.OwnerID,
		CartID:    item.CartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
	}
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return false, fmt.Errorf("insert cart item: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, productID string) error {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&cartItemModel{})
	if res.Error != nil {
		return fmt.Errorf("delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}

func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, productID string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&cartItemModel{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", qty)
	if res.Error != nil {
		return fmt.Errorf("update cart item quantity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("cart item", productID)
	}
	return nil
}

func (r *CartRepository) SaveTotals(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = now()
	res := r.db.WithContext(ctx).
		Model(&cartModel{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"total_quantity": cart.TotalQuantity,
			"total_price":    cart.TotalPrice,
			"updated_at":     cart.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update cart totals: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("cart", cart.ID)
	}
	return nil
}

func (r *CartRepository) Finalize(ctx context.Context, cartID, orderID string) error {
	res := r.db.WithContext(ctx).
		Model(&cartModel{}).
		Where("id = ? AND finalized = ?", cartID, false).
		Updates(map[string]any{
			"finalized":  true,
			"order_id":   orderID,
			"updated_at": now(),
		})
	if res.Error != nil {
		return fmt.Errorf("finalize cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.InvalidState("cart is already part of an order")
	}
	return nil
}

func (r *CartRepository) TransferOwner(ctx context.Context, cartID, ownerID string) error {
	db := r.db.WithContext(ctx)

	res := db.Model(&cartModel{}).
		Where("id = ? AND finalized = ?", cartID, false).
		Updates(map[string]any{"owner_id": ownerID, "updated_at": now()})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return apperrors.InvalidState("owner already has an open cart")
		}
		return fmt.Errorf("transfer cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.InvalidState("cart is already part of an order")
	}

	if err := db.Model(&cartItemModel{}).Where("cart_id = ?", cartID).Update("owner_id", ownerID).Error; err != nil {
		return fmt.Errorf("transfer cart items: %w", err)
	}
	return nil
}
