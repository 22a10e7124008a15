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

// CustomerRepository implements repository.CustomerRepository with gorm.
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository creates a gorm-backed customer repository.
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return r.getBy(ctx, "id", id)
}

func (r *CustomerRepository) GetByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	return r.getBy(ctx, "username", username)
}

func (r *CustomerRepository) getBy(ctx context.Context, column, value string) (*domain.Customer, error) {
	var m customerModel
	if err := r.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("customer", value)
		}
		return nil, fmt.Errorf("get customer by %s: %w", column, err)
	}
	return m.toDomain(), nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	m := customerModel{
		ID:           c.ID,
		UserID:       c.UserID,
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Address:      c.Address,
		CreatedAt:    c.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("customer", "username", c.Username)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	c.CreatedAt = m.CreatedAt
	return nil
}

// EnsureForIdentity upserts on user_id, refreshing the username, and reads
// the stored row back.
func (r *CustomerRepository) EnsureForIdentity(ctx context.Context, identity domain.Identity) (*domain.Customer, error) {
	m := customerModel{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		Username:  identity.Username,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username"}),
		}).
		Create(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.AlreadyExists("customer", "username", identity.Username)
		}
		return nil, fmt.Errorf("ensure customer: %w", err)
	}
	return r.getBy(ctx, "user_id", identity.UserID)
}

func (r *CustomerRepository) AttachOrder(ctx context.Context, customerID, orderID string) error {
	if err := r.db.WithContext(ctx).Create(&customerOrderModel{CustomerID: customerID, OrderID: orderID}).Error; err != nil {
		return fmt.Errorf("attach order to customer: %w", err)
	}
	return nil
}
