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

const customerColumns = `id, user_id, username, password_hash, first_name, last_name, phone, address, created_at`

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	if err := row.Scan(
		&c.ID, &c.UserID, &c.Username, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Phone, &c.Address, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (_ *domain.Customer, err error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	ctx, end := trace(ctx, "GetCustomer", query)
	defer func() { end(err) }()

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer", id)
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// GetByUsername retrieves a customer by login name.
func (r *CustomerRepository) GetByUsername(ctx context.Context, username string) (_ *domain.Customer, err error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE username = $1`

	ctx, end := trace(ctx, "GetCustomerByUsername", query)
	defer func() { end(err) }()

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("customer", username)
		}
		return nil, fmt.Errorf("get customer by username: %w", err)
	}
	return c, nil
}

// Create inserts a customer.
func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) (err error) {
	query := `
		INSERT INTO customers (id, user_id, username, password_hash, first_name, last_name, phone, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ctx, end := trace(ctx, "CreateCustomer", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.Username, c.PasswordHash, c.FirstName, c.LastName, c.Phone, c.Address, c.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("customer", "username", c.Username)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// EnsureForIdentity upserts on user_id so the first login creates the
// customer and later ones refresh the username.
func (r *CustomerRepository) EnsureForIdentity(ctx context.Context, identity domain.Identity) (_ *domain.Customer, err error) {
	query := `
		INSERT INTO customers (id, user_id, username, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET username = EXCLUDED.username
		RETURNING ` + customerColumns

	ctx, end := trace(ctx, "EnsureCustomer", query)
	defer func() { end(err) }()

	c, err := scanCustomer(r.pool.QueryRow(ctx, query,
		uuid.NewString(), identity.UserID, identity.Username, identity.FirstName, identity.LastName, now(),
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("customer", "username", identity.Username)
		}
		return nil, fmt.Errorf("ensure customer: %w", err)
	}
	return c, nil
}

// AttachOrder records orderID in the customer's orders.
func (r *CustomerRepository) AttachOrder(ctx context.Context, customerID, orderID string) (err error) {
	query := `INSERT INTO customer_orders (customer_id, order_id) VALUES ($1, $2)`

	ctx, end := trace(ctx, "AttachCustomerOrder", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, customerID, orderID); err != nil {
		return fmt.Errorf("attach order to customer: %w", err)
	}
	return nil
}
