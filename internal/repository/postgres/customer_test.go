package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

var customerCols = []string{
	"id", "user_id", "username", "password_hash", "first_name", "last_name", "phone", "address", "created_at",
}

func TestCustomerRepository_EnsureForIdentity(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("ON CONFLICT \\(user_id\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg(), "user-7", "anna", "Anna", "", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(customerCols).
			AddRow("cust-1", "user-7", "anna", "", "Anna", "", "", "", fixedTime))

	c, err := repo.EnsureForIdentity(context.Background(), domain.Identity{UserID: "user-7", Username: "anna", FirstName: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", c.ID)
	assert.Equal(t, "user-7", c.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_EnsureForIdentity_UsernameTaken(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("INSERT INTO customers").
		WithArgs(pgxmock.AnyArg(), "user-8", "anna", "", "", pgxmock.AnyArg()).
		WillReturnError(uniqueViolation)

	_, err := repo.EnsureForIdentity(context.Background(), domain.Identity{UserID: "user-8", Username: "anna"})
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_GetByUsername(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("FROM customers WHERE username").
		WithArgs("anna").
		WillReturnRows(pgxmock.NewRows(customerCols).
			AddRow("cust-1", "cust-1", "anna", "$2a$10$hash", "", "", "", "", fixedTime))
	mock.ExpectQuery("FROM customers WHERE username").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	c, err := repo.GetByUsername(context.Background(), "anna")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", c.PasswordHash)

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("FROM customers WHERE id").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCustomerRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	c := &domain.Customer{ID: "c1", UserID: "c1", Username: "anna", PasswordHash: "$2a$10$hash", CreatedAt: fixedTime}
	mock.ExpectExec("INSERT INTO customers").
		WithArgs("c1", "c1", "anna", "$2a$10$hash", "", "", "", "", fixedTime).
		WillReturnError(uniqueViolation)

	err := repo.Create(context.Background(), c)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerRepository_AttachOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)

	mock.ExpectExec("INSERT INTO customer_orders").
		WithArgs("cust-1", "order-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.AttachOrder(context.Background(), "cust-1", "order-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
