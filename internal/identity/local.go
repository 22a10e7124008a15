package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

var hashCost = bcryptCost

// dummyHash is compared against for unknown usernames so both failure paths
// take about as long.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), hashCost)
	return h
})

// HashPassword returns the bcrypt hash stored in customers.password_hash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CustomerFinder looks up customers by username.
type CustomerFinder interface {
	GetByUsername(ctx context.Context, username string) (*domain.Customer, error)
}

// LocalAuthenticator verifies passwords against the customers table.
type LocalAuthenticator struct {
	customers CustomerFinder
}

// NewLocalAuthenticator creates an authenticator backed by customers.
func NewLocalAuthenticator(customers CustomerFinder) *LocalAuthenticator {
	return &LocalAuthenticator{customers: customers}
}

// Authenticate implements Authenticator.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*domain.Identity, error) {
	customer, err := a.customers.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(creds.Password))
			return nil, apperrors.Unauthenticated("invalid username or password")
		}
		return nil, fmt.Errorf("look up customer: %w", err)
	}

	if customer.PasswordHash == "" {
		return nil, apperrors.Unauthenticated("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid username or password")
	}

	return &domain.Identity{
		UserID:    customer.UserID,
		Username:  customer.Username,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
	}, nil
}
