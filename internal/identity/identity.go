package identity

import (
	"context"

	"github.com/forrex322/shop/internal/domain"
)

// Credentials are what a shopper types into the login form.
type Credentials struct {
	Username string `json:"username" form:"username" validate:"required,notblank,max=150"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

// Authenticator checks credentials. A rejection is reported as an
// Unauthenticated AppError; any other error means the check itself failed.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*domain.Identity, error)
}
