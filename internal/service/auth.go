package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/identity"
	"github.com/forrex322/shop/internal/repository"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/validator"
)

// SessionBinder attaches a customer to a browser session.
type SessionBinder interface {
	Bind(ctx context.Context, id, customerID, username string) error
	Unbind(ctx context.Context, id string) error
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(c *domain.Customer) (string, time.Time, error)
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Customer    *domain.Customer `json:"customer"`
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CartAdopted bool             `json:"cart_adopted"`
}

// AuthService logs shoppers in and out.
type AuthService struct {
	authenticator identity.Authenticator
	customers     repository.CustomerRepository
	sessions      SessionBinder
	carts         *CartService
	tokens        TokenIssuer
	logger        *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(
	authenticator identity.Authenticator,
	customers repository.CustomerRepository,
	sessions SessionBinder,
	carts *CartService,
	tokens TokenIssuer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		customers:     customers,
		sessions:      sessions,
		carts:         carts,
		tokens:        tokens,
		logger:        logger,
	}
}

// Login checks the credentials, binds sessionID to the customer and moves
// the session's anonymous cart over when the customer has none.
func (s *AuthService) Login(ctx context.Context, sessionID string, creds identity.Credentials) (*LoginResult, error) {
	if err := validator.Validate(creds); err != nil {
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			return nil, apperrors.Validation(valErr.Fields())
		}
		return nil, err
	}

	id, err := s.authenticator.Authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthenticated) {
			loginsTotal.WithLabelValues("rejected").Inc()
			s.logger.InfoContext(ctx, "login rejected", slog.String("username", creds.Username))
			return nil, err
		}
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	customer, err := s.customers.EnsureForIdentity(ctx, *id)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ensure customer: %w", err)
	}

	result := &LoginResult{Customer: customer}

	if sessionID != "" {
		if err := s.sessions.Bind(ctx, sessionID, customer.ID, customer.Username); err != nil {
			loginsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("bind session: %w", err)
		}

		adopted, err := s.carts.AdoptCart(ctx,
			domain.AnonymousOwner(sessionID),
			domain.CustomerOwner(customer.ID, sessionID),
		)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to adopt anonymous cart",
				slog.String("customer_id", customer.ID),
				slog.String("error", err.Error()),
			)
		}
		result.CartAdopted = adopted
	}

	token, expires, err := s.tokens.Issue(customer)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("issue token: %w", err)
	}
	result.AccessToken = token
	result.ExpiresAt = expires

	loginsTotal.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "customer logged in",
		slog.String("customer_id", customer.ID),
		slog.Bool("cart_adopted", result.CartAdopted),
	)
	return result, nil
}

// Logout detaches the customer from sessionID. The customer's cart stays
// with the customer.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Unbind(ctx, sessionID); err != nil {
		return fmt.Errorf("unbind session: %w", err)
	}
	s.logger.InfoContext(ctx, "session logged out", slog.String("session_id", sessionID))
	return nil
}
