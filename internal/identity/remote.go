package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/forrex322/shop/internal/domain"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httpclient"
)

const verifyPath = "/api/v1/auth/verify"

// RemoteAuthenticator delegates the password check to an external user
// service.
type RemoteAuthenticator struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
}

// NewRemoteAuthenticator creates an authenticator calling baseURL.
func NewRemoteAuthenticator(client *httpclient.CircuitBreakerClient, baseURL string) *RemoteAuthenticator {
	return &RemoteAuthenticator{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type verifyResponse struct {
	Data *struct {
		UserID    string `json:"user_id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"data"`
}

// Authenticate implements Authenticator.
func (a *RemoteAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*domain.Identity, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	resp, err := a.client.Post(ctx, a.baseURL+verifyPath, "application/json", bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &apperrors.AppError{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "login is temporarily unavailable",
				Status:  http.StatusServiceUnavailable,
				Err:     apperrors.ErrServiceUnavail,
			}
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_ = resp.Body.Close()
		return nil, apperrors.Unauthenticated("invalid username or password")
	case resp.StatusCode != http.StatusOK:
		return nil, httpclient.ParseResponseError(resp, "identity")
	}
	defer func() { _ = resp.Body.Close() }()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if out.Data == nil || out.Data.UserID == "" {
		return nil, fmt.Errorf("verify response carries no identity")
	}

	return &domain.Identity{
		UserID:    out.Data.UserID,
		Username:  out.Data.Username,
		FirstName: out.Data.FirstName,
		LastName:  out.Data.LastName,
	}, nil
}
