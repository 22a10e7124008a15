package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/session"
	apperrors "github.com/forrex322/shop/pkg/errors"
	"github.com/forrex322/shop/pkg/httputil"
	"github.com/forrex322/shop/pkg/logger"
	"github.com/forrex322/shop/pkg/middleware"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	ownerKey   contextKey = "owner"
)

// SessionCookie configures the cookie that carries the session ID.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Identify resolves who is calling. It loads the session named by the
// cookie, starting a new one when the cookie is missing or stale, and
// derives the cart owner: the customer from a bearer token if
// middleware.Authenticate accepted one, else the customer bound to the
// session, else the anonymous session itself.
//
// Mount it after middleware.Authenticate and before middleware.RequestLogger.
func Identify(sessions *session.Store, cookie SessionCookie, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess, err := loadSession(ctx, sessions, r, cookie.Name)
			if err != nil {
				httputil.WriteError(w, r, err, l)
				return
			}
			if sess == nil {
				if sess, err = sessions.Create(ctx); err != nil {
					httputil.WriteError(w, r, sessionUnavailable(err), l)
					return
				}
			}
			// Refresh the cookie so its expiry follows the sliding session TTL.
			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(cookie.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			owner := sess.Owner()
			if claims, ok := middleware.ClaimsFromContext(ctx); ok {
				owner = domain.CustomerOwner(claims.CustomerID, sess.ID)
			}

			ctx = context.WithValue(ctx, sessionKey, sess)
			ctx = context.WithValue(ctx, ownerKey, owner)
			ctx = logger.WithSessionID(ctx, sess.ID)
			ctx = logger.WithOwnerID(ctx, owner.Key())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loadSession(ctx context.Context, sessions *session.Store, r *http.Request, name string) (*session.Session, error) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	sess, err := sessions.Get(ctx, c.Value)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, nil
	default:
		return nil, sessionUnavailable(err)
	}
}

func sessionUnavailable(err error) error {
	return &apperrors.AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: "session store is unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(apperrors.ErrServiceUnavail, err),
	}
}

// sessionFromContext returns the session resolved by Identify.
func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// ownerFromContext returns the cart owner resolved by Identify.
func ownerFromContext(ctx context.Context) domain.Owner {
	owner, _ := ctx.Value(ownerKey).(domain.Owner)
	return owner
}
