package middleware

import (
	"log/slog"
	"net/http"

	"github.com/forrex322/shop/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// whatever identity the earlier middleware resolved (correlation_id,
// owner_id, session_id, trace_id, span_id). Handlers fetch it with
// logger.FromContext.
//
// Mount it after RequestLogging, Tracing and the identity middleware.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if claims, ok := ClaimsFromContext(ctx); ok && logger.OwnerIDFromContext(ctx) == "" {
				ctx = logger.WithOwnerID(ctx, claims.CustomerID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
