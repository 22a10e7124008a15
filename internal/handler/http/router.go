package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forrex322/shop/internal/session"
	"github.com/forrex322/shop/pkg/health"
	"github.com/forrex322/shop/pkg/middleware"
)

// RouterConfig carries the knobs NewRouter needs besides the handler.
type RouterConfig struct {
	ServiceName    string
	Cookie         SessionCookie
	CORS           middleware.CORSConfig
	ValidateToken  middleware.TokenValidator
	LoginLimiter   *middleware.RateLimiter
	PprofCIDRs     []string
	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	h *Handler,
	sessions *session.Store,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		r.Use(middleware.NoStore)
		r.Use(middleware.Authenticate(cfg.ValidateToken))
		r.Use(Identify(sessions, cfg.Cookie, logger))
		r.Use(middleware.RequestLogger(logger))

		r.Get("/catalog", h.Catalog)
		r.Get("/products/{slug}", h.ProductDetail)
		r.Get("/categories/{slug}", h.CategoryDetail)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/add/{slug}", h.AddToCart)
			r.Post("/remove/{slug}", h.RemoveFromCart)
			r.Post("/change-qty/{slug}", h.ChangeQuantity)
		})

		r.Get("/checkout", h.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.PlaceOrder)
			r.Get("/{id}", h.GetOrder)
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(cfg.LoginLimiter.Middleware()).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Get("/notices", h.Notices)
	})

	return r
}
