package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/forrex322/shop/internal/auth"
	"github.com/forrex322/shop/internal/config"
	"github.com/forrex322/shop/internal/event"
	handler "github.com/forrex322/shop/internal/handler/http"
	"github.com/forrex322/shop/internal/identity"
	"github.com/forrex322/shop/internal/repository"
	"github.com/forrex322/shop/internal/repository/postgres"
	"github.com/forrex322/shop/internal/repository/sqlite"
	"github.com/forrex322/shop/internal/service"
	"github.com/forrex322/shop/internal/session"
	"github.com/forrex322/shop/migrations"
	"github.com/forrex322/shop/pkg/database"
	"github.com/forrex322/shop/pkg/health"
	"github.com/forrex322/shop/pkg/httpclient"
	pkgkafka "github.com/forrex322/shop/pkg/kafka"
	"github.com/forrex322/shop/pkg/middleware"
	"github.com/forrex322/shop/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          repository.Store
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Tracing. A disabled config installs a no-op provider.
	tcfg := cfg.Tracing
	if tcfg.ServiceName == "" {
		tcfg.ServiceName = serviceName
	}
	a.shutdownTracer, err = tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	a.store, err = OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	healthHandler.RegisterCritical(cfg.DBDriver, a.store.Ping)

	// Redis holds sessions and notices.
	a.rdb, err = database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	sessions := session.NewStore(a.rdb, cfg.SessionTTL)
	healthHandler.RegisterCritical("redis", sessions.Ping)

	// Kafka producer. Without brokers, events are dropped.
	var publisher service.EventPublisher = event.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events are disabled")
	}

	authenticator, err := newAuthenticator(cfg, a.store, logger)
	if err != nil {
		return nil, err
	}

	// Build the dependency graph.
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	catalogService := service.NewCatalogService(a.store.Catalog())
	cartService := service.NewCartService(a.store, publisher, logger)
	orderService := service.NewOrderService(a.store, publisher, logger)
	authService := service.NewAuthService(authenticator, a.store.Customers(), sessions, cartService, tokens, logger)

	h := handler.NewHandler(catalogService, cartService, orderService, authService, sessions, logger)

	a.limiter = middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst, logger)

	// HTTP router.
	router := handler.NewRouter(h, sessions, healthHandler, handler.RouterConfig{
		ServiceName: serviceName,
		Cookie: handler.SessionCookie{
			Name:   cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Secure: cfg.SecureCookie,
		},
		CORS:           cfg.CORS(),
		ValidateToken:  tokens.Validate,
		LoginLimiter:   a.limiter,
		PprofCIDRs:     cfg.PprofCIDRs,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return a, nil
}

// OpenStore connects the configured backend, applies its schema and
// registers its pool metrics.
func OpenStore(ctx context.Context, cfg config.Storage, logger *slog.Logger) (repository.Store, error) {
	database.SetSlowQueryLogging(cfg.SlowQuery, logger)

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLite(), logger)
		if err != nil {
			return nil, err
		}
		store := sqlite.NewStore(db)
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = store.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			if err := database.RegisterSQLDBMetrics(prometheus.DefaultRegisterer, sqlDB, serviceName); err != nil {
				logger.Warn("failed to register sqlite metrics", slog.String("error", err.Error()))
			}
		}
		logger.Info("opened SQLite database", slog.String("path", cfg.SQLitePath))
		return store, nil

	default:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, err
		}
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", pgCfg.Host),
			slog.String("db", pgCfg.DBName),
		)
		return postgres.NewStore(pool, pool.Close), nil
	}
}

func newAuthenticator(cfg *config.Config, store repository.Store, logger *slog.Logger) (identity.Authenticator, error) {
	switch cfg.IdentityMode {
	case config.IdentityRemote:
		client := httpclient.New(cfg.IdentityHTTP)
		breaker := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("identity"), logger)
		logger.Info("using remote identity service", slog.String("url", cfg.IdentityURL))
		return identity.NewRemoteAuthenticator(breaker, cfg.IdentityURL), nil
	case config.IdentityLocal:
		return identity.NewLocalAuthenticator(store.Customers()), nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.IdentityMode)
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases everything except the HTTP server, in reverse order of
// construction.
func (a *App) close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("store close error", slog.String("error", err.Error()))
		}
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
