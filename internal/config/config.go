package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	pkgconfig "github.com/forrex322/shop/pkg/config"
	"github.com/forrex322/shop/pkg/database"
	"github.com/forrex322/shop/pkg/httpclient"
	"github.com/forrex322/shop/pkg/middleware"
	"github.com/forrex322/shop/pkg/tracing"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	IdentityLocal  = "local"
	IdentityRemote = "remote"
)

// Storage selects and locates the database backend. It is shared with
// cmd/seed.
type Storage struct {
	DBDriver string `env:"DB_DRIVER" envDefault:"postgres"`

	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"shop"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"shop_secret"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"shop"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	SlowQuery        time.Duration `env:"DB_SLOW_QUERY" envDefault:"200ms"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"shop.db"`
}

// Validate rejects an unknown driver.
func (s *Storage) Validate() error {
	switch s.DBDriver {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, s.DBDriver)
	}
}

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Storage

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka. Leave empty to run without publishing events.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Session cookie
	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"sessionid"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"336h"`
	SecureCookie  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// Access tokens
	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	// Identity
	IdentityMode string            `env:"IDENTITY_MODE" envDefault:"local"`
	IdentityURL  string            `env:"IDENTITY_URL"`
	IdentityHTTP httpclient.Config `envPrefix:"IDENTITY_HTTP_"`

	// Login throttling, per client IP
	LoginRate  float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"`
	LoginBurst int     `env:"LOGIN_RATE_BURST" envDefault:"5"`

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`

	Tracing tracing.Config `envPrefix:"OTEL_"`
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	switch c.IdentityMode {
	case IdentityLocal:
	case IdentityRemote:
		if c.IdentityURL == "" {
			return errors.New("IDENTITY_URL is required when IDENTITY_MODE is remote")
		}
	default:
		return fmt.Errorf("IDENTITY_MODE must be %q or %q, got %q", IdentityLocal, IdentityRemote, c.IdentityMode)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 || c.JWTTTL <= 0 {
		return errors.New("SESSION_TTL and JWT_TTL must be positive")
	}
	if c.LoginRate <= 0 || c.LoginBurst < 1 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.New("OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
	}
	for _, cidr := range c.PprofCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid pprof CIDR %q: %w", cidr, err)
		}
	}
	return nil
}

// Postgres returns the pool settings.
func (s *Storage) Postgres() database.PostgresConfig {
	pc := database.DefaultPostgresConfig()
	pc.Host = s.PostgresHost
	pc.Port = s.PostgresPort
	pc.User = s.PostgresUser
	pc.Password = s.PostgresPass
	pc.DBName = s.PostgresDB
	pc.SSLMode = s.PostgresSSL
	pc.MaxConns = s.PostgresMaxConns
	return pc
}

func (s *Storage) SQLite() database.SQLiteConfig {
	return database.SQLiteConfig{Path: s.SQLitePath, SlowThreshold: s.SlowQuery}
}

func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// CORS narrows the default policy to the configured origins.
func (c *Config) CORS() middleware.CORSConfig {
	cc := middleware.DefaultCORSConfig()
	cc.AllowedOrigins = c.CORSOrigins
	return cc
}
