package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteConfig configures the embedded gorm/SQLite backend.
type SQLiteConfig struct {
	// Path is a file path or a "file:" URI such as "file:shop?mode=memory&cache=shared".
	Path          string
	SlowThreshold time.Duration
}

// DSN appends the pragmas the storefront relies on: enforced foreign keys,
// a busy timeout, and BEGIN IMMEDIATE so writers serialize up front.
func (c SQLiteConfig) DSN() string {
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return c.Path + sep + "_foreign_keys=1&_busy_timeout=5000&_txlock=immediate"
}

// NewSQLiteDB opens a gorm handle on SQLite. SQLite allows a single writer,
// so the pool is pinned to one connection and concurrent transactions queue
// on it instead of failing with SQLITE_BUSY.
func NewSQLiteDB(cfg SQLiteConfig, logger *slog.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         gormlogger.Discard,
	}
	if logger != nil {
		gcfg.Logger = NewGormLogger(logger, cfg.SlowThreshold)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := RegisterGormTracing(db); err != nil {
		return nil, fmt.Errorf("register gorm tracing: %w", err)
	}

	return db, nil
}

const gormTraceEndKey = "shop:trace_end"

// RegisterGormTracing wraps every gorm statement in a TraceQuery span named
// after the statement kind and table, e.g. "db.INSERT cart_items".
func RegisterGormTracing(db *gorm.DB) error {
	before := func(kind string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := kind
			if tx.Statement.Table != "" {
				op += " " + tx.Statement.Table
			}
			ctx, end := TraceQuery(tx.Statement.Context, SystemSQLite, op, "")
			tx.Statement.Context = ctx
			tx.InstanceSet(gormTraceEndKey, end)
		}
	}
	after := func(tx *gorm.DB) {
		v, ok := tx.InstanceGet(gormTraceEndKey)
		if !ok {
			return
		}
		if end, ok := v.(func(error)); ok {
			err := tx.Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = nil
			}
			end(err)
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("shop:trace_before_create", before("INSERT")),
		cb.Create().After("gorm:create").Register("shop:trace_after_create", after),
		cb.Query().Before("gorm:query").Register("shop:trace_before_query", before("SELECT")),
		cb.Query().After("gorm:query").Register("shop:trace_after_query", after),
		cb.Update().Before("gorm:update").Register("shop:trace_before_update", before("UPDATE")),
		cb.Update().After("gorm:update").Register("shop:trace_after_update", after),
		cb.Delete().Before("gorm:delete").Register("shop:trace_before_delete", before("DELETE")),
		cb.Delete().After("gorm:delete").Register("shop:trace_after_delete", after),
		cb.Row().Before("gorm:row").Register("shop:trace_before_row", before("ROW")),
		cb.Row().After("gorm:row").Register("shop:trace_after_row", after),
		cb.Raw().Before("gorm:raw").Register("shop:trace_before_raw", before("RAW")),
		cb.Raw().After("gorm:raw").Register("shop:trace_after_raw", after),
	)
}

// slogWriter adapts slog to gorm's Printf-style logger writer.
type slogWriter struct {
	l *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.l.Warn(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}

// NewGormLogger routes gorm's slow-query and error reports into slog.
func NewGormLogger(l *slog.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = 200 * time.Millisecond
	}
	return gormlogger.New(slogWriter{l: l}, gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
