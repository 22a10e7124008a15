package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/internal/config"
	pkgconfig "github.com/forrex322/shop/pkg/config"
)

func testConfig(t *testing.T, mr *miniredis.Miniredis) *config.Config {
	t.Helper()
	cfg, err := config.Load(pkgconfig.WithEnvironment(map[string]string{
		"DB_DRIVER":   config.DriverSQLite,
		"SQLITE_PATH": "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		"REDIS_HOST":  mr.Host(),
		"REDIS_PORT":  mr.Port(),
		"JWT_SECRET":  "s3cret",
	}))
	require.NoError(t, err)
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := config.Storage{DBDriver: config.DriverSQLite, SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}

	store, err := OpenStore(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
	categories, err := store.Catalog().ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestNewApp_ServesReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)

	a, err := NewApp(cfg, discard())
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, ":"+strconv.Itoa(cfg.HTTPPort), a.httpServer.Addr)
	assert.Nil(t, a.producer)

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis"`)
	assert.Contains(t, rec.Body.String(), `"sqlite"`)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	mr.Close()

	_, err := NewApp(cfg, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
