package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteConfig_DSN(t *testing.T) {
	assert.Equal(t,
		"shop.db?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate",
		SQLiteConfig{Path: "shop.db"}.DSN())
	assert.Equal(t,
		"file:shop?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000&_txlock=immediate",
		SQLiteConfig{Path: "file:shop?mode=memory&cache=shared"}.DSN())
}

func TestNewSQLiteDB_InMemory(t *testing.T) {
	db, err := NewSQLiteDB(SQLiteConfig{Path: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}, discardLogger())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

type traceProbe struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestRegisterGormTracing_EmitsSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	db, err := NewSQLiteDB(SQLiteConfig{Path: "file:" + uuid.NewString() + "?mode=memory&cache=shared"}, nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, db.AutoMigrate(&traceProbe{}))
	exporter.Reset()

	require.NoError(t, db.Create(&traceProbe{ID: "1", Name: "a"}).Error)
	var got traceProbe
	require.NoError(t, db.First(&got, "id = ?", "1").Error)

	names := make([]string, 0)
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "db.INSERT trace_probes")
	assert.Contains(t, names, "db.SELECT trace_probes")
}
