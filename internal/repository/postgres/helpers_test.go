package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/forrex322/shop/pkg/database"
)

// --- Test Helpers ---

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var (
	cartCols = []string{"id", "owner_id", "total_quantity", "total_price", "finalized", "order_id", "created_at", "updated_at"}

	fixedTime = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
)

func cartRow(id, owner string, finalized bool) *pgxmock.Rows {
	return pgxmock.NewRows(cartCols).AddRow(id, owner, 0, int64(0), finalized, "", fixedTime, fixedTime)
}
