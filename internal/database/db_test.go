package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNew_CreatesDatabase(t *testing.T) {
	db := newTestDB(t, "portfolio")

	assert.Equal(t, "portfolio", db.Name())
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestMigrate_AppliesSchema(t *testing.T) {
	db := newTestDB(t, "portfolio")
	require.NoError(t, db.Migrate())

	// Schema is idempotent
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`
		INSERT INTO holdings (id, symbol, asset_class, quantity, cost_basis, target_weight, created_at, updated_at)
		VALUES ('h1', 'RELIANCE', 'equity', '10', '25000', 0.5, 0, 0)
	`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM holdings").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrate_UnknownDatabaseSkips(t *testing.T) {
	db := newTestDB(t, "unknown")
	assert.NoError(t, db.Migrate())
}

func TestMigrate_RejectsInvalidAssetClass(t *testing.T) {
	db := newTestDB(t, "portfolio")
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`
		INSERT INTO holdings (id, symbol, asset_class, quantity, cost_basis, target_weight, created_at, updated_at)
		VALUES ('h1', 'X', 'bonds', '1', '1', 0, 0, 0)
	`)
	assert.Error(t, err)
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)",
			"BTC-USD", int64(1700000000), 37000.0,
		)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM daily_prices").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)",
			"BTC-USD", int64(1700000000), 37000.0,
		); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM daily_prices").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversFromPanic(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t, "cache")
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageSize, int64(0))
	assert.Greater(t, stats.PageCount, int64(0))
}

func TestWALCheckpoint(t *testing.T) {
	db := newTestDB(t, "history")
	require.NoError(t, db.Migrate())

	for i := 0; i < 10; i++ {
		_, err := db.Exec(
			"INSERT OR REPLACE INTO daily_prices (symbol, date, close) VALUES (?, ?, ?)",
			"GC=F", int64(i), 2000.0+float64(i),
		)
		require.NoError(t, err)
	}

	assert.NoError(t, db.WALCheckpoint(""))
}
