package clientdata

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/internal/database"
)

type cachedQuote struct {
	Price  float64 `msgpack:"price"`
	Volume int64   `msgpack:"volume"`
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db.Conn())
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestRepo(t)

	in := cachedQuote{Price: 2456.75, Volume: 1200000}
	require.NoError(t, repo.Store("nse", "RELIANCE", in, time.Hour))

	var out cachedQuote
	found, err := repo.GetIfFresh("nse", "RELIANCE", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetIfFresh_MissingKey(t *testing.T) {
	repo := newTestRepo(t)

	var out cachedQuote
	found, err := repo.GetIfFresh("nse", "NOPE", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetIfFresh_ExpiredReturnsNotFound(t *testing.T) {
	repo := newTestRepo(t)

	in := cachedQuote{Price: 100}
	require.NoError(t, repo.Store("coingecko", "bitcoin", in, -time.Minute))

	var out cachedQuote
	found, err := repo.GetIfFresh("coingecko", "bitcoin", &out)
	require.NoError(t, err)
	assert.False(t, found)

	// Stale Get still retrieves it
	found, err = repo.Get("coingecko", "bitcoin", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in.Price, out.Price)
}

func TestStore_InvalidTable(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Store("holdings; DROP TABLE nse", "k", cachedQuote{}, time.Hour)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("yahoo", "GC=F", cachedQuote{Price: 2040}, time.Hour))
	require.NoError(t, repo.Delete("yahoo", "GC=F"))

	var out cachedQuote
	found, err := repo.Get("yahoo", "GC=F", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("exchangerate", "USD:INR", cachedQuote{Price: 83.2}, -time.Minute))
	require.NoError(t, repo.Store("exchangerate", "EUR:INR", cachedQuote{Price: 90.1}, time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["exchangerate"])

	var out cachedQuote
	found, err := repo.Get("exchangerate", "EUR:INR", &out)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCleanupJob(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Store("nse", "TCS", cachedQuote{Price: 3500}, -time.Minute))

	job := NewCleanupJob(repo, testLogger())
	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	var out cachedQuote
	found, err := repo.Get("nse", "TCS", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
