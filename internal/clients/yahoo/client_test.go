package yahoo

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/internal/clientdata"
	"github.com/koshlabs/kosh/internal/database"
	"github.com/koshlabs/kosh/pkg/logger"
)

func testLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: "error", Pretty: false})
}

func newTestCache(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	return clientdata.NewRepository(db.Conn())
}

func TestGetDailyHistory_ParsesCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/GC=F", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704067200,1704153600,1704240000],
			"indicators":{"quote":[{
				"open":[2060.0,2065.5,null],
				"high":[2070.0,2075.0,null],
				"low":[2055.0,2060.0,null],
				"close":[2068.2,2071.9,null],
				"volume":[120000,98000,null]
			}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(newTestCache(t), testLogger())
	c.baseURL = srv.URL

	candles, err := c.GetDailyHistory("GC=F",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	// Third row has a null close and is dropped.
	require.Len(t, candles, 2)

	assert.Equal(t, "2024-01-01", candles[0].Date)
	assert.InDelta(t, 2068.2, candles[0].Close, 1e-9)
	assert.InDelta(t, 2060.0, candles[0].Open, 1e-9)
	assert.Equal(t, int64(120000), candles[0].Volume)
	assert.Equal(t, "2024-01-02", candles[1].Date)
	assert.InDelta(t, 2071.9, candles[1].Close, 1e-9)
}

func TestGetDailyHistory_CachesResponse(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1704067200],
			"indicators":{"quote":[{"open":[2060.0],"high":[2070.0],"low":[2055.0],"close":[2068.2],"volume":[120000]}]}
		}],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(newTestCache(t), testLogger())
	c.baseURL = srv.URL

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := c.GetDailyHistory("GC=F", start, end)
	require.NoError(t, err)

	candles, err := c.GetDailyHistory("GC=F", start, end)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 1, calls)
}

func TestGetDailyHistory_ChartError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	c := NewClient(nil, testLogger())
	c.baseURL = srv.URL

	_, err := c.GetDailyHistory("BOGUS",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestGetDailyHistory_StaleFallback(t *testing.T) {
	cache := newTestCache(t)

	stale := []Candle{{Date: "2024-01-01", Close: 2050.0}}
	require.NoError(t, cache.Store("yahoo", "GC=F:2024-01-01:2024-01-02", stale, -time.Minute))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(cache, testLogger())
	c.baseURL = srv.URL

	candles, err := c.GetDailyHistory("GC=F",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 2050.0, candles[0].Close, 1e-9)
}
