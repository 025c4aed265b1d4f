package marketdata

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/internal/database"
	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
	"github.com/koshlabs/kosh/pkg/logger"
)

func testLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: "error", Pretty: false})
}

// stubFetcher returns fixed prices, or an error.
type stubFetcher struct {
	prices []history.DailyPrice
	err    error
	calls  int
}

func (f *stubFetcher) FetchDaily(symbol string, start, end time.Time) ([]history.DailyPrice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

// stubQuoter returns a fixed quote for any symbol.
type stubQuoter struct {
	quote *Quote
	err   error
	calls int
}

func (q *stubQuoter) GetQuote(symbol string) (*Quote, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	quote := *q.quote
	quote.Symbol = symbol
	return &quote, nil
}

type stubRates struct{ rate float64 }

func (s stubRates) GetRate(from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	return s.rate, nil
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Publish(event string, payload any) {
	r.events = append(r.events, event)
}

type testEnv struct {
	holdings  *portfolio.HoldingRepository
	prices    *history.PriceRepository
	equity    *stubFetcher
	crypto    *stubFetcher
	gold      *stubFetcher
	quoter    *stubQuoter
	sink      *recordingSink
	service   *Service
	portfolio *portfolio.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	openDB := func(name string) *database.DB {
		db, err := database.New(database.Config{
			Path:    filepath.Join(t.TempDir(), name+".db"),
			Profile: database.ProfileStandard,
			Name:    name,
		})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { _ = db.Close() })
		return db
	}

	pdb := openDB("portfolio")
	hdb := openDB("history")

	log := testLogger()
	env := &testEnv{
		holdings: portfolio.NewHoldingRepository(pdb.Conn(), log),
		prices:   history.NewPriceRepository(hdb.Conn(), log),
		equity:   &stubFetcher{prices: []history.DailyPrice{{Date: "2024-01-02", Close: 2000}}},
		crypto:   &stubFetcher{prices: []history.DailyPrice{{Date: "2024-01-02", Close: 40000}}},
		gold:     &stubFetcher{prices: []history.DailyPrice{{Date: "2024-01-02", Close: 2060}}},
		quoter:   &stubQuoter{quote: &Quote{LastPrice: 2890.55, PreviousClose: 2878.25}},
		sink:     &recordingSink{},
	}

	rates := stubRates{rate: 83.0}
	env.service = NewService(env.holdings, env.prices, env.equity, env.crypto, env.gold,
		env.quoter, rates, env.sink, "INR", 365, log)

	snapshotRepo := portfolio.NewSnapshotRepository(pdb.Conn(), log)
	env.portfolio = portfolio.NewService(env.holdings, snapshotRepo, env.prices, rates, "INR", log)

	return env
}

func addHolding(t *testing.T, env *testEnv, symbol string, class portfolio.AssetClass) {
	t.Helper()

	require.NoError(t, env.holdings.Create(&portfolio.Holding{
		Symbol:     symbol,
		Name:       symbol,
		AssetClass: class,
		Quantity:   decimal.NewFromInt(1),
		CostBasis:  decimal.NewFromInt(1000),
		Currency:   "INR",
	}))
}

func TestSyncAll_DispatchesByAssetClass(t *testing.T) {
	env := newTestEnv(t)
	addHolding(t, env, "RELIANCE.NS", portfolio.AssetEquity)
	addHolding(t, env, "BTC-USD", portfolio.AssetCrypto)
	addHolding(t, env, "GC=F", portfolio.AssetGold)

	result, err := env.service.SyncAll()
	require.NoError(t, err)

	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, env.equity.calls)
	assert.Equal(t, 1, env.crypto.calls)
	assert.Equal(t, 1, env.gold.calls)

	latest, err := env.prices.GetLatestClose("BTC-USD")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 40000.0, latest.Close, 1e-9)

	// USD rate recorded for valuations
	rate, err := env.prices.GetLatestExchangeRate("USD", "INR")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.InDelta(t, 83.0, rate.Rate, 1e-9)

	assert.Contains(t, env.sink.events, "marketdata.synced")
}

func TestSyncAll_CollectsPerSymbolFailures(t *testing.T) {
	env := newTestEnv(t)
	addHolding(t, env, "RELIANCE.NS", portfolio.AssetEquity)
	addHolding(t, env, "BTC-USD", portfolio.AssetCrypto)

	env.crypto.err = fmt.Errorf("rate limited")

	result, err := env.service.SyncAll()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors["BTC-USD"], "rate limited")
}

func TestSyncSymbol_UnknownHolding(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.SyncSymbol("MISSING")
	assert.Error(t, err)
}

func TestGetQuote_ReturnsEquityQuote(t *testing.T) {
	env := newTestEnv(t)
	addHolding(t, env, "RELIANCE.NS", portfolio.AssetEquity)

	quote, err := env.service.GetQuote("RELIANCE.NS")
	require.NoError(t, err)
	assert.Equal(t, "RELIANCE.NS", quote.Symbol)
	assert.InDelta(t, 2890.55, quote.LastPrice, 1e-9)
	assert.Equal(t, 1, env.quoter.calls)
}

func TestGetQuote_RejectsNonEquity(t *testing.T) {
	env := newTestEnv(t)
	addHolding(t, env, "BTC-USD", portfolio.AssetCrypto)

	_, err := env.service.GetQuote("BTC-USD")
	assert.Error(t, err)
	assert.Zero(t, env.quoter.calls)
}

func TestGetQuote_UnknownHolding(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetQuote("MISSING")
	assert.Error(t, err)
}

func TestSyncJob_SyncsAndSnapshots(t *testing.T) {
	env := newTestEnv(t)
	addHolding(t, env, "RELIANCE.NS", portfolio.AssetEquity)

	job := NewSyncJob(env.service, env.portfolio, testLogger())
	assert.Equal(t, "market_sync", job.Name())
	require.NoError(t, job.Run())

	snapshots, err := env.portfolio.GetSnapshots(time.Now().AddDate(0, 0, -1), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.InDelta(t, 2000.0, snapshots[0].TotalValue, 1e-6)
}
