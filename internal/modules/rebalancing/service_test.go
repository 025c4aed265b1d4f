package rebalancing

import (
	"path/filepath"
	"testing"

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

type unityRates struct{}

func (unityRates) GetRate(from, to string) (float64, error) { return 1.0, nil }

type fixture struct {
	holdings *portfolio.HoldingRepository
	prices   *history.PriceRepository
	service  *Service
}

func newFixture(t *testing.T, threshold float64) *fixture {
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

	holdings := portfolio.NewHoldingRepository(pdb.Conn(), log)
	snapshots := portfolio.NewSnapshotRepository(pdb.Conn(), log)
	prices := history.NewPriceRepository(hdb.Conn(), log)

	portfolioSvc := portfolio.NewService(holdings, snapshots, prices, unityRates{}, "INR", log)

	return &fixture{
		holdings: holdings,
		prices:   prices,
		service:  NewService(portfolioSvc, threshold, log),
	}
}

// addPosition seeds a holding with a price so the position is worth
// quantity*price in the base currency.
func addPosition(t *testing.T, f *fixture, symbol string, quantity, price, targetWeight float64) {
	t.Helper()

	require.NoError(t, f.holdings.Create(&portfolio.Holding{
		Symbol:       symbol,
		Name:         symbol,
		AssetClass:   portfolio.AssetEquity,
		Quantity:     decimal.NewFromFloat(quantity),
		CostBasis:    decimal.NewFromFloat(quantity * price),
		TargetWeight: targetWeight,
		Currency:     "INR",
	}))
	require.NoError(t, f.prices.SyncDailyPrices(symbol, []history.DailyPrice{
		{Date: "2024-01-02", Close: price},
	}))
}

func TestBuildPlan_WithinThreshold(t *testing.T) {
	f := newFixture(t, 0.05)

	// 50/50 actual, 50/50 target
	addPosition(t, f, "AAA", 10, 100, 0.5)
	addPosition(t, f, "BBB", 10, 100, 0.5)

	plan, err := f.service.BuildPlan(nil)
	require.NoError(t, err)

	assert.False(t, plan.NeedsRebalance)
	assert.Empty(t, plan.Trades)
	require.Len(t, plan.Checks, 2)
	for _, check := range plan.Checks {
		assert.False(t, check.Exceeds)
	}
}

func TestBuildPlan_DriftTriggersTrades(t *testing.T) {
	f := newFixture(t, 0.05)

	// 75/25 actual vs 50/50 target: drift 0.25 on both sides
	addPosition(t, f, "AAA", 30, 100, 0.5) // 3000
	addPosition(t, f, "BBB", 10, 100, 0.5) // 1000

	plan, err := f.service.BuildPlan(nil)
	require.NoError(t, err)

	assert.True(t, plan.NeedsRebalance)
	assert.InDelta(t, 4000.0, plan.TotalValue, 1e-6)
	require.Len(t, plan.Trades, 2)

	byAction := map[string]Trade{}
	for _, trade := range plan.Trades {
		byAction[trade.Action] = trade
		// Equal drift means equal trade value both ways
		assert.InDelta(t, 1000.0, trade.Value, 1e-6)
		assert.InDelta(t, 10.0, trade.Units, 1e-6)
	}
	assert.Equal(t, "AAA", byAction[ActionSell].Symbol)
	assert.Equal(t, "BBB", byAction[ActionBuy].Symbol)
}

func TestBuildPlan_NormalizesTargets(t *testing.T) {
	f := newFixture(t, 0.05)

	// Targets sum to 0.5; they must be treated as 50/50.
	addPosition(t, f, "AAA", 10, 100, 0.25)
	addPosition(t, f, "BBB", 10, 100, 0.25)

	plan, err := f.service.BuildPlan(nil)
	require.NoError(t, err)

	assert.False(t, plan.NeedsRebalance)
	for _, check := range plan.Checks {
		assert.InDelta(t, 0.5, check.TargetWeight, 1e-9)
	}
}

func TestBuildPlan_OverrideTargets(t *testing.T) {
	f := newFixture(t, 0.05)

	addPosition(t, f, "AAA", 10, 100, 0.5)
	addPosition(t, f, "BBB", 10, 100, 0.5)

	plan, err := f.service.BuildPlan(map[string]float64{"AAA": 0.8, "BBB": 0.2})
	require.NoError(t, err)

	assert.True(t, plan.NeedsRebalance)
	require.Len(t, plan.Trades, 2)
	assert.Equal(t, "AAA", plan.Trades[0].Symbol)
	assert.Equal(t, ActionBuy, plan.Trades[0].Action)
	assert.InDelta(t, 600.0, plan.Trades[0].Value, 1e-6)
}

func TestBuildPlan_NoTargets(t *testing.T) {
	f := newFixture(t, 0.05)

	addPosition(t, f, "AAA", 10, 100, 0)

	_, err := f.service.BuildPlan(nil)
	assert.Error(t, err)
}

func TestBuildPlan_NegativeOverride(t *testing.T) {
	f := newFixture(t, 0.05)

	addPosition(t, f, "AAA", 10, 100, 1)

	_, err := f.service.BuildPlan(map[string]float64{"AAA": -0.5})
	assert.Error(t, err)
}
