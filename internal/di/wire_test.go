package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koshlabs/kosh/internal/config"
	"github.com/koshlabs/kosh/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:           t.TempDir(),
		Port:              8080,
		BaseCurrency:      "INR",
		RiskFreeRate:      0.03,
		DriftThreshold:    0.05,
		InitialInvestment: 100000,
		SyncSchedule:      "0 30 18 * * *",
	}
}

func TestWire_BuildsFullContainer(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	container, jobs, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.PortfolioDB)
	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.CacheDB)

	assert.NotNil(t, container.NSEClient)
	assert.NotNil(t, container.CoinGeckoClient)
	assert.NotNil(t, container.YahooClient)
	assert.NotNil(t, container.ExchangeRateClient)

	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.MarketDataService)
	assert.NotNil(t, container.AnalyticsService)
	assert.NotNil(t, container.OptimizationService)
	assert.NotNil(t, container.RebalancingService)
	assert.NotNil(t, container.ChartsService)
	assert.NotNil(t, container.EventHub)

	require.NotNil(t, jobs)
	assert.Equal(t, "market_sync", jobs.SyncJob.Name())
	assert.NotEmpty(t, jobs.CleanupJob.Name())
}

func TestWire_MigratesSchemas(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	container, _, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close()

	// Schema objects exist after wiring
	var count int
	require.NoError(t, container.PortfolioDB.QueryRow(
		"SELECT COUNT(*) FROM holdings").Scan(&count))
	assert.Zero(t, count)
}

func TestBuildHandlers_CoversAllModules(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	container, _, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close()

	handlers := BuildHandlers(container, log)
	assert.Len(t, handlers, 6)
}
