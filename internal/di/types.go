// Package di provides dependency injection type definitions.
//
// The Container is the single source of truth for all service instances and
// is created by Wire().
package di

import (
	"github.com/koshlabs/kosh/internal/clientdata"
	"github.com/koshlabs/kosh/internal/clients/coingecko"
	"github.com/koshlabs/kosh/internal/clients/exchangerate"
	"github.com/koshlabs/kosh/internal/clients/nse"
	"github.com/koshlabs/kosh/internal/clients/yahoo"
	"github.com/koshlabs/kosh/internal/database"
	"github.com/koshlabs/kosh/internal/modules/analytics"
	"github.com/koshlabs/kosh/internal/modules/charts"
	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/marketdata"
	"github.com/koshlabs/kosh/internal/modules/optimization"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
	"github.com/koshlabs/kosh/internal/modules/rebalancing"
	"github.com/koshlabs/kosh/internal/scheduler"
	"github.com/koshlabs/kosh/internal/server"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases (3-database architecture)
	// Each database uses SQLite with WAL mode and profile-specific PRAGMAs.
	PortfolioDB *database.DB // Current holdings and daily snapshots
	HistoryDB   *database.DB // Historical time-series data (prices, exchange rates)
	CacheDB     *database.DB // TTL-cached upstream API responses

	// Clients - external market data APIs
	NSEClient          *nse.Client
	CoinGeckoClient    *coingecko.Client
	YahooClient        *yahoo.Client
	ExchangeRateClient *exchangerate.Client

	// Repositories - data access layer
	ClientDataRepo *clientdata.Repository
	HoldingRepo    *portfolio.HoldingRepository
	SnapshotRepo   *portfolio.SnapshotRepository
	PriceRepo      *history.PriceRepository

	// Services - business logic layer
	PortfolioService    *portfolio.Service
	MarketDataService   *marketdata.Service
	AnalyticsService    *analytics.Service
	OptimizationService *optimization.Service
	RebalancingService  *rebalancing.Service
	ChartsService       *charts.Service

	// Event hub for pushing updates to dashboard clients
	EventHub *server.EventHub
}

// JobInstances holds the background jobs to register with the scheduler.
type JobInstances struct {
	SyncJob    scheduler.Job // Daily price sync and snapshot
	CleanupJob scheduler.Job // Expired cache entry removal
}

// Databases returns all databases in a fixed order, for health checks and
// shutdown.
func (c *Container) Databases() []*database.DB {
	return []*database.DB{c.PortfolioDB, c.HistoryDB, c.CacheDB}
}

// Close checkpoints and closes all databases. Safe to call on a partially
// initialized container.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		if db != nil {
			_ = db.WALCheckpoint("TRUNCATE")
			_ = db.Close()
		}
	}
}
