// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/clientdata"
	"github.com/koshlabs/kosh/internal/clients/coingecko"
	"github.com/koshlabs/kosh/internal/clients/exchangerate"
	"github.com/koshlabs/kosh/internal/clients/nse"
	"github.com/koshlabs/kosh/internal/clients/yahoo"
	"github.com/koshlabs/kosh/internal/config"
	"github.com/koshlabs/kosh/internal/modules/analytics"
	"github.com/koshlabs/kosh/internal/modules/charts"
	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/marketdata"
	"github.com/koshlabs/kosh/internal/modules/optimization"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
	"github.com/koshlabs/kosh/internal/modules/rebalancing"
	"github.com/koshlabs/kosh/internal/server"
)

// Wire initializes all dependencies and returns a fully configured container.
//
// Order of operations:
//  1. Initialize databases
//  2. Initialize clients and repositories
//  3. Initialize services
//  4. Build jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	initializeClients(container, log)
	initializeRepositories(container, log)
	initializeServices(container, cfg, log)

	jobs := &JobInstances{
		SyncJob:    marketdata.NewSyncJob(container.MarketDataService, container.PortfolioService, log),
		CleanupJob: clientdata.NewCleanupJob(container.ClientDataRepo, log),
	}

	log.Info().Msg("Dependency injection wiring completed")

	return container, jobs, nil
}

func initializeClients(c *Container, log zerolog.Logger) {
	c.ClientDataRepo = clientdata.NewRepository(c.CacheDB.Conn())

	c.NSEClient = nse.NewClient(c.ClientDataRepo, log)
	c.CoinGeckoClient = coingecko.NewClient(c.ClientDataRepo, log)
	c.YahooClient = yahoo.NewClient(c.ClientDataRepo, log)
	c.ExchangeRateClient = exchangerate.NewClient(c.ClientDataRepo, log)
}

func initializeRepositories(c *Container, log zerolog.Logger) {
	c.HoldingRepo = portfolio.NewHoldingRepository(c.PortfolioDB.Conn(), log)
	c.SnapshotRepo = portfolio.NewSnapshotRepository(c.PortfolioDB.Conn(), log)
	c.PriceRepo = history.NewPriceRepository(c.HistoryDB.Conn(), log)
}

func initializeServices(c *Container, cfg *config.Config, log zerolog.Logger) {
	c.EventHub = server.NewEventHub(log)

	c.PortfolioService = portfolio.NewService(
		c.HoldingRepo,
		c.SnapshotRepo,
		c.PriceRepo,
		c.ExchangeRateClient,
		cfg.BaseCurrency,
		log,
	)

	nseFetcher := marketdata.NSEFetcher{Client: c.NSEClient}

	c.MarketDataService = marketdata.NewService(
		c.HoldingRepo,
		c.PriceRepo,
		nseFetcher,
		marketdata.CoinGeckoFetcher{Client: c.CoinGeckoClient},
		marketdata.YahooFetcher{Client: c.YahooClient},
		nseFetcher, // NSE also serves live equity quotes
		c.ExchangeRateClient,
		c.EventHub,
		cfg.BaseCurrency,
		0, // default lookback
		log,
	)

	c.AnalyticsService = analytics.NewService(
		c.PortfolioService,
		c.PriceRepo,
		cfg.RiskFreeRate,
		cfg.InitialInvestment,
		log,
	)

	c.OptimizationService = optimization.NewService(
		c.HoldingRepo,
		c.AnalyticsService,
		cfg.RiskFreeRate,
		log,
	)

	c.RebalancingService = rebalancing.NewService(
		c.PortfolioService,
		cfg.DriftThreshold,
		log,
	)

	c.ChartsService = charts.NewService(
		c.PortfolioService,
		c.AnalyticsService,
		c.PriceRepo,
		log,
	)
}
