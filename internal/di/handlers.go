package di

import (
	"github.com/rs/zerolog"

	analyticshandlers "github.com/koshlabs/kosh/internal/modules/analytics/handlers"
	chartshandlers "github.com/koshlabs/kosh/internal/modules/charts/handlers"
	marketdatahandlers "github.com/koshlabs/kosh/internal/modules/marketdata/handlers"
	optimizationhandlers "github.com/koshlabs/kosh/internal/modules/optimization/handlers"
	portfoliohandlers "github.com/koshlabs/kosh/internal/modules/portfolio/handlers"
	rebalancinghandlers "github.com/koshlabs/kosh/internal/modules/rebalancing/handlers"

	"github.com/koshlabs/kosh/internal/server"
)

// BuildHandlers constructs the HTTP handlers for every module, in the order
// they are mounted under /api.
func BuildHandlers(c *Container, log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		portfoliohandlers.NewHandler(c.HoldingRepo, c.PortfolioService, log),
		marketdatahandlers.NewHandler(c.MarketDataService, c.PriceRepo, log),
		analyticshandlers.NewHandler(c.AnalyticsService, log),
		optimizationhandlers.NewHandler(c.OptimizationService, log),
		rebalancinghandlers.NewHandler(c.RebalancingService, log),
		chartshandlers.NewHandler(c.ChartsService, log),
	}
}
