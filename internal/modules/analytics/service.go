package analytics

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// ValuePoint is one point on the simulated portfolio value curve.
type ValuePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// PortfolioAnalysis bundles the portfolio-level statistics with the
// simulated growth of the initial investment at current weights.
type PortfolioAnalysis struct {
	Metrics      *Metrics           `json:"metrics"`
	Weights      map[string]float64 `json:"weights"`
	ValueSeries  []ValuePoint       `json:"value_series"`
	LookbackDays int                `json:"lookback_days"`
}

// Service computes analytics from stored price history and current holdings.
type Service struct {
	portfolioSvc      *portfolio.Service
	priceRepo         *history.PriceRepository
	riskFreeRate      float64
	initialInvestment float64
	log               zerolog.Logger
}

// NewService creates a new analytics service.
func NewService(
	portfolioSvc *portfolio.Service,
	priceRepo *history.PriceRepository,
	riskFreeRate float64,
	initialInvestment float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolioSvc:      portfolioSvc,
		priceRepo:         priceRepo,
		riskFreeRate:      riskFreeRate,
		initialInvestment: initialInvestment,
		log:               log.With().Str("service", "analytics").Logger(),
	}
}

// AnalyzePortfolio computes risk/return metrics for the portfolio at its
// current market weights over the given lookback.
func (s *Service) AnalyzePortfolio(lookbackDays int) (*PortfolioAnalysis, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	summary, err := s.portfolioSvc.GetSummary()
	if err != nil {
		return nil, err
	}
	if len(summary.Positions) == 0 {
		return nil, fmt.Errorf("portfolio has no valued positions")
	}

	symbols := make([]string, len(summary.Positions))
	for i, pos := range summary.Positions {
		symbols[i] = pos.Symbol
	}

	matrix, err := s.returnMatrix(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}

	returns := matrix.PortfolioReturns(summary.Weights)
	metrics, err := ComputeMetrics(returns, s.riskFreeRate)
	if err != nil {
		return nil, err
	}

	values := CumulativeValue(returns, s.initialInvestment)
	series := make([]ValuePoint, len(values))
	for i := range values {
		series[i] = ValuePoint{Date: matrix.Dates[i], Value: values[i]}
	}

	s.log.Debug().
		Int("lookback_days", lookbackDays).
		Int("observations", metrics.Observations).
		Float64("annual_return", metrics.AnnualReturn).
		Float64("sharpe", metrics.SharpeRatio).
		Msg("Analyzed portfolio")

	return &PortfolioAnalysis{
		Metrics:      metrics,
		Weights:      summary.Weights,
		ValueSeries:  series,
		LookbackDays: lookbackDays,
	}, nil
}

// AnalyzeAsset computes metrics for one symbol's stored price history.
func (s *Service) AnalyzeAsset(symbol string, lookbackDays int) (*Metrics, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	prices, err := s.priceRepo.GetRecentPrices(symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if len(prices) < 3 {
		return nil, fmt.Errorf("not enough price history for %s: %d points", symbol, len(prices))
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	return ComputeMetrics(DailyReturns(closes), s.riskFreeRate)
}

// AssetIndicators computes rolling SMA and volatility for one symbol.
func (s *Service) AssetIndicators(symbol string, lookbackDays, window int) (*Indicators, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	if window <= 0 {
		window = 20
	}

	prices, err := s.priceRepo.GetRecentPrices(symbol, lookbackDays)
	if err != nil {
		return nil, err
	}

	dates := make([]string, len(prices))
	closes := make([]float64, len(prices))
	for i, p := range prices {
		dates[i] = p.Date
		closes[i] = p.Close
	}

	return ComputeIndicators(dates, closes, window)
}

// ReturnMatrixFor builds an aligned daily return matrix for arbitrary symbols.
// Used by the optimizer to share one data path with the analytics API.
func (s *Service) ReturnMatrixFor(symbols []string, lookbackDays int) (*ReturnMatrix, error) {
	return s.returnMatrix(symbols, lookbackDays)
}

func (s *Service) returnMatrix(symbols []string, lookbackDays int) (*ReturnMatrix, error) {
	aligned, err := s.priceRepo.GetAlignedCloses(symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	return BuildReturnMatrix(aligned)
}
