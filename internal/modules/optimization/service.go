package optimization

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/analytics"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// Request describes one optimization run.
type Request struct {
	Strategy     string             `json:"strategy"`
	LookbackDays int                `json:"lookback_days"`
	TargetReturn *float64           `json:"target_return,omitempty"` // annual, for efficient_return
	MinWeights   map[string]float64 `json:"min_weights,omitempty"`
	MaxWeights   map[string]float64 `json:"max_weights,omitempty"`
}

// Result is the optimal allocation and its ex-ante statistics.
type Result struct {
	Strategy           string             `json:"strategy"`
	Weights            map[string]float64 `json:"weights"`
	ExpectedReturn     float64            `json:"expected_return"`
	ExpectedVolatility float64            `json:"expected_volatility"`
	SharpeRatio        float64            `json:"sharpe_ratio"`
	LookbackDays       int                `json:"lookback_days"`
}

// Service runs mean-variance optimization over the current holdings.
type Service struct {
	holdingRepo  *portfolio.HoldingRepository
	analyticsSvc *analytics.Service
	optimizer    *MVOptimizer
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates a new optimization service.
func NewService(
	holdingRepo *portfolio.HoldingRepository,
	analyticsSvc *analytics.Service,
	riskFreeRate float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdingRepo:  holdingRepo,
		analyticsSvc: analyticsSvc,
		optimizer:    NewMVOptimizer(riskFreeRate),
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("service", "optimization").Logger(),
	}
}

// Optimize estimates the risk model from stored history and solves for
// optimal weights across all holdings.
func (s *Service) Optimize(req Request) (*Result, error) {
	if req.Strategy == "" {
		req.Strategy = StrategyMaxSharpe
	}
	if req.LookbackDays <= 0 {
		req.LookbackDays = 365
	}

	holdings, err := s.holdingRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	if len(holdings) < 2 {
		return nil, fmt.Errorf("need at least 2 holdings to optimize, have %d", len(holdings))
	}

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}

	matrix, err := s.analyticsSvc.ReturnMatrixFor(symbols, req.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("failed to build return matrix: %w", err)
	}

	model, err := BuildRiskModel(matrix)
	if err != nil {
		return nil, err
	}

	weights, err := s.optimizer.Optimize(model, Bounds{Min: req.MinWeights, Max: req.MaxWeights}, req.Strategy, req.TargetReturn)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Strategy:           req.Strategy,
		Weights:            weights,
		ExpectedReturn:     model.PortfolioReturn(weights),
		ExpectedVolatility: model.PortfolioVolatility(weights),
		LookbackDays:       req.LookbackDays,
	}
	if result.ExpectedVolatility > 0 {
		result.SharpeRatio = (result.ExpectedReturn - s.riskFreeRate) / result.ExpectedVolatility
	}

	s.log.Info().
		Str("strategy", req.Strategy).
		Float64("expected_return", result.ExpectedReturn).
		Float64("expected_volatility", result.ExpectedVolatility).
		Msg("Optimization complete")

	return result, nil
}
