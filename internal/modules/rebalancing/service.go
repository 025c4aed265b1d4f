// Package rebalancing compares the live portfolio against target weights and
// proposes the trades that would close the gap.
package rebalancing

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// Trade actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// DriftCheck is the per-symbol comparison of current vs target weight.
type DriftCheck struct {
	Symbol        string  `json:"symbol"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
	Drift         float64 `json:"drift"` // absolute difference
	Exceeds       bool    `json:"exceeds"`
}

// Trade is one proposed order, valued in the base currency.
type Trade struct {
	Symbol string  `json:"symbol"`
	Action string  `json:"action"`
	Units  float64 `json:"units"`
	Value  float64 `json:"value"` // absolute, base currency
	Price  float64 `json:"price"` // base currency per unit
}

// Plan is a full rebalancing proposal.
type Plan struct {
	NeedsRebalance bool         `json:"needs_rebalance"`
	Threshold      float64      `json:"threshold"`
	TotalValue     float64      `json:"total_value"`
	BaseCurrency   string       `json:"base_currency"`
	Checks         []DriftCheck `json:"checks"`
	Trades         []Trade      `json:"trades"`
}

// Service builds rebalancing plans from the valued portfolio.
type Service struct {
	portfolioSvc *portfolio.Service
	threshold    float64
	log          zerolog.Logger
}

// NewService creates a new rebalancing service.
// threshold is the absolute weight drift that triggers a rebalance.
func NewService(portfolioSvc *portfolio.Service, threshold float64, log zerolog.Logger) *Service {
	return &Service{
		portfolioSvc: portfolioSvc,
		threshold:    threshold,
		log:          log.With().Str("service", "rebalancing").Logger(),
	}
}

// BuildPlan compares current weights against targets and proposes trades.
// targetOverride, when non-empty, replaces the stored per-holding targets
// (e.g. weights straight from an optimization run). Targets are normalized
// to sum to 1 before comparison.
func (s *Service) BuildPlan(targetOverride map[string]float64) (*Plan, error) {
	summary, err := s.portfolioSvc.GetSummary()
	if err != nil {
		return nil, err
	}
	if len(summary.Positions) == 0 {
		return nil, fmt.Errorf("portfolio has no valued positions")
	}

	targets, err := s.resolveTargets(summary, targetOverride)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Threshold:    s.threshold,
		TotalValue:   summary.TotalValue,
		BaseCurrency: summary.BaseCurrency,
	}

	for _, pos := range summary.Positions {
		target := targets[pos.Symbol]
		drift := math.Abs(pos.Weight - target)
		exceeds := drift > s.threshold

		plan.Checks = append(plan.Checks, DriftCheck{
			Symbol:        pos.Symbol,
			CurrentWeight: pos.Weight,
			TargetWeight:  target,
			Drift:         drift,
			Exceeds:       exceeds,
		})

		if exceeds {
			plan.NeedsRebalance = true
		}

		trade := s.tradeFor(pos, target, summary.TotalValue)
		if trade != nil {
			plan.Trades = append(plan.Trades, *trade)
		}
	}

	if !plan.NeedsRebalance {
		// Within tolerance everywhere: propose nothing.
		plan.Trades = nil
	}

	// Largest adjustments first
	sort.Slice(plan.Trades, func(i, j int) bool {
		return plan.Trades[i].Value > plan.Trades[j].Value
	})

	s.log.Info().
		Bool("needs_rebalance", plan.NeedsRebalance).
		Int("trades", len(plan.Trades)).
		Msg("Built rebalancing plan")

	return plan, nil
}

// resolveTargets picks override targets when provided, otherwise the stored
// per-holding target weights, normalized to sum to 1.
func (s *Service) resolveTargets(summary *portfolio.Summary, override map[string]float64) (map[string]float64, error) {
	targets := make(map[string]float64, len(summary.Positions))

	if len(override) > 0 {
		for symbol, w := range override {
			if w < 0 {
				return nil, fmt.Errorf("negative target weight for %s", symbol)
			}
			targets[symbol] = w
		}
	} else {
		for _, pos := range summary.Positions {
			targets[pos.Symbol] = pos.TargetWeight
		}
	}

	sum := 0.0
	for _, w := range targets {
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("no target weights set")
	}
	for symbol := range targets {
		targets[symbol] /= sum
	}

	return targets, nil
}

// tradeFor sizes the order that moves one position to its target weight.
// Returns nil when the position is already on target or has no usable price.
func (s *Service) tradeFor(pos portfolio.Position, target, totalValue float64) *Trade {
	targetValue := target * totalValue
	diff := targetValue - pos.MarketValue
	if diff == 0 {
		return nil
	}

	unitPrice := pos.CurrentPrice * pos.CurrencyRate
	if unitPrice <= 0 {
		return nil
	}

	action := ActionBuy
	if diff < 0 {
		action = ActionSell
	}

	return &Trade{
		Symbol: pos.Symbol,
		Action: action,
		Units:  math.Abs(diff) / unitPrice,
		Value:  math.Abs(diff),
		Price:  unitPrice,
	}
}
