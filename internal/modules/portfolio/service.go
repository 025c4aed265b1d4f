package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/history"
)

// RateProvider converts between currencies.
type RateProvider interface {
	GetRate(fromCurrency, toCurrency string) (float64, error)
}

// Service values the holdings ledger at current market prices.
type Service struct {
	holdingRepo  *HoldingRepository
	snapshotRepo *SnapshotRepository
	priceRepo    *history.PriceRepository
	rates        RateProvider
	baseCurrency string
	log          zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(
	holdingRepo *HoldingRepository,
	snapshotRepo *SnapshotRepository,
	priceRepo *history.PriceRepository,
	rates RateProvider,
	baseCurrency string,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdingRepo:  holdingRepo,
		snapshotRepo: snapshotRepo,
		priceRepo:    priceRepo,
		rates:        rates,
		baseCurrency: baseCurrency,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetSummary values every holding at its latest stored close, converted to
// the base currency, and aggregates totals and weights.
//
// Holdings without a stored price are skipped with a warning rather than
// failing the whole valuation.
func (s *Service) GetSummary() (*Summary, error) {
	holdings, err := s.holdingRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	summary := &Summary{
		BaseCurrency: s.baseCurrency,
		Weights:      make(map[string]float64),
		ClassWeights: make(map[string]float64),
		Positions:    make([]Position, 0, len(holdings)),
	}

	for _, h := range holdings {
		pos, err := s.valuate(h)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", h.Symbol).Msg("Skipping holding in valuation")
			continue
		}

		summary.TotalValue += pos.MarketValue
		summary.TotalCost += pos.CostValue
		summary.Positions = append(summary.Positions, *pos)
	}

	summary.UnrealizedPnL = summary.TotalValue - summary.TotalCost

	if summary.TotalValue > 0 {
		for i := range summary.Positions {
			pos := &summary.Positions[i]
			pos.Weight = pos.MarketValue / summary.TotalValue
			summary.Weights[pos.Symbol] = pos.Weight
			summary.ClassWeights[string(pos.AssetClass)] += pos.Weight
		}
	}

	// Largest positions first
	sort.Slice(summary.Positions, func(i, j int) bool {
		return summary.Positions[i].MarketValue > summary.Positions[j].MarketValue
	})

	return summary, nil
}

// valuate prices a single holding in the base currency.
func (s *Service) valuate(h Holding) (*Position, error) {
	latest, err := s.priceRepo.GetLatestClose(h.Symbol)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no stored price for %s", h.Symbol)
	}

	priceCurrency := h.AssetClass.PricingCurrency()
	priceRate, err := s.rates.GetRate(priceCurrency, s.baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("rate %s->%s: %w", priceCurrency, s.baseCurrency, err)
	}

	costCurrency := h.Currency
	if costCurrency == "" {
		costCurrency = s.baseCurrency
	}
	costRate, err := s.rates.GetRate(costCurrency, s.baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("rate %s->%s: %w", costCurrency, s.baseCurrency, err)
	}

	quantity, _ := h.Quantity.Float64()
	costBasis, _ := h.CostBasis.Float64()

	pos := &Position{
		Holding:      h,
		CurrentPrice: latest.Close,
		CurrencyRate: priceRate,
		MarketValue:  quantity * latest.Close * priceRate,
		CostValue:    costBasis * costRate,
		PriceDate:    latest.Date,
	}
	pos.UnrealizedPnL = pos.MarketValue - pos.CostValue
	if pos.CostValue > 0 {
		pos.UnrealizedPnLPct = pos.UnrealizedPnL / pos.CostValue * 100
	}

	return pos, nil
}

// SaveDailySnapshot records today's total value and weights.
// Skips saving when the portfolio has no valued positions.
func (s *Service) SaveDailySnapshot() error {
	summary, err := s.GetSummary()
	if err != nil {
		return err
	}

	if len(summary.Positions) == 0 {
		s.log.Debug().Msg("No valued positions, skipping snapshot")
		return nil
	}

	return s.snapshotRepo.Save(Snapshot{
		Date:       time.Now().UTC(),
		TotalValue: summary.TotalValue,
		Weights:    summary.Weights,
	})
}

// GetSnapshots returns snapshots between two dates inclusive.
func (s *Service) GetSnapshots(start, end time.Time) ([]Snapshot, error) {
	return s.snapshotRepo.GetRange(start, end)
}
