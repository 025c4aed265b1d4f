// Package marketdata orchestrates price fetching: it dispatches each holding
// to the right upstream source by asset class and lands the results in the
// history database.
package marketdata

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/modules/history"
	"github.com/koshlabs/kosh/internal/modules/portfolio"
)

// Fetcher retrieves daily prices for a symbol from an upstream source.
type Fetcher interface {
	FetchDaily(symbol string, start, end time.Time) ([]history.DailyPrice, error)
}

// Quote is the latest traded price for an equity.
type Quote struct {
	Symbol        string  `json:"symbol"`
	LastPrice     float64 `json:"last_price"`
	Change        float64 `json:"change"`
	PercentChange float64 `json:"percent_change"`
	PreviousClose float64 `json:"previous_close"`
}

// Quoter retrieves a live quote for an equity symbol.
type Quoter interface {
	GetQuote(symbol string) (*Quote, error)
}

// RateProvider converts between currencies.
type RateProvider interface {
	GetRate(fromCurrency, toCurrency string) (float64, error)
}

// EventSink receives notifications when market data changes.
// Optional; a nil sink disables notifications.
type EventSink interface {
	Publish(event string, payload any)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Synced   int               `json:"synced"`
	Failed   int               `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`
	Duration string            `json:"duration"`
}

// Service fetches and stores market data for all holdings.
type Service struct {
	holdingRepo  *portfolio.HoldingRepository
	priceRepo    *history.PriceRepository
	equity       Fetcher
	crypto       Fetcher
	gold         Fetcher
	quotes       Quoter
	rates        RateProvider
	events       EventSink
	baseCurrency string
	lookbackDays int
	log          zerolog.Logger
}

// NewService creates a new market data service.
// lookbackDays bounds how far back each sync fetches; values <= 0 default to a year.
func NewService(
	holdingRepo *portfolio.HoldingRepository,
	priceRepo *history.PriceRepository,
	equity, crypto, gold Fetcher,
	quotes Quoter,
	rates RateProvider,
	events EventSink,
	baseCurrency string,
	lookbackDays int,
	log zerolog.Logger,
) *Service {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	return &Service{
		holdingRepo:  holdingRepo,
		priceRepo:    priceRepo,
		equity:       equity,
		crypto:       crypto,
		gold:         gold,
		quotes:       quotes,
		rates:        rates,
		events:       events,
		baseCurrency: baseCurrency,
		lookbackDays: lookbackDays,
		log:          log.With().Str("service", "marketdata").Logger(),
	}
}

// SyncAll fetches price history for every holding and records the current
// USD exchange rate. Failures are collected per symbol; one bad symbol does
// not abort the run.
func (s *Service) SyncAll() (*SyncResult, error) {
	started := time.Now()

	holdings, err := s.holdingRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.lookbackDays)

	result := &SyncResult{Errors: make(map[string]string)}

	for _, h := range holdings {
		if err := s.syncHolding(h, start, end); err != nil {
			s.log.Error().Err(err).Str("symbol", h.Symbol).Msg("Sync failed")
			result.Failed++
			result.Errors[h.Symbol] = err.Error()
			continue
		}
		result.Synced++
	}

	if err := s.recordExchangeRate(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record exchange rate")
	}

	result.Duration = time.Since(started).Round(time.Millisecond).String()
	if len(result.Errors) == 0 {
		result.Errors = nil
	}

	s.log.Info().
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Str("duration", result.Duration).
		Msg("Market data sync complete")

	if s.events != nil {
		s.events.Publish("marketdata.synced", result)
	}

	return result, nil
}

// GetQuote returns the latest traded price for an equity holding. Crypto and
// gold only have daily closes; their upstreams serve no intraday quote here.
func (s *Service) GetQuote(symbol string) (*Quote, error) {
	holding, err := s.holdingRepo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, fmt.Errorf("no holding for symbol %s", symbol)
	}
	if holding.AssetClass != portfolio.AssetEquity {
		return nil, fmt.Errorf("live quotes are only available for equities, %s is %s", holding.Symbol, holding.AssetClass)
	}

	return s.quotes.GetQuote(holding.Symbol)
}

// SyncSymbol fetches and stores price history for one holding.
func (s *Service) SyncSymbol(symbol string) error {
	holding, err := s.holdingRepo.GetBySymbol(symbol)
	if err != nil {
		return err
	}
	if holding == nil {
		return fmt.Errorf("no holding for symbol %s", symbol)
	}

	end := time.Now().UTC()
	return s.syncHolding(*holding, end.AddDate(0, 0, -s.lookbackDays), end)
}

func (s *Service) syncHolding(h portfolio.Holding, start, end time.Time) error {
	fetcher, err := s.fetcherFor(h.AssetClass)
	if err != nil {
		return err
	}

	prices, err := fetcher.FetchDaily(h.Symbol, start, end)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", h.Symbol, err)
	}
	if len(prices) == 0 {
		return fmt.Errorf("no prices returned for %s", h.Symbol)
	}

	if err := s.priceRepo.SyncDailyPrices(h.Symbol, prices); err != nil {
		return fmt.Errorf("store %s: %w", h.Symbol, err)
	}

	return nil
}

func (s *Service) fetcherFor(class portfolio.AssetClass) (Fetcher, error) {
	switch class {
	case portfolio.AssetEquity:
		return s.equity, nil
	case portfolio.AssetCrypto:
		return s.crypto, nil
	case portfolio.AssetGold:
		return s.gold, nil
	default:
		return nil, fmt.Errorf("no fetcher for asset class %s", class)
	}
}

// recordExchangeRate stores today's USD rate so valuations of USD-priced
// assets survive upstream FX outages.
func (s *Service) recordExchangeRate() error {
	if s.baseCurrency == "USD" {
		return nil
	}

	rate, err := s.rates.GetRate("USD", s.baseCurrency)
	if err != nil {
		return err
	}

	return s.priceRepo.UpsertExchangeRate("USD", s.baseCurrency, rate)
}
