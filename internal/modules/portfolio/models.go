// Package portfolio manages the holdings ledger: what is owned, in what
// quantity, at what cost, and what it is worth right now.
package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass identifies the kind of asset a holding represents.
// It determines the price source and the pricing currency.
type AssetClass string

const (
	AssetEquity AssetClass = "equity" // NSE-listed stocks, priced in INR
	AssetCrypto AssetClass = "crypto" // cryptocurrencies, priced in USD
	AssetGold   AssetClass = "gold"   // gold futures (GC=F), priced in USD
)

// Valid reports whether the asset class is one of the known values.
func (a AssetClass) Valid() bool {
	switch a {
	case AssetEquity, AssetCrypto, AssetGold:
		return true
	}
	return false
}

// PricingCurrency returns the currency the asset class is quoted in.
func (a AssetClass) PricingCurrency() string {
	if a == AssetEquity {
		return "INR"
	}
	return "USD"
}

// Holding is a single position in the portfolio ledger.
// Quantity and cost basis are decimals to keep the bookkeeping exact;
// analytics downstream convert to floats.
type Holding struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	AssetClass   AssetClass      `json:"asset_class"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostBasis    decimal.Decimal `json:"cost_basis"` // total acquisition cost in Currency
	TargetWeight float64         `json:"target_weight"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks the fields a holding must have before it can be stored.
func (h *Holding) Validate() error {
	if h.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !h.AssetClass.Valid() {
		return fmt.Errorf("invalid asset class: %s", h.AssetClass)
	}
	if h.Quantity.IsNegative() {
		return fmt.Errorf("quantity cannot be negative")
	}
	if h.CostBasis.IsNegative() {
		return fmt.Errorf("cost basis cannot be negative")
	}
	if h.TargetWeight < 0 || h.TargetWeight > 1 {
		return fmt.Errorf("target weight must be between 0 and 1")
	}
	return nil
}

// Position is a holding valued at current market prices, in the base currency.
type Position struct {
	Holding
	CurrentPrice     float64 `json:"current_price"` // in pricing currency
	CurrencyRate     float64 `json:"currency_rate"` // pricing currency -> base
	MarketValue      float64 `json:"market_value"`  // in base currency
	CostValue        float64 `json:"cost_value"`    // in base currency
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
	Weight           float64 `json:"weight"`
	PriceDate        string  `json:"price_date"`
}

// Summary aggregates the valued portfolio.
type Summary struct {
	TotalValue    float64            `json:"total_value"`
	TotalCost     float64            `json:"total_cost"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	BaseCurrency  string             `json:"base_currency"`
	Weights       map[string]float64 `json:"weights"`       // by symbol
	ClassWeights  map[string]float64 `json:"class_weights"` // by asset class
	Positions     []Position         `json:"positions"`
}

// Snapshot is the portfolio's total value and weights recorded for one day.
type Snapshot struct {
	Date       time.Time          `json:"date"`
	TotalValue float64            `json:"total_value"`
	Weights    map[string]float64 `json:"weights"`
}
