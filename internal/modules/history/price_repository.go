// Package history manages the historical time-series store: daily prices
// per symbol and recorded exchange rates.
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/database"
)

// PriceRepository provides access to the daily price and exchange rate tables.
type PriceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceRepository creates a new price repository over the history database.
func NewPriceRepository(db *sql.DB, log zerolog.Logger) *PriceRepository {
	return &PriceRepository{
		db:  db,
		log: log.With().Str("component", "price_repository").Logger(),
	}
}

// DailyPrice represents a daily OHLCV price point
type DailyPrice struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume *int64  `json:"volume,omitempty"`
}

// AlignedCloses holds closing prices for several symbols aligned on a shared
// date axis. Closes[i][j] is the close of Symbols[j] on Dates[i].
type AlignedCloses struct {
	Dates   []string    `json:"dates"`
	Symbols []string    `json:"symbols"`
	Closes  [][]float64 `json:"closes"`
}

// SyncDailyPrices inserts or replaces daily prices for a symbol in a single
// transaction.
func (r *PriceRepository) SyncDailyPrices(symbol string, prices []DailyPrice) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO daily_prices
			(symbol, date, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, price := range prices {
			dateUnix, err := dateToUnix(price.Date)
			if err != nil {
				return fmt.Errorf("failed to parse date %s: %w", price.Date, err)
			}

			volume := sql.NullInt64{}
			if price.Volume != nil {
				volume.Int64 = *price.Volume
				volume.Valid = true
			}

			_, err = stmt.Exec(symbol, dateUnix, price.Open, price.High, price.Low, price.Close, volume)
			if err != nil {
				return fmt.Errorf("failed to insert daily price for %s: %w", price.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Synced daily prices")

	return nil
}

// GetDailyPrices fetches the most recent daily prices for a symbol,
// ordered oldest first.
func (r *PriceRepository) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	prices, err := scanPrices(rows)
	if err != nil {
		return nil, err
	}

	reverse(prices)
	return prices, nil
}

// GetRecentPrices fetches daily prices from the last N days for a symbol,
// ordered oldest first.
func (r *PriceRepository) GetRecentPrices(symbol string, days int) ([]DailyPrice, error) {
	if days <= 0 {
		return []DailyPrice{}, nil
	}

	cutoffUnix := time.Now().AddDate(0, 0, -days).Unix()

	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := r.db.Query(query, symbol, cutoffUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent prices: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// GetLatestClose returns the most recent closing price for a symbol.
// Returns nil if no prices are stored (not an error).
func (r *PriceRepository) GetLatestClose(symbol string) (*DailyPrice, error) {
	query := `
		SELECT date, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`

	var p DailyPrice
	var dateUnix int64
	var volume sql.NullInt64

	err := r.db.QueryRow(query, symbol).Scan(&dateUnix, &p.Open, &p.High, &p.Low, &p.Close, &volume)
	if err == sql.ErrNoRows {
		return nil, nil // Not found (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest close: %w", err)
	}

	p.Date = unixToDate(dateUnix)
	if volume.Valid {
		p.Volume = &volume.Int64
	}

	return &p, nil
}

// GetAlignedCloses builds a close-price matrix for the given symbols over the
// last N days. Dates are the union of all trading days observed; gaps for a
// symbol are forward-filled from its previous close. Leading dates where a
// symbol has no close yet are dropped so every row is complete.
func (r *PriceRepository) GetAlignedCloses(symbols []string, days int) (*AlignedCloses, error) {
	if len(symbols) == 0 {
		return &AlignedCloses{}, nil
	}

	bySymbol := make(map[string]map[string]float64, len(symbols))
	dateSet := make(map[string]struct{})

	for _, symbol := range symbols {
		prices, err := r.GetRecentPrices(symbol, days)
		if err != nil {
			return nil, err
		}

		closes := make(map[string]float64, len(prices))
		for _, p := range prices {
			closes[p.Date] = p.Close
			dateSet[p.Date] = struct{}{}
		}
		bySymbol[symbol] = closes
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	// Forward-fill and find the first date where all symbols have a close.
	last := make(map[string]float64, len(symbols))
	firstComplete := -1
	filled := make([][]float64, len(dates))

	for i, date := range dates {
		row := make([]float64, len(symbols))
		complete := true
		for j, symbol := range symbols {
			if close, ok := bySymbol[symbol][date]; ok {
				last[symbol] = close
			}
			prev, seen := last[symbol]
			if !seen {
				complete = false
				continue
			}
			row[j] = prev
		}
		filled[i] = row
		if complete && firstComplete < 0 {
			firstComplete = i
		}
	}

	if firstComplete < 0 {
		return &AlignedCloses{Symbols: symbols}, nil
	}

	return &AlignedCloses{
		Dates:   dates[firstComplete:],
		Symbols: symbols,
		Closes:  filled[firstComplete:],
	}, nil
}

// CountPrices returns the number of stored daily prices for a symbol.
func (r *PriceRepository) CountPrices(symbol string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM daily_prices WHERE symbol = ?", symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return count, nil
}

// ExchangeRate represents a recorded exchange rate
type ExchangeRate struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Date         time.Time `json:"date"`
	Rate         float64   `json:"rate"`
}

// UpsertExchangeRate inserts or replaces today's exchange rate for a pair.
// Uses current date at midnight UTC for the date field.
func (r *PriceRepository) UpsertExchangeRate(fromCurrency, toCurrency string, rate float64) error {
	now := time.Now()
	dateUnix := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Unix()

	query := `
		INSERT OR REPLACE INTO exchange_rates (from_currency, to_currency, date, rate)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, fromCurrency, toCurrency, dateUnix, rate)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}

	r.log.Debug().
		Str("from", fromCurrency).
		Str("to", toCurrency).
		Float64("rate", rate).
		Msg("Upserted exchange rate")

	return nil
}

// GetLatestExchangeRate fetches the most recent rate for a currency pair.
// Returns nil if no rate found (not an error).
func (r *PriceRepository) GetLatestExchangeRate(fromCurrency, toCurrency string) (*ExchangeRate, error) {
	query := `
		SELECT from_currency, to_currency, date, rate
		FROM exchange_rates
		WHERE from_currency = ? AND to_currency = ?
		ORDER BY date DESC
		LIMIT 1
	`

	var er ExchangeRate
	var dateUnix int64

	err := r.db.QueryRow(query, fromCurrency, toCurrency).Scan(
		&er.FromCurrency,
		&er.ToCurrency,
		&dateUnix,
		&er.Rate,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Not found (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	er.Date = time.Unix(dateUnix, 0).UTC()
	return &er, nil
}

// DeleteStaleRates removes exchange rates older than the threshold.
func (r *PriceRepository) DeleteStaleRates(olderThan time.Time) error {
	result, err := r.db.Exec("DELETE FROM exchange_rates WHERE date < ?", olderThan.Unix())
	if err != nil {
		return fmt.Errorf("failed to delete stale rates: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		r.log.Info().
			Int64("rows_deleted", rowsAffected).
			Time("older_than", olderThan).
			Msg("Deleted stale exchange rates")
	}

	return nil
}

func scanPrices(rows *sql.Rows) ([]DailyPrice, error) {
	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var dateUnix int64
		var volume sql.NullInt64

		if err := rows.Scan(&dateUnix, &p.Open, &p.High, &p.Low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		p.Date = unixToDate(dateUnix)
		if volume.Valid {
			p.Volume = &volume.Int64
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

func reverse(prices []DailyPrice) {
	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}
}

func dateToUnix(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

func unixToDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}
