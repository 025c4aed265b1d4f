// Package coingecko provides cryptocurrency price fetching from the CoinGecko API.
package coingecko

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/clientdata"
)

// coinIDs maps common crypto ticker symbols to CoinGecko coin IDs.
var coinIDs = map[string]string{
	"BTC-USD":  "bitcoin",
	"ETH-USD":  "ethereum",
	"USDT-USD": "tether",
	"BNB-USD":  "binancecoin",
	"XRP-USD":  "ripple",
}

// PricePoint is a single daily closing price in USD.
type PricePoint struct {
	Date  string  `msgpack:"date"` // YYYY-MM-DD
	Close float64 `msgpack:"close"`
}

// Client for the CoinGecko public API.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new CoinGecko client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://api.coingecko.com/api/v3",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "coingecko").Logger(),
		cacheRepo: cacheRepo,
	}
}

// CoinID resolves a ticker symbol (e.g. BTC-USD) to a CoinGecko coin ID.
// Returns an empty string for unknown symbols.
func CoinID(symbol string) string {
	return coinIDs[symbol]
}

// GetDailyHistory fetches daily closing prices for a crypto symbol between two dates.
// Prices are denominated in USD. If the API fails, stale cached data is
// returned when available.
func (c *Client) GetDailyHistory(symbol string, start, end time.Time) ([]PricePoint, error) {
	coinID := CoinID(symbol)
	if coinID == "" {
		return nil, fmt.Errorf("unknown crypto symbol: %s", symbol)
	}

	cacheKey := fmt.Sprintf("%s:%s:%s",
		coinID,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	)

	// Check persistent cache for fresh data
	if c.cacheRepo != nil {
		var cached []PricePoint
		found, err := c.cacheRepo.GetIfFresh("coingecko", cacheKey, &cached)
		if err == nil && found {
			c.log.Debug().
				Str("coin", coinID).
				Int("points", len(cached)).
				Msg("Cache hit")
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s",
		c.baseURL,
		coinID,
		url.Values{
			"vs_currency": {"usd"},
			"from":        {fmt.Sprintf("%d", start.Unix())},
			"to":          {fmt.Sprintf("%d", end.Unix())},
		}.Encode(),
	)
	c.log.Debug().Str("url", endpoint).Msg("Fetching market chart")

	resp, err := c.client.Get(endpoint)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Str("coin", coinID).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Int("status", resp.StatusCode).
				Str("coin", coinID).
				Msg("API error, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	// Response shape: {"prices": [[unix_ms, price], ...]}
	var result struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Str("coin", coinID).Msg("Failed to parse API response, using stale cached history")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	points := aggregateDaily(result.Prices)
	if len(points) == 0 {
		return nil, fmt.Errorf("no price data for %s", coinID)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("coingecko", cacheKey, points, clientdata.TTLDailyHistory); err != nil {
			c.log.Warn().Err(err).Str("coin", coinID).Msg("Failed to cache market chart")
		}
	}

	c.log.Info().
		Str("coin", coinID).
		Int("points", len(points)).
		Msg("Fetched market chart")

	return points, nil
}

// aggregateDaily collapses intraday observations to one close per day.
// CoinGecko returns hourly (or denser) samples; the last sample of each
// UTC day is taken as that day's close.
func aggregateDaily(prices [][2]float64) []PricePoint {
	byDay := make(map[string]float64)
	for _, p := range prices {
		ts := time.UnixMilli(int64(p[0])).UTC()
		byDay[ts.Format("2006-01-02")] = p[1]
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]PricePoint, 0, len(days))
	for _, day := range days {
		points = append(points, PricePoint{Date: day, Close: byDay[day]})
	}
	return points
}

// getStaleFromCache retrieves cached history even if expired.
func (c *Client) getStaleFromCache(cacheKey string) ([]PricePoint, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached []PricePoint
	found, err := c.cacheRepo.Get("coingecko", cacheKey, &cached)
	if err != nil || !found {
		return nil, false
	}

	return cached, true
}
