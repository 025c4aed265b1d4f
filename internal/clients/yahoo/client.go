// Package yahoo provides price fetching from the Yahoo Finance chart API.
// It is the data source for gold futures (GC=F) and a generic fallback for
// any symbol Yahoo quotes.
package yahoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/clientdata"
)

// Candle is a single daily OHLCV bar.
type Candle struct {
	Date   string  `msgpack:"date"` // YYYY-MM-DD
	Open   float64 `msgpack:"open"`
	High   float64 `msgpack:"high"`
	Low    float64 `msgpack:"low"`
	Close  float64 `msgpack:"close"`
	Volume int64   `msgpack:"volume"`
}

// Client for the Yahoo Finance v8 chart API.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Yahoo Finance client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// chartResponse mirrors the relevant part of the v8 chart API response.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyHistory fetches daily candles for a symbol between two dates.
// If the API fails, stale cached data is returned when available.
func (c *Client) GetDailyHistory(symbol string, start, end time.Time) ([]Candle, error) {
	cacheKey := fmt.Sprintf("%s:%s:%s",
		symbol,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	)

	if c.cacheRepo != nil {
		var cached []Candle
		found, err := c.cacheRepo.GetIfFresh("yahoo", cacheKey, &cached)
		if err == nil && found {
			c.log.Debug().
				Str("symbol", symbol).
				Int("candles", len(cached)).
				Msg("Cache hit")
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/%s?%s",
		c.baseURL,
		url.PathEscape(symbol),
		url.Values{
			"period1":  {fmt.Sprintf("%d", start.Unix())},
			"period2":  {fmt.Sprintf("%d", end.Unix())},
			"interval": {"1d"},
			"events":   {"history"},
		}.Encode(),
	)
	c.log.Debug().Str("url", endpoint).Msg("Fetching chart")

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	// Yahoo rejects requests without a browser-like user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")

	resp, err := c.client.Do(req)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("API failed, using stale cached candles")
			return stale, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Int("status", resp.StatusCode).
				Str("symbol", symbol).
				Msg("API error, using stale cached candles")
			return stale, nil
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to parse API response, using stale cached candles")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s (%s)", result.Chart.Error.Code, result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	candles := buildCandles(result)
	if len(candles) == 0 {
		return nil, fmt.Errorf("no usable candles for %s", symbol)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("yahoo", cacheKey, candles, clientdata.TTLDailyHistory); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache candles")
		}
	}

	c.log.Info().
		Str("symbol", symbol).
		Int("candles", len(candles)).
		Msg("Fetched chart")

	return candles, nil
}

// buildCandles converts the columnar chart response into candles,
// skipping rows where the close is missing (market holidays, halts).
func buildCandles(result chartResponse) []Candle {
	res := result.Chart.Result[0]
	quote := res.Indicators.Quote[0]

	candles := make([]Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}

		candle := Candle{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			candle.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			candle.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			candle.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}

		candles = append(candles, candle)
	}

	return candles
}

// getStaleFromCache retrieves cached candles even if expired.
func (c *Client) getStaleFromCache(cacheKey string) ([]Candle, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached []Candle
	found, err := c.cacheRepo.Get("yahoo", cacheKey, &cached)
	if err != nil || !found {
		return nil, false
	}

	return cached, true
}
