// Package nse provides quote and price history fetching for equities listed
// on the National Stock Exchange of India.
package nse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/koshlabs/kosh/internal/clientdata"
)

// Quote is the latest traded price for an NSE equity.
type Quote struct {
	Symbol        string  `msgpack:"symbol"`
	LastPrice     float64 `msgpack:"last_price"`
	Change        float64 `msgpack:"change"`
	PercentChange float64 `msgpack:"percent_change"`
	PreviousClose float64 `msgpack:"previous_close"`
}

// Candle is a single daily OHLCV bar.
type Candle struct {
	Date   string  `msgpack:"date"` // YYYY-MM-DD
	Open   float64 `msgpack:"open"`
	High   float64 `msgpack:"high"`
	Low    float64 `msgpack:"low"`
	Close  float64 `msgpack:"close"`
	Volume int64   `msgpack:"volume"`
}

// Client for the nseindia.com JSON API.
//
// The API sits behind bot protection: requests need browser-like headers
// and a session cookie obtained by first hitting the homepage. The cookie
// jar keeps that session alive across calls.
type Client struct {
	baseURL   string
	homeURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository

	// primeMu guards primed: the sync job and API handlers share one client.
	primeMu sync.Mutex
	primed  bool
}

// NewClient creates a new NSE client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: "https://www.nseindia.com/api",
		homeURL: "https://www.nseindia.com",
		client: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		log:       log.With().Str("client", "nse").Logger(),
		cacheRepo: cacheRepo,
	}
}

// NormalizeSymbol strips the Yahoo-style ".NS" suffix so portfolio symbols
// like RELIANCE.NS resolve to the NSE ticker RELIANCE.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), ".NS")
}

// GetQuote fetches the latest quote for an NSE equity.
// If the API fails, stale cached data is returned when available.
func (c *Client) GetQuote(symbol string) (*Quote, error) {
	ticker := NormalizeSymbol(symbol)
	cacheKey := "quote:" + ticker

	if c.cacheRepo != nil {
		var cached Quote
		found, err := c.cacheRepo.GetIfFresh("nse", cacheKey, &cached)
		if err == nil && found {
			c.log.Debug().Str("symbol", ticker).Float64("price", cached.LastPrice).Msg("Cache hit")
			return &cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/quote-equity?symbol=%s", c.baseURL, url.QueryEscape(ticker))

	var result struct {
		PriceInfo struct {
			LastPrice     float64 `json:"lastPrice"`
			Change        float64 `json:"change"`
			PChange       float64 `json:"pChange"`
			PreviousClose float64 `json:"previousClose"`
		} `json:"priceInfo"`
	}
	if err := c.getJSON(endpoint, &result); err != nil {
		if stale, ok := getStale[Quote](c, cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", ticker).Msg("API failed, using stale cached quote")
			return stale, nil
		}
		return nil, fmt.Errorf("quote fetch for %s: %w", ticker, err)
	}

	if result.PriceInfo.LastPrice == 0 {
		return nil, fmt.Errorf("no quote data for %s", ticker)
	}

	quote := &Quote{
		Symbol:        ticker,
		LastPrice:     result.PriceInfo.LastPrice,
		Change:        result.PriceInfo.Change,
		PercentChange: result.PriceInfo.PChange,
		PreviousClose: result.PriceInfo.PreviousClose,
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("nse", cacheKey, quote, clientdata.TTLCurrentPrice); err != nil {
			c.log.Warn().Err(err).Str("symbol", ticker).Msg("Failed to cache quote")
		}
	}

	c.log.Info().Str("symbol", ticker).Float64("price", quote.LastPrice).Msg("Fetched quote")

	return quote, nil
}

// GetDailyHistory fetches daily candles for an NSE equity between two dates.
// If the API fails, stale cached data is returned when available.
func (c *Client) GetDailyHistory(symbol string, start, end time.Time) ([]Candle, error) {
	ticker := NormalizeSymbol(symbol)
	cacheKey := fmt.Sprintf("history:%s:%s:%s",
		ticker,
		start.UTC().Format("2006-01-02"),
		end.UTC().Format("2006-01-02"),
	)

	if c.cacheRepo != nil {
		var cached []Candle
		found, err := c.cacheRepo.GetIfFresh("nse", cacheKey, &cached)
		if err == nil && found {
			c.log.Debug().Str("symbol", ticker).Int("candles", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/historical/cm/equity?%s",
		c.baseURL,
		url.Values{
			"symbol": {ticker},
			"series": {`["EQ"]`},
			"from":   {start.Format("02-01-2006")},
			"to":     {end.Format("02-01-2006")},
		}.Encode(),
	)

	var result struct {
		Data []struct {
			Timestamp string  `json:"CH_TIMESTAMP"` // YYYY-MM-DD
			Open      float64 `json:"CH_OPENING_PRICE"`
			High      float64 `json:"CH_TRADE_HIGH_PRICE"`
			Low       float64 `json:"CH_TRADE_LOW_PRICE"`
			Close     float64 `json:"CH_CLOSING_PRICE"`
			Volume    int64   `json:"CH_TOT_TRADED_QTY"`
		} `json:"data"`
	}
	if err := c.getJSON(endpoint, &result); err != nil {
		if stale, ok := getStale[[]Candle](c, cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", ticker).Msg("API failed, using stale cached candles")
			return *stale, nil
		}
		return nil, fmt.Errorf("history fetch for %s: %w", ticker, err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no history data for %s", ticker)
	}

	// The API returns newest first; flip to chronological order.
	candles := make([]Candle, 0, len(result.Data))
	for i := len(result.Data) - 1; i >= 0; i-- {
		row := result.Data[i]
		candles = append(candles, Candle{
			Date:   row.Timestamp,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("nse", cacheKey, candles, clientdata.TTLDailyHistory); err != nil {
			c.log.Warn().Err(err).Str("symbol", ticker).Msg("Failed to cache candles")
		}
	}

	c.log.Info().Str("symbol", ticker).Int("candles", len(candles)).Msg("Fetched history")

	return candles, nil
}

// getJSON performs a browser-like GET against the NSE API, priming the
// session cookie on first use, and decodes the JSON response into dest.
func (c *Client) getJSON(endpoint string, dest any) error {
	if err := c.ensurePrimed(false); err != nil {
		c.log.Warn().Err(err).Msg("Session priming failed")
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Session expired; re-prime once and retry.
		if err := c.ensurePrimed(true); err != nil {
			return fmt.Errorf("session re-priming failed: %w", err)
		}

		retry, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		setBrowserHeaders(retry)

		resp2, err := c.client.Do(retry)
		if err != nil {
			return fmt.Errorf("API retry failed: %w", err)
		}
		defer resp2.Body.Close()
		resp = resp2
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// ensurePrimed primes the session if it hasn't been yet, or unconditionally
// when force is set (after a 401/403). Concurrent callers collapse into a
// single homepage hit.
func (c *Client) ensurePrimed(force bool) error {
	c.primeMu.Lock()
	defer c.primeMu.Unlock()

	if c.primed && !force {
		return nil
	}

	if err := c.prime(); err != nil {
		return err
	}

	c.primed = true
	return nil
}

// prime hits the homepage to collect the session cookies the API requires.
// Callers hold primeMu.
func (c *Client) prime() error {
	req, err := http.NewRequest(http.MethodGet, c.homeURL, nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.nseindia.com/")
}

// getStale retrieves a cached value even if expired.
func getStale[T any](c *Client, cacheKey string) (*T, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached T
	found, err := c.cacheRepo.Get("nse", cacheKey, &cached)
	if err != nil || !found {
		return nil, false
	}

	return &cached, true
}
