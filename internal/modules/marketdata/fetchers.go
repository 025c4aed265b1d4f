package marketdata

import (
	"time"

	"github.com/koshlabs/kosh/internal/clients/coingecko"
	"github.com/koshlabs/kosh/internal/clients/nse"
	"github.com/koshlabs/kosh/internal/clients/yahoo"
	"github.com/koshlabs/kosh/internal/modules/history"
)

// NSEFetcher adapts the NSE client to the Fetcher interface.
type NSEFetcher struct {
	Client *nse.Client
}

func (f NSEFetcher) FetchDaily(symbol string, start, end time.Time) ([]history.DailyPrice, error) {
	candles, err := f.Client.GetDailyHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}

	prices := make([]history.DailyPrice, len(candles))
	for i, c := range candles {
		volume := c.Volume
		prices[i] = history.DailyPrice{
			Date:   c.Date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: &volume,
		}
	}
	return prices, nil
}

// GetQuote adapts the NSE quote to the service type, so NSEFetcher also
// satisfies Quoter.
func (f NSEFetcher) GetQuote(symbol string) (*Quote, error) {
	q, err := f.Client.GetQuote(symbol)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Symbol:        q.Symbol,
		LastPrice:     q.LastPrice,
		Change:        q.Change,
		PercentChange: q.PercentChange,
		PreviousClose: q.PreviousClose,
	}, nil
}

// CoinGeckoFetcher adapts the CoinGecko client to the Fetcher interface.
// CoinGecko only provides closes, so OHLC collapse to the close.
type CoinGeckoFetcher struct {
	Client *coingecko.Client
}

func (f CoinGeckoFetcher) FetchDaily(symbol string, start, end time.Time) ([]history.DailyPrice, error) {
	points, err := f.Client.GetDailyHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}

	prices := make([]history.DailyPrice, len(points))
	for i, p := range points {
		prices[i] = history.DailyPrice{
			Date:  p.Date,
			Open:  p.Close,
			High:  p.Close,
			Low:   p.Close,
			Close: p.Close,
		}
	}
	return prices, nil
}

// YahooFetcher adapts the Yahoo Finance client to the Fetcher interface.
type YahooFetcher struct {
	Client *yahoo.Client
}

func (f YahooFetcher) FetchDaily(symbol string, start, end time.Time) ([]history.DailyPrice, error) {
	candles, err := f.Client.GetDailyHistory(symbol, start, end)
	if err != nil {
		return nil, err
	}

	prices := make([]history.DailyPrice, len(candles))
	for i, c := range candles {
		volume := c.Volume
		prices[i] = history.DailyPrice{
			Date:   c.Date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: &volume,
		}
	}
	return prices, nil
}
