package analytics

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// Indicators are rolling technical series for one symbol. Entries before the
// window has filled are NaN-free zeros on the API, so they are trimmed: all
// slices share the same date axis starting at the first complete window.
type Indicators struct {
	Dates             []string  `json:"dates"`
	Close             []float64 `json:"close"`
	SMA               []float64 `json:"sma"`
	RollingVolatility []float64 `json:"rolling_volatility"` // annualized
	Window            int       `json:"window"`
}

// ComputeIndicators derives a simple moving average and an annualized rolling
// volatility over the given window from a daily close series.
func ComputeIndicators(dates []string, closes []float64, window int) (*Indicators, error) {
	if window < 2 {
		return nil, fmt.Errorf("window must be at least 2, got %d", window)
	}
	// SMA needs `window` closes; the volatility additionally consumes one
	// close to form the first return.
	if len(closes) < window+1 {
		return nil, fmt.Errorf("need at least %d closes for window %d, have %d", window+1, window, len(closes))
	}
	if len(dates) != len(closes) {
		return nil, fmt.Errorf("dates and closes length mismatch: %d vs %d", len(dates), len(closes))
	}

	sma := talib.Sma(closes, window)

	returns := DailyReturns(closes)
	returnStd := talib.StdDev(returns, window, 1.0)

	// First index where both series are populated. talib zero-fills the
	// warmup region: SMA fills from window-1 (in close space), the return
	// stddev from window-1 in return space, i.e. window in close space.
	start := window

	n := len(closes) - start
	out := &Indicators{
		Dates:             make([]string, n),
		Close:             make([]float64, n),
		SMA:               make([]float64, n),
		RollingVolatility: make([]float64, n),
		Window:            window,
	}

	annualize := math.Sqrt(TradingDaysPerYear)
	for i := 0; i < n; i++ {
		idx := start + i
		out.Dates[i] = dates[idx]
		out.Close[i] = closes[idx]
		out.SMA[i] = sma[idx]
		out.RollingVolatility[i] = returnStd[idx-1] * annualize
	}

	return out, nil
}
