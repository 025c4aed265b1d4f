// Package analytics computes return and risk statistics for individual
// assets and for the portfolio as a whole.
package analytics

import (
	"fmt"

	"github.com/koshlabs/kosh/internal/modules/history"
)

// TradingDaysPerYear is the annualization factor for daily return series.
const TradingDaysPerYear = 252

// DailyReturns converts a close-price series to simple daily returns.
// Returns has length len(closes)-1; an input shorter than 2 yields nil.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

// ReturnMatrix holds per-asset daily returns on a shared date axis.
// Returns[i][j] is the return of Symbols[j] on Dates[i].
type ReturnMatrix struct {
	Dates   []string
	Symbols []string
	Returns [][]float64
}

// BuildReturnMatrix converts aligned closes to aligned daily returns.
// The first aligned date is consumed as the base of the first return.
func BuildReturnMatrix(aligned *history.AlignedCloses) (*ReturnMatrix, error) {
	if len(aligned.Closes) < 2 {
		return nil, fmt.Errorf("need at least 2 aligned price rows, have %d", len(aligned.Closes))
	}

	n := len(aligned.Symbols)
	returns := make([][]float64, len(aligned.Closes)-1)
	for i := 1; i < len(aligned.Closes); i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			prev := aligned.Closes[i-1][j]
			if prev != 0 {
				row[j] = aligned.Closes[i][j]/prev - 1
			}
		}
		returns[i-1] = row
	}

	return &ReturnMatrix{
		Dates:   aligned.Dates[1:],
		Symbols: aligned.Symbols,
		Returns: returns,
	}, nil
}

// PortfolioReturns collapses the matrix to a single weighted return series.
// Weights are keyed by symbol; symbols absent from the map get zero weight.
func (m *ReturnMatrix) PortfolioReturns(weights map[string]float64) []float64 {
	w := make([]float64, len(m.Symbols))
	for j, symbol := range m.Symbols {
		w[j] = weights[symbol]
	}

	series := make([]float64, len(m.Returns))
	for i, row := range m.Returns {
		var r float64
		for j := range row {
			r += row[j] * w[j]
		}
		series[i] = r
	}
	return series
}

// Column returns one symbol's return series from the matrix.
func (m *ReturnMatrix) Column(symbol string) []float64 {
	for j, s := range m.Symbols {
		if s != symbol {
			continue
		}
		col := make([]float64, len(m.Returns))
		for i := range m.Returns {
			col[i] = m.Returns[i][j]
		}
		return col
	}
	return nil
}

// CumulativeValue grows an initial investment through a return series.
// The result has one entry per return.
func CumulativeValue(returns []float64, initial float64) []float64 {
	values := make([]float64, len(returns))
	value := initial
	for i, r := range returns {
		value *= 1 + r
		values[i] = value
	}
	return values
}
