package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Metrics are the annualized risk/return statistics of a daily return series.
type Metrics struct {
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	VaR95            float64 `json:"var_95"`  // daily, parametric
	CVaR95           float64 `json:"cvar_95"` // daily, historical
	MaxDrawdown      float64 `json:"max_drawdown"`
	Observations     int     `json:"observations"`
}

// ComputeMetrics calculates annualized statistics from daily returns.
// riskFreeRate is annual (e.g. 0.03) and is spread evenly over trading days
// for the Sharpe excess-return series.
func ComputeMetrics(returns []float64, riskFreeRate float64) (*Metrics, error) {
	if len(returns) < 2 {
		return nil, fmt.Errorf("need at least 2 returns, have %d", len(returns))
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)

	m := &Metrics{
		AnnualReturn:     mean * TradingDaysPerYear,
		AnnualVolatility: std * math.Sqrt(TradingDaysPerYear),
		Observations:     len(returns),
	}

	// Sharpe on excess daily returns. The constant shift leaves the
	// standard deviation unchanged.
	dailyRf := riskFreeRate / TradingDaysPerYear
	if std > 0 {
		m.SharpeRatio = math.Sqrt(TradingDaysPerYear) * (mean - dailyRf) / std
	}

	m.SortinoRatio = sortino(returns, m.AnnualReturn)
	m.VaR95 = parametricVaR95(mean, std)
	m.CVaR95 = historicalCVaR95(returns, m.VaR95)
	m.MaxDrawdown = MaxDrawdown(returns)

	return m, nil
}

// sortino divides annual return by annualized downside deviation,
// computed over losing days only.
func sortino(returns []float64, annualReturn float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}

	downsideStd := stat.StdDev(downside, nil)
	if downsideStd == 0 {
		return 0
	}
	return annualReturn / (downsideStd * math.Sqrt(TradingDaysPerYear))
}

// parametricVaR95 is the 5th percentile of a normal fitted to the daily
// returns. Negative values mean loss.
func parametricVaR95(mean, std float64) float64 {
	if std <= 0 {
		return 0
	}
	dist := distuv.Normal{Mu: mean, Sigma: std}
	return dist.Quantile(0.05)
}

// historicalCVaR95 averages the returns at or below the VaR cutoff.
func historicalCVaR95(returns []float64, varCutoff float64) float64 {
	var tail []float64
	for _, r := range returns {
		if r <= varCutoff {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return varCutoff
	}
	return stat.Mean(tail, nil)
}

// MaxDrawdown is the deepest peak-to-trough decline of the cumulative
// value curve, expressed as a negative fraction.
func MaxDrawdown(returns []float64) float64 {
	value := 1.0
	peak := 1.0
	maxDD := 0.0

	for _, r := range returns {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		dd := value/peak - 1
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
