package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestDailyReturns(t *testing.T) {
	returns := DailyReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Nil(t, DailyReturns([]float64{100}))
}

func TestDailyReturns_ZeroPrice(t *testing.T) {
	returns := DailyReturns([]float64{0, 100})
	require.Len(t, returns, 1)
	assert.Zero(t, returns[0])
}

func TestComputeMetrics_Annualization(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.0, -0.01, 0.015}

	m, err := ComputeMetrics(returns, 0.03)
	require.NoError(t, err)

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)

	assert.InDelta(t, mean*252, m.AnnualReturn, 1e-9)
	assert.InDelta(t, std*math.Sqrt(252), m.AnnualVolatility, 1e-9)

	expectedSharpe := math.Sqrt(252) * (mean - 0.03/252) / std
	assert.InDelta(t, expectedSharpe, m.SharpeRatio, 1e-9)

	assert.Equal(t, 6, m.Observations)
}

func TestComputeMetrics_VaRMatchesNormalQuantile(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.005, 0.015, -0.01, 0.02, -0.005}

	m, err := ComputeMetrics(returns, 0.03)
	require.NoError(t, err)

	dist := distuv.Normal{Mu: stat.Mean(returns, nil), Sigma: stat.StdDev(returns, nil)}
	assert.InDelta(t, dist.Quantile(0.05), m.VaR95, 1e-9)
	assert.Less(t, m.VaR95, 0.0)
	// CVaR is at least as bad as VaR
	assert.LessOrEqual(t, m.CVaR95, m.VaR95)
}

func TestComputeMetrics_TooFewReturns(t *testing.T) {
	_, err := ComputeMetrics([]float64{0.01}, 0.03)
	assert.Error(t, err)
}

func TestComputeMetrics_Sortino(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.01, -0.03, 0.015, -0.02}

	m, err := ComputeMetrics(returns, 0.03)
	require.NoError(t, err)

	downside := []float64{-0.01, -0.03, -0.02}
	expected := m.AnnualReturn / (stat.StdDev(downside, nil) * math.Sqrt(252))
	assert.InDelta(t, expected, m.SortinoRatio, 1e-9)
}

func TestComputeMetrics_SortinoNoLosses(t *testing.T) {
	m, err := ComputeMetrics([]float64{0.01, 0.02, 0.01, 0.03}, 0.03)
	require.NoError(t, err)
	assert.Zero(t, m.SortinoRatio)
}

func TestMaxDrawdown(t *testing.T) {
	// 100 -> 110 -> 88 -> 96.8: trough is 20% below the 110 peak
	returns := []float64{0.10, -0.20, 0.10}
	assert.InDelta(t, -0.20, MaxDrawdown(returns), 1e-9)

	assert.Zero(t, MaxDrawdown([]float64{0.01, 0.02}))
}

func TestCumulativeValue(t *testing.T) {
	values := CumulativeValue([]float64{0.10, -0.10}, 100000)
	require.Len(t, values, 2)
	assert.InDelta(t, 110000.0, values[0], 1e-6)
	assert.InDelta(t, 99000.0, values[1], 1e-6)
}
