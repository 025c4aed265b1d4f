// Package optimization computes mean-variance optimal portfolio weights
// from historical return series.
package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/koshlabs/kosh/internal/modules/analytics"
)

// RiskModel holds the annualized inputs to the optimizer.
type RiskModel struct {
	Symbols         []string
	ExpectedReturns map[string]float64 // annualized mean returns
	Covariance      [][]float64        // annualized sample covariance
}

// BuildRiskModel estimates annualized expected returns and covariance from a
// daily return matrix. Expected returns are historical means scaled to a
// year; the covariance is the sample covariance scaled the same way, with
// Ledoit-Wolf shrinkage applied for conditioning once the universe has three
// or more assets.
func BuildRiskModel(matrix *analytics.ReturnMatrix) (*RiskModel, error) {
	n := len(matrix.Symbols)
	obs := len(matrix.Returns)
	if n == 0 {
		return nil, fmt.Errorf("no symbols in return matrix")
	}
	if obs < 2 {
		return nil, fmt.Errorf("need at least 2 return observations, have %d", obs)
	}

	data := mat.NewDense(obs, n, nil)
	for i, row := range matrix.Returns {
		for j, r := range row {
			data.Set(i, j, r)
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	model := &RiskModel{
		Symbols:         matrix.Symbols,
		ExpectedReturns: make(map[string]float64, n),
		Covariance:      make([][]float64, n),
	}

	for j, symbol := range matrix.Symbols {
		col := make([]float64, obs)
		mat.Col(col, j, data)
		model.ExpectedReturns[symbol] = stat.Mean(col, nil) * analytics.TradingDaysPerYear
	}

	for i := 0; i < n; i++ {
		model.Covariance[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			model.Covariance[i][j] = cov.At(i, j) * analytics.TradingDaysPerYear
		}
	}

	if n >= 3 {
		model.Covariance = shrinkCovariance(model.Covariance)
	}

	return model, nil
}

// shrinkCovariance applies Ledoit-Wolf style shrinkage toward a constant
// correlation target. Sample covariances estimated from short histories are
// noisy; blending toward the structured target keeps the matrix well
// conditioned for the optimizer.
//
// Reference: Ledoit & Wolf (2004), "A well-conditioned estimator for
// large-dimensional covariance matrices".
func shrinkCovariance(sample [][]float64) [][]float64 {
	n := len(sample)

	// Constant correlation target: average variance on the diagonal,
	// average covariance off it.
	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sample[i][i]
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sample[i][j]
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	targetAt := func(i, j int) float64 {
		if i == j {
			return avgVar
		}
		return avgCov
	}

	// Shrinkage intensity: dispersion of the sample elements relative to
	// their distance from the target, capped at 0.5.
	var sumSqDiff, sum, sumSq float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			diff := sample[i][j] - targetAt(i, j)
			sumSqDiff += diff * diff
			sum += sample[i][j]
			sumSq += sample[i][j] * sample[i][j]
		}
	}
	count := float64(n * n)
	meanSqDiff := sumSqDiff / count
	varSample := sumSq/count - (sum/count)*(sum/count)

	intensity := 0.2
	if varSample > 0 && meanSqDiff > 0 {
		intensity = math.Min(0.5, math.Max(0, varSample/(varSample+meanSqDiff)))
	}

	shrunk := make([][]float64, n)
	for i := 0; i < n; i++ {
		shrunk[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shrunk[i][j] = (1-intensity)*sample[i][j] + intensity*targetAt(i, j)
		}
	}
	return shrunk
}

// PortfolioVolatility computes sqrt(w'Σw) for symbol-keyed weights.
func (m *RiskModel) PortfolioVolatility(weights map[string]float64) float64 {
	var variance float64
	for i, si := range m.Symbols {
		for j, sj := range m.Symbols {
			variance += weights[si] * weights[sj] * m.Covariance[i][j]
		}
	}
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// PortfolioReturn computes μ'w for symbol-keyed weights.
func (m *RiskModel) PortfolioReturn(weights map[string]float64) float64 {
	var ret float64
	for symbol, w := range weights {
		ret += m.ExpectedReturns[symbol] * w
	}
	return ret
}
