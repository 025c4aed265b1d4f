package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Optimization strategies.
const (
	StrategyMaxSharpe       = "max_sharpe"
	StrategyMinVolatility   = "min_volatility"
	StrategyEfficientReturn = "efficient_return"
)

const (
	penaltyWeight = 1000.0
	weightCutoff  = 1e-4 // weights below this are cleaned to zero
)

// MVOptimizer performs mean-variance portfolio optimization.
//
// Constraints are enforced with a quadratic penalty method:
//   - Σw = 1 (weights sum to 1)
//   - lower_i ≤ w_i ≤ upper_i, enforced by projection
//
// Strategies:
//   - max_sharpe: maximize (μ'w - r_f) / sqrt(w'Σw)
//   - min_volatility: minimize w'Σw
//   - efficient_return: minimize w'Σw subject to μ'w = target_return
type MVOptimizer struct {
	riskFreeRate float64
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(riskFreeRate float64) *MVOptimizer {
	return &MVOptimizer{riskFreeRate: riskFreeRate}
}

// Bounds are per-symbol weight limits. Symbols absent from Min default to 0,
// absent from Max default to 1.
type Bounds struct {
	Min map[string]float64
	Max map[string]float64
}

// Optimize solves for symbol-keyed weights under the given strategy.
// targetReturn is required for efficient_return and ignored otherwise.
func (mvo *MVOptimizer) Optimize(
	model *RiskModel,
	bounds Bounds,
	strategy string,
	targetReturn *float64,
) (map[string]float64, error) {
	n := len(model.Symbols)
	if n == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	if len(model.Covariance) != n {
		return nil, fmt.Errorf("covariance size %d doesn't match symbol count %d", len(model.Covariance), n)
	}

	mu := make([]float64, n)
	for i, symbol := range model.Symbols {
		ret, ok := model.ExpectedReturns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing expected return for %s", symbol)
		}
		mu[i] = ret
	}

	sigma := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if len(model.Covariance[i]) != n {
			return nil, fmt.Errorf("covariance row %d has size %d, expected %d", i, len(model.Covariance[i]), n)
		}
		for j := 0; j < n; j++ {
			sigma.Set(i, j, model.Covariance[i][j])
		}
	}

	lower, upper := expandBounds(model.Symbols, bounds)

	var objective func(x []float64) float64
	switch strategy {
	case StrategyMaxSharpe:
		objective = mvo.maxSharpeObjective(mu, sigma, lower, upper)
	case StrategyMinVolatility:
		objective = mvo.minVolatilityObjective(sigma, lower, upper)
	case StrategyEfficientReturn:
		if targetReturn == nil {
			return nil, fmt.Errorf("target_return required for %s strategy", StrategyEfficientReturn)
		}
		objective = mvo.efficientReturnObjective(mu, sigma, lower, upper, *targetReturn)
	default:
		return nil, fmt.Errorf("unknown strategy: %s", strategy)
	}

	x, err := mvo.solve(objective, n)
	if err != nil {
		return nil, err
	}

	return extractWeights(model.Symbols, projectToBounds(x, lower, upper)), nil
}

// maxSharpeObjective minimizes the negative Sharpe ratio.
func (mvo *MVOptimizer) maxSharpeObjective(mu []float64, sigma *mat.Dense, lower, upper []float64) func([]float64) float64 {
	n := len(mu)
	return func(x []float64) float64 {
		xProj := projectToBounds(x, lower, upper)

		var returnVal, variance float64
		for i := 0; i < n; i++ {
			returnVal += mu[i] * xProj[i]
			for j := 0; j < n; j++ {
				variance += xProj[i] * xProj[j] * sigma.At(i, j)
			}
		}
		stdDev := math.Sqrt(math.Max(variance, 1e-10))

		obj := -(returnVal - mvo.riskFreeRate) / stdDev
		return obj + sumPenalty(xProj)
	}
}

// minVolatilityObjective minimizes portfolio variance.
func (mvo *MVOptimizer) minVolatilityObjective(sigma *mat.Dense, lower, upper []float64) func([]float64) float64 {
	n, _ := sigma.Dims()
	return func(x []float64) float64 {
		xProj := projectToBounds(x, lower, upper)

		var variance float64
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				variance += xProj[i] * xProj[j] * sigma.At(i, j)
			}
		}

		return variance + sumPenalty(xProj)
	}
}

// efficientReturnObjective minimizes variance while pinning μ'w to the target.
func (mvo *MVOptimizer) efficientReturnObjective(mu []float64, sigma *mat.Dense, lower, upper []float64, targetReturn float64) func([]float64) float64 {
	n := len(mu)
	return func(x []float64) float64 {
		xProj := projectToBounds(x, lower, upper)

		var returnVal, variance float64
		for i := 0; i < n; i++ {
			returnVal += mu[i] * xProj[i]
			for j := 0; j < n; j++ {
				variance += xProj[i] * xProj[j] * sigma.At(i, j)
			}
		}

		obj := variance + sumPenalty(xProj)
		obj += penaltyWeight * (returnVal - targetReturn) * (returnVal - targetReturn)
		return obj
	}
}

// solve minimizes the objective starting from equal weights, trying
// Nelder-Mead first and falling back to BFGS with numeric gradients.
func (mvo *MVOptimizer) solve(objective func([]float64) float64, n int) ([]float64, error) {
	problem := optimize.Problem{Func: objective}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err == nil && successStatuses[result.Status] {
		return result.X, nil
	}

	result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if !successStatuses[result.Status] {
		return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
	}

	return result.X, nil
}

// sumPenalty is the quadratic penalty for the Σw = 1 constraint.
func sumPenalty(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}

// expandBounds turns the symbol-keyed bounds into aligned slices with
// [0, 1] defaults.
func expandBounds(symbols []string, bounds Bounds) (lower, upper []float64) {
	lower = make([]float64, len(symbols))
	upper = make([]float64, len(symbols))
	for i, symbol := range symbols {
		if v, ok := bounds.Min[symbol]; ok {
			lower[i] = v
		}
		upper[i] = 1.0
		if v, ok := bounds.Max[symbol]; ok {
			upper[i] = v
		}
	}
	return lower, upper
}

// projectToBounds clamps each weight to its bounds.
func projectToBounds(x, lower, upper []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(lower[i], math.Min(upper[i], x[i]))
	}
	return proj
}

// extractWeights normalizes the solution to sum to 1, drops negligible
// weights, and rounds for presentation.
func extractWeights(symbols []string, x []float64) map[string]float64 {
	sum := 0.0
	for _, v := range x {
		sum += math.Max(0, v)
	}

	weights := make(map[string]float64, len(symbols))
	for i, symbol := range symbols {
		w := math.Max(0, x[i]) / math.Max(sum, 1e-10)
		if w < weightCutoff {
			w = 0
		}
		weights[symbol] = w
	}

	// Renormalize after the cutoff, then round to 5 decimals.
	sum = 0.0
	for _, w := range weights {
		sum += w
	}
	if sum > 0 {
		for symbol, w := range weights {
			weights[symbol] = math.Round(w/sum*1e5) / 1e5
		}
	}

	return weights
}
