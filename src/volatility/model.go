// Package volatility fits GARCH-family conditional volatility models by
// maximum likelihood. Returns are scaled to percent internally to keep the
// optimizer well conditioned; all reported volatilities are in percent.
package volatility

import (
	"math"

	"volbot/src/datamodels"
)

// pct converts raw log returns to percent returns.
const returnScale = 100.0

// sqrt(2/pi), the expected absolute value of a standard normal
var expAbsNormal = math.Sqrt(2.0 / math.Pi)

// Model describes one GARCH-family specification. Implementations are
// stateless; fitted parameters live in FitResult.
type Model interface {
	Family() datamodels.ModelFamily
	ParamNames() []string
	// StartingPoint proposes initial parameters for percent-scaled returns.
	StartingPoint(returns []float64) []float64
	// VariancePath computes the conditional variance recursion over
	// percent-scaled returns. Returns ok=false when params violate the
	// model's constraints.
	VariancePath(params, returns []float64) (path []float64, ok bool)
	// NextVariance extends the recursion one step past the final observation.
	NextVariance(params, returns, path []float64) float64
	// Mean returns the constant mean parameter.
	Mean(params []float64) float64
}

// FromName maps a config string onto a model specification.
func FromName(name string) (Model, bool) {
	switch name {
	case "garch", "garch11":
		return Garch11{}, true
	case "egarch":
		return Egarch{}, true
	case "gjr", "gjrgarch":
		return GjrGarch{}, true
	default:
		return nil, false
	}
}

func sampleMeanVar(xs []float64) (mean, variance float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)
	return mean, variance
}

func scaleReturns(returns []float64) []float64 {
	scaled := make([]float64, len(returns))
	for i, r := range returns {
		scaled[i] = r * returnScale
	}
	return scaled
}
