package volatility

import (
	"volbot/src/datamodels"
)

// Garch11 is the symmetric GARCH(1,1) with constant mean and normal
// innovations:
//
//	sigma2_t = omega + alpha*eps2_{t-1} + beta*sigma2_{t-1}
type Garch11 struct{}

func (Garch11) Family() datamodels.ModelFamily { return datamodels.ModelGARCH11 }

func (Garch11) ParamNames() []string { return []string{"mu", "omega", "alpha", "beta"} }

func (Garch11) Mean(params []float64) float64 { return params[0] }

func (Garch11) StartingPoint(returns []float64) []float64 {
	mean, variance := sampleMeanVar(returns)
	alpha, beta := 0.05, 0.90
	omega := variance * (1 - alpha - beta)
	return []float64{mean, omega, alpha, beta}
}

func (Garch11) VariancePath(params, returns []float64) ([]float64, bool) {
	mu, omega, alpha, beta := params[0], params[1], params[2], params[3]
	if omega <= 0 || alpha < 0 || beta < 0 || alpha+beta >= 1 {
		return nil, false
	}
	_, variance := sampleMeanVar(returns)
	path := make([]float64, len(returns))
	path[0] = variance
	for t := 1; t < len(returns); t++ {
		eps := returns[t-1] - mu
		path[t] = omega + alpha*eps*eps + beta*path[t-1]
	}
	return path, true
}

func (Garch11) NextVariance(params, returns, path []float64) float64 {
	mu, omega, alpha, beta := params[0], params[1], params[2], params[3]
	n := len(returns)
	eps := returns[n-1] - mu
	return omega + alpha*eps*eps + beta*path[n-1]
}
