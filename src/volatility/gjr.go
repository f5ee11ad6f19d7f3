package volatility

import (
	"volbot/src/datamodels"
)

// GjrGarch is the GJR-GARCH(1,1) of Glosten, Jagannathan and Runkle, adding
// a leverage term that kicks in on negative shocks:
//
//	sigma2_t = omega + (alpha + gamma*1[eps_{t-1}<0])*eps2_{t-1} + beta*sigma2_{t-1}
type GjrGarch struct{}

func (GjrGarch) Family() datamodels.ModelFamily { return datamodels.ModelGJRGARCH }

func (GjrGarch) ParamNames() []string { return []string{"mu", "omega", "alpha", "gamma", "beta"} }

func (GjrGarch) Mean(params []float64) float64 { return params[0] }

func (GjrGarch) StartingPoint(returns []float64) []float64 {
	mean, variance := sampleMeanVar(returns)
	alpha, gamma, beta := 0.03, 0.05, 0.90
	omega := variance * (1 - alpha - gamma/2 - beta)
	return []float64{mean, omega, alpha, gamma, beta}
}

func (GjrGarch) VariancePath(params, returns []float64) ([]float64, bool) {
	mu, omega, alpha, gamma, beta := params[0], params[1], params[2], params[3], params[4]
	// gamma/2 because the indicator is active half the time under symmetry
	if omega <= 0 || alpha < 0 || alpha+gamma < 0 || beta < 0 || alpha+gamma/2+beta >= 1 {
		return nil, false
	}
	_, variance := sampleMeanVar(returns)
	path := make([]float64, len(returns))
	path[0] = variance
	for t := 1; t < len(returns); t++ {
		eps := returns[t-1] - mu
		arch := alpha
		if eps < 0 {
			arch += gamma
		}
		path[t] = omega + arch*eps*eps + beta*path[t-1]
	}
	return path, true
}

func (GjrGarch) NextVariance(params, returns, path []float64) float64 {
	mu, omega, alpha, gamma, beta := params[0], params[1], params[2], params[3], params[4]
	n := len(returns)
	eps := returns[n-1] - mu
	arch := alpha
	if eps < 0 {
		arch += gamma
	}
	return omega + arch*eps*eps + beta*path[n-1]
}
