package volatility

import (
	"math"

	"volbot/src/datamodels"
)

// Egarch is the EGARCH(1,1) of Nelson (1991) with constant mean:
//
//	ln sigma2_t = omega + alpha*(|z_{t-1}| - E|z|) + gamma*z_{t-1} + beta*ln sigma2_{t-1}
//
// where z = eps/sigma. Working in logs keeps the variance positive for any
// parameter values; only |beta| < 1 is required for stationarity.
type Egarch struct{}

func (Egarch) Family() datamodels.ModelFamily { return datamodels.ModelEGARCH }

func (Egarch) ParamNames() []string { return []string{"mu", "omega", "alpha", "gamma", "beta"} }

func (Egarch) Mean(params []float64) float64 { return params[0] }

func (Egarch) StartingPoint(returns []float64) []float64 {
	mean, variance := sampleMeanVar(returns)
	beta := 0.95
	omega := (1 - beta) * math.Log(variance)
	return []float64{mean, omega, 0.10, -0.05, beta}
}

func (Egarch) VariancePath(params, returns []float64) ([]float64, bool) {
	mu, omega, alpha, gamma, beta := params[0], params[1], params[2], params[3], params[4]
	if math.Abs(beta) >= 1 {
		return nil, false
	}
	_, variance := sampleMeanVar(returns)
	path := make([]float64, len(returns))
	path[0] = variance
	logVar := math.Log(variance)
	for t := 1; t < len(returns); t++ {
		z := (returns[t-1] - mu) / math.Sqrt(path[t-1])
		logVar = omega + alpha*(math.Abs(z)-expAbsNormal) + gamma*z + beta*logVar
		if logVar > 50 { // exp would overflow; reject this parameter region
			return nil, false
		}
		path[t] = math.Exp(logVar)
	}
	return path, true
}

func (Egarch) NextVariance(params, returns, path []float64) float64 {
	mu, omega, alpha, gamma, beta := params[0], params[1], params[2], params[3], params[4]
	n := len(returns)
	z := (returns[n-1] - mu) / math.Sqrt(path[n-1])
	return math.Exp(omega + alpha*(math.Abs(z)-expAbsNormal) + gamma*z + beta*math.Log(path[n-1]))
}
