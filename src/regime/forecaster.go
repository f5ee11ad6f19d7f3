package regime

import (
	"math"

	"volbot/src/utils/errors"
)

// Forecaster turns a fitted 1-D return HMM into a one-step-ahead volatility
// forecaster: propagate the filtered state distribution through the
// transition matrix and take the variance of the predictive mixture.
type Forecaster struct {
	res *HMMResult
}

// FitForecaster fits a return-only HMM on a window of raw log returns.
func FitForecaster(numStates, maxIter int, seed int64, window []float64) (*Forecaster, error) {
	res, err := NewHMM(numStates).
		WithMaxIter(maxIter).
		WithSeed(seed).
		Fit(returnColumn(window))
	if err != nil {
		return nil, err
	}
	return &Forecaster{res: res}, nil
}

// Result exposes the underlying fitted model.
func (f *Forecaster) Result() *HMMResult { return f.res }

// ForecastVolPct filters the fitted model over the window and returns the
// predictive one-step-ahead volatility in percent.
func (f *Forecaster) ForecastVolPct(window []float64) (float64, error) {
	filtered, err := f.res.FilterLast(returnColumn(window))
	if err != nil {
		return 0, err
	}

	K := f.res.NumStates
	predictive := make([]float64, K)
	for j := 0; j < K; j++ {
		for i := 0; i < K; i++ {
			predictive[j] += filtered[i] * f.res.Trans[i][j]
		}
	}

	// mixture variance: E[var] + var of the state means
	var secondMoment, mean float64
	for j := 0; j < K; j++ {
		mu := stateMean(f.res, j)
		secondMoment += predictive[j] * (stateVariance(f.res, j) + mu*mu)
		mean += predictive[j] * mu
	}
	variance := secondMoment - mean*mean
	if variance <= 0 {
		return 0, errors.New("predictive mixture variance is non-positive")
	}
	return math.Sqrt(variance), nil
}
