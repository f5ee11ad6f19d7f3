package regime

import (
	"gonum.org/v1/gonum/stat"

	"volbot/src/utils/errors"
)

// VolatilityFeatures builds the [return, return^2] feature matrix used for
// regime detection, with each column standardized to zero mean and unit
// variance.
func VolatilityFeatures(returns []float64) ([][]float64, error) {
	if len(returns) < 2 {
		return nil, errors.Newf("need at least 2 returns to build features, got %d", len(returns))
	}
	squared := make([]float64, len(returns))
	for i, r := range returns {
		squared[i] = r * r
	}

	retMean, retStd := stat.MeanStdDev(returns, nil)
	sqMean, sqStd := stat.MeanStdDev(squared, nil)
	if retStd == 0 || sqStd == 0 {
		return nil, errors.New("degenerate return series: zero variance")
	}

	X := make([][]float64, len(returns))
	for i := range returns {
		X[i] = []float64{
			(returns[i] - retMean) / retStd,
			(squared[i] - sqMean) / sqStd,
		}
	}
	return X, nil
}

// returnColumn wraps raw log returns as a 1-D percent-scaled feature matrix
// for the forecasting HMM.
func returnColumn(returns []float64) [][]float64 {
	X := make([][]float64, len(returns))
	for i, r := range returns {
		X[i] = []float64{r * 100.0}
	}
	return X
}

// stateVariance returns the return-variance of state j for a 1-D model.
func stateVariance(res *HMMResult, j int) float64 {
	return res.Covs[j].At(0, 0)
}

// stateMean returns the mean return of state j for a 1-D model.
func stateMean(res *HMMResult, j int) float64 {
	return res.Means[j][0]
}
