// Package diagnostics provides realized volatility and residual tests for
// the fitted models.
package diagnostics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"volbot/src/utils/errors"
)

// RealizedVolatility computes the rolling realized volatility
// sqrt(sum of squared returns over window). The first window-1 entries are
// NaN so the output stays aligned with the input.
func RealizedVolatility(returns []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, errors.Newf("realized volatility window must be >= 1, got %d", window)
	}
	if len(returns) < window {
		return nil, errors.Newf("need at least %d returns, got %d", window, len(returns))
	}

	out := make([]float64, len(returns))
	rollingSum := 0.0
	for i, r := range returns {
		rollingSum += r * r
		if i >= window {
			old := returns[i-window]
			rollingSum -= old * old
		}
		if i >= window-1 {
			out[i] = math.Sqrt(rollingSum)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// LjungBoxResult is the portmanteau autocorrelation test outcome.
type LjungBoxResult struct {
	Lags   int
	Q      float64
	PValue float64
}

// LjungBox tests the first `lags` autocorrelations of a series. Under the
// null of no autocorrelation Q is chi-squared with `lags` degrees of
// freedom.
func LjungBox(xs []float64, lags int) (LjungBoxResult, error) {
	n := len(xs)
	if lags < 1 {
		return LjungBoxResult{}, errors.Newf("lags must be >= 1, got %d", lags)
	}
	if n <= lags+1 {
		return LjungBoxResult{}, errors.Newf("need more than %d observations for %d lags, got %d", lags+1, lags, n)
	}

	mean := stat.Mean(xs, nil)
	denom := 0.0
	for _, x := range xs {
		d := x - mean
		denom += d * d
	}
	if denom == 0 {
		return LjungBoxResult{}, errors.New("series has zero variance")
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		num := 0.0
		for t := k; t < n; t++ {
			num += (xs[t] - mean) * (xs[t-k] - mean)
		}
		rho := num / denom
		q += rho * rho / float64(n-k)
	}
	q *= float64(n) * (float64(n) + 2)

	chi2 := distuv.ChiSquared{K: float64(lags)}
	return LjungBoxResult{
		Lags:   lags,
		Q:      q,
		PValue: 1 - chi2.CDF(q),
	}, nil
}

// QQPoint pairs a theoretical normal quantile with an observed one.
type QQPoint struct {
	Theoretical float64
	Observed    float64
}

// NormalQQ builds normal QQ-plot data for a sample, using the Blom plotting
// positions (i - 3/8) / (n + 1/4).
func NormalQQ(xs []float64) ([]QQPoint, error) {
	n := len(xs)
	if n < 3 {
		return nil, errors.Newf("need at least 3 observations for a QQ plot, got %d", n)
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if std == 0 {
		return nil, errors.New("sample has zero variance")
	}

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	points := make([]QQPoint, n)
	for i := 0; i < n; i++ {
		p := (float64(i+1) - 0.375) / (float64(n) + 0.25)
		points[i] = QQPoint{
			Theoretical: normal.Quantile(p),
			Observed:    (sorted[i] - mean) / std,
		}
	}
	return points, nil
}
