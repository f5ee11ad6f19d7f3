package regime

import (
	"log/slog"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// Report bundles the fitted regime model with series-aligned labels.
type Report struct {
	Result     *HMMResult
	Labels     []datamodels.RegimeLabel
	Posteriors []datamodels.RegimePosterior
}

// DetectRegimes fits the feature HMM to a full return series and aligns the
// inferred states 1:1 with the series timestamps.
func DetectRegimes(series *datamodels.ReturnSeries, cfg datamodels.HmmConfig) (*Report, error) {
	X, err := VolatilityFeatures(series.Returns())
	if err != nil {
		return nil, errors.Wrapf(err, "building regime features for %s", series.Asset)
	}

	res, err := NewHMM(cfg.States).
		WithMaxIter(cfg.MaxIter).
		WithSeed(cfg.Seed).
		Fit(X)
	if err != nil {
		return nil, errors.Wrapf(err, "fitting regime model for %s", series.Asset)
	}

	path := res.ViterbiPath()
	posterior := res.Posterior()
	labels := make([]datamodels.RegimeLabel, series.Len())
	posteriors := make([]datamodels.RegimePosterior, series.Len())
	for i := 0; i < series.Len(); i++ {
		labels[i] = datamodels.RegimeLabel{
			Asset:     series.Asset,
			Timestamp: series.Timestamp(i),
			State:     path[i],
		}
		probs := make([]float64, res.NumStates)
		copy(probs, posterior[i])
		posteriors[i] = datamodels.RegimePosterior{
			Timestamp: series.Timestamp(i),
			Probs:     probs,
		}
	}

	slog.Info("Detected regimes",
		"asset", series.Asset, "states", cfg.States, "loglik", res.LogLik)

	return &Report{Result: res, Labels: labels, Posteriors: posteriors}, nil
}
