package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// Score aggregates forecast errors over the non-missing records. MAE and
// RMSE compare predicted vol against |realized return|; QLIKE is the usual
// variance loss log(sigma2) + r2/sigma2, robust to the noise in squared
// returns as a variance proxy.
func Score(records []datamodels.ForecastRecord) (datamodels.EvalScore, error) {
	if len(records) == 0 {
		return datamodels.EvalScore{}, errors.New("no forecast records to score")
	}

	score := datamodels.EvalScore{
		Asset: records[0].Asset,
		Model: records[0].Model,
	}

	var absErrs, sqErrs, qlikes []float64
	for _, r := range records {
		if r.Missing || math.IsNaN(r.PredictedVol) || r.PredictedVol <= 0 {
			score.Skipped++
			continue
		}
		realizedVol := math.Sqrt(r.RealizedSqRet)
		diff := r.PredictedVol - realizedVol
		absErrs = append(absErrs, math.Abs(diff))
		sqErrs = append(sqErrs, diff*diff)

		predVar := r.PredictedVol * r.PredictedVol
		qlikes = append(qlikes, math.Log(predVar)+r.RealizedSqRet/predVar)
	}

	if len(absErrs) == 0 {
		return score, errors.Newf("all %d records for %s/%s are missing", len(records), score.Asset, score.Model)
	}

	mae, err := stats.Mean(absErrs)
	if err != nil {
		return score, err
	}
	mse, err := stats.Mean(sqErrs)
	if err != nil {
		return score, err
	}
	qlike, err := stats.Mean(qlikes)
	if err != nil {
		return score, err
	}

	score.MAE = mae
	score.RMSE = math.Sqrt(mse)
	score.QLIKE = qlike
	score.Records = len(absErrs)
	return score, nil
}
