package datamodels

import (
	"encoding/json"
	"math"
	"time"
)

// ModelFamily tags which fitter produced a result.
type ModelFamily string

const (
	ModelGARCH11  ModelFamily = "GARCH11"
	ModelEGARCH   ModelFamily = "EGARCH"
	ModelGJRGARCH ModelFamily = "GJRGARCH"
	ModelHMM      ModelFamily = "HMM"
)

// FitSummary is the reportable outcome of one full-sample fit.
type FitSummary struct {
	Asset           Asset              `json:"asset"`
	Model           ModelFamily        `json:"model"`
	Params          map[string]float64 `json:"params"`
	LogLikelihood   float64            `json:"log_likelihood"`
	Converged       bool               `json:"converged"`
	LastDate        time.Time          `json:"last_date"`
	OneDayVolPct    float64            `json:"one_day_ahead_vol_forecast_pct"`
	NumObservations int                `json:"num_observations"`
}

// ForecastRecord pairs a one-step-ahead volatility prediction with the
// realized squared return at the same timestamp. The prediction is computed
// only from observations strictly before Timestamp. A Missing record marks a
// forecast origin where the fit did not converge; it stays in the schedule so
// the record count does not depend on the refit cadence.
type ForecastRecord struct {
	Asset         Asset       `json:"asset"`
	Model         ModelFamily `json:"model"`
	Timestamp     time.Time   `json:"timestamp"`
	PredictedVol  float64     `json:"predicted_vol"`
	RealizedSqRet float64     `json:"realized_sq_return"`
	Missing       bool        `json:"missing"`
}

// forecastRecordJSON carries the prediction as a pointer so a Missing record
// can encode it as null; encoding/json rejects NaN outright.
type forecastRecordJSON struct {
	Asset         Asset       `json:"asset"`
	Model         ModelFamily `json:"model"`
	Timestamp     time.Time   `json:"timestamp"`
	PredictedVol  *float64    `json:"predicted_vol"`
	RealizedSqRet float64     `json:"realized_sq_return"`
	Missing       bool        `json:"missing"`
}

func (r ForecastRecord) MarshalJSON() ([]byte, error) {
	out := forecastRecordJSON{
		Asset:         r.Asset,
		Model:         r.Model,
		Timestamp:     r.Timestamp,
		RealizedSqRet: r.RealizedSqRet,
		Missing:       r.Missing,
	}
	if !math.IsNaN(r.PredictedVol) {
		out.PredictedVol = &r.PredictedVol
	}
	return json.Marshal(out)
}

func (r *ForecastRecord) UnmarshalJSON(data []byte) error {
	var in forecastRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Asset = in.Asset
	r.Model = in.Model
	r.Timestamp = in.Timestamp
	r.RealizedSqRet = in.RealizedSqRet
	r.Missing = in.Missing
	if in.PredictedVol != nil {
		r.PredictedVol = *in.PredictedVol
	} else {
		r.PredictedVol = math.NaN()
	}
	return nil
}

// EvalScore aggregates forecast errors for one (asset, model) pair.
type EvalScore struct {
	Asset   Asset       `json:"asset"`
	Model   ModelFamily `json:"model"`
	MAE     float64     `json:"mae"`
	RMSE    float64     `json:"rmse"`
	QLIKE   float64     `json:"qlike"`
	Records int         `json:"records"`
	Skipped int         `json:"skipped"`
}

// RegimeLabel is the most likely latent state for one timestep, aligned 1:1
// with the ReturnSeries the model was fitted on.
type RegimeLabel struct {
	Asset     Asset     `json:"asset"`
	Timestamp time.Time `json:"timestamp"`
	State     int       `json:"state"`
}

// RegimePosterior carries the per-state posterior probabilities for one
// timestep.
type RegimePosterior struct {
	Timestamp time.Time `json:"timestamp"`
	Probs     []float64 `json:"probs"`
}
