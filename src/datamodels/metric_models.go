package datamodels

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MetricKind string

const (
	MetricKindFitSummary     MetricKind = "fit_summary"
	MetricKindForecastRecord MetricKind = "forecast_record"
	MetricKindEvalScore      MetricKind = "eval_score"
	MetricKindRegimeLabel    MetricKind = "regime_label"
)

// Metric is the envelope handed to MetricsWriters. Value holds the JSON
// encoding of the typed payload for the given Kind.
type Metric struct {
	RunID     uuid.UUID       `json:"run_id"`
	Kind      MetricKind      `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

func NewMetric(runID uuid.UUID, kind MetricKind, payload any) (Metric, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Metric{}, err
	}
	return Metric{
		RunID:     runID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Value:     raw,
	}, nil
}

// Database rows. Kept separate from the report structs so gorm column tags
// do not leak into JSON output.

type RunRow struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey"`
	StartedAt time.Time `gorm:"column:started_at"`
	ConfigRef string    `gorm:"column:config_ref"`
}

func (RunRow) TableName() string { return "runs" }

type FitSummaryRow struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         uuid.UUID `gorm:"column:run_id;index"`
	Asset         string    `gorm:"column:asset"`
	Model         string    `gorm:"column:model"`
	ParamsJSON    string    `gorm:"column:params_json"`
	LogLikelihood float64   `gorm:"column:log_likelihood"`
	Converged     bool      `gorm:"column:converged"`
	LastDate      time.Time `gorm:"column:last_date"`
	OneDayVolPct  float64   `gorm:"column:one_day_vol_pct"`
}

func (FitSummaryRow) TableName() string { return "fit_summaries" }

type ForecastRecordRow struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         uuid.UUID `gorm:"column:run_id;index"`
	Asset         string    `gorm:"column:asset"`
	Model         string    `gorm:"column:model"`
	Timestamp     time.Time `gorm:"column:ts;index"`
	PredictedVol  float64   `gorm:"column:predicted_vol"`
	RealizedSqRet float64   `gorm:"column:realized_sq_return"`
	Missing       bool      `gorm:"column:missing"`
}

func (ForecastRecordRow) TableName() string { return "forecast_records" }

type EvalScoreRow struct {
	ID      int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID   uuid.UUID `gorm:"column:run_id;index"`
	Asset   string    `gorm:"column:asset"`
	Model   string    `gorm:"column:model"`
	MAE     float64   `gorm:"column:mae"`
	RMSE    float64   `gorm:"column:rmse"`
	QLIKE   float64   `gorm:"column:qlike"`
	Records int       `gorm:"column:records"`
	Skipped int       `gorm:"column:skipped"`
}

func (EvalScoreRow) TableName() string { return "eval_scores" }
