package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"volbot/src/datamodels"
)

// ResultsDatabase persists pipeline runs and their outputs.
type ResultsDatabase interface {
	CreateRun(ctx context.Context, runID uuid.UUID, configRef string) error
	WriteFitSummary(ctx context.Context, runID uuid.UUID, summary datamodels.FitSummary) error
	WriteForecastRecord(ctx context.Context, runID uuid.UUID, record datamodels.ForecastRecord) error
	WriteEvalScore(ctx context.Context, runID uuid.UUID, score datamodels.EvalScore) error
}

func (d *databaseImplementation) CreateRun(ctx context.Context, runID uuid.UUID, configRef string) error {
	row := datamodels.RunRow{
		ID:        runID,
		StartedAt: time.Now().UTC(),
		ConfigRef: configRef,
	}
	return d.gormDb.WithContext(ctx).Create(&row).Error
}

func (d *databaseImplementation) WriteFitSummary(ctx context.Context, runID uuid.UUID, summary datamodels.FitSummary) error {
	params, err := json.Marshal(summary.Params)
	if err != nil {
		return err
	}
	row := datamodels.FitSummaryRow{
		RunID:         runID,
		Asset:         string(summary.Asset),
		Model:         string(summary.Model),
		ParamsJSON:    string(params),
		LogLikelihood: summary.LogLikelihood,
		Converged:     summary.Converged,
		LastDate:      summary.LastDate,
		OneDayVolPct:  summary.OneDayVolPct,
	}
	return d.gormDb.WithContext(ctx).Create(&row).Error
}

func (d *databaseImplementation) WriteForecastRecord(ctx context.Context, runID uuid.UUID, record datamodels.ForecastRecord) error {
	row := datamodels.ForecastRecordRow{
		RunID:         runID,
		Asset:         string(record.Asset),
		Model:         string(record.Model),
		Timestamp:     record.Timestamp,
		PredictedVol:  record.PredictedVol,
		RealizedSqRet: record.RealizedSqRet,
		Missing:       record.Missing,
	}
	return d.gormDb.WithContext(ctx).Create(&row).Error
}

func (d *databaseImplementation) WriteEvalScore(ctx context.Context, runID uuid.UUID, score datamodels.EvalScore) error {
	row := datamodels.EvalScoreRow{
		RunID:   runID,
		Asset:   string(score.Asset),
		Model:   string(score.Model),
		MAE:     score.MAE,
		RMSE:    score.RMSE,
		QLIKE:   score.QLIKE,
		Records: score.Records,
		Skipped: score.Skipped,
	}
	return d.gormDb.WithContext(ctx).Create(&row).Error
}
