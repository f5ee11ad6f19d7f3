package metrics

import (
	"context"
	"encoding/json"

	"volbot/src/database"
	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// DbMetricsWriter routes metrics into the results database.
type DbMetricsWriter struct {
	db database.ResultsDatabase
}

func NewDbMetricsWriter(db database.ResultsDatabase) *DbMetricsWriter {
	return &DbMetricsWriter{db: db}
}

func (w *DbMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	switch metric.Kind {
	case datamodels.MetricKindFitSummary:
		var s datamodels.FitSummary
		if err := json.Unmarshal(metric.Value, &s); err != nil {
			return err
		}
		return w.db.WriteFitSummary(ctx, metric.RunID, s)
	case datamodels.MetricKindForecastRecord:
		var r datamodels.ForecastRecord
		if err := json.Unmarshal(metric.Value, &r); err != nil {
			return err
		}
		return w.db.WriteForecastRecord(ctx, metric.RunID, r)
	case datamodels.MetricKindEvalScore:
		var s datamodels.EvalScore
		if err := json.Unmarshal(metric.Value, &s); err != nil {
			return err
		}
		return w.db.WriteEvalScore(ctx, metric.RunID, s)
	case datamodels.MetricKindRegimeLabel:
		// regime labels only go to files; nothing to persist per-row
		return nil
	default:
		return errors.Newf("unknown metric kind %q", metric.Kind)
	}
}

func (w *DbMetricsWriter) Close() error { return nil }
