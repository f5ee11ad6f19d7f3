//go:build unit

package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/src/datamodels"
)

func TestFileMetricsWriterCSV(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileMetricsWriter(dir, FormatCSV)
	require.NoError(t, err)

	runID := uuid.New()
	record := datamodels.ForecastRecord{
		Asset:         datamodels.SPY,
		Model:         datamodels.ModelGARCH11,
		Timestamp:     time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		PredictedVol:  1.25,
		RealizedSqRet: 2.5,
	}
	metric, err := datamodels.NewMetric(runID, datamodels.MetricKindForecastRecord, record)
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), metric))
	require.NoError(t, writer.Write(context.Background(), metric))
	require.NoError(t, writer.Close())

	file, err := os.Open(filepath.Join(dir, "forecast_record.csv"))
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")

	assert.Equal(t, []string{"run_id", "asset", "model", "date", "predicted_vol_pct", "realized_sq_return_pct", "missing"}, rows[0])
	assert.Equal(t, runID.String(), rows[1][0])
	assert.Equal(t, "SPY", rows[1][1])
	assert.Equal(t, "GARCH11", rows[1][2])
	assert.Equal(t, "2024-06-03", rows[1][3])
	assert.Equal(t, "1.25", rows[1][4])
	assert.Equal(t, "2.5", rows[1][5])
	assert.Equal(t, "false", rows[1][6])
}

func TestFileMetricsWriterSeparatesKinds(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileMetricsWriter(dir, FormatCSV)
	require.NoError(t, err)

	runID := uuid.New()
	score := datamodels.EvalScore{Asset: datamodels.BTC, Model: datamodels.ModelHMM, MAE: 0.5, RMSE: 0.7, QLIKE: 1.1, Records: 100}
	label := datamodels.RegimeLabel{Asset: datamodels.BTC, Timestamp: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), State: 1}

	scoreMetric, err := datamodels.NewMetric(runID, datamodels.MetricKindEvalScore, score)
	require.NoError(t, err)
	labelMetric, err := datamodels.NewMetric(runID, datamodels.MetricKindRegimeLabel, label)
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), scoreMetric))
	require.NoError(t, writer.Write(context.Background(), labelMetric))
	require.NoError(t, writer.Close())

	assert.FileExists(t, filepath.Join(dir, "eval_score.csv"))
	assert.FileExists(t, filepath.Join(dir, "regime_label.csv"))
}

func TestFileMetricsWriterJSON(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileMetricsWriter(dir, FormatJSON)
	require.NoError(t, err)

	runID := uuid.New()
	summary := datamodels.FitSummary{
		Asset:         datamodels.SPY,
		Model:         datamodels.ModelEGARCH,
		Params:        map[string]float64{"omega": -0.1},
		LogLikelihood: -350.5,
		Converged:     true,
	}
	metric, err := datamodels.NewMetric(runID, datamodels.MetricKindFitSummary, summary)
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), metric))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "fit_summary.jsonl"))
	require.NoError(t, err)

	var decoded datamodels.Metric
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, runID, decoded.RunID)
	assert.Equal(t, datamodels.MetricKindFitSummary, decoded.Kind)

	var roundTrip datamodels.FitSummary
	require.NoError(t, json.Unmarshal(decoded.Value, &roundTrip))
	assert.Equal(t, summary.Model, roundTrip.Model)
	assert.Equal(t, summary.Params, roundTrip.Params)
}

// countingWriter tracks calls and optionally fails.
type countingWriter struct {
	writes int
	closes int
	fail   bool
}

func (c *countingWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	c.writes++
	if c.fail {
		return assert.AnError
	}
	return nil
}

func (c *countingWriter) Close() error {
	c.closes++
	return nil
}

func TestMultiMetricsWriterFansOut(t *testing.T) {
	a := &countingWriter{}
	b := &countingWriter{}
	multi := NewMultiMetricsWriter(a, b)

	metric, err := datamodels.NewMetric(uuid.New(), datamodels.MetricKindEvalScore, datamodels.EvalScore{})
	require.NoError(t, err)

	require.NoError(t, multi.Write(context.Background(), metric))
	require.NoError(t, multi.Close())

	assert.Equal(t, 1, a.writes)
	assert.Equal(t, 1, b.writes)
	assert.Equal(t, 1, a.closes)
	assert.Equal(t, 1, b.closes)
}

func TestMultiMetricsWriterKeepsGoingOnError(t *testing.T) {
	failing := &countingWriter{fail: true}
	healthy := &countingWriter{}
	multi := NewMultiMetricsWriter(failing, healthy)

	metric, err := datamodels.NewMetric(uuid.New(), datamodels.MetricKindEvalScore, datamodels.EvalScore{})
	require.NoError(t, err)

	err = multi.Write(context.Background(), metric)
	assert.Error(t, err)
	assert.Equal(t, 1, healthy.writes, "healthy sink still written")
}
