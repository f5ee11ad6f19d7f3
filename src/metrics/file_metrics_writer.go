package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// FileMetricsWriter appends metrics to one file per metric kind under
// baseDir: forecast_record.csv, fit_summary.csv, and so on.
type FileMetricsWriter struct {
	baseDir    string
	fileFormat FileFormat
	files      map[datamodels.MetricKind]*os.File
	csvWriters map[datamodels.MetricKind]*csv.Writer
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create metrics directory %s", baseDir)
	}
	return &FileMetricsWriter{
		baseDir:    baseDir,
		fileFormat: format,
		files:      make(map[datamodels.MetricKind]*os.File),
		csvWriters: make(map[datamodels.MetricKind]*csv.Writer),
	}, nil
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	if w.fileFormat == FormatJSON {
		return w.writeJSON(metric)
	}
	return w.writeCSV(metric)
}

func (w *FileMetricsWriter) writeJSON(metric datamodels.Metric) error {
	file, err := w.fileFor(metric.Kind, ".jsonl")
	if err != nil {
		return err
	}
	line, err := json.Marshal(metric)
	if err != nil {
		return err
	}
	_, err = file.Write(append(line, '\n'))
	return err
}

func (w *FileMetricsWriter) writeCSV(metric datamodels.Metric) error {
	writer, isNew, err := w.csvWriterFor(metric.Kind)
	if err != nil {
		return err
	}
	header, row, err := csvRow(metric)
	if err != nil {
		return err
	}
	if isNew {
		if err := writer.Write(header); err != nil {
			return err
		}
	}
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func csvRow(metric datamodels.Metric) (header, row []string, err error) {
	switch metric.Kind {
	case datamodels.MetricKindForecastRecord:
		var r datamodels.ForecastRecord
		if err := json.Unmarshal(metric.Value, &r); err != nil {
			return nil, nil, err
		}
		predicted := ""
		if !math.IsNaN(r.PredictedVol) {
			predicted = formatFloat(r.PredictedVol)
		}
		header = []string{"run_id", "asset", "model", "date", "predicted_vol_pct", "realized_sq_return_pct", "missing"}
		row = []string{
			metric.RunID.String(),
			string(r.Asset),
			string(r.Model),
			r.Timestamp.Format("2006-01-02"),
			predicted,
			formatFloat(r.RealizedSqRet),
			strconv.FormatBool(r.Missing),
		}
	case datamodels.MetricKindFitSummary:
		var s datamodels.FitSummary
		if err := json.Unmarshal(metric.Value, &s); err != nil {
			return nil, nil, err
		}
		params, err := json.Marshal(s.Params)
		if err != nil {
			return nil, nil, err
		}
		header = []string{"run_id", "asset", "model", "last_date", "log_likelihood", "converged", "one_day_ahead_vol_forecast_pct", "params"}
		row = []string{
			metric.RunID.String(),
			string(s.Asset),
			string(s.Model),
			s.LastDate.Format("2006-01-02"),
			formatFloat(s.LogLikelihood),
			strconv.FormatBool(s.Converged),
			formatFloat(s.OneDayVolPct),
			string(params),
		}
	case datamodels.MetricKindEvalScore:
		var s datamodels.EvalScore
		if err := json.Unmarshal(metric.Value, &s); err != nil {
			return nil, nil, err
		}
		header = []string{"run_id", "asset", "model", "mae", "rmse", "qlike", "records", "skipped"}
		row = []string{
			metric.RunID.String(),
			string(s.Asset),
			string(s.Model),
			formatFloat(s.MAE),
			formatFloat(s.RMSE),
			formatFloat(s.QLIKE),
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Skipped),
		}
	case datamodels.MetricKindRegimeLabel:
		var l datamodels.RegimeLabel
		if err := json.Unmarshal(metric.Value, &l); err != nil {
			return nil, nil, err
		}
		header = []string{"run_id", "asset", "date", "state"}
		row = []string{
			metric.RunID.String(),
			string(l.Asset),
			l.Timestamp.Format("2006-01-02"),
			strconv.Itoa(l.State),
		}
	default:
		return nil, nil, errors.Newf("unknown metric kind %q", metric.Kind)
	}
	return header, row, nil
}

func (w *FileMetricsWriter) fileFor(kind datamodels.MetricKind, ext string) (*os.File, error) {
	if file, ok := w.files[kind]; ok {
		return file, nil
	}
	path := filepath.Join(w.baseDir, string(kind)+ext)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open metrics file %s", path)
	}
	w.files[kind] = file
	return file, nil
}

func (w *FileMetricsWriter) csvWriterFor(kind datamodels.MetricKind) (*csv.Writer, bool, error) {
	if writer, ok := w.csvWriters[kind]; ok {
		return writer, false, nil
	}
	file, err := w.fileFor(kind, ".csv")
	if err != nil {
		return nil, false, err
	}
	writer := csv.NewWriter(file)
	w.csvWriters[kind] = writer
	return writer, true, nil
}

func (w *FileMetricsWriter) Close() error {
	var firstErr error
	for _, writer := range w.csvWriters {
		writer.Flush()
		if err := writer.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, file := range w.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
