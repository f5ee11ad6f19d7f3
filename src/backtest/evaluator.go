// Package backtest runs walk-forward one-step-ahead volatility forecast
// evaluation. Every prediction at origin t is computed from observations in
// [t-W, t) only.
package backtest

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"volbot/src/datamodels"
	"volbot/src/metrics"
	"volbot/src/utils/errors"
)

// Forecaster produces a one-step-ahead volatility forecast (percent) from a
// window of raw log returns. Implementations must not look past the window.
type Forecaster interface {
	ForecastVolPct(window []float64) (float64, error)
}

// FitFunc fits a model on a window of raw log returns.
type FitFunc func(window []float64) (Forecaster, error)

type Evaluator struct {
	series        *datamodels.ReturnSeries
	model         datamodels.ModelFamily
	fit           FitFunc
	window        int
	refitEvery    int
	metricsWriter metrics.MetricsWriter
	runID         uuid.UUID
}

type EvaluatorBuilder struct {
	evaluator Evaluator
}

func NewEvaluator() *EvaluatorBuilder {
	return &EvaluatorBuilder{evaluator: Evaluator{refitEvery: 1}}
}

func (b *EvaluatorBuilder) WithSeries(series *datamodels.ReturnSeries) *EvaluatorBuilder {
	b.evaluator.series = series
	return b
}

func (b *EvaluatorBuilder) WithModel(model datamodels.ModelFamily, fit FitFunc) *EvaluatorBuilder {
	b.evaluator.model = model
	b.evaluator.fit = fit
	return b
}

func (b *EvaluatorBuilder) WithWindow(window int) *EvaluatorBuilder {
	b.evaluator.window = window
	return b
}

func (b *EvaluatorBuilder) WithRefitEvery(refitEvery int) *EvaluatorBuilder {
	b.evaluator.refitEvery = refitEvery
	return b
}

func (b *EvaluatorBuilder) WithMetricsWriter(writer metrics.MetricsWriter) *EvaluatorBuilder {
	b.evaluator.metricsWriter = writer
	return b
}

func (b *EvaluatorBuilder) WithRunID(runID uuid.UUID) *EvaluatorBuilder {
	b.evaluator.runID = runID
	return b
}

func (b *EvaluatorBuilder) Build() (*Evaluator, error) {
	if b.evaluator.series == nil {
		return nil, errors.New("evaluator requires a return series")
	}
	if b.evaluator.fit == nil {
		return nil, errors.New("evaluator requires a model fitting function")
	}
	if b.evaluator.window < 20 {
		return nil, errors.Newf("window %d is too short", b.evaluator.window)
	}
	if b.evaluator.refitEvery < 1 {
		return nil, errors.Newf("refit cadence must be >= 1, got %d", b.evaluator.refitEvery)
	}
	ev := b.evaluator
	return &ev, nil
}

// Run walks the forecast origins from index W to the end of the series. The
// model is refitted every refitEvery steps; in between, the cached fit is
// rolled forward over the newest window. A failed refit falls back to the
// previous fit when one exists, and emits a Missing record otherwise. The
// schedule always has Len()-W entries regardless of cadence.
func (e *Evaluator) Run(ctx context.Context) ([]datamodels.ForecastRecord, error) {
	n := e.series.Len()
	if n <= e.window {
		slog.Warn("Series shorter than evaluation window, no forecasts",
			"asset", e.series.Asset, "model", e.model, "obs", n, "window", e.window)
		return nil, nil
	}

	records := make([]datamodels.ForecastRecord, 0, n-e.window)
	var cached Forecaster
	failedFits := 0

	for t := e.window; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		window := e.series.Window(t-e.window, t)

		if cached == nil || (t-e.window)%e.refitEvery == 0 {
			fitted, err := e.fit(window)
			if err != nil {
				failedFits++
				slog.Debug("Fit failed at forecast origin, keeping previous fit",
					"asset", e.series.Asset, "model", e.model, "origin", t, "error", err)
			} else {
				cached = fitted
			}
		}

		record := datamodels.ForecastRecord{
			Asset:     e.series.Asset,
			Model:     e.model,
			Timestamp: e.series.Timestamp(t),
		}

		if cached == nil {
			record.Missing = true
			record.PredictedVol = math.NaN()
		} else {
			vol, err := cached.ForecastVolPct(window)
			if err != nil {
				record.Missing = true
				record.PredictedVol = math.NaN()
			} else {
				record.PredictedVol = vol
			}
		}

		realized := e.series.At(t).LogReturn * 100.0
		record.RealizedSqRet = realized * realized

		records = append(records, record)
		e.emit(ctx, record)
	}

	if failedFits > 0 {
		slog.Warn("Some walk-forward fits did not converge",
			"asset", e.series.Asset, "model", e.model, "failed", failedFits)
	}
	return records, nil
}

func (e *Evaluator) emit(ctx context.Context, record datamodels.ForecastRecord) {
	if e.metricsWriter == nil {
		return
	}
	metric, err := datamodels.NewMetric(e.runID, datamodels.MetricKindForecastRecord, record)
	if err != nil {
		slog.Error("Failed to encode forecast record metric", "error", err)
		return
	}
	if err := e.metricsWriter.Write(ctx, metric); err != nil {
		slog.Error("Failed to write forecast record metric", "error", err)
	}
}
