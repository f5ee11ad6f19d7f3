package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"volbot/src/backtest"
	"volbot/src/database"
	"volbot/src/datamodels"
	"volbot/src/diagnostics"
	"volbot/src/feeds"
	"volbot/src/metrics"
	"volbot/src/regime"
	"volbot/src/series"
	"volbot/src/server"
	"volbot/src/utils/errors"
	"volbot/src/volatility"
)

const ljungBoxLags = 10

func runPipeline(ctx context.Context, cfg *datamodels.VolbotConfig) error {
	runID := uuid.New()
	slog.Info("Starting run", "run_id", runID)

	var db database.ResultsDatabase
	if cfg.DatabaseConfig.Enabled {
		var err error
		db, err = database.NewDBConnection(cfg.DatabaseConfig)
		if err != nil {
			return errors.Wrap(err, "failed to connect to results database")
		}
		if err := db.CreateRun(ctx, runID, ""); err != nil {
			return errors.Wrap(err, "failed to record run")
		}
	}

	metricsWriter, err := metrics.BuildMetricsWriter(cfg.RunConfig.ResultsDir, cfg.DatabaseConfig, db)
	if err != nil {
		return errors.Wrap(err, "failed to build metrics writer")
	}
	defer metricsWriter.Close()

	var reportServer *server.Server
	if cfg.ServerConfig.Enabled {
		wsWriter := metrics.NewWebsocketMetricsWriter()
		metricsWriter = metrics.NewMultiMetricsWriter(metricsWriter, wsWriter)
		reportServer = server.NewServer(cfg.ServerConfig.Port).WithMetricsWriter(wsWriter)
		go func() {
			if err := reportServer.Start(ctx); err != nil {
				slog.Error("Report server failed", "error", err)
			}
		}()
	}

	plotter, err := metrics.NewFigurePlotter(cfg.RunConfig.FiguresDir)
	if err != nil {
		return errors.Wrap(err, "failed to create figure plotter")
	}

	// 1. load and prepare data
	allSeries := make([]*datamodels.ReturnSeries, 0, len(cfg.Assets))
	for i := range cfg.Assets {
		assetSeries, err := loadAsset(ctx, &cfg.Assets[i], cfg.RunConfig.DataDir)
		if err != nil {
			return err
		}
		allSeries = append(allSeries, assetSeries)
	}

	if len(allSeries) >= 2 {
		aligned, err := series.Align(allSeries[0], allSeries[1])
		if err != nil {
			return errors.Wrap(err, "failed to align return series")
		}
		alignedPath := filepath.Join(cfg.RunConfig.DataDir, "aligned_returns.csv")
		if err := series.WriteAlignedCSV(aligned,
			strings.ToLower(string(allSeries[0].Asset))+"_ret",
			strings.ToLower(string(allSeries[1].Asset))+"_ret",
			alignedPath); err != nil {
			return errors.Wrap(err, "failed to save aligned returns")
		}
		slog.Info("Aligned return series", "rows", len(aligned), "path", alignedPath)
	}

	// 2..6 per asset: fits, diagnostics, regimes, walk-forward evaluation
	for _, assetSeries := range allSeries {
		if err := analyzeAsset(ctx, cfg, runID, assetSeries, plotter, metricsWriter, reportServer); err != nil {
			return errors.Wrapf(err, "analysis failed for %s", assetSeries.Asset)
		}
	}

	return nil
}

func loadAsset(ctx context.Context, assetConfig *datamodels.AssetConfig, dataDir string) (*datamodels.ReturnSeries, error) {
	feed, err := feeds.NewPriceFeedFromConfig(assetConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build feed for %s", assetConfig.Name)
	}

	bars, err := feed.Bars(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load bars for %s", assetConfig.Name)
	}
	slog.Info("Loaded price history", "asset", assetConfig.Name, "feed", feed.GetName(), "bars", len(bars))

	assetSeries, err := series.FromBars(assetConfig.Name, bars)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute returns for %s", assetConfig.Name)
	}

	csvPath := filepath.Join(dataDir, strings.ToLower(string(assetConfig.Name))+".csv")
	if err := series.WriteCSV(assetSeries, csvPath); err != nil {
		return nil, errors.Wrapf(err, "failed to save returns for %s", assetConfig.Name)
	}
	return assetSeries, nil
}

func analyzeAsset(
	ctx context.Context,
	cfg *datamodels.VolbotConfig,
	runID uuid.UUID,
	assetSeries *datamodels.ReturnSeries,
	plotter *metrics.FigurePlotter,
	metricsWriter metrics.MetricsWriter,
	reportServer *server.Server,
) error {
	asset := assetSeries.Asset
	returns := assetSeries.Returns()
	timestamps := make([]time.Time, assetSeries.Len())
	for i := range timestamps {
		timestamps[i] = assetSeries.Timestamp(i)
	}

	// GARCH-family full-sample fits
	condVols := make(map[datamodels.ModelFamily][]float64)
	for _, modelName := range cfg.Models {
		model, ok := volatility.FromName(modelName)
		if !ok {
			return errors.Newf("unknown model %q in config", modelName)
		}

		fit, err := volatility.Fit(model, returns)
		if err != nil {
			slog.Warn("Full-sample fit did not converge, skipping model",
				"asset", asset, "model", model.Family(), "error", err)
			continue
		}

		condVols[model.Family()] = fit.ConditionalVol()

		oneDayVol, err := fit.ForecastVolPct(returns)
		if err != nil {
			return errors.Wrapf(err, "one-day-ahead forecast failed for %s/%s", asset, model.Family())
		}

		summary := datamodels.FitSummary{
			Asset:           asset,
			Model:           model.Family(),
			Params:          fit.Params(),
			LogLikelihood:   fit.LogLikelihood(),
			Converged:       true,
			LastDate:        timestamps[len(timestamps)-1],
			OneDayVolPct:    oneDayVol,
			NumObservations: assetSeries.Len(),
		}
		if err := emitMetric(ctx, metricsWriter, runID, datamodels.MetricKindFitSummary, summary); err != nil {
			return err
		}
		slog.Info("Fitted model",
			"asset", asset, "model", model.Family(),
			"loglik", fit.LogLikelihood(), "one_day_vol_pct", oneDayVol)

		if err := plotter.PlotConditionalVol(asset, model.Family(), timestamps, fit.ConditionalVol()); err != nil {
			return errors.Wrapf(err, "conditional vol plot failed for %s/%s", asset, model.Family())
		}

		residuals := fit.StdResiduals()
		lb, err := diagnostics.LjungBox(residuals, ljungBoxLags)
		if err != nil {
			return errors.Wrapf(err, "Ljung-Box failed for %s/%s", asset, model.Family())
		}
		qq, err := diagnostics.NormalQQ(residuals)
		if err != nil {
			return errors.Wrapf(err, "QQ data failed for %s/%s", asset, model.Family())
		}
		if err := plotter.PlotQQ(asset, model.Family(), qq, lb); err != nil {
			return errors.Wrapf(err, "QQ plot failed for %s/%s", asset, model.Family())
		}
	}

	// realized volatility overlay
	realized, err := diagnostics.RealizedVolatility(returns, cfg.EvalConfig.RvWindow)
	if err != nil {
		return errors.Wrapf(err, "realized volatility failed for %s", asset)
	}
	if len(condVols) > 0 {
		if err := plotter.PlotCondVsRealized(asset, timestamps, condVols, realized); err != nil {
			return errors.Wrapf(err, "cond-vs-realized plot failed for %s", asset)
		}
	}

	// regime detection
	regimeReport, err := regime.DetectRegimes(assetSeries, cfg.HmmConfig)
	if err != nil {
		return err
	}
	for _, label := range regimeReport.Labels {
		if err := emitMetric(ctx, metricsWriter, runID, datamodels.MetricKindRegimeLabel, label); err != nil {
			return err
		}
	}
	if err := plotter.PlotRegimeProbs(asset, regimeReport.Posteriors); err != nil {
		return errors.Wrapf(err, "regime probs plot failed for %s", asset)
	}
	if err := plotter.PlotRegimeScatter(asset, assetSeries.Points(), regimeReport.Labels, cfg.HmmConfig.States); err != nil {
		return errors.Wrapf(err, "regime scatter plot failed for %s", asset)
	}
	if err := plotter.PlotTransitionMatrix(asset, regimeReport.Result.Trans); err != nil {
		return errors.Wrapf(err, "transition matrix plot failed for %s", asset)
	}

	// walk-forward forecast evaluation
	scores, err := evaluateForecasts(ctx, cfg, runID, assetSeries, metricsWriter)
	if err != nil {
		return err
	}
	if len(scores) > 0 {
		if err := plotter.PlotForecastRMSE(asset, scores); err != nil {
			return errors.Wrapf(err, "RMSE plot failed for %s", asset)
		}
	}
	if reportServer != nil {
		reportServer.UpdateScores(scores)
	}
	return nil
}

func evaluateForecasts(
	ctx context.Context,
	cfg *datamodels.VolbotConfig,
	runID uuid.UUID,
	assetSeries *datamodels.ReturnSeries,
	metricsWriter metrics.MetricsWriter,
) ([]datamodels.EvalScore, error) {
	type namedFitter struct {
		family datamodels.ModelFamily
		fit    backtest.FitFunc
	}
	var fitters []namedFitter
	for _, modelName := range cfg.Models {
		model, ok := volatility.FromName(modelName)
		if !ok {
			return nil, errors.Newf("unknown model %q in config", modelName)
		}
		m := model
		fitters = append(fitters, namedFitter{
			family: m.Family(),
			fit: func(window []float64) (backtest.Forecaster, error) {
				fit, err := volatility.Fit(m, window)
				if err != nil {
					return nil, err
				}
				return fit, nil
			},
		})
	}
	hmmCfg := cfg.HmmConfig
	fitters = append(fitters, namedFitter{
		family: datamodels.ModelHMM,
		fit: func(window []float64) (backtest.Forecaster, error) {
			return regime.FitForecaster(hmmCfg.States, hmmCfg.MaxIter, hmmCfg.Seed, window)
		},
	})

	var scores []datamodels.EvalScore
	for _, f := range fitters {
		family, fitFn := f.family, f.fit
		evaluator, err := backtest.NewEvaluator().
			WithSeries(assetSeries).
			WithModel(family, fitFn).
			WithWindow(cfg.EvalConfig.Window).
			WithRefitEvery(cfg.EvalConfig.RefitEvery).
			WithMetricsWriter(metricsWriter).
			WithRunID(runID).
			Build()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build evaluator for %s/%s", assetSeries.Asset, family)
		}

		records, err := evaluator.Run(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "walk-forward run failed for %s/%s", assetSeries.Asset, family)
		}
		if len(records) == 0 {
			continue
		}

		score, err := backtest.Score(records)
		if err != nil {
			slog.Warn("Could not score forecasts", "asset", assetSeries.Asset, "model", family, "error", err)
			continue
		}
		if err := emitMetric(ctx, metricsWriter, runID, datamodels.MetricKindEvalScore, score); err != nil {
			return nil, err
		}
		slog.Info("Scored walk-forward forecasts",
			"asset", assetSeries.Asset, "model", family,
			"records", score.Records, "mae", score.MAE, "rmse", score.RMSE, "qlike", score.QLIKE)
		scores = append(scores, score)
	}
	return scores, nil
}

func emitMetric(ctx context.Context, writer metrics.MetricsWriter, runID uuid.UUID, kind datamodels.MetricKind, payload any) error {
	metric, err := datamodels.NewMetric(runID, kind, payload)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s metric", kind)
	}
	if err := writer.Write(ctx, metric); err != nil {
		return errors.Wrapf(err, "failed to write %s metric", kind)
	}
	return nil
}
