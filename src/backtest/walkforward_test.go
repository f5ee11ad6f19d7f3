//go:build unit

package backtest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/src/datamodels"
	"volbot/src/volatility"
)

// Walk-forward with a real GARCH fit on constant-volatility data: the
// forecasts should hover around the true vol.
func TestWalkForwardRecoversConstantVolatility(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	trueVol := 0.01
	points := make([]datamodels.ReturnPoint, 100)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = datamodels.ReturnPoint{
			Timestamp: start.AddDate(0, 0, i),
			LogReturn: trueVol * rng.NormFloat64(),
		}
	}
	series, err := datamodels.NewReturnSeries(datamodels.SPY, points)
	require.NoError(t, err)

	evaluator, err := NewEvaluator().
		WithSeries(series).
		WithModel(datamodels.ModelGARCH11, func(window []float64) (Forecaster, error) {
			return volatility.Fit(volatility.Garch11{}, window)
		}).
		WithWindow(30).
		WithRefitEvery(5).
		Build()
	require.NoError(t, err)

	records, err := evaluator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 70)

	sum, count := 0.0, 0
	for _, r := range records {
		if r.Missing {
			continue
		}
		sum += r.PredictedVol
		count++
	}
	require.Greater(t, count, 50, "most origins should have a usable forecast")

	// percent scale: true vol 0.01 -> 1.0
	mean := sum / float64(count)
	assert.InDelta(t, 1.0, mean, 0.5)

	score, err := Score(records)
	require.NoError(t, err)
	assert.Equal(t, count, score.Records)
	assert.Greater(t, score.RMSE, 0.0)
}
