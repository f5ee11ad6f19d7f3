//go:build unit

package series

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/src/datamodels"
)

func day(d int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestFromBarsLogReturns(t *testing.T) {
	bars := []datamodels.PriceBar{
		{Timestamp: day(0), Close: 100},
		{Timestamp: day(1), Close: 110},
		{Timestamp: day(2), Close: 99},
	}

	s, err := FromBars(datamodels.SPY, bars)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	assert.Equal(t, day(1), s.Timestamp(0))
	assert.InDelta(t, math.Log(110.0/100.0), s.At(0).LogReturn, 1e-12)
	assert.InDelta(t, math.Log(99.0/110.0), s.At(1).LogReturn, 1e-12)
}

func TestFromBarsRejectsBadInput(t *testing.T) {
	_, err := FromBars(datamodels.SPY, []datamodels.PriceBar{{Timestamp: day(0), Close: 100}})
	assert.Error(t, err, "single bar")

	_, err = FromBars(datamodels.SPY, []datamodels.PriceBar{
		{Timestamp: day(0), Close: 100},
		{Timestamp: day(1), Close: 0},
	})
	assert.Error(t, err, "zero close")
}

func mustSeries(t *testing.T, asset datamodels.Asset, days []int, rets []float64) *datamodels.ReturnSeries {
	t.Helper()
	points := make([]datamodels.ReturnPoint, len(days))
	for i := range days {
		points[i] = datamodels.ReturnPoint{Timestamp: day(days[i]), LogReturn: rets[i]}
	}
	s, err := datamodels.NewReturnSeries(asset, points)
	require.NoError(t, err)
	return s
}

func TestAlignInnerJoin(t *testing.T) {
	// SPY skips day 2 (market holiday); BTC trades every day
	spy := mustSeries(t, datamodels.SPY, []int{0, 1, 3, 4}, []float64{0.01, 0.02, 0.03, 0.04})
	btc := mustSeries(t, datamodels.BTC, []int{0, 1, 2, 3, 4, 5}, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})

	aligned, err := Align(spy, btc)
	require.NoError(t, err)
	require.Len(t, aligned, 4)

	assert.Equal(t, day(0), aligned[0].Timestamp)
	assert.Equal(t, 0.01, aligned[0].Left)
	assert.Equal(t, 0.1, aligned[0].Right)

	assert.Equal(t, day(3), aligned[2].Timestamp)
	assert.Equal(t, 0.03, aligned[2].Left)
	assert.Equal(t, 0.4, aligned[2].Right)
}

func TestAlignDisjointSeries(t *testing.T) {
	a := mustSeries(t, datamodels.SPY, []int{0, 1}, []float64{0.01, 0.02})
	b := mustSeries(t, datamodels.BTC, []int{5, 6}, []float64{0.1, 0.2})

	aligned, err := Align(a, b)
	require.NoError(t, err)
	assert.Empty(t, aligned)

	_, err = Align(nil, b)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	s := mustSeries(t, datamodels.SPY, []int{0, 1}, []float64{0.015, -0.02})
	path := filepath.Join(t.TempDir(), "sub", "spy.csv")

	require.NoError(t, WriteCSV(s, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,log_ret", lines[0])
	assert.Equal(t, "2024-03-01,0.015", lines[1])
	assert.Equal(t, "2024-03-02,-0.02", lines[2])
}

func TestWriteAlignedCSV(t *testing.T) {
	points := []AlignedPoint{
		{Timestamp: day(0), Left: 0.01, Right: 0.1},
	}
	path := filepath.Join(t.TempDir(), "aligned.csv")

	require.NoError(t, WriteAlignedCSV(points, "spy_ret", "btc_ret", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,spy_ret,btc_ret", lines[0])
	assert.Equal(t, "2024-03-01,0.01,0.1", lines[1])
}
