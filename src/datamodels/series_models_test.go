//go:build unit

package datamodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnSeriesRequiresIncreasingTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewReturnSeries(SPY, []ReturnPoint{
		{Timestamp: base, LogReturn: 0.01},
		{Timestamp: base, LogReturn: 0.02},
	})
	assert.Error(t, err, "duplicate timestamp")

	_, err = NewReturnSeries(SPY, []ReturnPoint{
		{Timestamp: base.AddDate(0, 0, 1), LogReturn: 0.01},
		{Timestamp: base, LogReturn: 0.02},
	})
	assert.Error(t, err, "out of order")

	s, err := NewReturnSeries(SPY, []ReturnPoint{
		{Timestamp: base, LogReturn: 0.01},
		{Timestamp: base.AddDate(0, 0, 1), LogReturn: 0.02},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestReturnSeriesWindowAndReturns(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]ReturnPoint, 5)
	for i := range points {
		points[i] = ReturnPoint{Timestamp: base.AddDate(0, 0, i), LogReturn: float64(i) / 100}
	}
	s, err := NewReturnSeries(BTC, points)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.01, 0.02, 0.03, 0.04}, s.Returns())
	assert.Equal(t, []float64{0.01, 0.02, 0.03}, s.Window(1, 4))
	assert.Equal(t, base.AddDate(0, 0, 2), s.Timestamp(2))

	// Window must copy, not alias
	w := s.Window(0, 2)
	w[0] = 99
	assert.Equal(t, 0.0, s.At(0).LogReturn)
}
