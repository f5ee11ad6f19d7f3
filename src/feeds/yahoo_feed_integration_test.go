//go:build integration

package feeds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooFeedLive(t *testing.T) {
	feed, err := NewYahooPriceFeedBuilder("SPY").
		WithStartTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).
		WithEndTime(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)

	// roughly one bar per trading day in January
	assert.Greater(t, len(bars), 15)
	assert.Less(t, len(bars), 25)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
		assert.Greater(t, bars[i].Close, 0.0)
	}
}
