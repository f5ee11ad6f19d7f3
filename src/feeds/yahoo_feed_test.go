//go:build unit

package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartFixture = `{
  "chart": {
    "result": [{
      "timestamp": [1704189000, 1704275400, 1704361800],
      "indicators": {
        "adjclose": [{"adjclose": [470.5, null, 471.9]}],
        "quote": [{"close": [471.0, 469.0, 472.0]}]
      }
    }],
    "error": null
  }
}`

func TestYahooFeedParsesChartResponse(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	feed, err := NewYahooPriceFeedBuilder("SPY").
		WithStartTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).
		WithEndTime(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)).
		WithBaseUrl(server.URL).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/SPY", gotPath)

	// adjclose preferred, null entry dropped, timestamps truncated to the day
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 470.5, bars[0].Close)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), bars[1].Timestamp)
	assert.Equal(t, 471.9, bars[1].Close)
}

func TestYahooFeedFallsBackToQuoteClose(t *testing.T) {
	fixture := `{
	  "chart": {
	    "result": [{
	      "timestamp": [1704189000],
	      "indicators": {"quote": [{"close": [471.0]}]}
	    }],
	    "error": null
	  }
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixture))
	}))
	defer server.Close()

	feed, err := NewYahooPriceFeedBuilder("SPY").WithBaseUrl(server.URL).Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 471.0, bars[0].Close)
}

func TestYahooFeedSurfacesApiErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
	}))
	defer server.Close()

	feed, err := NewYahooPriceFeedBuilder("NOPE").WithBaseUrl(server.URL).Build()
	require.NoError(t, err)

	_, err = feed.Bars(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestYahooFeedSurfacesHttpErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	feed, err := NewYahooPriceFeedBuilder("SPY").WithBaseUrl(server.URL).Build()
	require.NoError(t, err)

	_, err = feed.Bars(context.Background())
	assert.Error(t, err)
}

func TestYahooFeedBuilderValidation(t *testing.T) {
	_, err := NewYahooPriceFeedBuilder("").Build()
	assert.Error(t, err, "missing ticker")

	_, err = NewYahooPriceFeedBuilder("SPY").
		WithStartTime(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)).
		WithEndTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).
		Build()
	assert.Error(t, err, "end before start")
}
