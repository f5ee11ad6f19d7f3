package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

const yahooChartUrl = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooPriceFeed downloads daily adjusted closes from the Yahoo Finance v8
// chart endpoint.
type YahooPriceFeed struct {
	ticker     string
	startTime  time.Time
	endTime    time.Time
	httpClient *http.Client
	baseUrl    string
}

type YahooPriceFeedBuilder struct {
	ticker     string
	startTime  time.Time
	endTime    time.Time
	httpClient *http.Client
	baseUrl    string
}

func NewYahooPriceFeedBuilder(ticker string) *YahooPriceFeedBuilder {
	return &YahooPriceFeedBuilder{ticker: ticker}
}

func (b *YahooPriceFeedBuilder) WithStartTime(startTime time.Time) *YahooPriceFeedBuilder {
	b.startTime = startTime
	return b
}

func (b *YahooPriceFeedBuilder) WithEndTime(endTime time.Time) *YahooPriceFeedBuilder {
	b.endTime = endTime
	return b
}

func (b *YahooPriceFeedBuilder) WithHttpClient(client *http.Client) *YahooPriceFeedBuilder {
	b.httpClient = client
	return b
}

func (b *YahooPriceFeedBuilder) WithBaseUrl(baseUrl string) *YahooPriceFeedBuilder {
	b.baseUrl = baseUrl
	return b
}

func (b *YahooPriceFeedBuilder) Build() (*YahooPriceFeed, error) {
	if b.ticker == "" {
		return nil, errors.New("yahoo feed requires a ticker")
	}
	if b.startTime.IsZero() {
		b.startTime = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if b.endTime.IsZero() {
		b.endTime = time.Now().UTC()
	}
	if b.endTime.Before(b.startTime) {
		return nil, errors.New("end time is before start time")
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if b.baseUrl == "" {
		b.baseUrl = yahooChartUrl
	}
	return &YahooPriceFeed{
		ticker:     b.ticker,
		startTime:  b.startTime,
		endTime:    b.endTime,
		httpClient: b.httpClient,
		baseUrl:    b.baseUrl,
	}, nil
}

func (y *YahooPriceFeed) GetName() string {
	return "YahooPriceFeed_" + y.ticker
}

// chart response, trimmed to the fields this feed reads
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Timestamp  []int64         `json:"timestamp"`
	Indicators yahooIndicators `json:"indicators"`
}

type yahooIndicators struct {
	Adjclose []struct {
		Adjclose []*float64 `json:"adjclose"`
	} `json:"adjclose"`
	Quote []struct {
		Close []*float64 `json:"close"`
	} `json:"quote"`
}

func (y *YahooPriceFeed) Bars(ctx context.Context) ([]datamodels.PriceBar, error) {
	reqUrl := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&events=history",
		y.baseUrl, url.PathEscape(y.ticker), y.startTime.Unix(), y.endTime.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chart request")
	}
	req.Header.Set("User-Agent", "volbot/1.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "chart request for %s failed", y.ticker)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Newf("chart request for %s returned %d: %s", y.ticker, resp.StatusCode, string(body))
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chart response for %s", y.ticker)
	}
	if chart.Chart.Error != nil {
		return nil, errors.Newf("chart API error for %s: %s (%s)",
			y.ticker, chart.Chart.Error.Description, chart.Chart.Error.Code)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errors.Newf("chart response for %s has no result", y.ticker)
	}

	result := chart.Chart.Result[0]
	closes := y.pickCloses(&result.Indicators)
	if closes == nil {
		return nil, errors.Newf("chart response for %s has no close prices", y.ticker)
	}
	if len(closes) != len(result.Timestamp) {
		return nil, errors.Newf("chart response for %s has %d closes for %d timestamps",
			y.ticker, len(closes), len(result.Timestamp))
	}

	bars := make([]datamodels.PriceBar, 0, len(result.Timestamp))
	missing := 0
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			missing++
			continue
		}
		// normalize intraday timestamps onto the trading date
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		bars = append(bars, datamodels.PriceBar{Timestamp: day, Close: *closes[i]})
	}
	if missing > 0 {
		slog.Warn("Chart response had null closes", "ticker", y.ticker, "missing", missing)
	}
	slog.Info("Downloaded price history",
		"ticker", y.ticker, "bars", len(bars),
		"start", strconv.FormatInt(y.startTime.Unix(), 10),
		"end", strconv.FormatInt(y.endTime.Unix(), 10))

	return bars, nil
}

func (y *YahooPriceFeed) pickCloses(indicators *yahooIndicators) []*float64 {
	if len(indicators.Adjclose) > 0 && len(indicators.Adjclose[0].Adjclose) > 0 {
		return indicators.Adjclose[0].Adjclose
	}
	if len(indicators.Quote) > 0 && len(indicators.Quote[0].Close) > 0 {
		return indicators.Quote[0].Close
	}
	return nil
}
