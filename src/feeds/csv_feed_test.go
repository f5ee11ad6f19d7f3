//go:build unit

package feeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/src/datamodels"
)

func dailySchema() *datamodels.CsvSchema {
	return &datamodels.CsvSchema{
		TimestampFieldName: "date",
		TimestampLayout:    "2006-01-02",
		Columns: []datamodels.CsvColumnConfig{
			{ColumnIndex: 0, FieldName: "date", FieldType: datamodels.FieldTypeTime},
			{ColumnIndex: 1, FieldName: "close", FieldType: datamodels.FieldTypeFloat},
		},
	}
}

func writeTempCsv(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestCsvFeedReadsDailyBars(t *testing.T) {
	path := writeTempCsv(t, "date,close\n2024-01-02,470.5\n2024-01-03,468.1\n2024-01-04,471.9\n")

	feed, err := NewCsvPriceFeedBuilder(path).
		WithSchema(dailySchema()).
		WithHasHeader(true).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 470.5, bars[0].Close)
	assert.Equal(t, 471.9, bars[2].Close)
}

func TestCsvFeedSkipsBadRowsAndSorts(t *testing.T) {
	// out of order, one unparseable close, one bad date
	path := writeTempCsv(t, "2024-01-04,471.9\n2024-01-02,470.5\nnot-a-date,100\n2024-01-03,oops\n")

	feed, err := NewCsvPriceFeedBuilder(path).
		WithSchema(dailySchema()).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Timestamp.Before(bars[1].Timestamp))
}

func TestCsvFeedTimeFiltering(t *testing.T) {
	path := writeTempCsv(t, "2024-01-01,100\n2024-01-02,101\n2024-01-03,102\n2024-01-04,103\n")

	feed, err := NewCsvPriceFeedBuilder(path).
		WithSchema(dailySchema()).
		WithStartTime(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).
		WithEndTime(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 102.0, bars[1].Close)
}

func TestCsvFeedUnixTimestamps(t *testing.T) {
	schema := dailySchema()
	schema.TimestampLayout = ""
	path := writeTempCsv(t, "1704153600,100\n1704240000,101\n")

	feed, err := NewCsvPriceFeedBuilder(path).
		WithSchema(schema).
		Build()
	require.NoError(t, err)

	bars, err := feed.Bars(context.Background())
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
}

func TestCsvFeedBuilderValidation(t *testing.T) {
	_, err := NewCsvPriceFeedBuilder("").WithSchema(dailySchema()).Build()
	assert.Error(t, err, "missing path")

	_, err = NewCsvPriceFeedBuilder("prices.csv").Build()
	assert.Error(t, err, "missing schema")

	noClose := &datamodels.CsvSchema{
		TimestampFieldName: "date",
		TimestampLayout:    "2006-01-02",
		Columns: []datamodels.CsvColumnConfig{
			{ColumnIndex: 0, FieldName: "date", FieldType: datamodels.FieldTypeTime},
		},
	}
	_, err = NewCsvPriceFeedBuilder("prices.csv").WithSchema(noClose).Build()
	assert.Error(t, err, "schema without close column")
}

func TestNewPriceFeedFromConfig(t *testing.T) {
	csvFeed, err := NewPriceFeedFromConfig(&datamodels.AssetConfig{
		Name:   datamodels.SPY,
		Source: "csv",
		CsvConfig: &datamodels.CsvFeedConfig{
			FilePath:         "prices.csv",
			HasHeader:        true,
			TimestampColName: "date",
			TimestampLayout:  "2006-01-02",
			Columns: []datamodels.CsvColumnConfig{
				{ColumnIndex: 0, FieldName: "date", FieldType: datamodels.FieldTypeTime},
				{ColumnIndex: 1, FieldName: "close", FieldType: datamodels.FieldTypeFloat},
			},
		},
	})
	require.NoError(t, err)
	assert.IsType(t, &CsvPriceFeed{}, csvFeed)

	yahooFeed, err := NewPriceFeedFromConfig(&datamodels.AssetConfig{
		Name:      datamodels.BTC,
		Source:    "yahoo",
		Ticker:    "BTC-USD",
		StartTime: "2015-01-01",
	})
	require.NoError(t, err)
	assert.IsType(t, &YahooPriceFeed{}, yahooFeed)

	_, err = NewPriceFeedFromConfig(&datamodels.AssetConfig{Name: datamodels.SPY, Source: "ftp"})
	assert.Error(t, err)
}
