package feeds

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// CsvPriceFeed reads daily bars out of a local CSV file according to a
// declarative column schema. Rows outside [startTime, endTime] are dropped;
// a zero endTime means no upper bound.
type CsvPriceFeed struct {
	filePath  string
	hasHeader bool
	startTime time.Time
	endTime   time.Time
	schema    *datamodels.CsvSchema
}

type CsvPriceFeedBuilder struct {
	filePath  string
	hasHeader bool
	startTime time.Time
	endTime   time.Time
	schema    *datamodels.CsvSchema
}

func NewCsvPriceFeedBuilder(filePath string) *CsvPriceFeedBuilder {
	return &CsvPriceFeedBuilder{filePath: filePath}
}

func (b *CsvPriceFeedBuilder) WithSchema(schema *datamodels.CsvSchema) *CsvPriceFeedBuilder {
	b.schema = schema
	return b
}

func (b *CsvPriceFeedBuilder) WithHasHeader(hasHeader bool) *CsvPriceFeedBuilder {
	b.hasHeader = hasHeader
	return b
}

func (b *CsvPriceFeedBuilder) WithStartTime(startTime time.Time) *CsvPriceFeedBuilder {
	b.startTime = startTime
	return b
}

func (b *CsvPriceFeedBuilder) WithEndTime(endTime time.Time) *CsvPriceFeedBuilder {
	b.endTime = endTime
	return b
}

func (b *CsvPriceFeedBuilder) Build() (*CsvPriceFeed, error) {
	if b.filePath == "" {
		return nil, errors.New("csv feed requires a file path")
	}
	if b.schema == nil {
		return nil, errors.New("csv feed requires a schema")
	}
	if b.schema.TimestampColumnIndex() == -1 {
		return nil, errors.Newf("schema has no column named %q for timestamps", b.schema.TimestampFieldName)
	}
	if b.schema.ColumnIndex("close") == -1 {
		return nil, errors.New("schema must have a close column")
	}
	if !b.endTime.IsZero() && b.endTime.Before(b.startTime) {
		return nil, errors.New("end time is before start time")
	}
	return &CsvPriceFeed{
		filePath:  b.filePath,
		hasHeader: b.hasHeader,
		startTime: b.startTime,
		endTime:   b.endTime,
		schema:    b.schema,
	}, nil
}

func (c *CsvPriceFeed) GetName() string {
	return "CsvPriceFeed_" + c.filePath
}

func (c *CsvPriceFeed) Bars(ctx context.Context) ([]datamodels.PriceBar, error) {
	file, err := os.Open(c.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open CSV file at %s", c.filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	tsCol := c.schema.TimestampColumnIndex()
	closeCol := c.schema.ColumnIndex("close")

	var bars []datamodels.PriceBar
	line := 0
	skipped := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading %s at line %d", c.filePath, line)
		}
		line++
		if line == 1 && c.hasHeader {
			continue
		}
		if tsCol >= len(record) || closeCol >= len(record) {
			skipped++
			continue
		}

		ts, err := c.parseTimestamp(record[tsCol])
		if err != nil {
			skipped++
			continue
		}
		if ts.Before(c.startTime) {
			continue
		}
		if !c.endTime.IsZero() && ts.After(c.endTime) {
			continue
		}

		closePrice, err := strconv.ParseFloat(record[closeCol], 64)
		if err != nil || closePrice <= 0 {
			skipped++
			continue
		}

		bars = append(bars, datamodels.PriceBar{Timestamp: ts, Close: closePrice})
	}

	if skipped > 0 {
		slog.Warn("Skipped unparseable CSV rows", "feed", c.GetName(), "skipped", skipped)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func (c *CsvPriceFeed) parseTimestamp(raw string) (time.Time, error) {
	if c.schema.TimestampLayout != "" {
		return time.Parse(c.schema.TimestampLayout, raw)
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
