package feeds

import (
	"context"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// PriceFeed supplies the ordered daily bars for one asset.
type PriceFeed interface {
	// GetName returns the name of the feed, for logging.
	GetName() string
	// Bars returns all bars in the feed's configured time range, ordered by
	// timestamp ascending.
	Bars(ctx context.Context) ([]datamodels.PriceBar, error)
}

// NewPriceFeedFromConfig builds the feed described by an asset config entry.
func NewPriceFeedFromConfig(assetConfig *datamodels.AssetConfig) (PriceFeed, error) {
	startTime, err := datamodels.ParseAssetTime(assetConfig.StartTime)
	if err != nil {
		return nil, errors.Wrapf(err, "asset %s start time", assetConfig.Name)
	}
	endTime, err := datamodels.ParseAssetTime(assetConfig.EndTime)
	if err != nil {
		return nil, errors.Wrapf(err, "asset %s end time", assetConfig.Name)
	}

	switch assetConfig.Source {
	case "csv":
		schema := &datamodels.CsvSchema{
			TimestampFieldName: assetConfig.CsvConfig.TimestampColName,
			TimestampLayout:    assetConfig.CsvConfig.TimestampLayout,
			Columns:            assetConfig.CsvConfig.Columns,
		}
		return NewCsvPriceFeedBuilder(assetConfig.CsvConfig.FilePath).
			WithSchema(schema).
			WithHasHeader(assetConfig.CsvConfig.HasHeader).
			WithStartTime(startTime).
			WithEndTime(endTime).
			Build()
	case "yahoo":
		return NewYahooPriceFeedBuilder(assetConfig.Ticker).
			WithStartTime(startTime).
			WithEndTime(endTime).
			Build()
	default:
		return nil, errors.Newf("unknown feed source %q for asset %s", assetConfig.Source, assetConfig.Name)
	}
}
