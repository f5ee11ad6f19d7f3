package metrics

import (
	"context"
	"log/slog"

	"volbot/src/database"
	"volbot/src/datamodels"
)

// MetricsWriter receives typed result metrics as the pipeline produces
// them.
type MetricsWriter interface {
	Write(ctx context.Context, metric datamodels.Metric) error
	Close() error
}

// BuildMetricsWriter assembles the configured sinks: the file writer is
// always on, the database writer only when postgres is enabled.
func BuildMetricsWriter(resultsDir string, dbConfig datamodels.PostgresConfig, db database.ResultsDatabase) (MetricsWriter, error) {
	writers := []MetricsWriter{}

	fileWriter, err := NewFileMetricsWriter(resultsDir, FormatCSV)
	if err != nil {
		return nil, err
	}
	writers = append(writers, fileWriter)

	if dbConfig.Enabled {
		if db == nil {
			slog.Warn("Postgres enabled but no database connection, skipping db metrics writer")
		} else {
			writers = append(writers, NewDbMetricsWriter(db))
		}
	}

	return NewMultiMetricsWriter(writers...), nil
}
