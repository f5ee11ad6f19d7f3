package metrics

import (
	"context"

	"volbot/src/datamodels"
	"volbot/src/utils/errors"
)

// MultiMetricsWriter fans a metric out to every configured sink. A failing
// sink does not stop the others; the first error is returned.
type MultiMetricsWriter struct {
	writers []MetricsWriter
}

func NewMultiMetricsWriter(writers ...MetricsWriter) *MultiMetricsWriter {
	return &MultiMetricsWriter{writers: writers}
}

func (m *MultiMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Write(ctx, metric); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "metrics sink write failed")
		}
	}
	return firstErr
}

func (m *MultiMetricsWriter) Close() error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
