package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// exportMetrics records export attempts on the process meter provider.
type exportMetrics struct {
	attempts metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func newExportMetrics(meter metric.Meter) (*exportMetrics, error) {
	attempts, err := meter.Int64Counter("exporter.exports.total",
		metric.WithDescription("Export attempts by outcome"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("exporter.exports.failed",
		metric.WithDescription("Export attempts that ended in an error"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("exporter.export.duration",
		metric.WithDescription("Export attempt duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &exportMetrics{attempts: attempts, failures: failures, duration: duration}, nil
}

func (m *exportMetrics) record(ctx context.Context, appID, outcome string, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("app_id", appID), attribute.String("outcome", outcome))
	m.attempts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}
