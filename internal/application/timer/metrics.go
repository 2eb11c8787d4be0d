package timer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rezkam/focusflow/internal/application/timer"

type metrics struct {
	transitions metric.Int64Counter
	folded      metric.Int64Histogram
	batchSize   metric.Int64Histogram
}

// newMetrics creates the timer instruments. Instrument errors fall back to no-ops
// from the global provider, so they are ignored.
func newMetrics(meter metric.Meter) *metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}

	transitions, _ := meter.Int64Counter("focus.timer.transitions",
		metric.WithDescription("Timer state transitions by operation"))
	folded, _ := meter.Int64Histogram("focus.timer.folded_seconds",
		metric.WithDescription("Seconds folded into elapsed time per transition"),
		metric.WithUnit("s"))
	batchSize, _ := meter.Int64Histogram("focus.timer.batch_size",
		metric.WithDescription("Duration updates per batched write"))

	return &metrics{transitions: transitions, folded: folded, batchSize: batchSize}
}

func (m *metrics) transition(ctx context.Context, op string, folded int64) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.transitions.Add(ctx, 1, attrs)
	if folded > 0 {
		m.folded.Record(ctx, folded, attrs)
	}
}

func (m *metrics) batch(ctx context.Context, size int) {
	m.batchSize.Record(ctx, int64(size))
}
