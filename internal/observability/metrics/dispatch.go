package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const dispatchMeterName = "reminder.dispatch"

type DispatchMetrics struct {
	usersProcessed   metric.Int64Counter
	channelOutcomes  metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	batchDuration    metric.Float64Histogram
}

func NewDispatchMetrics() (*DispatchMetrics, error) {
	meter := otel.Meter(dispatchMeterName)

	usersProcessed, err := meter.Int64Counter(
		"reminder_users_processed_total",
		metric.WithDescription("Users evaluated per batch run, by outcome"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, err
	}

	channelOutcomes, err := meter.Int64Counter(
		"reminder_push_channels_total",
		metric.WithDescription("Push channel delivery attempts, by outcome"),
		metric.WithUnit("{channel}"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"reminder_dispatch_duration_seconds",
		metric.WithDescription("Time spent in the send-endpoint call per reminder"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
		),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"reminder_batch_duration_seconds",
		metric.WithDescription("Full batch run duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
		),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		usersProcessed:   usersProcessed,
		channelOutcomes:  channelOutcomes,
		dispatchDuration: dispatchDuration,
		batchDuration:    batchDuration,
	}, nil
}

// StatusTag collapses per-user statuses into a low-cardinality label:
// dispatched-2-sent-0-failed becomes "dispatched", error-{detail} becomes
// "error", the fixed statuses pass through unchanged.
func StatusTag(status string) string {
	switch {
	case strings.HasPrefix(status, "dispatched-"):
		return "dispatched"
	case strings.HasPrefix(status, "error-"):
		return "error"
	default:
		return status
	}
}

func (m *DispatchMetrics) RecordUserProcessed(ctx context.Context, statusTag string) {
	m.usersProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", statusTag)),
	)
}

func (m *DispatchMetrics) RecordChannelOutcomes(ctx context.Context, sent, failed int) {
	if sent > 0 {
		m.channelOutcomes.Add(ctx, int64(sent),
			metric.WithAttributes(attribute.String("outcome", "sent")),
		)
	}
	if failed > 0 {
		m.channelOutcomes.Add(ctx, int64(failed),
			metric.WithAttributes(attribute.String("outcome", "failed")),
		)
	}
}

func (m *DispatchMetrics) RecordDispatchDuration(ctx context.Context, d time.Duration) {
	m.dispatchDuration.Record(ctx, d.Seconds())
}

func (m *DispatchMetrics) RecordBatchDuration(ctx context.Context, d time.Duration) {
	m.batchDuration.Record(ctx, d.Seconds())
}
