package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dispatchTracerName = "github.com/circadian-app/reminder-scheduler/internal/service/dispatch"

func DispatchTracer() trace.Tracer {
	return otel.Tracer(dispatchTracerName)
}

func StartBatchRunSpan(ctx context.Context, now time.Time) (context.Context, trace.Span) {
	return DispatchTracer().Start(ctx, "reminder.batch_run",
		trace.WithAttributes(
			attribute.String("batch.checked_at", now.UTC().Format(time.RFC3339)),
			attribute.String("batch.hour_window", now.UTC().Truncate(time.Hour).Format(time.RFC3339)),
		),
	)
}

func RecordBatchRunResult(span trace.Span, processedCount int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(attribute.Int("batch.processed_count", processedCount))
	span.SetStatus(codes.Ok, "")
}

func StartPushFanoutSpan(ctx context.Context, reminderID string, channelCount int) (context.Context, trace.Span) {
	return DispatchTracer().Start(ctx, "reminder.push_fanout",
		trace.WithAttributes(
			attribute.String("reminder_id", reminderID),
			attribute.Int("channel_count", channelCount),
		),
	)
}

func RecordPushFanoutResult(span trace.Span, sent, failed int) {
	span.SetAttributes(
		attribute.Int("push.sent", sent),
		attribute.Int("push.failed", failed),
	)
	if failed > 0 && sent == 0 {
		span.SetStatus(codes.Error, "all channels failed")
		return
	}
	span.SetStatus(codes.Ok, "")
}
