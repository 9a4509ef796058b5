package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/observability/metrics"
	"github.com/circadian-app/reminder-scheduler/internal/observability/tracing"
	"github.com/circadian-app/reminder-scheduler/internal/service/dispatch"
)

// RunHandler exposes the hourly batch trigger.
type RunHandler struct {
	dispatchService *dispatch.Service
	dispatchMetrics *metrics.DispatchMetrics
	runRecorder     domain.RunRecorder
}

func NewRunHandler(
	dispatchService *dispatch.Service,
	dispatchMetrics *metrics.DispatchMetrics,
	runRecorder domain.RunRecorder,
) *RunHandler {
	return &RunHandler{
		dispatchService: dispatchService,
		dispatchMetrics: dispatchMetrics,
		runRecorder:     runRecorder,
	}
}

// HandleRun runs one reminder batch. An optional `from` query supplies a
// virtual now for backfills and tests; otherwise the wall clock is used.
func (h *RunHandler) HandleRun(c *gin.Context) {
	ctx := c.Request.Context()

	now := time.Now()
	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from time format, expected RFC3339"})
			return
		}
		now = parsed
		slog.InfoContext(ctx, "using virtual time",
			slog.Time("virtual_now", now),
		)
	}

	runID := c.GetHeader("X-Run-ID")

	runCtx, runSpan := tracing.StartBatchRunSpan(ctx, now)
	defer runSpan.End()
	runStart := time.Now()

	result, err := h.dispatchService.Run(runCtx, now)

	if h.dispatchMetrics != nil {
		h.dispatchMetrics.RecordBatchDuration(runCtx, time.Since(runStart))
	}

	if err != nil {
		tracing.RecordBatchRunResult(runSpan, 0, err)
		slog.ErrorContext(ctx, "batch run failed",
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "batch run failed",
			"detail": err.Error(),
		})
		return
	}

	tracing.RecordBatchRunResult(runSpan, len(result.Processed), nil)

	slog.InfoContext(ctx, "batch run completed",
		slog.Int("processed", len(result.Processed)),
		slog.Time("checked_at", result.CheckedAt),
	)

	if h.runRecorder != nil {
		if records := buildRunResultRecords(runID, result); len(records) > 0 {
			if err := h.runRecorder.RecordRunResults(runCtx, records); err != nil {
				slog.WarnContext(ctx, "failed to record run results",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	c.JSON(http.StatusOK, result)
}

// buildRunResultRecords aggregates the per-user audit trail into one record
// per status tag.
func buildRunResultRecords(runID string, result *dispatch.Response) []domain.RunResultRecord {
	counts := make(map[string]int)
	for _, p := range result.Processed {
		counts[metrics.StatusTag(p.Status)]++
	}

	records := make([]domain.RunResultRecord, 0, len(counts))
	for status, count := range counts {
		records = append(records, domain.RunResultRecord{
			RunID:     runID,
			CheckedAt: result.CheckedAt,
			Status:    status,
			Count:     count,
		})
	}
	return records
}
