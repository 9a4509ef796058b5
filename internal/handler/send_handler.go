package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/infra/webpush"
	"github.com/circadian-app/reminder-scheduler/internal/observability/tracing"
)

// SendHandler is the internal dispatch endpoint: it fans a single reminder
// out to every push channel registered for the user and records one
// NotificationRecord per attempt.
type SendHandler struct {
	reminders     domain.ReminderRepository
	subscriptions domain.SubscriptionRepository
	sender        webpush.Sender
}

func NewSendHandler(
	reminders domain.ReminderRepository,
	subscriptions domain.SubscriptionRepository,
	sender webpush.Sender,
) *SendHandler {
	return &SendHandler{
		reminders:     reminders,
		subscriptions: subscriptions,
		sender:        sender,
	}
}

type sendRequest struct {
	ReminderID string `json:"reminder_id" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Body       string `json:"body" binding:"required"`
}

type channelOutcome struct {
	err error
}

func (h *SendHandler) HandleSend(c *gin.Context) {
	ctx := c.Request.Context()

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid send request", "detail": err.Error()})
		return
	}

	subs, err := h.subscriptions.ListSubscriptions(ctx, req.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list push subscriptions",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reminder", "detail": err.Error()})
		return
	}

	fanoutCtx, span := tracing.StartPushFanoutSpan(ctx, req.ReminderID, len(subs))
	defer span.End()

	payload := webpush.Payload{
		Title: req.Title,
		Body:  req.Body,
		Icon:  "/icon-192.png",
		Badge: "/badge-72.png",
		Tag:   "wind-down-reminder",
	}

	outcomes := make([]channelOutcome, len(subs))
	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub domain.PushSubscription) {
			defer wg.Done()
			outcomes[i] = channelOutcome{err: h.sender.Send(fanoutCtx, sub, payload)}
		}(i, sub)
	}
	wg.Wait()

	sent, failed := 0, 0
	for _, outcome := range outcomes {
		record := &domain.NotificationRecord{
			ID:         uuid.NewString(),
			ReminderID: req.ReminderID,
			Type:       "push",
			CreatedAt:  time.Now().UTC(),
		}

		if outcome.err != nil {
			failed++
			record.Status = domain.NotificationFailed
			record.ErrorMessage = outcome.err.Error()
		} else {
			sent++
			record.Status = domain.NotificationSent
			now := time.Now().UTC()
			record.SentAt = &now
		}

		// The transport attempt already happened; a failed audit write is
		// logged but never surfaced as a dispatch failure.
		if err := h.reminders.CreateNotificationRecord(ctx, record); err != nil {
			slog.WarnContext(ctx, "failed to persist notification record",
				slog.String("reminder_id", req.ReminderID),
				slog.String("error", err.Error()),
			)
		}
	}

	tracing.RecordPushFanoutResult(span, sent, failed)

	// Mark the reminder sent regardless of individual channel outcomes, so
	// the daily slot is spent by the attempt itself.
	if err := h.reminders.MarkSent(ctx, req.ReminderID, time.Now().UTC()); err != nil {
		slog.ErrorContext(ctx, "failed to mark reminder sent",
			slog.String("reminder_id", req.ReminderID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reminder", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sent": sent, "failed": failed})
}
