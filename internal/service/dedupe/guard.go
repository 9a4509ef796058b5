package dedupe

import (
	"context"
	"log/slog"
	"time"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/service/timemath"
)

// Guard decides whether a user's reminder was already dispatched for the
// current local calendar day. The durable store is authoritative; the
// marker repository is a fast path only.
type Guard struct {
	reminders domain.ReminderRepository
	markers   domain.SentMarkerRepository
}

func NewGuard(reminders domain.ReminderRepository, markers domain.SentMarkerRepository) *Guard {
	return &Guard{
		reminders: reminders,
		markers:   markers,
	}
}

// AlreadySentToday reports whether any reminder for the user was scheduled
// inside the local day containing now and has been dispatched. The window is
// anchored on ScheduledFor, not SentAt, so a late dispatch still counts
// against the day it was scheduled for.
func (g *Guard) AlreadySentToday(ctx context.Context, userID string, now time.Time, loc *time.Location) (bool, error) {
	dayKey := timemath.LocalDayKey(now, loc)

	if g.markers != nil {
		sent, err := g.markers.WasSentToday(ctx, userID, dayKey)
		if err != nil {
			slog.WarnContext(ctx, "failed to check sent marker, falling back to store",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else if sent {
			return true, nil
		}
	}

	dayStart := timemath.LocalDayStart(now, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	return g.reminders.HasSentReminderInRange(ctx, userID, dayStart.UTC(), dayEnd.UTC())
}

// MarkDispatched records the fast-path marker after a dispatch attempt.
// Marker write failures are logged and swallowed; the store query covers them.
func (g *Guard) MarkDispatched(ctx context.Context, userID string, now time.Time, loc *time.Location) {
	if g.markers == nil {
		return
	}

	if err := g.markers.MarkSentToday(ctx, userID, timemath.LocalDayKey(now, loc)); err != nil {
		slog.WarnContext(ctx, "failed to write sent marker",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
