package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/infra/pushgateway"
	"github.com/circadian-app/reminder-scheduler/internal/observability/metrics"
	"github.com/circadian-app/reminder-scheduler/internal/service/dedupe"
	"github.com/circadian-app/reminder-scheduler/internal/service/duecheck"
	"github.com/circadian-app/reminder-scheduler/internal/service/timemath"
)

// PushTitle is the notification title shown on every reminder.
const PushTitle = "Circadian"

// Service runs one reminder batch: for every enabled profile it decides
// due-ness and dedupe, creates the reminder instance, hands it to the push
// gateway, and records the outcome. One user's failure never aborts the
// batch; only enumeration failure does.
type Service struct {
	profiles        domain.ProfileRepository
	subscriptions   domain.SubscriptionRepository
	reminders       domain.ReminderRepository
	guard           *dedupe.Guard
	gateway         pushgateway.Gateway
	dispatchMetrics *metrics.DispatchMetrics
	defaultTimezone string
}

func NewService(
	profiles domain.ProfileRepository,
	subscriptions domain.SubscriptionRepository,
	reminders domain.ReminderRepository,
	guard *dedupe.Guard,
	gateway pushgateway.Gateway,
	dispatchMetrics *metrics.DispatchMetrics,
	defaultTimezone string,
) *Service {
	return &Service{
		profiles:        profiles,
		subscriptions:   subscriptions,
		reminders:       reminders,
		guard:           guard,
		gateway:         gateway,
		dispatchMetrics: dispatchMetrics,
		defaultTimezone: defaultTimezone,
	}
}

// Run processes every enabled profile against the hour window containing now.
// The returned Response lists one status per evaluated user in enumeration
// order. Run returns an error only when enumeration itself fails; in that
// case nothing was processed.
func (s *Service) Run(ctx context.Context, now time.Time) (*Response, error) {
	profiles, err := s.profiles.ListEnabledProfiles(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to enumerate eligible users",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to enumerate eligible users: %w", err)
	}

	slog.InfoContext(ctx, "starting reminder batch",
		slog.Time("now", now),
		slog.Int("eligible_count", len(profiles)),
	)

	processed := make([]ProcessedUser, 0, len(profiles))
	for i := range profiles {
		status := s.processUser(ctx, &profiles[i], now)

		if s.dispatchMetrics != nil {
			s.dispatchMetrics.RecordUserProcessed(ctx, metrics.StatusTag(status))
		}

		processed = append(processed, ProcessedUser{
			UserID: profiles[i].UserID,
			Status: status,
		})
	}

	return &Response{
		Processed: processed,
		CheckedAt: now.UTC(),
	}, nil
}

// processUser converts any per-user failure into an error-{detail} status.
// The recover keeps a panicking collaborator from taking the batch down.
func (s *Service) processUser(ctx context.Context, profile *domain.UserSleepProfile, now time.Time) (status string) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while processing user",
				slog.String("user_id", profile.UserID),
				slog.Any("panic", r),
			)
			status = ErrorStatus(fmt.Sprint(r))
		}
	}()

	status, err := s.evaluateUser(ctx, profile, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to process user",
			slog.String("user_id", profile.UserID),
			slog.String("error", err.Error()),
		)
		return ErrorStatus(err.Error())
	}

	return status
}

func (s *Service) evaluateUser(ctx context.Context, profile *domain.UserSleepProfile, now time.Time) (string, error) {
	channelCount, err := s.subscriptions.CountSubscriptions(ctx, profile.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to count push subscriptions: %w", err)
	}
	if channelCount == 0 {
		slog.DebugContext(ctx, "skipping user without push subscriptions",
			slog.String("user_id", profile.UserID),
		)
		return StatusSkippedNoSubscription, nil
	}

	tzName := profile.Timezone
	if tzName == "" {
		tzName = s.defaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTimezone, tzName)
	}

	localNow := now.In(loc)
	wake, err := duecheck.WakeTimeFor(profile, localNow)
	if err != nil {
		return "", fmt.Errorf("failed to parse wake time: %w", err)
	}

	reminderTod := timemath.ReminderTimeOfDay(wake, profile.SleepHours, profile.WindDownBuffer)
	reminderInstant := timemath.LocalInstant(now, reminderTod, loc)

	if !duecheck.IsDueThisHour(reminderInstant, now) {
		return StatusNotDueThisHour, nil
	}

	alreadySent, err := s.guard.AlreadySentToday(ctx, profile.UserID, now, loc)
	if err != nil {
		return "", fmt.Errorf("failed to check dedupe window: %w", err)
	}
	if alreadySent {
		return StatusAlreadySentToday, nil
	}

	message := RenderMessage(profile, wake)

	reminder := domain.NewReminderInstance(profile.UserID, reminderInstant, message)
	if err := s.reminders.CreateReminder(ctx, reminder); err != nil {
		return "", fmt.Errorf("failed to create reminder: %w", err)
	}

	result := s.dispatchReminder(ctx, reminder, profile.UserID)

	// A dispatch attempt counts as sent even under total channel failure.
	// Intentional: it spends the user's daily slot instead of retrying into
	// broken channels every hour for the rest of the day.
	if err := s.reminders.MarkSent(ctx, reminder.ID, time.Now().UTC()); err != nil {
		slog.WarnContext(ctx, "failed to mark reminder sent",
			slog.String("reminder_id", reminder.ID),
			slog.String("error", err.Error()),
		)
	}
	s.guard.MarkDispatched(ctx, profile.UserID, now, loc)

	if s.dispatchMetrics != nil {
		s.dispatchMetrics.RecordChannelOutcomes(ctx, result.Sent, result.Failed)
	}

	return DispatchedStatus(result.Sent, result.Failed), nil
}

// dispatchReminder invokes the gateway; a call that fails to complete is
// treated as zero successes with every channel failed.
func (s *Service) dispatchReminder(ctx context.Context, reminder *domain.ReminderInstance, userID string) *pushgateway.DispatchResult {
	start := time.Now()
	result, err := s.gateway.Dispatch(ctx, &pushgateway.DispatchRequest{
		ReminderID: reminder.ID,
		UserID:     userID,
		Title:      PushTitle,
		Body:       reminder.Message,
	})

	if s.dispatchMetrics != nil {
		s.dispatchMetrics.RecordDispatchDuration(ctx, time.Since(start))
	}

	if err != nil {
		slog.ErrorContext(ctx, "dispatch call failed, treating all channels as failed",
			slog.String("reminder_id", reminder.ID),
			slog.String("error", err.Error()),
		)
		return &pushgateway.DispatchResult{Sent: 0, Failed: 1}
	}

	return result
}
