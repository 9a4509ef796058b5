package domain

import (
	"context"
	"time"
)

// ProfileRepository reads and writes sleep profiles in the durable store.
type ProfileRepository interface {
	// ListEnabledProfiles enumerates every profile with RemindersEnabled set.
	// An error here is fatal to a batch run.
	ListEnabledProfiles(ctx context.Context) ([]UserSleepProfile, error)
	GetProfile(ctx context.Context, userID string) (*UserSleepProfile, error)
	UpsertProfile(ctx context.Context, profile *UserSleepProfile) error
}

// ReminderRepository persists reminder instances and their per-channel
// notification records.
type ReminderRepository interface {
	CreateReminder(ctx context.Context, reminder *ReminderInstance) error
	// MarkSent sets SentAt on the instance. Called once per instance,
	// after the dispatch attempt.
	MarkSent(ctx context.Context, reminderID string, at time.Time) error
	// HasSentReminderInRange reports whether any instance for the user has
	// ScheduledFor in [start, end) and a non-null SentAt.
	HasSentReminderInRange(ctx context.Context, userID string, start, end time.Time) (bool, error)
	ListReminders(ctx context.Context, userID string, limit int) ([]ReminderInstance, error)
	CreateNotificationRecord(ctx context.Context, record *NotificationRecord) error
}

// SubscriptionRepository reads registered push channels.
type SubscriptionRepository interface {
	ListSubscriptions(ctx context.Context, userID string) ([]PushSubscription, error)
	CountSubscriptions(ctx context.Context, userID string) (int64, error)
}

// SentMarkerRepository is a fast-path cache of "reminder dispatched for this
// local day" markers. The durable store stays authoritative; marker misses
// and marker errors both fall through to the store query.
type SentMarkerRepository interface {
	MarkSentToday(ctx context.Context, userID, localDay string) error
	WasSentToday(ctx context.Context, userID, localDay string) (bool, error)
}
