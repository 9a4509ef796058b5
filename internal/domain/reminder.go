package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus is the per-channel delivery outcome.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

func (s NotificationStatus) String() string {
	return string(s)
}

// ReminderInstance is one wind-down reminder occurrence for a user.
// At most one instance per user per local day carries a non-null SentAt;
// its existence for a local day is the dedupe key. SentAt transitions
// null -> non-null exactly once, after a dispatch attempt, regardless of
// per-channel outcome.
type ReminderInstance struct {
	ID            string               `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string               `gorm:"index;not null" json:"user_id"`
	ScheduledFor  time.Time            `gorm:"index;not null" json:"scheduled_for"`
	Message       string               `json:"message"`
	SentAt        *time.Time           `json:"sent_at"`
	CreatedAt     time.Time            `json:"created_at"`
	Notifications []NotificationRecord `gorm:"foreignKey:ReminderID" json:"notifications,omitempty"`
}

func (ReminderInstance) TableName() string {
	return "reminders"
}

// NewReminderInstance creates an unsent reminder for the computed instant.
func NewReminderInstance(userID string, scheduledFor time.Time, message string) *ReminderInstance {
	return &ReminderInstance{
		ID:           uuid.NewString(),
		UserID:       userID,
		ScheduledFor: scheduledFor.UTC(),
		Message:      message,
		CreatedAt:    time.Now().UTC(),
	}
}

// NotificationRecord is one transport attempt against one push channel.
type NotificationRecord struct {
	ID           string             `gorm:"type:uuid;primaryKey" json:"id"`
	ReminderID   string             `gorm:"index;not null" json:"reminder_id"`
	Type         string             `json:"type"`
	Status       NotificationStatus `json:"status"`
	ErrorMessage string             `json:"error_message,omitempty"`
	SentAt       *time.Time         `json:"sent_at"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (NotificationRecord) TableName() string {
	return "notifications"
}
