package domain

import "time"

// UserSleepProfile holds a user's sleep schedule preferences. Exactly one
// profile exists per user; all time-of-day fields are interpreted in
// Timezone, never in server-local time.
type UserSleepProfile struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	UserID           string `gorm:"uniqueIndex;not null"`
	WeekdayWakeTime  string `gorm:"not null"` // "HH:MM"
	WeekendWakeTime  string `gorm:"not null"` // "HH:MM"
	SleepHours       float64
	WindDownBuffer   int    // minutes of lead time before bedtime
	Timezone         string // IANA zone name
	PushEnabled      bool
	RemindersEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (UserSleepProfile) TableName() string {
	return "user_sleep_profiles"
}

// PushSubscription is one registered Web Push endpoint for a user.
// A user with zero subscriptions is skipped by the dispatcher.
type PushSubscription struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"index:idx_push_subscriptions_user_endpoint,unique;not null"`
	Endpoint  string `gorm:"index:idx_push_subscriptions_user_endpoint,unique;not null"`
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
