package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
)

// Store is the gorm-backed durable store for profiles, reminders,
// notification records, and push subscriptions.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.UserSleepProfile{},
		&domain.PushSubscription{},
		&domain.ReminderInstance{},
		&domain.NotificationRecord{},
	)
}

func (s *Store) ListEnabledProfiles(ctx context.Context) ([]domain.UserSleepProfile, error) {
	var profiles []domain.UserSleepProfile
	err := s.db.WithContext(ctx).
		Where("reminders_enabled = ?", true).
		Order("user_id").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.UserSleepProfile, error) {
	var profile domain.UserSleepProfile
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile *domain.UserSleepProfile) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"weekday_wake_time",
				"weekend_wake_time",
				"sleep_hours",
				"wind_down_buffer",
				"timezone",
				"push_enabled",
				"reminders_enabled",
				"updated_at",
			}),
		}).
		Create(profile).Error
}

func (s *Store) CreateReminder(ctx context.Context, reminder *domain.ReminderInstance) error {
	return s.db.WithContext(ctx).
		Omit("Notifications").
		Create(reminder).Error
}

func (s *Store) MarkSent(ctx context.Context, reminderID string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&domain.ReminderInstance{}).
		Where("id = ?", reminderID).
		Update("sent_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (s *Store) HasSentReminderInRange(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.ReminderInstance{}).
		Where("user_id = ? AND scheduled_for >= ? AND scheduled_for < ? AND sent_at IS NOT NULL",
			userID, start, end).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListReminders(ctx context.Context, userID string, limit int) ([]domain.ReminderInstance, error) {
	var reminders []domain.ReminderInstance
	err := s.db.WithContext(ctx).
		Preload("Notifications").
		Where("user_id = ?", userID).
		Order("scheduled_for DESC").
		Limit(limit).
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *Store) CreateNotificationRecord(ctx context.Context, record *domain.NotificationRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *Store) ListSubscriptions(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *Store) CountSubscriptions(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.PushSubscription{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
