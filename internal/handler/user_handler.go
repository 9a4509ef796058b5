package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/service/duecheck"
	"github.com/circadian-app/reminder-scheduler/internal/service/timemath"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	minSleepHours = 4
	maxSleepHours = 12
	maxWindDown   = 120
)

var wakeTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// UserHandler serves the profile settings and reminder history endpoints.
type UserHandler struct {
	profiles        domain.ProfileRepository
	reminders       domain.ReminderRepository
	defaultTimezone string
}

func NewUserHandler(profiles domain.ProfileRepository, reminders domain.ReminderRepository, defaultTimezone string) *UserHandler {
	return &UserHandler{
		profiles:        profiles,
		reminders:       reminders,
		defaultTimezone: defaultTimezone,
	}
}

type settingsRequest struct {
	WeekdayWakeTime  string  `json:"weekday_wake_time" binding:"required"`
	WeekendWakeTime  string  `json:"weekend_wake_time" binding:"required"`
	SleepHours       float64 `json:"sleep_hours" binding:"required"`
	WindDownBuffer   int     `json:"wind_down_buffer"`
	Timezone         string  `json:"timezone" binding:"required"`
	PushEnabled      bool    `json:"push_enabled"`
	RemindersEnabled bool    `json:"reminders_enabled"`
}

func (r *settingsRequest) validate() error {
	if !wakeTimePattern.MatchString(r.WeekdayWakeTime) || !wakeTimePattern.MatchString(r.WeekendWakeTime) {
		return errors.New("wake times must be HH:MM")
	}
	if r.SleepHours < minSleepHours || r.SleepHours > maxSleepHours {
		return errors.New("sleep_hours must be between 4 and 12")
	}
	if r.WindDownBuffer < 0 || r.WindDownBuffer > maxWindDown {
		return errors.New("wind_down_buffer must be between 0 and 120")
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return domain.ErrUnknownTimezone
	}
	return nil
}

func (h *UserHandler) HandleUpdateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings", "detail": err.Error()})
		return
	}

	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings", "detail": err.Error()})
		return
	}

	now := time.Now().UTC()
	profile := &domain.UserSleepProfile{
		ID:               uuid.NewString(),
		UserID:           userID,
		WeekdayWakeTime:  req.WeekdayWakeTime,
		WeekendWakeTime:  req.WeekendWakeTime,
		SleepHours:       req.SleepHours,
		WindDownBuffer:   req.WindDownBuffer,
		Timezone:         req.Timezone,
		PushEnabled:      req.PushEnabled,
		RemindersEnabled: req.RemindersEnabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.profiles.UpsertProfile(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "failed to upsert sleep profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UserHandler) HandleListReminders(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	reminders, err := h.reminders.ListReminders(ctx, userID, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reminder history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// HandleUpcoming reports the next reminder time as a display string in the
// user's timezone, or null when reminders are disabled or no profile exists.
// It uses the same minute math as the scheduler so the dashboard always
// matches what the batch will do.
func (h *UserHandler) HandleUpcoming(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userID")

	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.JSON(http.StatusOK, gin.H{"upcoming": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	if !profile.RemindersEnabled {
		c.JSON(http.StatusOK, gin.H{"upcoming": nil})
		return
	}

	tzName := profile.Timezone
	if tzName == "" {
		tzName = h.defaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.ErrUnknownTimezone.Error()})
		return
	}

	localNow := time.Now().In(loc)
	wake, err := duecheck.WakeTimeFor(profile, localNow)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	reminderTod := timemath.ReminderTimeOfDay(wake, profile.SleepHours, profile.WindDownBuffer)
	c.JSON(http.StatusOK, gin.H{"upcoming": timemath.Clock12(reminderTod)})
}
