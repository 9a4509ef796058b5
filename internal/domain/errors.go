package domain

import "errors"

var (
	ErrProfileNotFound  = errors.New("sleep profile not found")
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")
	ErrUnknownTimezone  = errors.New("unknown timezone")
)
