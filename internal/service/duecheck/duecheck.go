package duecheck

import (
	"time"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
)

// IsDueThisHour reports whether the reminder instant falls inside the
// current evaluation window [floor(now to hour), +1h). Correctness depends
// on the trigger firing once per calendar hour with no gaps; a missed run
// means the reminder silently does not fire that day.
func IsDueThisHour(reminder, now time.Time) bool {
	windowStart := now.Truncate(time.Hour)
	windowEnd := windowStart.Add(time.Hour)
	return !reminder.Before(windowStart) && reminder.Before(windowEnd)
}

// WakeTimeFor selects the weekday or weekend wake time by the day of week
// as observed in the user's timezone, not the server's.
func WakeTimeFor(profile *domain.UserSleepProfile, localNow time.Time) (domain.TimeOfDay, error) {
	raw := profile.WeekdayWakeTime
	if wd := localNow.Weekday(); wd == time.Saturday || wd == time.Sunday {
		raw = profile.WeekendWakeTime
	}
	return domain.ParseTimeOfDay(raw)
}
