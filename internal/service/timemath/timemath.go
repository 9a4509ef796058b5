package timemath

import (
	"fmt"
	"math"
	"time"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
)

// ReminderTimeOfDay computes the wall-clock time at which the wind-down
// reminder fires: the wake time minus the sleep goal minus the wind-down
// buffer. The result wraps backward across midnight, so a reminder can land
// on the previous calendar day relative to the wake date.
func ReminderTimeOfDay(wake domain.TimeOfDay, sleepHours float64, windDownBuffer int) domain.TimeOfDay {
	offset := int(math.Round(sleepHours*60)) + windDownBuffer
	minutes := ((wake.Minutes()-offset)%domain.MinutesPerDay + domain.MinutesPerDay) % domain.MinutesPerDay
	return domain.TimeOfDayFromMinutes(minutes)
}

// Bedtime is the wake time minus the sleep goal, without the buffer.
// Display only, never used in scheduling decisions.
func Bedtime(wake domain.TimeOfDay, sleepHours float64) domain.TimeOfDay {
	minutes := ((wake.Minutes()-int(math.Round(sleepHours*60)))%domain.MinutesPerDay + domain.MinutesPerDay) % domain.MinutesPerDay
	return domain.TimeOfDayFromMinutes(minutes)
}

// LocalInstant resolves tod on the calendar date that ref falls on in loc,
// using the zone's UTC offset as of that date. Local times skipped or
// repeated by a DST transition resolve to whatever instant time.Date picks
// for the zone; that is the documented policy, no special casing.
func LocalInstant(ref time.Time, tod domain.TimeOfDay, loc *time.Location) time.Time {
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), tod.Hour, tod.Minute, 0, 0, loc)
}

// LocalDayStart returns midnight of ref's calendar date in loc.
func LocalDayStart(ref time.Time, loc *time.Location) time.Time {
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// LocalDayKey formats ref's calendar date in loc, used as the dedupe
// marker key component.
func LocalDayKey(ref time.Time, loc *time.Location) string {
	return ref.In(loc).Format("2006-01-02")
}

// Clock12 renders a time of day in 12-hour form, e.g. "10:00 PM".
func Clock12(t domain.TimeOfDay) string {
	period := "AM"
	if t.Hour >= 12 {
		period = "PM"
	}
	hour := t.Hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, period)
}
