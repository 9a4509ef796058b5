package dispatch

import (
	"fmt"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/service/timemath"
)

// RenderMessage builds the notification body from profile fields. The text
// is deterministic so the same profile always produces the same message.
func RenderMessage(profile *domain.UserSleepProfile, wake domain.TimeOfDay) string {
	bedtime := timemath.Bedtime(wake, profile.SleepHours)

	return fmt.Sprintf("Bedtime in %d min (%s). Wake up: %s. Sleep goal: %gh.",
		profile.WindDownBuffer,
		timemath.Clock12(bedtime),
		timemath.Clock12(wake),
		profile.SleepHours,
	)
}
