package dispatch

import (
	"fmt"
	"time"
)

// Per-user outcome tags. Dispatched outcomes are formatted with channel
// counts via DispatchedStatus; user-level errors via ErrorStatus.
const (
	StatusSkippedNoSubscription = "skipped-no-subscription"
	StatusNotDueThisHour        = "not-due-this-hour"
	StatusAlreadySentToday      = "already-sent-today"
)

func DispatchedStatus(sent, failed int) string {
	return fmt.Sprintf("dispatched-%d-sent-%d-failed", sent, failed)
}

func ErrorStatus(detail string) string {
	return "error-" + detail
}

// ProcessedUser is one entry in the batch audit trail.
type ProcessedUser struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Response is the full result of one batch run, returned to the trigger.
type Response struct {
	Processed []ProcessedUser `json:"processed"`
	CheckedAt time.Time       `json:"checked_at"`
}
