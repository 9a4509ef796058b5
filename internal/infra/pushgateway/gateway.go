package pushgateway

import "context"

// DispatchRequest asks the send endpoint to fan one reminder out to every
// push channel registered for the user.
type DispatchRequest struct {
	ReminderID string `json:"reminder_id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// DispatchResult carries per-channel success/failure counts.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Gateway interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error)
}
