package pushgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const dispatchTimeout = 30 * time.Second

// Client calls the internal send endpoint over HTTP. The request is bounded
// by the client timeout; a timeout or non-2xx response is reported as an
// error so the caller can treat the attempt as all-channels-failed.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: dispatchTimeout,
		},
	}
}

func (c *Client) Dispatch(ctx context.Context, dispatchReq *DispatchRequest) (*DispatchResult, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	u.Path = "/api/v1/reminders/send"

	payload, err := json.Marshal(dispatchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "failed to call send endpoint",
			slog.String("reminder_id", dispatchReq.ReminderID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.ErrorContext(ctx, "unexpected status code from send endpoint",
			slog.String("reminder_id", dispatchReq.ReminderID),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result DispatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	slog.DebugContext(ctx, "reminder dispatched via send endpoint",
		slog.String("reminder_id", dispatchReq.ReminderID),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)

	return &result, nil
}
