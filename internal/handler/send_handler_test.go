package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/infra/webpush"
)

type fakeReminderRepo struct {
	domain.ReminderRepository

	mu      sync.Mutex
	records []*domain.NotificationRecord
	sentIDs []string
	history []domain.ReminderInstance

	markSentErr error
	recordErr   error
}

func (f *fakeReminderRepo) CreateNotificationRecord(_ context.Context, record *domain.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeReminderRepo) MarkSent(_ context.Context, reminderID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markSentErr != nil {
		return f.markSentErr
	}
	f.sentIDs = append(f.sentIDs, reminderID)
	return nil
}

type fakeSubscriptionRepo struct {
	domain.SubscriptionRepository

	subs    []domain.PushSubscription
	listErr error
}

func (f *fakeSubscriptionRepo) ListSubscriptions(_ context.Context, _ string) ([]domain.PushSubscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

type fakeSender struct {
	mu       sync.Mutex
	failFor  map[string]error
	payloads []webpush.Payload
}

func (f *fakeSender) Send(_ context.Context, sub domain.PushSubscription, payload webpush.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.failFor[sub.Endpoint]
}

func performSend(t *testing.T, h *SendHandler, body any) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/reminders/send", h.HandleSend)

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reminders/send", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func sendBody() map[string]any {
	return map[string]any{
		"reminder_id": "reminder-1",
		"user_id":     "user-1",
		"title":       "Circadian",
		"body":        "Bedtime in 30 min (10:00 PM). Wake up: 6:30 AM. Sleep goal: 8h.",
	}
}

func TestHandleSend_MixedChannelOutcomes(t *testing.T) {
	reminders := &fakeReminderRepo{}
	subs := &fakeSubscriptionRepo{
		subs: []domain.PushSubscription{
			{ID: "sub-1", UserID: "user-1", Endpoint: "https://push.example.com/ok"},
			{ID: "sub-2", UserID: "user-1", Endpoint: "https://push.example.com/gone"},
		},
	}
	sender := &fakeSender{
		failFor: map[string]error{
			"https://push.example.com/gone": errors.New("410 subscription expired"),
		},
	}
	h := NewSendHandler(reminders, subs, sender)

	w := performSend(t, h, sendBody())

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Sent   int `json:"sent"`
		Failed int `json:"failed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Sent != 1 || resp.Failed != 1 {
		t.Errorf("got sent=%d failed=%d, want 1/1", resp.Sent, resp.Failed)
	}

	if len(reminders.records) != 2 {
		t.Fatalf("got %d notification records, want 2", len(reminders.records))
	}
	statuses := map[domain.NotificationStatus]int{}
	for _, rec := range reminders.records {
		statuses[rec.Status]++
		if rec.ReminderID != "reminder-1" {
			t.Errorf("record bound to reminder %q, want reminder-1", rec.ReminderID)
		}
		if rec.Type != "push" {
			t.Errorf("record type %q, want push", rec.Type)
		}
	}
	if statuses[domain.NotificationSent] != 1 || statuses[domain.NotificationFailed] != 1 {
		t.Errorf("record statuses %v, want one sent and one failed", statuses)
	}

	if len(reminders.sentIDs) != 1 || reminders.sentIDs[0] != "reminder-1" {
		t.Errorf("marked sent %v, want [reminder-1]", reminders.sentIDs)
	}
}

func TestHandleSend_AllChannelsFailStillMarksSent(t *testing.T) {
	reminders := &fakeReminderRepo{}
	subs := &fakeSubscriptionRepo{
		subs: []domain.PushSubscription{
			{ID: "sub-1", UserID: "user-1", Endpoint: "https://push.example.com/gone"},
		},
	}
	sender := &fakeSender{
		failFor: map[string]error{
			"https://push.example.com/gone": errors.New("410 subscription expired"),
		},
	}
	h := NewSendHandler(reminders, subs, sender)

	w := performSend(t, h, sendBody())

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if len(reminders.sentIDs) != 1 {
		t.Error("reminder must be marked sent even when every channel fails")
	}

	if len(reminders.records) != 1 {
		t.Fatalf("got %d records, want 1", len(reminders.records))
	}
	rec := reminders.records[0]
	if rec.Status != domain.NotificationFailed {
		t.Errorf("got status %q, want failed", rec.Status)
	}
	if rec.ErrorMessage == "" {
		t.Error("failed record must carry the channel error")
	}
	if rec.SentAt != nil {
		t.Error("failed record must not carry a sent timestamp")
	}
}

func TestHandleSend_RecordWriteFailureDoesNotFailRequest(t *testing.T) {
	reminders := &fakeReminderRepo{recordErr: errors.New("connection refused")}
	subs := &fakeSubscriptionRepo{
		subs: []domain.PushSubscription{
			{ID: "sub-1", UserID: "user-1", Endpoint: "https://push.example.com/ok"},
		},
	}
	h := NewSendHandler(reminders, subs, &fakeSender{})

	w := performSend(t, h, sendBody())

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200 despite audit write failure", w.Code)
	}
}

func TestHandleSend_MarkSentFailureIsAnError(t *testing.T) {
	reminders := &fakeReminderRepo{markSentErr: errors.New("connection refused")}
	subs := &fakeSubscriptionRepo{
		subs: []domain.PushSubscription{
			{ID: "sub-1", UserID: "user-1", Endpoint: "https://push.example.com/ok"},
		},
	}
	h := NewSendHandler(reminders, subs, &fakeSender{})

	w := performSend(t, h, sendBody())

	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500 when mark-sent fails", w.Code)
	}
}

func TestHandleSend_MissingFields(t *testing.T) {
	h := NewSendHandler(&fakeReminderRepo{}, &fakeSubscriptionRepo{}, &fakeSender{})

	w := performSend(t, h, map[string]any{"reminder_id": "reminder-1"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}

func TestHandleSend_ListSubscriptionsError(t *testing.T) {
	subs := &fakeSubscriptionRepo{listErr: errors.New("connection refused")}
	h := NewSendHandler(&fakeReminderRepo{}, subs, &fakeSender{})

	w := performSend(t, h, sendBody())

	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", w.Code)
	}
}

func TestHandleSend_PayloadCarriesRequestContent(t *testing.T) {
	subs := &fakeSubscriptionRepo{
		subs: []domain.PushSubscription{
			{ID: "sub-1", UserID: "user-1", Endpoint: "https://push.example.com/ok"},
		},
	}
	sender := &fakeSender{}
	h := NewSendHandler(&fakeReminderRepo{}, subs, sender)

	body := sendBody()
	performSend(t, h, body)

	if len(sender.payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(sender.payloads))
	}
	payload := sender.payloads[0]
	if payload.Title != body["title"] || payload.Body != body["body"] {
		t.Errorf("payload %+v does not carry request title/body", payload)
	}
	if payload.Tag != "wind-down-reminder" {
		t.Errorf("payload tag %q, want wind-down-reminder", payload.Tag)
	}
}
