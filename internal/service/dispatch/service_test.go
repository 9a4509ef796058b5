package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/circadian-app/reminder-scheduler/internal/domain"
	"github.com/circadian-app/reminder-scheduler/internal/infra/pushgateway"
	"github.com/circadian-app/reminder-scheduler/internal/service/dedupe"
)

type fakeProfileRepo struct {
	domain.ProfileRepository

	profiles []domain.UserSleepProfile
	listErr  error
}

func (f *fakeProfileRepo) ListEnabledProfiles(_ context.Context) ([]domain.UserSleepProfile, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.profiles, nil
}

type fakeSubscriptionRepo struct {
	domain.SubscriptionRepository

	counts map[string]int64
}

func (f *fakeSubscriptionRepo) CountSubscriptions(_ context.Context, userID string) (int64, error) {
	return f.counts[userID], nil
}

type fakeReminderRepo struct {
	domain.ReminderRepository

	created   []*domain.ReminderInstance
	createErr error
	sentIDs   []string
	sentRange bool
}

func (f *fakeReminderRepo) CreateReminder(_ context.Context, reminder *domain.ReminderInstance) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, reminder)
	return nil
}

func (f *fakeReminderRepo) MarkSent(_ context.Context, reminderID string, _ time.Time) error {
	f.sentIDs = append(f.sentIDs, reminderID)
	return nil
}

func (f *fakeReminderRepo) HasSentReminderInRange(_ context.Context, _ string, _, _ time.Time) (bool, error) {
	return f.sentRange, nil
}

type fakeGateway struct {
	result   *pushgateway.DispatchResult
	err      error
	requests []*pushgateway.DispatchRequest
}

func (f *fakeGateway) Dispatch(_ context.Context, req *pushgateway.DispatchRequest) (*pushgateway.DispatchResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testProfile(userID string) domain.UserSleepProfile {
	return domain.UserSleepProfile{
		ID:               "profile-" + userID,
		UserID:           userID,
		WeekdayWakeTime:  "06:30",
		WeekendWakeTime:  "08:00",
		SleepHours:       8,
		WindDownBuffer:   30,
		Timezone:         "UTC",
		PushEnabled:      true,
		RemindersEnabled: true,
	}
}

// dueNow returns an instant inside the hour window of the profile's
// reminder time (06:30 wake, 8h, 30min buffer puts it at 22:00 UTC).
func dueNow() time.Time {
	return time.Date(2024, 6, 3, 22, 15, 0, 0, time.UTC)
}

func newTestService(
	profiles *fakeProfileRepo,
	subscriptions *fakeSubscriptionRepo,
	reminders *fakeReminderRepo,
	gateway *fakeGateway,
) *Service {
	guard := dedupe.NewGuard(reminders, nil)
	return NewService(profiles, subscriptions, reminders, guard, gateway, nil, "America/Chicago")
}

func TestRun_SkipsUserWithoutSubscriptions(t *testing.T) {
	reminders := &fakeReminderRepo{}
	gateway := &fakeGateway{result: &pushgateway.DispatchResult{Sent: 1}}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{testProfile("user-1")}},
		&fakeSubscriptionRepo{counts: map[string]int64{}},
		reminders,
		gateway,
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Processed) != 1 {
		t.Fatalf("got %d processed users, want 1", len(resp.Processed))
	}
	if resp.Processed[0].Status != StatusSkippedNoSubscription {
		t.Errorf("got status %q, want %q", resp.Processed[0].Status, StatusSkippedNoSubscription)
	}
	if len(reminders.created) != 0 {
		t.Error("no reminder instance should exist for a skipped user")
	}
	if len(gateway.requests) != 0 {
		t.Error("gateway must not be called for a skipped user")
	}
}

func TestRun_NotDueThisHour(t *testing.T) {
	reminders := &fakeReminderRepo{}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{testProfile("user-1")}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-1": 1}},
		reminders,
		&fakeGateway{result: &pushgateway.DispatchResult{Sent: 1}},
	)

	// Reminder fires at 22:00 UTC; 10:15 is hours away.
	now := time.Date(2024, 6, 3, 10, 15, 0, 0, time.UTC)

	resp, err := svc.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Processed[0].Status != StatusNotDueThisHour {
		t.Errorf("got status %q, want %q", resp.Processed[0].Status, StatusNotDueThisHour)
	}
	if len(reminders.created) != 0 {
		t.Error("no reminder instance should exist when not due")
	}
}

func TestRun_AlreadySentToday(t *testing.T) {
	reminders := &fakeReminderRepo{sentRange: true}
	gateway := &fakeGateway{result: &pushgateway.DispatchResult{Sent: 1}}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{testProfile("user-1")}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-1": 1}},
		reminders,
		gateway,
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Processed[0].Status != StatusAlreadySentToday {
		t.Errorf("got status %q, want %q", resp.Processed[0].Status, StatusAlreadySentToday)
	}
	if len(reminders.created) != 0 {
		t.Error("rerun must not create a second instance for the day")
	}
	if len(gateway.requests) != 0 {
		t.Error("gateway must not be called for a deduped user")
	}
}

func TestRun_DispatchesAndMarksSent(t *testing.T) {
	reminders := &fakeReminderRepo{}
	gateway := &fakeGateway{result: &pushgateway.DispatchResult{Sent: 1, Failed: 1}}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{testProfile("user-1")}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-1": 2}},
		reminders,
		gateway,
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Processed[0].Status != "dispatched-1-sent-1-failed" {
		t.Errorf("got status %q, want %q", resp.Processed[0].Status, "dispatched-1-sent-1-failed")
	}
	if len(reminders.created) != 1 {
		t.Fatalf("got %d created reminders, want 1", len(reminders.created))
	}

	created := reminders.created[0]
	wantScheduled := time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC)
	if !created.ScheduledFor.Equal(wantScheduled) {
		t.Errorf("scheduled for %s, want %s", created.ScheduledFor, wantScheduled)
	}

	if len(reminders.sentIDs) != 1 || reminders.sentIDs[0] != created.ID {
		t.Errorf("marked sent IDs %v, want [%s]", reminders.sentIDs, created.ID)
	}

	if len(gateway.requests) != 1 {
		t.Fatalf("got %d gateway calls, want 1", len(gateway.requests))
	}
	req := gateway.requests[0]
	if req.Title != PushTitle {
		t.Errorf("got title %q, want %q", req.Title, PushTitle)
	}
	if req.ReminderID != created.ID {
		t.Errorf("got reminder id %q, want %q", req.ReminderID, created.ID)
	}
	if req.Body != created.Message {
		t.Errorf("gateway body %q differs from stored message %q", req.Body, created.Message)
	}
}

func TestRun_GatewayErrorStillMarksSent(t *testing.T) {
	reminders := &fakeReminderRepo{}
	gateway := &fakeGateway{err: errors.New("connection refused")}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{testProfile("user-1")}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-1": 1}},
		reminders,
		gateway,
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Processed[0].Status != "dispatched-0-sent-1-failed" {
		t.Errorf("got status %q, want %q", resp.Processed[0].Status, "dispatched-0-sent-1-failed")
	}
	if len(reminders.sentIDs) != 1 {
		t.Error("reminder must be marked sent even when every channel fails")
	}
}

func TestRun_EnumerationErrorAbortsBatch(t *testing.T) {
	svc := newTestService(
		&fakeProfileRepo{listErr: errors.New("connection refused")},
		&fakeSubscriptionRepo{},
		&fakeReminderRepo{},
		&fakeGateway{},
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err == nil {
		t.Fatal("expected error when enumeration fails")
	}
	if resp != nil {
		t.Error("expected nil response on enumeration failure")
	}
}

func TestRun_UserFailureDoesNotAbortBatch(t *testing.T) {
	bad := testProfile("user-bad")
	bad.Timezone = "Mars/Olympus_Mons"
	good := testProfile("user-good")

	reminders := &fakeReminderRepo{}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{bad, good}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-bad": 1, "user-good": 1}},
		reminders,
		&fakeGateway{result: &pushgateway.DispatchResult{Sent: 1}},
	)

	resp, err := svc.Run(context.Background(), dueNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Processed) != 2 {
		t.Fatalf("got %d processed users, want 2", len(resp.Processed))
	}
	if !strings.HasPrefix(resp.Processed[0].Status, "error-") {
		t.Errorf("got status %q, want error- prefix", resp.Processed[0].Status)
	}
	if !strings.Contains(resp.Processed[0].Status, "unknown timezone") {
		t.Errorf("got status %q, want timezone detail", resp.Processed[0].Status)
	}
	if resp.Processed[1].Status != "dispatched-1-sent-0-failed" {
		t.Errorf("got status %q, want %q", resp.Processed[1].Status, "dispatched-1-sent-0-failed")
	}
}

func TestRun_EmptyTimezoneFallsBackToDefault(t *testing.T) {
	profile := testProfile("user-1")
	profile.Timezone = ""

	reminders := &fakeReminderRepo{}
	svc := newTestService(
		&fakeProfileRepo{profiles: []domain.UserSleepProfile{profile}},
		&fakeSubscriptionRepo{counts: map[string]int64{"user-1": 1}},
		reminders,
		&fakeGateway{result: &pushgateway.DispatchResult{Sent: 1}},
	)

	// 22:00 America/Chicago in June is 03:00 UTC the next day.
	now := time.Date(2024, 6, 4, 3, 10, 0, 0, time.UTC)

	resp, err := svc.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Processed[0].Status != "dispatched-1-sent-0-failed" {
		t.Errorf("got status %q, want dispatched with default timezone", resp.Processed[0].Status)
	}
}

func TestRun_ResponseCheckedAtIsUTC(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	svc := newTestService(&fakeProfileRepo{}, &fakeSubscriptionRepo{}, &fakeReminderRepo{}, &fakeGateway{})

	now := time.Date(2024, 6, 3, 17, 15, 0, 0, chicago)
	resp, err := svc.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.CheckedAt.Location() != time.UTC {
		t.Errorf("checked_at location %s, want UTC", resp.CheckedAt.Location())
	}
	if !resp.CheckedAt.Equal(now) {
		t.Errorf("checked_at %s, want %s", resp.CheckedAt, now)
	}
}

func TestRenderMessage(t *testing.T) {
	profile := testProfile("user-1")
	wake := domain.TimeOfDay{Hour: 6, Minute: 30}

	got := RenderMessage(&profile, wake)

	want := "Bedtime in 30 min (10:30 PM). Wake up: 6:30 AM. Sleep goal: 8h."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderMessage_FractionalSleepGoal(t *testing.T) {
	profile := testProfile("user-1")
	profile.SleepHours = 7.5
	wake := domain.TimeOfDay{Hour: 6, Minute: 30}

	got := RenderMessage(&profile, wake)

	want := "Bedtime in 30 min (11:00 PM). Wake up: 6:30 AM. Sleep goal: 7.5h."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
