package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := UserProfile{
		SessionID:            "sess-1",
		SMSPhoneNumber:       "+33612345678",
		Timezone:             "Europe/Paris",
		NotificationsEnabled: true,
		AdvanceNoticeMinutes: 60,
	}
	if err := s.Users.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	got, err := s.Users.GetUser(ctx, "sess-1")
	if err != nil || got == nil {
		t.Fatalf("GetUser = %v, %v", got, err)
	}
	if got.SMSPhoneNumber != "+33612345678" || got.CreatedAt.IsZero() {
		t.Errorf("unexpected user %+v", got)
	}

	created := got.CreatedAt
	u.DefaultLocation = "Paris"
	if err := s.Users.UpsertUser(ctx, u); err != nil {
		t.Fatalf("UpsertUser update: %v", err)
	}
	got, _ = s.Users.GetUser(ctx, "sess-1")
	if got.DefaultLocation != "Paris" || !got.CreatedAt.Equal(created) {
		t.Errorf("update must keep CreatedAt: %+v", got)
	}

	if err := s.Users.DeleteUser(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if got, _ := s.Users.GetUser(ctx, "sess-1"); got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestMemoryStore_ListNotifiableUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Users.UpsertUser(ctx, UserProfile{SessionID: "a", SMSPhoneNumber: "+33612345678", NotificationsEnabled: true})
	s.Users.UpsertUser(ctx, UserProfile{SessionID: "b", SMSPhoneNumber: "+33612345679", NotificationsEnabled: false})
	s.Users.UpsertUser(ctx, UserProfile{SessionID: "c", SMSPhoneNumber: "", NotificationsEnabled: true})

	users, err := s.Users.ListNotifiableUsers(ctx)
	if err != nil {
		t.Fatalf("ListNotifiableUsers: %v", err)
	}
	if len(users) != 1 || users[0].SessionID != "a" {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	// Meeting in 45 minutes: inside the send window.
	meetingIn45 := now.Add(45 * time.Minute)
	rec, _ := s.Notifications.Get(ctx, "sess", "ev1")
	if !ShouldSend(rec, meetingIn45, now) {
		t.Fatal("expected send for meeting 45 minutes out")
	}
	if err := s.Notifications.Record(ctx, NotificationRecord{SessionID: "sess", EventID: "ev1", ScheduledFor: meetingIn45}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Notifications.MarkSent(ctx, "sess", "ev1", now); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	// Second scan: record exists with sentAt, must not send again.
	rec, _ = s.Notifications.Get(ctx, "sess", "ev1")
	if rec == nil || rec.SentAt == nil {
		t.Fatalf("expected sent record, got %+v", rec)
	}
	if ShouldSend(rec, meetingIn45, now) {
		t.Error("already-sent notification must be suppressed")
	}

	// Meeting 90 minutes out: record it, but outside the window.
	meetingIn90 := now.Add(90 * time.Minute)
	if err := s.Notifications.Record(ctx, NotificationRecord{SessionID: "sess", EventID: "ev2", ScheduledFor: meetingIn90}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	rec, _ = s.Notifications.Get(ctx, "sess", "ev2")
	if rec == nil {
		t.Fatal("expected record for meeting outside window")
	}
	if ShouldSend(rec, meetingIn90, now) {
		t.Error("meeting 90 minutes out must not trigger a send")
	}
	// Later scan, same record, now 50 minutes out: eligible.
	if !ShouldSend(rec, meetingIn90, now.Add(40*time.Minute)) {
		t.Error("unsent record inside window must trigger a send")
	}

	// Meeting already started: never send.
	if ShouldSend(nil, now.Add(-5*time.Minute), now) {
		t.Error("past meeting must not trigger a send")
	}
}

func TestRecord_DoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	s.Notifications.Record(ctx, NotificationRecord{SessionID: "sess", EventID: "ev", ScheduledFor: now})
	s.Notifications.MarkSent(ctx, "sess", "ev", now)
	// A re-scan records the same meeting again; sentAt must survive.
	s.Notifications.Record(ctx, NotificationRecord{SessionID: "sess", EventID: "ev", ScheduledFor: now})

	rec, _ := s.Notifications.Get(ctx, "sess", "ev")
	if rec == nil || rec.SentAt == nil {
		t.Errorf("re-record wiped sentAt: %+v", rec)
	}
}

func TestMarkSent_MissingRecord(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Notifications.MarkSent(context.Background(), "sess", "nope", time.Now()); err == nil {
		t.Error("expected error for missing record")
	}
}

func TestDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	s.Notifications.Record(ctx, NotificationRecord{SessionID: "s", EventID: "old", ScheduledFor: now, CreatedAt: now.Add(-25 * time.Hour)})
	s.Notifications.Record(ctx, NotificationRecord{SessionID: "s", EventID: "new", ScheduledFor: now, CreatedAt: now.Add(-1 * time.Hour)})

	deleted, err := s.Notifications.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if rec, _ := s.Notifications.Get(ctx, "s", "old"); rec != nil {
		t.Error("old record not deleted")
	}
	if rec, _ := s.Notifications.Get(ctx, "s", "new"); rec == nil {
		t.Error("recent record wrongly deleted")
	}
}

func TestMemoryStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if tok, err := s.Tokens.GetToken(ctx, "sess"); err != nil || tok != nil {
		t.Fatalf("expected nil, nil for missing token, got %v, %v", tok, err)
	}
	if err := s.Tokens.SaveToken(ctx, TokenRecord{SessionID: "sess", Ciphertext: "aabb:ccdd"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	tok, err := s.Tokens.GetToken(ctx, "sess")
	if err != nil || tok == nil || tok.Ciphertext != "aabb:ccdd" {
		t.Fatalf("GetToken = %+v, %v", tok, err)
	}
	if err := s.Tokens.DeleteToken(ctx, "sess"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if tok, _ := s.Tokens.GetToken(ctx, "sess"); tok != nil {
		t.Errorf("expected nil after delete, got %+v", tok)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	if _, err := New("oracle", "dsn"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
