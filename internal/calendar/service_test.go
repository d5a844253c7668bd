package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/guided-app/weatherd/internal/schema"
)

// mockAPI implements API for testing.
type mockAPI struct {
	inserted  *Event
	listQuery schema.FindQuery
	gotID     string

	insertResult *Event
	listResult   []*Event
	getResult    *Event
	err          error
}

func (m *mockAPI) Insert(ctx context.Context, ev *Event) (*Event, error) {
	m.inserted = ev
	return m.insertResult, m.err
}

func (m *mockAPI) List(ctx context.Context, q schema.FindQuery) ([]*Event, error) {
	m.listQuery = q
	return m.listResult, m.err
}

func (m *mockAPI) Get(ctx context.Context, eventID string) (*Event, error) {
	m.gotID = eventID
	return m.getResult, m.err
}

func TestExecute_Create(t *testing.T) {
	api := &mockAPI{insertResult: &Event{Id: "ev1", Summary: "Standup"}}
	action := schema.CalendarAction{
		Action: schema.ActionCreate,
		Event: &schema.EventDraft{
			Summary:   "Standup",
			Start:     schema.EventTime{DateTime: "2024-07-12T09:00:00Z", TimeZone: "UTC"},
			End:       schema.EventTime{DateTime: "2024-07-12T09:15:00Z", TimeZone: "UTC"},
			Attendees: []schema.Attendee{{Email: "a@example.com"}},
			Reminders: &schema.Reminders{UseDefault: true},
		},
	}
	res, err := NewService(api).Execute(context.Background(), action)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !res.Success || res.Action != schema.ActionCreate || res.Event == nil {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Message != "Event created successfully" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if api.inserted.Summary != "Standup" || api.inserted.Start.DateTime != "2024-07-12T09:00:00Z" {
		t.Errorf("draft not mapped to provider event: %+v", api.inserted)
	}
	if len(api.inserted.Attendees) != 1 || api.inserted.Attendees[0].Email != "a@example.com" {
		t.Errorf("attendees not mapped: %+v", api.inserted.Attendees)
	}
}

func TestExecute_Find(t *testing.T) {
	api := &mockAPI{listResult: []*Event{{Id: "a"}, {Id: "b"}}}
	action := schema.CalendarAction{
		Action: schema.ActionFind,
		Query:  &schema.FindQuery{TimeMin: "2024-07-12T00:00:00Z", MaxResults: 5, OrderBy: "startTime"},
	}
	res, err := NewService(api).Execute(context.Background(), action)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Message != "Found 2 events" || len(res.Events) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if api.listQuery.MaxResults != 5 {
		t.Errorf("query not forwarded: %+v", api.listQuery)
	}
}

func TestExecute_Get(t *testing.T) {
	api := &mockAPI{getResult: &Event{Id: "abc123"}}
	res, err := NewService(api).Execute(context.Background(), schema.CalendarAction{Action: schema.ActionGet, EventID: "abc123"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if api.gotID != "abc123" || res.Event.Id != "abc123" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Message != "Event retrieved successfully" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestExecute_ErrorsAreActionSpecific(t *testing.T) {
	api := &mockAPI{err: errors.New("boom")}
	svc := NewService(api)

	_, err := svc.Execute(context.Background(), schema.CalendarAction{
		Action: schema.ActionCreate,
		Event: &schema.EventDraft{
			Summary: "x",
			Start:   schema.EventTime{DateTime: "d", TimeZone: "UTC"},
			End:     schema.EventTime{DateTime: "d", TimeZone: "UTC"},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "failed to create calendar event") {
		t.Errorf("expected create error, got %v", err)
	}

	_, err = svc.Execute(context.Background(), schema.CalendarAction{Action: schema.ActionFind, Query: &schema.FindQuery{}})
	if err == nil || !strings.Contains(err.Error(), "failed to find calendar events") {
		t.Errorf("expected find error, got %v", err)
	}

	_, err = svc.Execute(context.Background(), schema.CalendarAction{Action: schema.ActionGet, EventID: "x"})
	if err == nil || !strings.Contains(err.Error(), "failed to get calendar event") {
		t.Errorf("expected get error, got %v", err)
	}

	if _, err = svc.Execute(context.Background(), schema.CalendarAction{Action: "bogus"}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestEventStart(t *testing.T) {
	ev := &Event{Start: &gcal.EventDateTime{DateTime: "2024-07-12T09:00:00Z"}}
	got, err := EventStart(ev)
	if err != nil || got.Hour() != 9 {
		t.Errorf("EventStart = %v, %v", got, err)
	}

	allDay := &Event{Start: &gcal.EventDateTime{Date: "2024-07-12"}}
	if _, err := EventStart(allDay); err != nil {
		t.Errorf("expected all-day events to parse, got %v", err)
	}

	if _, err := EventStart(&Event{Id: "x"}); err == nil {
		t.Error("expected error for event without start")
	}
}

func TestEventDurationMinutes(t *testing.T) {
	ev := &Event{
		Start: &gcal.EventDateTime{DateTime: "2024-07-12T09:00:00Z"},
		End:   &gcal.EventDateTime{DateTime: "2024-07-12T09:45:00Z"},
	}
	if got := EventDurationMinutes(ev); got != 45 {
		t.Errorf("EventDurationMinutes = %d, want 45", got)
	}
	if got := EventDurationMinutes(&Event{}); got != 60 {
		t.Errorf("default duration = %d, want 60", got)
	}
}
