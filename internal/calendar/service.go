package calendar

import (
	"context"
	"fmt"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/guided-app/weatherd/internal/schema"
)

// Result mirrors the executed action's tag: Event is populated for create
// and get, Events for find.
type Result struct {
	Action  string   `json:"action"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Event   *Event   `json:"event,omitempty"`
	Events  []*Event `json:"events,omitempty"`
}

// Service executes calendar actions against one authenticated account.
type Service struct {
	api API
}

// NewService wraps an authenticated calendar API.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Execute dispatches a validated action to the provider and wraps the
// outcome in an action-tagged result.
func (s *Service) Execute(ctx context.Context, action schema.CalendarAction) (*Result, error) {
	switch action.Action {
	case schema.ActionCreate:
		return s.createEvent(ctx, action.Event)
	case schema.ActionFind:
		return s.findEvents(ctx, action.Query)
	case schema.ActionGet:
		return s.getEvent(ctx, action.EventID)
	default:
		return nil, fmt.Errorf("unknown calendar action %q", action.Action)
	}
}

func (s *Service) createEvent(ctx context.Context, draft *schema.EventDraft) (*Result, error) {
	ev, err := s.api.Insert(ctx, draftToEvent(draft))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}
	return &Result{
		Action:  schema.ActionCreate,
		Success: true,
		Message: "Event created successfully",
		Event:   ev,
	}, nil
}

func (s *Service) findEvents(ctx context.Context, query *schema.FindQuery) (*Result, error) {
	events, err := s.api.List(ctx, *query)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar events: %w", err)
	}
	return &Result{
		Action:  schema.ActionFind,
		Success: true,
		Message: fmt.Sprintf("Found %d events", len(events)),
		Events:  events,
	}, nil
}

func (s *Service) getEvent(ctx context.Context, eventID string) (*Result, error) {
	ev, err := s.api.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}
	return &Result{
		Action:  schema.ActionGet,
		Success: true,
		Message: "Event retrieved successfully",
		Event:   ev,
	}, nil
}

func draftToEvent(d *schema.EventDraft) *Event {
	ev := &Event{
		Summary:     d.Summary,
		Description: d.Description,
		Location:    d.Location,
		Start:       &gcal.EventDateTime{DateTime: d.Start.DateTime, TimeZone: d.Start.TimeZone},
		End:         &gcal.EventDateTime{DateTime: d.End.DateTime, TimeZone: d.End.TimeZone},
	}
	for _, a := range d.Attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: a.Email})
	}
	if d.Reminders != nil {
		ev.Reminders = &gcal.EventReminders{
			UseDefault:      d.Reminders.UseDefault,
			ForceSendFields: []string{"UseDefault"},
		}
	}
	return ev
}
