package schema

import (
	"encoding/json"
	"strings"
)

// Calendar action discriminator values.
const (
	ActionCreate = "create"
	ActionFind   = "find"
	ActionGet    = "get"
)

// CalendarAction is a validated calendar operation. Exactly one payload
// field is populated, selected by Action.
type CalendarAction struct {
	Action  string      `json:"action"`
	Event   *EventDraft `json:"event,omitempty"`
	Query   *FindQuery  `json:"query,omitempty"`
	EventID string      `json:"eventId,omitempty"`
}

// EventTime is a point in time with an explicit zone.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Attendee identifies an invitee by email.
type Attendee struct {
	Email string `json:"email"`
}

// Reminders controls whether the calendar's default reminders apply.
type Reminders struct {
	UseDefault bool `json:"useDefault"`
}

// EventDraft describes an event to create.
type EventDraft struct {
	Summary     string     `json:"summary"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Reminders   *Reminders `json:"reminders,omitempty"`
}

// FindQuery describes an event search. MaxResults defaults to 10 and
// OrderBy to "startTime".
type FindQuery struct {
	TimeMin    string `json:"timeMin,omitempty"`
	TimeMax    string `json:"timeMax,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
	MaxResults int64  `json:"maxResults,omitempty"`
	OrderBy    string `json:"orderBy,omitempty"`
}

// ParseCalendarAction validates raw JSON against the calendar-action union,
// dispatching on the "action" tag.
func ParseCalendarAction(data []byte) (CalendarAction, error) {
	var tag struct {
		Action *string `json:"action"`
	}
	var a CalendarAction
	if err := json.Unmarshal(data, &tag); err != nil {
		return a, decodeErr(err)
	}
	if tag.Action == nil {
		return a, fieldErrf("action", `expected one of "create", "find", "get", got nothing`)
	}
	switch *tag.Action {
	case ActionCreate:
		return parseCreateAction(data)
	case ActionFind:
		return parseFindAction(data)
	case ActionGet:
		return parseGetAction(data)
	default:
		return a, fieldErrf("action", `expected one of "create", "find", "get", got %q`, *tag.Action)
	}
}

func parseCreateAction(data []byte) (CalendarAction, error) {
	var wire struct {
		Event *struct {
			Summary     *string    `json:"summary"`
			Start       *EventTime `json:"start"`
			End         *EventTime `json:"end"`
			Description string     `json:"description"`
			Location    string     `json:"location"`
			Attendees   []Attendee `json:"attendees"`
			Reminders   *Reminders `json:"reminders"`
		} `json:"event"`
	}
	var a CalendarAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return a, decodeErr(err)
	}
	if wire.Event == nil {
		return a, fieldErrf("event", "expected an event object, got nothing")
	}
	ev := wire.Event
	if ev.Summary == nil || strings.TrimSpace(*ev.Summary) == "" {
		return a, fieldErrf("event.summary", "expected a non-empty string")
	}
	for _, tm := range []struct {
		path string
		val  *EventTime
	}{
		{"event.start", ev.Start},
		{"event.end", ev.End},
	} {
		if tm.val == nil {
			return a, fieldErrf(tm.path, "expected an object with dateTime and timeZone")
		}
		if tm.val.DateTime == "" {
			return a, fieldErrf(tm.path+".dateTime", "expected an ISO 8601 datetime")
		}
		if tm.val.TimeZone == "" {
			return a, fieldErrf(tm.path+".timeZone", "expected a timezone name")
		}
	}
	for i, att := range ev.Attendees {
		if att.Email == "" {
			return a, fieldErrf("event.attendees", "attendee %d is missing an email", i)
		}
	}
	a.Action = ActionCreate
	a.Event = &EventDraft{
		Summary:     *ev.Summary,
		Start:       *ev.Start,
		End:         *ev.End,
		Description: ev.Description,
		Location:    ev.Location,
		Attendees:   ev.Attendees,
		Reminders:   ev.Reminders,
	}
	return a, nil
}

func parseFindAction(data []byte) (CalendarAction, error) {
	var wire struct {
		Query *struct {
			TimeMin    string   `json:"timeMin"`
			TimeMax    string   `json:"timeMax"`
			SearchTerm string   `json:"searchTerm"`
			MaxResults *float64 `json:"maxResults"`
			OrderBy    *string  `json:"orderBy"`
		} `json:"query"`
	}
	var a CalendarAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return a, decodeErr(err)
	}
	if wire.Query == nil {
		return a, fieldErrf("query", "expected a query object, got nothing")
	}
	q := FindQuery{
		TimeMin:    wire.Query.TimeMin,
		TimeMax:    wire.Query.TimeMax,
		SearchTerm: wire.Query.SearchTerm,
		MaxResults: 10,
		OrderBy:    "startTime",
	}
	if wire.Query.MaxResults != nil {
		n, err := wholeInRange("query.maxResults", *wire.Query.MaxResults, 1, 250)
		if err != nil {
			return a, err
		}
		q.MaxResults = int64(n)
	}
	if wire.Query.OrderBy != nil {
		if *wire.Query.OrderBy != "startTime" {
			return a, fieldErrf("query.orderBy", `expected "startTime", got %q`, *wire.Query.OrderBy)
		}
		q.OrderBy = *wire.Query.OrderBy
	}
	a.Action = ActionFind
	a.Query = &q
	return a, nil
}

func parseGetAction(data []byte) (CalendarAction, error) {
	var wire struct {
		EventID string `json:"eventId"`
	}
	var a CalendarAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return a, decodeErr(err)
	}
	if strings.TrimSpace(wire.EventID) == "" {
		return a, fieldErrf("eventId", "expected a non-empty event id")
	}
	a.Action = ActionGet
	a.EventID = wire.EventID
	return a, nil
}
