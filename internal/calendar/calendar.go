// Package calendar executes validated calendar actions against a Google
// Calendar account.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/guided-app/weatherd/internal/schema"
)

// Event is the provider event representation surfaced in results.
type Event = gcal.Event

// API is the minimal calendar provider surface the service needs.
type API interface {
	Insert(ctx context.Context, ev *Event) (*Event, error)
	List(ctx context.Context, q schema.FindQuery) ([]*Event, error)
	Get(ctx context.Context, eventID string) (*Event, error)
}

// Factory creates an API bound to one authenticated account.
type Factory func(ctx context.Context, accessToken string) (API, error)

const primaryCalendar = "primary"

type googleAPI struct {
	svc *gcal.Service
}

// NewGoogleAPI builds a Google Calendar API client authenticated with a
// bearer access token.
func NewGoogleAPI(ctx context.Context, accessToken string) (API, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &googleAPI{svc: svc}, nil
}

func (g *googleAPI) Insert(ctx context.Context, ev *Event) (*Event, error) {
	return g.svc.Events.Insert(primaryCalendar, ev).Context(ctx).Do()
}

func (g *googleAPI) List(ctx context.Context, q schema.FindQuery) ([]*Event, error) {
	timeMin := q.TimeMin
	if timeMin == "" {
		timeMin = time.Now().Format(time.RFC3339)
	}
	call := g.svc.Events.List(primaryCalendar).
		TimeMin(timeMin).
		SingleEvents(true)
	if q.TimeMax != "" {
		call = call.TimeMax(q.TimeMax)
	}
	if q.SearchTerm != "" {
		call = call.Q(q.SearchTerm)
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	call = call.MaxResults(maxResults)
	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "startTime"
	}
	call = call.OrderBy(orderBy)

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (g *googleAPI) Get(ctx context.Context, eventID string) (*Event, error) {
	return g.svc.Events.Get(primaryCalendar, eventID).Context(ctx).Do()
}

// EventStart returns the start time of an event, handling all-day events.
func EventStart(ev *Event) (time.Time, error) {
	if ev.Start == nil {
		return time.Time{}, fmt.Errorf("event %s has no start time", ev.Id)
	}
	if ev.Start.DateTime != "" {
		return time.Parse(time.RFC3339, ev.Start.DateTime)
	}
	if ev.Start.Date != "" {
		return time.Parse("2006-01-02", ev.Start.Date)
	}
	return time.Time{}, fmt.Errorf("event %s has no start time", ev.Id)
}

// EventDurationMinutes returns the event duration in minutes, defaulting to
// 60 when either endpoint is missing or unparseable.
func EventDurationMinutes(ev *Event) int {
	const defaultMinutes = 60
	start, err := EventStart(ev)
	if err != nil {
		return defaultMinutes
	}
	if ev.End == nil {
		return defaultMinutes
	}
	var end time.Time
	switch {
	case ev.End.DateTime != "":
		end, err = time.Parse(time.RFC3339, ev.End.DateTime)
	case ev.End.Date != "":
		end, err = time.Parse("2006-01-02", ev.End.Date)
	default:
		return defaultMinutes
	}
	if err != nil {
		return defaultMinutes
	}
	return int(end.Sub(start).Round(time.Minute) / time.Minute)
}
