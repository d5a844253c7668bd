// Package notify runs the periodic meeting-notification scan: for every
// user with SMS enabled it finds near-term meetings, decides per (session,
// event) whether a reminder is due, and sends a weather-aware SMS.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guided-app/weatherd/internal/calendar"
	"github.com/guided-app/weatherd/internal/extract"
	"github.com/guided-app/weatherd/internal/flow"
	"github.com/guided-app/weatherd/internal/messaging"
	"github.com/guided-app/weatherd/internal/schema"
	"github.com/guided-app/weatherd/internal/store"
	"github.com/guided-app/weatherd/internal/tokens"
	"github.com/guided-app/weatherd/internal/weather"
)

// Calendar search bounds: meetings between one and two hours out are
// fetched. The wide search pre-loads meetings that will cross the 60-minute
// send boundary between scan ticks; each gets a record on first sight and
// the send-window check decides dispatch.
const (
	searchWindowStart = 1 * time.Hour
	searchWindowEnd   = 2 * time.Hour
	searchMaxResults  = 10

	// RetentionAge is how long notification records are kept before cleanup.
	RetentionAge = 24 * time.Hour
)

// CredentialSource resolves a user's calendar credentials. Nil credentials
// mean the user has not connected a calendar.
type CredentialSource interface {
	Get(ctx context.Context, sessionID string) (*tokens.Credentials, error)
}

// Forecaster fetches weather data for a validated query.
type Forecaster interface {
	Fetch(ctx context.Context, q schema.WeatherQuery) (*weather.Response, error)
}

// Deps are the collaborators of the notification service.
type Deps struct {
	Users         store.UserRepo
	Notifications store.NotificationRepo
	Credentials   CredentialSource
	LLM           extract.Completer
	Weather       Forecaster
	Calendars     calendar.Factory
	SMS           messaging.Service
}

// Service scans for due meeting notifications.
type Service struct {
	users         store.UserRepo
	notifications store.NotificationRepo
	credentials   CredentialSource
	llm           extract.Completer
	weather       Forecaster
	calendars     calendar.Factory
	sms           messaging.Service

	mu  sync.Mutex
	now func() time.Time
}

// NewService builds a notification service.
func NewService(d Deps) *Service {
	return &Service{
		users:         d.Users,
		notifications: d.Notifications,
		credentials:   d.Credentials,
		llm:           d.LLM,
		weather:       d.Weather,
		calendars:     d.Calendars,
		sms:           d.SMS,
		now:           time.Now,
	}
}

// ProcessAll runs one full scan over all notifiable users. If a previous
// scan is still running the call returns immediately; scans never overlap.
// A failure for one user or one meeting is logged and does not abort the
// scan for the rest.
func (s *Service) ProcessAll(ctx context.Context) error {
	if !s.mu.TryLock() {
		slog.Warn("notification scan still running, skipping this tick")
		return nil
	}
	defer s.mu.Unlock()

	users, err := s.users.ListNotifiableUsers(ctx)
	if err != nil {
		return fmt.Errorf("list notifiable users: %w", err)
	}
	slog.Debug("notification scan started", "users", len(users))

	for _, user := range users {
		if err := s.processUser(ctx, user); err != nil {
			slog.Error("notification processing failed for user", "sessionID", user.SessionID, "error", err)
		}
	}
	return nil
}

func (s *Service) processUser(ctx context.Context, user store.UserProfile) error {
	creds, err := s.credentials.Get(ctx, user.SessionID)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		slog.Debug("user has no calendar credentials, skipping", "sessionID", user.SessionID)
		return nil
	}
	if user.SMSPhoneNumber == "" {
		slog.Debug("user has no phone number, skipping", "sessionID", user.SessionID)
		return nil
	}

	api, err := s.calendars(ctx, creds.AccessToken)
	if err != nil {
		return fmt.Errorf("create calendar client: %w", err)
	}

	meetings, err := s.upcomingMeetings(ctx, api)
	if err != nil {
		return fmt.Errorf("find upcoming meetings: %w", err)
	}

	for _, m := range meetings {
		if err := s.processMeeting(ctx, user, m.event, m.start); err != nil {
			slog.Error("notification failed for meeting",
				"sessionID", user.SessionID, "eventID", m.event.Id, "error", err)
		}
	}
	return nil
}

type meeting struct {
	event *calendar.Event
	start time.Time
}

func (s *Service) upcomingMeetings(ctx context.Context, api calendar.API) ([]meeting, error) {
	now := s.now()
	events, err := api.List(ctx, schema.FindQuery{
		TimeMin:    now.Add(searchWindowStart).Format(time.RFC3339),
		TimeMax:    now.Add(searchWindowEnd).Format(time.RFC3339),
		MaxResults: searchMaxResults,
		OrderBy:    "startTime",
	})
	if err != nil {
		return nil, err
	}

	var meetings []meeting
	for _, ev := range events {
		start, err := calendar.EventStart(ev)
		if err != nil {
			slog.Debug("skipping event without parseable start", "eventID", ev.Id, "error", err)
			continue
		}
		// Future meetings only; the send-window check in processMeeting
		// decides whether a reminder actually goes out.
		if start.Sub(now) >= 0 {
			meetings = append(meetings, meeting{event: ev, start: start})
		}
	}
	return meetings, nil
}

func (s *Service) processMeeting(ctx context.Context, user store.UserProfile, ev *calendar.Event, start time.Time) error {
	if err := s.notifications.Record(ctx, store.NotificationRecord{
		SessionID:    user.SessionID,
		EventID:      ev.Id,
		ScheduledFor: start,
	}); err != nil {
		return err
	}
	rec, err := s.notifications.Get(ctx, user.SessionID, ev.Id)
	if err != nil {
		return err
	}
	if !store.ShouldSend(rec, start, s.now()) {
		return nil
	}

	fallback := user.ResolvedLocation
	if fallback == "" {
		fallback = user.DefaultLocation
	}
	location := flow.ResolveMeetingLocation(ev.Location, ev.Description, fallback)
	if location == "" {
		return fmt.Errorf("no resolvable location for event %s", ev.Id)
	}

	wc := flow.WeatherContext{
		MeetingLocation: location,
		MeetingTime:     start,
		MeetingDuration: time.Duration(calendar.EventDurationMinutes(ev)) * time.Minute,
		UserTimezone:    user.Timezone,
	}

	query, err := flow.SynthesizeNotificationQuery(ctx, s.llm, wc)
	if err != nil {
		return err
	}
	forecast, err := s.weather.Fetch(ctx, query)
	if err != nil {
		return err
	}
	summary, err := flow.GenerateNotificationSummary(ctx, s.llm, wc, forecast)
	if err != nil {
		return err
	}

	title := ev.Summary
	if title == "" {
		title = "Meeting"
	}
	body, err := flow.GenerateSMSBody(ctx, s.llm, title, s.formatMeetingTime(start, user.Timezone), summary)
	if err != nil {
		return err
	}

	if err := s.sms.Send(ctx, user.SMSPhoneNumber, body); err != nil {
		return err
	}
	if err := s.notifications.MarkSent(ctx, user.SessionID, ev.Id, s.now()); err != nil {
		return err
	}
	slog.Info("meeting notification sent",
		"sessionID", user.SessionID, "eventID", ev.Id, "severity", summary.Severity)
	return nil
}

func (s *Service) formatMeetingTime(start time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return start.In(loc).Format("Mon Jan 2 at 15:04")
}

// CleanupOld removes notification records older than the retention age.
func (s *Service) CleanupOld(ctx context.Context) error {
	deleted, err := s.notifications.DeleteOlderThan(ctx, s.now().Add(-RetentionAge))
	if err != nil {
		return fmt.Errorf("cleanup notification records: %w", err)
	}
	if deleted > 0 {
		slog.Info("cleaned up old notification records", "deleted", deleted)
	}
	return nil
}
