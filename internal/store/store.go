// Package store provides storage backends for user profiles, notification
// history and calendar credentials.
package store

import (
	"context"
	"fmt"
	"time"
)

// SendWindow is how far ahead of a meeting a notification may be sent.
const SendWindow = 60 * time.Minute

// UserProfile is one registered SMS user, keyed by session ID.
type UserProfile struct {
	SessionID            string    `json:"sessionId"`
	SMSPhoneNumber       string    `json:"smsPhoneNumber"`
	Timezone             string    `json:"timezone"`
	DefaultLocation      string    `json:"defaultLocation,omitempty"`
	ResolvedLocation     string    `json:"resolvedLocation,omitempty"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	AdvanceNoticeMinutes int       `json:"advanceNoticeMinutes"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// NotificationRecord tracks one (user, meeting) notification. A record with
// nil SentAt marks a meeting seen by the scan but still outside the send
// window; SentAt set means the SMS went out.
type NotificationRecord struct {
	SessionID    string     `json:"sessionId"`
	EventID      string     `json:"eventId"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TokenRecord holds a user's encrypted calendar credentials.
type TokenRecord struct {
	SessionID  string    `json:"sessionId"`
	Ciphertext string    `json:"-"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserRepo persists user profiles.
type UserRepo interface {
	UpsertUser(ctx context.Context, u UserProfile) error
	GetUser(ctx context.Context, sessionID string) (*UserProfile, error)
	DeleteUser(ctx context.Context, sessionID string) error
	// ListNotifiableUsers returns users with notifications enabled and a
	// phone number on file.
	ListNotifiableUsers(ctx context.Context) ([]UserProfile, error)
}

// NotificationRepo persists notification records.
type NotificationRepo interface {
	// Record creates the (sessionID, eventID) record if it does not exist
	// yet; an existing record, sent or not, is left untouched.
	Record(ctx context.Context, r NotificationRecord) error
	Get(ctx context.Context, sessionID, eventID string) (*NotificationRecord, error)
	MarkSent(ctx context.Context, sessionID, eventID string, at time.Time) error
	// DeleteOlderThan removes records created before the cutoff and returns
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// TokenRepo persists encrypted calendar credentials.
type TokenRepo interface {
	SaveToken(ctx context.Context, t TokenRecord) error
	// GetToken returns nil, nil when no credentials are stored.
	GetToken(ctx context.Context, sessionID string) (*TokenRecord, error)
	DeleteToken(ctx context.Context, sessionID string) error
}

// Store bundles the three repositories of one backend.
type Store struct {
	Users         UserRepo
	Notifications NotificationRepo
	Tokens        TokenRepo

	closer interface{ Close() error }
}

// New creates a store for the given driver: "memory", "sqlite3" or
// "postgres". dsn is ignored for the memory backend.
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite3":
		return NewSQLiteStore(WithDSN(dsn))
	case "postgres":
		return NewPostgresStore(WithDSN(dsn))
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// Close releases the backend's resources, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Opts holds configuration options for database-backed stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for database-backed stores.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// ShouldSend reports whether a meeting notification should go out now: the
// meeting has not started yet, starts within the send window, and has not
// already been notified. rec may be nil (no record yet).
func ShouldSend(rec *NotificationRecord, meetingStart, now time.Time) bool {
	if rec != nil && rec.SentAt != nil {
		return false
	}
	until := meetingStart.Sub(now)
	return until >= 0 && until <= SendWindow
}
