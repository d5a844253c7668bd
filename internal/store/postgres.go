// Package store provides storage backends for user profiles, notification
// history and calendar credentials.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	session_id             TEXT PRIMARY KEY,
	sms_phone_number       TEXT NOT NULL,
	timezone               TEXT NOT NULL DEFAULT 'UTC',
	default_location       TEXT NOT NULL DEFAULT '',
	resolved_location      TEXT NOT NULL DEFAULT '',
	notifications_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
	advance_notice_minutes INTEGER NOT NULL DEFAULT 60,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	session_id    TEXT NOT NULL,
	event_id      TEXT NOT NULL,
	scheduled_for TIMESTAMPTZ NOT NULL,
	sent_at       TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, event_id)
);

CREATE TABLE IF NOT EXISTS calendar_tokens (
	session_id TEXT PRIMARY KEY,
	ciphertext TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres store ready")

	s := &PostgresStore{db: db}
	return &Store{Users: s, Notifications: s, Tokens: s, closer: s}, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) UpsertUser(ctx context.Context, u UserProfile) error {
	if u.SessionID == "" {
		return fmt.Errorf("user session ID is empty")
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			sms_phone_number = EXCLUDED.sms_phone_number,
			timezone = EXCLUDED.timezone,
			default_location = EXCLUDED.default_location,
			resolved_location = EXCLUDED.resolved_location,
			notifications_enabled = EXCLUDED.notifications_enabled,
			advance_notice_minutes = EXCLUDED.advance_notice_minutes,
			updated_at = EXCLUDED.updated_at`,
		u.SessionID, u.SMSPhoneNumber, u.Timezone, u.DefaultLocation, u.ResolvedLocation,
		u.NotificationsEnabled, u.AdvanceNoticeMinutes, now, now)
	if err != nil {
		slog.Error("PostgresStore UpsertUser failed", "error", err, "sessionID", u.SessionID)
		return fmt.Errorf("failed to upsert user %s: %w", u.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, sessionID string) (*UserProfile, error) {
	var u UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at
		FROM users WHERE session_id = $1`, sessionID).
		Scan(&u.SessionID, &u.SMSPhoneNumber, &u.Timezone, &u.DefaultLocation, &u.ResolvedLocation,
			&u.NotificationsEnabled, &u.AdvanceNoticeMinutes, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get user %s: %w", sessionID, err)
	}
	return &u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore DeleteUser failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete user %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) ListNotifiableUsers(ctx context.Context) ([]UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at
		FROM users WHERE notifications_enabled AND sms_phone_number != ''`)
	if err != nil {
		slog.Error("PostgresStore ListNotifiableUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query notifiable users: %w", err)
	}
	defer rows.Close()

	var users []UserProfile
	for rows.Next() {
		var u UserProfile
		if err := rows.Scan(&u.SessionID, &u.SMSPhoneNumber, &u.Timezone, &u.DefaultLocation, &u.ResolvedLocation,
			&u.NotificationsEnabled, &u.AdvanceNoticeMinutes, &u.CreatedAt, &u.UpdatedAt); err != nil {
			slog.Error("PostgresStore ListNotifiableUsers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Record(ctx context.Context, r NotificationRecord) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (session_id, event_id, scheduled_for, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id, event_id) DO NOTHING`,
		r.SessionID, r.EventID, r.ScheduledFor, r.SentAt, createdAt)
	if err != nil {
		slog.Error("PostgresStore Record failed", "error", err, "sessionID", r.SessionID, "eventID", r.EventID)
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID, eventID string) (*NotificationRecord, error) {
	var r NotificationRecord
	var sentAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, event_id, scheduled_for, sent_at, created_at
		FROM notifications WHERE session_id = $1 AND event_id = $2`, sessionID, eventID).
		Scan(&r.SessionID, &r.EventID, &r.ScheduledFor, &sentAt, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore Get notification failed", "error", err, "sessionID", sessionID, "eventID", eventID)
		return nil, fmt.Errorf("failed to get notification record: %w", err)
	}
	if sentAt.Valid {
		r.SentAt = &sentAt.Time
	}
	return &r, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, sessionID, eventID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET sent_at = $1 WHERE session_id = $2 AND event_id = $3`,
		at, sessionID, eventID)
	if err != nil {
		slog.Error("PostgresStore MarkSent failed", "error", err, "sessionID", sessionID, "eventID", eventID)
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no notification record for session %s event %s", sessionID, eventID)
	}
	return nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Error("PostgresStore DeleteOlderThan failed", "error", err)
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *PostgresStore) SaveToken(ctx context.Context, t TokenRecord) error {
	if t.SessionID == "" {
		return fmt.Errorf("token session ID is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_tokens (session_id, ciphertext, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			updated_at = EXCLUDED.updated_at`,
		t.SessionID, t.Ciphertext, time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveToken failed", "error", err, "sessionID", t.SessionID)
		return fmt.Errorf("failed to save token for %s: %w", t.SessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetToken(ctx context.Context, sessionID string) (*TokenRecord, error) {
	var t TokenRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, ciphertext, updated_at FROM calendar_tokens WHERE session_id = $1`, sessionID).
		Scan(&t.SessionID, &t.Ciphertext, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetToken failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get token for %s: %w", sessionID, err)
	}
	return &t, nil
}

func (s *PostgresStore) DeleteToken(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore DeleteToken failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete token for %s: %w", sessionID, err)
	}
	return nil
}
