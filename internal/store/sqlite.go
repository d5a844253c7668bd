// Package store provides storage backends for user profiles, notification
// history and calendar credentials.
//
// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	session_id             TEXT PRIMARY KEY,
	sms_phone_number       TEXT NOT NULL,
	timezone               TEXT NOT NULL DEFAULT 'UTC',
	default_location       TEXT NOT NULL DEFAULT '',
	resolved_location      TEXT NOT NULL DEFAULT '',
	notifications_enabled  INTEGER NOT NULL DEFAULT 1,
	advance_notice_minutes INTEGER NOT NULL DEFAULT 60,
	created_at             TIMESTAMP NOT NULL,
	updated_at             TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	session_id    TEXT NOT NULL,
	event_id      TEXT NOT NULL,
	scheduled_for TIMESTAMP NOT NULL,
	sent_at       TIMESTAMP,
	created_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, event_id)
);

CREATE TABLE IF NOT EXISTS calendar_tokens (
	session_id TEXT PRIMARY KEY,
	ciphertext TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path to the database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	if dsn != ":memory:" {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dir)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "dsn", dsn)

	s := &SQLiteStore{db: db}
	return &Store{Users: s, Notifications: s, Tokens: s, closer: s}, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u UserProfile) error {
	if u.SessionID == "" {
		return fmt.Errorf("user session ID is empty")
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			sms_phone_number = excluded.sms_phone_number,
			timezone = excluded.timezone,
			default_location = excluded.default_location,
			resolved_location = excluded.resolved_location,
			notifications_enabled = excluded.notifications_enabled,
			advance_notice_minutes = excluded.advance_notice_minutes,
			updated_at = excluded.updated_at`,
		u.SessionID, u.SMSPhoneNumber, u.Timezone, u.DefaultLocation, u.ResolvedLocation,
		u.NotificationsEnabled, u.AdvanceNoticeMinutes, now, now)
	if err != nil {
		slog.Error("SQLiteStore UpsertUser failed", "error", err, "sessionID", u.SessionID)
		return fmt.Errorf("failed to upsert user %s: %w", u.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, sessionID string) (*UserProfile, error) {
	var u UserProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at
		FROM users WHERE session_id = ?`, sessionID).
		Scan(&u.SessionID, &u.SMSPhoneNumber, &u.Timezone, &u.DefaultLocation, &u.ResolvedLocation,
			&u.NotificationsEnabled, &u.AdvanceNoticeMinutes, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get user %s: %w", sessionID, err)
	}
	return &u, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE session_id = ?`, sessionID); err != nil {
		slog.Error("SQLiteStore DeleteUser failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete user %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) ListNotifiableUsers(ctx context.Context) ([]UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, sms_phone_number, timezone, default_location, resolved_location,
			notifications_enabled, advance_notice_minutes, created_at, updated_at
		FROM users WHERE notifications_enabled = 1 AND sms_phone_number != ''`)
	if err != nil {
		slog.Error("SQLiteStore ListNotifiableUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query notifiable users: %w", err)
	}
	defer rows.Close()

	var users []UserProfile
	for rows.Next() {
		var u UserProfile
		if err := rows.Scan(&u.SessionID, &u.SMSPhoneNumber, &u.Timezone, &u.DefaultLocation, &u.ResolvedLocation,
			&u.NotificationsEnabled, &u.AdvanceNoticeMinutes, &u.CreatedAt, &u.UpdatedAt); err != nil {
			slog.Error("SQLiteStore ListNotifiableUsers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func (s *SQLiteStore) Record(ctx context.Context, r NotificationRecord) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (session_id, event_id, scheduled_for, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, event_id) DO NOTHING`,
		r.SessionID, r.EventID, r.ScheduledFor, r.SentAt, createdAt)
	if err != nil {
		slog.Error("SQLiteStore Record failed", "error", err, "sessionID", r.SessionID, "eventID", r.EventID)
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID, eventID string) (*NotificationRecord, error) {
	var r NotificationRecord
	var sentAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, event_id, scheduled_for, sent_at, created_at
		FROM notifications WHERE session_id = ? AND event_id = ?`, sessionID, eventID).
		Scan(&r.SessionID, &r.EventID, &r.ScheduledFor, &sentAt, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore Get notification failed", "error", err, "sessionID", sessionID, "eventID", eventID)
		return nil, fmt.Errorf("failed to get notification record: %w", err)
	}
	if sentAt.Valid {
		r.SentAt = &sentAt.Time
	}
	return &r, nil
}

func (s *SQLiteStore) MarkSent(ctx context.Context, sessionID, eventID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET sent_at = ? WHERE session_id = ? AND event_id = ?`,
		at, sessionID, eventID)
	if err != nil {
		slog.Error("SQLiteStore MarkSent failed", "error", err, "sessionID", sessionID, "eventID", eventID)
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no notification record for session %s event %s", sessionID, eventID)
	}
	return nil
}

func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE created_at < ?`, cutoff)
	if err != nil {
		slog.Error("SQLiteStore DeleteOlderThan failed", "error", err)
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *SQLiteStore) SaveToken(ctx context.Context, t TokenRecord) error {
	if t.SessionID == "" {
		return fmt.Errorf("token session ID is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_tokens (session_id, ciphertext, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			updated_at = excluded.updated_at`,
		t.SessionID, t.Ciphertext, time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveToken failed", "error", err, "sessionID", t.SessionID)
		return fmt.Errorf("failed to save token for %s: %w", t.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetToken(ctx context.Context, sessionID string) (*TokenRecord, error) {
	var t TokenRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, ciphertext, updated_at FROM calendar_tokens WHERE session_id = ?`, sessionID).
		Scan(&t.SessionID, &t.Ciphertext, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetToken failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get token for %s: %w", sessionID, err)
	}
	return &t, nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE session_id = ?`, sessionID); err != nil {
		slog.Error("SQLiteStore DeleteToken failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete token for %s: %w", sessionID, err)
	}
	return nil
}
