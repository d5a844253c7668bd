package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. Used in tests and as the
// default backend when no DSN is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]UserProfile
	notifications map[string]NotificationRecord
	tokens        map[string]TokenRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *Store {
	m := &MemoryStore{
		users:         make(map[string]UserProfile),
		notifications: make(map[string]NotificationRecord),
		tokens:        make(map[string]TokenRecord),
	}
	return &Store{Users: m, Notifications: m, Tokens: m}
}

func notificationKey(sessionID, eventID string) string {
	return sessionID + "\x00" + eventID
}

func (m *MemoryStore) UpsertUser(ctx context.Context, u UserProfile) error {
	if u.SessionID == "" {
		return fmt.Errorf("user session ID is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.users[u.SessionID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.users[u.SessionID] = u
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, sessionID string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[sessionID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, sessionID)
	return nil
}

func (m *MemoryStore) ListNotifiableUsers(ctx context.Context) ([]UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []UserProfile
	for _, u := range m.users {
		if u.NotificationsEnabled && u.SMSPhoneNumber != "" {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *MemoryStore) Record(ctx context.Context, r NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := notificationKey(r.SessionID, r.EventID)
	if _, ok := m.notifications[key]; ok {
		return nil
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.notifications[key] = r
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, sessionID, eventID string) (*NotificationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.notifications[notificationKey(sessionID, eventID)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) MarkSent(ctx context.Context, sessionID, eventID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := notificationKey(sessionID, eventID)
	r, ok := m.notifications[key]
	if !ok {
		return fmt.Errorf("no notification record for session %s event %s", sessionID, eventID)
	}
	r.SentAt = &at
	m.notifications[key] = r
	return nil
}

func (m *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for key, r := range m.notifications {
		if r.CreatedAt.Before(cutoff) {
			delete(m.notifications, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) SaveToken(ctx context.Context, t TokenRecord) error {
	if t.SessionID == "" {
		return fmt.Errorf("token session ID is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t.UpdatedAt = time.Now()
	m.tokens[t.SessionID] = t
	return nil
}

func (m *MemoryStore) GetToken(ctx context.Context, sessionID string) (*TokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tokens[sessionID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MemoryStore) DeleteToken(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, sessionID)
	return nil
}
