package domain

import (
	"context"
	"strconv"
	"time"
)

// AuthUserKey is the session key holding the logged-in user's ID.
const AuthUserKey = "_auth_user_id"

// Session is server-side per-client state keyed by the session cookie.
// Values are strings; callers parse what they need and fall back to
// defaults on malformed data.
type Session struct {
	Key       string
	Values    map[string]string
	ExpiresAt time.Time

	modified bool
}

// NewSession returns an empty session with the given key.
func NewSession(key string, expiresAt time.Time) *Session {
	return &Session{Key: key, Values: map[string]string{}, ExpiresAt: expiresAt}
}

// Get returns the value stored under key, or "" when absent.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Set stores value under key and marks the session for saving.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	if cur, ok := s.Values[key]; ok && cur == value {
		return
	}
	s.Values[key] = value
	s.modified = true
}

// Delete removes key from the session.
func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; !ok {
		return
	}
	delete(s.Values, key)
	s.modified = true
}

// Clear drops every value.
func (s *Session) Clear() {
	if len(s.Values) == 0 {
		return
	}
	s.Values = map[string]string{}
	s.modified = true
}

// Extend moves the expiry and marks the session for saving.
func (s *Session) Extend(expiresAt time.Time) {
	s.ExpiresAt = expiresAt
	s.modified = true
}

// Modified reports whether the session changed since it was loaded.
func (s *Session) Modified() bool {
	return s.modified
}

// MarkSaved resets the modified flag after the session was persisted.
func (s *Session) MarkSaved() {
	s.modified = false
}

// UserID returns the logged-in user's ID, or 0 for anonymous sessions.
func (s *Session) UserID() int {
	id, err := strconv.Atoi(s.Values[AuthUserKey])
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// SessionRepository defines the data-access contract for web sessions.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Get returns the unexpired session stored under key.
	// Returns (nil, nil) when the key is unknown or expired.
	Get(ctx context.Context, key string) (*Session, error)

	// Save inserts or replaces the session.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session; deleting an unknown key is not an error.
	Delete(ctx context.Context, key string) error
}
