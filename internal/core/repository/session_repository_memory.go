package repository

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/duynhne/rango/internal/core/domain"
)

// MemorySessionRepository keeps sessions in process memory. Sessions are
// lost on restart and not shared between replicas.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// NewMemorySessionRepository creates an empty in-memory session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]memorySession{}, now: time.Now}
}

// Get returns a copy of the unexpired session stored under key, or (nil, nil).
func (r *MemorySessionRepository) Get(_ context.Context, key string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[key]
	if !ok {
		return nil, nil
	}
	if !stored.expiresAt.After(r.now()) {
		delete(r.sessions, key)
		return nil, nil
	}

	s := domain.NewSession(key, stored.expiresAt)
	maps.Copy(s.Values, stored.values)
	return s, nil
}

// Save stores a copy of the session.
func (r *MemorySessionRepository) Save(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.Key] = memorySession{values: maps.Clone(s.Values), expiresAt: s.ExpiresAt}
	return nil
}

// Delete removes the session.
func (r *MemorySessionRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, key)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
