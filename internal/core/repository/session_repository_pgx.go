package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/rango/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgx.
// Values are stored as a JSON object in session_data.
type PgxSessionRepository struct {
	db  DB
	now func() time.Time
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(db DB) *PgxSessionRepository {
	return &PgxSessionRepository{db: db, now: time.Now}
}

// Get returns the unexpired session stored under key, or (nil, nil).
func (r *PgxSessionRepository) Get(ctx context.Context, key string) (*domain.Session, error) {
	query := `SELECT session_data, expire_date FROM sessions WHERE session_key = $1 AND expire_date > $2`

	var (
		data      string
		expiresAt time.Time
	)
	err := r.db.QueryRow(ctx, query, key, r.now()).Scan(&data, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s := domain.NewSession(key, expiresAt)
	if err := json.Unmarshal([]byte(data), &s.Values); err != nil {
		// Corrupt rows behave like a missing session.
		return domain.NewSession(key, expiresAt), nil
	}
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	return s, nil
}

// Save upserts the session.
func (r *PgxSessionRepository) Save(ctx context.Context, s *domain.Session) error {
	data, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	query := `
		INSERT INTO sessions (session_key, session_data, expire_date) VALUES ($1, $2, $3)
		ON CONFLICT (session_key) DO UPDATE
		SET session_data = EXCLUDED.session_data, expire_date = EXCLUDED.expire_date
	`
	_, err = r.db.Exec(ctx, query, s.Key, string(data), s.ExpiresAt)
	return err
}

// Delete removes the session.
func (r *PgxSessionRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_key = $1`, key)
	return err
}

// DeleteExpired removes every expired session and returns how many were dropped.
func (r *PgxSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expire_date <= $1`, r.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
