package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/rango/internal/core/domain"
)

// PgxProfileRepository implements domain.ProfileRepository using pgx.
type PgxProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new PgxProfileRepository.
func NewProfileRepository(db DB) *PgxProfileRepository {
	return &PgxProfileRepository{db: db}
}

// GetByUserID returns the profile of the given user, or (nil, nil).
func (r *PgxProfileRepository) GetByUserID(ctx context.Context, userID int) (*domain.UserProfile, error) {
	query := `SELECT id, user_id, website, picture FROM user_profiles WHERE user_id = $1`

	var p domain.UserProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.Website, &p.Picture)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a profile and returns its ID.
func (r *PgxProfileRepository) Create(ctx context.Context, p domain.UserProfile) (int, error) {
	var id int
	if err := r.db.QueryRow(ctx, insertProfileQuery, p.UserID, p.Website, p.Picture).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Update overwrites website and picture of the profile owned by p.UserID.
func (r *PgxProfileRepository) Update(ctx context.Context, p domain.UserProfile) error {
	query := `UPDATE user_profiles SET website = $2, picture = $3 WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, p.UserID, p.Website, p.Picture)
	return err
}

// List returns every profile with its owner's username.
func (r *PgxProfileRepository) List(ctx context.Context) ([]domain.ProfileSummary, error) {
	query := `
		SELECT u.username, p.id, p.user_id, p.website, p.picture
		FROM user_profiles p
		JOIN users u ON p.user_id = u.id
		ORDER BY u.username
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProfileSummary
	for rows.Next() {
		var s domain.ProfileSummary
		if err := rows.Scan(&s.Username, &s.Profile.ID, &s.Profile.UserID, &s.Profile.Website, &s.Profile.Picture); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
