package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/rango/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository using pgx.
type PgxUserRepository struct {
	db DB
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(db DB) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

// GetByUsername returns the user matching the given username.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserRow, error) {
	query := `SELECT id, username, email, is_active, date_joined, password_hash FROM users WHERE username = $1`

	var row domain.UserRow
	err := r.db.QueryRow(ctx, query, username).Scan(
		&row.ID, &row.Username, &row.Email, &row.IsActive, &row.DateJoined, &row.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT id, username, email, is_active, date_joined FROM users WHERE id = $1`

	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.IsActive, &u.DateJoined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// ExistsByUsername returns true when the username is already taken.
func (r *PgxUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

const (
	insertUserQuery    = `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`
	insertProfileQuery = `INSERT INTO user_profiles (user_id, website, picture) VALUES ($1, $2, $3) RETURNING id`
)

// Create inserts a new user and returns the generated user ID.
func (r *PgxUserRepository) Create(ctx context.Context, username, email, passwordHash string) (int, error) {
	var userID int
	if err := r.db.QueryRow(ctx, insertUserQuery, username, email, passwordHash).Scan(&userID); err != nil {
		return 0, mapUniqueViolation(err)
	}

	return userID, nil
}

// CreateWithProfile inserts the user and its profile in one transaction.
func (r *PgxUserRepository) CreateWithProfile(ctx context.Context, username, email, passwordHash string, p domain.UserProfile) (int, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID, profileID int
	if err := tx.QueryRow(ctx, insertUserQuery, username, email, passwordHash).Scan(&userID); err != nil {
		return 0, 0, mapUniqueViolation(err)
	}
	if err := tx.QueryRow(ctx, insertProfileQuery, userID, p.Website, p.Picture).Scan(&profileID); err != nil {
		return 0, 0, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}

	return userID, profileID, nil
}

// UpdateLastLogin sets the last_login timestamp to now for the given user.
func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, userID int) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}
