package domain

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by repositories when an insert hits a unique
// constraint.
var ErrDuplicate = errors.New("duplicate key")

// UserRow represents a user record returned from the database.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	User
	PasswordHash string
}

// UserRepository defines the data-access contract for user operations.
// Implementations live in internal/core/repository (Core layer).
// The logic layer depends on this interface only, never on SQL or pgx directly.
type UserRepository interface {
	// GetByUsername returns the user matching the given username.
	// Returns (nil, nil) when no user is found.
	GetByUsername(ctx context.Context, username string) (*UserRow, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int) (*User, error)

	// ExistsByUsername returns true when the username is already taken.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create inserts a new active user and returns the generated user ID.
	// Returns an error wrapping ErrDuplicate when the username is taken.
	Create(ctx context.Context, username, email, passwordHash string) (int, error)

	// CreateWithProfile inserts a new active user and its profile atomically.
	// p.UserID is ignored. Returns the new user and profile IDs, or an error
	// wrapping ErrDuplicate when the username is taken.
	CreateWithProfile(ctx context.Context, username, email, passwordHash string, p UserProfile) (userID, profileID int, err error)

	// UpdateLastLogin sets the last_login timestamp to now for the given user.
	UpdateLastLogin(ctx context.Context, userID int) error
}

// ProfileRepository defines the data-access contract for user profiles.
type ProfileRepository interface {
	// GetByUserID returns the profile of the given user.
	// Returns (nil, nil) when the user has no profile yet.
	GetByUserID(ctx context.Context, userID int) (*UserProfile, error)

	// Create inserts a profile and returns its generated ID.
	Create(ctx context.Context, p UserProfile) (int, error)

	// Update overwrites website and picture of the profile owned by p.UserID.
	Update(ctx context.Context, p UserProfile) error

	// List returns every profile joined with its owner's username, ordered by username.
	List(ctx context.Context) ([]ProfileSummary, error)
}
