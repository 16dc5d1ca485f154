package v1

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/middleware"
)

// AuthService implements registration and login business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users    domain.UserRepository
	profiles *ProfileService
	cost     int
}

// NewAuthService creates a new AuthService. Profiles created at
// registration go through the given ProfileService.
func NewAuthService(users domain.UserRepository, profiles *ProfileService) *AuthService {
	return &AuthService{users: users, profiles: profiles, cost: bcrypt.DefaultCost}
}

// RegisterRequest is a validated registration: identity fields plus the
// optional profile fields.
type RegisterRequest struct {
	User    domain.UserForm
	Profile domain.ProfileForm
	Picture *Upload
}

// Registration is the result of a successful registration.
type Registration struct {
	User    domain.User
	Profile domain.UserProfile
}

// Register creates the user with a hashed password together with the
// linked profile. The picture is stored first; the user and profile rows
// are written atomically.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	username := strings.TrimSpace(req.User.Username)
	email := strings.TrimSpace(req.User.Email)
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", username),
	))
	defer span.End()

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("check existing user", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register user %q: %w", username, ErrUserExists)
	}

	if req.Picture != nil {
		if _, err := s.profiles.CheckPicture(req.Picture); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.User.Password), s.cost)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("register user %q: %w", username, ErrPasswordTooLong)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := domain.UserProfile{Website: NormalizeOptionalURL(req.Profile.Website)}
	if req.Picture != nil {
		key, err := s.profiles.storePicture(ctx, req.Picture)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		profile.Picture = key
	}

	userID, profileID, err := s.users.CreateWithProfile(ctx, username, email, string(passwordHash), profile)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("register user %q: %w", username, ErrUserExists)
		}
		return nil, persistence("insert user and profile", err)
	}
	profile.ID, profile.UserID = profileID, userID

	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &Registration{
		User: domain.User{
			ID:       userID,
			Username: username,
			Email:    email,
			IsActive: true,
		},
		Profile: profile,
	}, nil
}

// Login verifies credentials and returns the user.
func (s *AuthService) Login(ctx context.Context, req domain.LoginForm) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	row, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("query user "+req.Username, err)
	}
	if row == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrInvalidCredentials)
	}

	if !row.IsActive {
		span.SetAttributes(attribute.Bool("auth.success", false))
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrAccountDisabled)
	}

	// Best-effort, don't fail login.
	if updateErr := s.users.UpdateLastLogin(ctx, row.ID); updateErr != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", updateErr))
	}

	span.SetAttributes(
		attribute.Int("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	user := row.User
	return &user, nil
}

// GetUser returns the user with the given id, or (nil, nil) when it no longer exists.
func (s *AuthService) GetUser(ctx context.Context, id int) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, persistence(fmt.Sprintf("query user %d", id), err)
	}
	return u, nil
}

// dummyHash is compared against when the username is unknown, so both
// failure paths cost one bcrypt comparison.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOa5pUu6JVkPN8KZ9BwlMDTKXcn/Ia9Da")
