package v1

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/middleware"
)

// Upload is an uploaded file as received from a multipart form.
type Upload struct {
	Filename string
	Size     int64
	File     io.ReadSeeker
}

// ProfileService implements profile creation, completion and lookup.
type ProfileService struct {
	users    domain.UserRepository
	profiles domain.ProfileRepository
	media    domain.MediaStore
	maxBytes int64
}

// NewProfileService creates a new ProfileService. Pictures larger than
// maxBytes are rejected.
func NewProfileService(users domain.UserRepository, profiles domain.ProfileRepository, media domain.MediaStore, maxBytes int64) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, media: media, maxBytes: maxBytes}
}

// ProfileView is a user together with their profile.
type ProfileView struct {
	User       domain.User
	Profile    domain.UserProfile
	PictureURL string
}

// Complete gets or creates the user's profile and applies the form. The
// website is replaced by the submitted value; the picture only changes
// when a new one is uploaded.
func (s *ProfileService) Complete(ctx context.Context, userID int, form domain.ProfileForm, pic *Upload) (*domain.UserProfile, error) {
	ctx, span := middleware.StartSpan(ctx, "profile.complete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", userID),
		attribute.Bool("picture.present", pic != nil),
	))
	defer span.End()

	var pictureKey string
	if pic != nil {
		key, err := s.storePicture(ctx, pic)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		pictureKey = key
	}

	profile, created, err := s.getOrCreate(ctx, userID, domain.UserProfile{
		UserID:  userID,
		Website: NormalizeOptionalURL(form.Website),
		Picture: pictureKey,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if created {
		return profile, nil
	}

	profile.Website = NormalizeOptionalURL(form.Website)
	if pictureKey != "" {
		profile.Picture = pictureKey
	}
	if err := s.profiles.Update(ctx, *profile); err != nil {
		span.RecordError(err)
		return nil, persistence("update profile", err)
	}
	return profile, nil
}

// Get returns the named user and their profile, creating an empty profile
// when the user has none.
func (s *ProfileService) Get(ctx context.Context, username string) (*ProfileView, error) {
	row, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, persistence("query user "+username, err)
	}
	if row == nil {
		return nil, fmt.Errorf("profile of %q: %w", username, ErrUserNotFound)
	}

	profile, _, err := s.getOrCreate(ctx, row.ID, domain.UserProfile{UserID: row.ID})
	if err != nil {
		return nil, err
	}
	return &ProfileView{User: row.User, Profile: *profile, PictureURL: s.media.URL(profile.Picture)}, nil
}

// Update applies the form to the named user's profile on behalf of actor.
// Only the owner may update a profile.
func (s *ProfileService) Update(ctx context.Context, actor *domain.User, username string, form domain.ProfileForm, pic *Upload) (*ProfileView, error) {
	if actor == nil || actor.Username != username {
		return nil, fmt.Errorf("update profile of %q: %w", username, ErrForbidden)
	}
	if _, err := s.Complete(ctx, actor.ID, form, pic); err != nil {
		return nil, err
	}
	return s.Get(ctx, username)
}

// List returns every profile with its owner's username.
func (s *ProfileService) List(ctx context.Context) ([]domain.ProfileSummary, error) {
	list, err := s.profiles.List(ctx)
	if err != nil {
		return nil, persistence("list profiles", err)
	}
	return list, nil
}

// PictureURL returns the public URL of a stored picture key.
func (s *ProfileService) PictureURL(key string) string {
	return s.media.URL(key)
}

func (s *ProfileService) getOrCreate(ctx context.Context, userID int, initial domain.UserProfile) (*domain.UserProfile, bool, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, persistence("query profile", err)
	}
	if p != nil {
		return p, false, nil
	}

	id, err := s.profiles.Create(ctx, initial)
	if err != nil {
		return nil, false, persistence("insert profile", err)
	}
	initial.ID = id
	return &initial, true, nil
}

// CheckPicture reports whether pic is an acceptable profile picture and
// returns its sniffed content type. The reader is left at offset zero.
func (s *ProfileService) CheckPicture(pic *Upload) (string, error) {
	if s.maxBytes > 0 && pic.Size > s.maxBytes {
		return "", fmt.Errorf("picture %q is %d bytes, limit %d: %w", pic.Filename, pic.Size, s.maxBytes, ErrInvalidUpload)
	}

	mt, err := mimetype.DetectReader(pic.File)
	if err != nil {
		return "", fmt.Errorf("sniff picture %q: %w", pic.Filename, ErrInvalidUpload)
	}
	if _, err := pic.File.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind picture: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("picture %q has type %s: %w", pic.Filename, mt.String(), ErrInvalidUpload)
	}
	return mt.String(), nil
}

func (s *ProfileService) storePicture(ctx context.Context, pic *Upload) (string, error) {
	contentType, err := s.CheckPicture(pic)
	if err != nil {
		return "", err
	}

	key, err := s.media.Save(ctx, pic.Filename, contentType, pic.File)
	if err != nil {
		return "", persistence("store picture", err)
	}
	return key, nil
}

// NormalizeOptionalURL is NormalizeURL that leaves an empty value empty.
func NormalizeOptionalURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return NormalizeURL(raw)
}
