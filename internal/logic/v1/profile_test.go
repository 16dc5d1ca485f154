package v1

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/testutil"
)

func TestProfileService_RegisterThenCompleteYieldsOneProfile(t *testing.T) {
	f := newAuthFixture()
	reg := f.register(t, "leifos", "pw")

	p, err := f.profiles.Complete(context.Background(), reg.User.ID,
		domain.ProfileForm{Website: "http://leifos.com"},
		&Upload{Filename: "me.png", Size: int64(len(testutil.PNG)), File: bytes.NewReader(testutil.PNG)})
	require.NoError(t, err)

	assert.Equal(t, reg.Profile.ID, p.ID)
	assert.Equal(t, "http://leifos.com", p.Website)
	assert.NotEmpty(t, p.Picture)
	assert.Equal(t, 1, f.users.Len())
	assert.Equal(t, 1, f.profRepo.Len())

	view, err := f.profiles.Get(context.Background(), "leifos")
	require.NoError(t, err)
	assert.Equal(t, "http://leifos.com", view.Profile.Website)
	assert.Equal(t, "/media/"+p.Picture, view.PictureURL)
}

func TestProfileService_CompleteKeepsPictureWithoutUpload(t *testing.T) {
	f := newAuthFixture()
	reg := f.register(t, "leifos", "pw")
	ctx := context.Background()

	first, err := f.profiles.Complete(ctx, reg.User.ID, domain.ProfileForm{},
		&Upload{Filename: "me.png", Size: int64(len(testutil.PNG)), File: bytes.NewReader(testutil.PNG)})
	require.NoError(t, err)

	second, err := f.profiles.Complete(ctx, reg.User.ID, domain.ProfileForm{Website: "example.org"}, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Picture, second.Picture)
	assert.Equal(t, "http://example.org", second.Website)
}

func TestProfileService_GetCreatesMissingProfile(t *testing.T) {
	f := newAuthFixture()
	id, err := f.users.Create(context.Background(), "legacy", "", "hash")
	require.NoError(t, err)

	view, err := f.profiles.Get(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, id, view.Profile.UserID)
	assert.Equal(t, 1, f.profRepo.Len())

	_, err = f.profiles.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileService_UpdateOnlyByOwner(t *testing.T) {
	f := newAuthFixture()
	owner := f.register(t, "leifos", "pw")
	other := f.register(t, "maxi", "pw")
	ctx := context.Background()

	_, err := f.profiles.Update(ctx, &other.User, "leifos", domain.ProfileForm{Website: "http://evil"}, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	view, err := f.profiles.Update(ctx, &owner.User, "leifos", domain.ProfileForm{Website: "http://leifos.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://leifos.com", view.Profile.Website)
}

func TestProfileService_RejectsOversizedPicture(t *testing.T) {
	f := newAuthFixture()
	reg := f.register(t, "leifos", "pw")

	_, err := f.profiles.Complete(context.Background(), reg.User.ID, domain.ProfileForm{},
		&Upload{Filename: "big.png", Size: 2 << 20, File: bytes.NewReader(testutil.PNG)})
	assert.ErrorIs(t, err, ErrInvalidUpload)
}

func TestProfileService_List(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "zed", "pw")
	f.register(t, "amy", "pw")

	list, err := f.profiles.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "amy", list[0].Username)
}
