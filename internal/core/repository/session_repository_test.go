package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/rango/internal/core/domain"
)

func TestPgxSessionRepository_RoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepository(mock)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	s := domain.NewSession("abc", expires)
	s.Set("visits", "3")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (session_key, session_data, expire_date)")).
		WithArgs("abc", `{"visits":"3"}`, expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Save(ctx, s))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_data, expire_date FROM sessions WHERE session_key = $1")).
		WithArgs("abc", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"session_data", "expire_date"}).AddRow(`{"visits":"3"}`, expires))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3", got.Get("visits"))
	assert.False(t, got.Modified())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_data")).
		WithArgs("gone", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err = repo.Get(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxSessionRepository_CorruptDataYieldsEmptySession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepository(mock)
	expires := time.Now().Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_data")).
		WithArgs("bad", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"session_data", "expire_date"}).AddRow("not json", expires))

	got, err := repo.Get(context.Background(), "bad")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Values)
}

func TestPgxSessionRepository_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSessionRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expire_date <= $1")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRedisSessionRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	repo := NewRedisSessionRepository(NewRedisClient(mr.Addr(), "", 0))
	ctx := context.Background()

	s := domain.NewSession("k1", time.Now().Add(time.Minute))
	s.Set("visits", "2")
	s.Set("last_visit", "2024-05-01 10:00:00.000000")
	require.NoError(t, repo.Save(ctx, s))
	assert.True(t, mr.Exists("session:k1"))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "2", got.Get("visits"))
	assert.Equal(t, "2024-05-01 10:00:00.000000", got.Get("last_visit"))

	mr.FastForward(2 * time.Minute)
	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.Delete(ctx, "k1"))
	assert.False(t, mr.Exists("session:k1"))
}

func TestMemorySessionRepository(t *testing.T) {
	repo := NewMemorySessionRepository()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	s := domain.NewSession("m1", now.Add(time.Hour))
	s.Set("visits", "1")
	require.NoError(t, repo.Save(ctx, s))

	// The stored copy is isolated from later mutation.
	s.Set("visits", "9")
	got, err := repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.Get("visits"))

	now = now.Add(2 * time.Hour)
	got, err = repo.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, repo.Len())
}
