package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/rango/internal/core/domain"
)

func TestPgxPageRepository_IncrementViews(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPageRepository(mock)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE pages SET views = views + 1 WHERE id = $1 RETURNING url")).
		WithArgs(7).
		WillReturnRows(pgxmock.NewRows([]string{"url"}).AddRow("https://go.dev/"))

	url, found, err := repo.IncrementViews(ctx, 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://go.dev/", url)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE pages SET views = views + 1")).
		WithArgs(8).
		WillReturnError(pgx.ErrNoRows)

	_, found, err = repo.IncrementViews(ctx, 8)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxPageRepository_GetOrCreateInsertsWhenMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE category_id = $1 AND title = $2")).
		WithArgs(1, "Official Tutorial").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pages (category_id, title, url, views)")).
		WithArgs(1, "Official Tutorial", "http://docs.python.org/3/tutorial/", 0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(12))

	p, err := repo.GetOrCreate(context.Background(), domain.Page{
		CategoryID: 1,
		Title:      "Official Tutorial",
		URL:        "http://docs.python.org/3/tutorial/",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxPageRepository_ListByCategory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pages WHERE category_id = $1")).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "category_id", "title", "url", "views"}).
			AddRow(4, 2, "Bottle", "http://bottlepy.org/docs/dev/", 9).
			AddRow(5, 2, "Flask", "http://flask.pocoo.org", 3))

	pages, err := repo.ListByCategory(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Bottle", pages[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
