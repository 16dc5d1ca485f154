package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/rango/internal/core/domain"
)

// PgxPageRepository implements domain.PageRepository using pgx.
type PgxPageRepository struct {
	db DB
}

// NewPageRepository creates a new PgxPageRepository.
func NewPageRepository(db DB) *PgxPageRepository {
	return &PgxPageRepository{db: db}
}

// ListByCategory returns a category's pages, most viewed first.
func (r *PgxPageRepository) ListByCategory(ctx context.Context, categoryID int) ([]domain.Page, error) {
	query := `SELECT id, category_id, title, url, views FROM pages WHERE category_id = $1 ORDER BY views DESC, id`
	return r.list(ctx, query, categoryID)
}

// TopByViews returns the most viewed pages across all categories.
func (r *PgxPageRepository) TopByViews(ctx context.Context, limit int) ([]domain.Page, error) {
	query := `SELECT id, category_id, title, url, views FROM pages ORDER BY views DESC, id LIMIT $1`
	return r.list(ctx, query, limit)
}

// Create inserts a page and returns its ID.
func (r *PgxPageRepository) Create(ctx context.Context, p domain.Page) (int, error) {
	query := `INSERT INTO pages (category_id, title, url, views) VALUES ($1, $2, $3, $4) RETURNING id`

	var id int
	if err := r.db.QueryRow(ctx, query, p.CategoryID, p.Title, p.URL, p.Views).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetOrCreate returns the page titled p.Title in p.CategoryID, inserting p when absent.
func (r *PgxPageRepository) GetOrCreate(ctx context.Context, p domain.Page) (*domain.Page, error) {
	query := `SELECT id, category_id, title, url, views FROM pages WHERE category_id = $1 AND title = $2`

	var got domain.Page
	err := r.db.QueryRow(ctx, query, p.CategoryID, p.Title).Scan(&got.ID, &got.CategoryID, &got.Title, &got.URL, &got.Views)
	if err == nil {
		return &got, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	id, err := r.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return &p, nil
}

// IncrementViews adds one view in a single statement and returns the page URL.
func (r *PgxPageRepository) IncrementViews(ctx context.Context, id int) (string, bool, error) {
	query := `UPDATE pages SET views = views + 1 WHERE id = $1 RETURNING url`

	var url string
	if err := r.db.QueryRow(ctx, query, id).Scan(&url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return url, true, nil
}

func (r *PgxPageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Page, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Page
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.URL, &p.Views); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
