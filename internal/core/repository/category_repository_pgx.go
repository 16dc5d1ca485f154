package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/duynhne/rango/internal/core/domain"
)

// PgxCategoryRepository implements domain.CategoryRepository using pgx.
type PgxCategoryRepository struct {
	db DB
}

// NewCategoryRepository creates a new PgxCategoryRepository.
func NewCategoryRepository(db DB) *PgxCategoryRepository {
	return &PgxCategoryRepository{db: db}
}

func (r *PgxCategoryRepository) getOne(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Slug, &c.Likes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetBySlug returns the category with the given slug, or (nil, nil).
func (r *PgxCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT id, name, slug, likes FROM categories WHERE slug = $1`, slug)
}

// GetByID returns the category with the given id, or (nil, nil).
func (r *PgxCategoryRepository) GetByID(ctx context.Context, id int) (*domain.Category, error) {
	return r.getOne(ctx, `SELECT id, name, slug, likes FROM categories WHERE id = $1`, id)
}

// ExistsByNameOrSlug reports whether the name or slug is already used.
func (r *PgxCategoryRepository) ExistsByNameOrSlug(ctx context.Context, name, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE lower(name) = lower($1) OR slug = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, name, slug).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a category and returns its ID.
func (r *PgxCategoryRepository) Create(ctx context.Context, name, slug string) (int, error) {
	query := `INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id`

	var id int
	if err := r.db.QueryRow(ctx, query, name, slug).Scan(&id); err != nil {
		return 0, mapUniqueViolation(err)
	}
	return id, nil
}

// GetOrCreate returns the category named in.Name, inserting in when absent.
func (r *PgxCategoryRepository) GetOrCreate(ctx context.Context, in domain.Category) (*domain.Category, error) {
	query := `
		INSERT INTO categories (name, slug, likes) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, slug, likes
	`

	var c domain.Category
	if err := r.db.QueryRow(ctx, query, in.Name, in.Slug, in.Likes).Scan(&c.ID, &c.Name, &c.Slug, &c.Likes); err != nil {
		return nil, err
	}
	return &c, nil
}

// TopByLikes returns the most liked categories.
func (r *PgxCategoryRepository) TopByLikes(ctx context.Context, limit int) ([]domain.Category, error) {
	return r.list(ctx, `SELECT id, name, slug, likes FROM categories ORDER BY likes DESC, name LIMIT $1`, limit)
}

// SearchByPrefix returns categories whose name starts with prefix, case-insensitively.
func (r *PgxCategoryRepository) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]domain.Category, error) {
	query := `
		SELECT id, name, slug, likes FROM categories
		WHERE name ILIKE $1 || '%'
		ORDER BY name
		LIMIT $2
	`
	return r.list(ctx, query, escapeLike(prefix), limit)
}

// IncrementLikes adds one like in a single statement.
func (r *PgxCategoryRepository) IncrementLikes(ctx context.Context, id int) (int, bool, error) {
	query := `UPDATE categories SET likes = likes + 1 WHERE id = $1 RETURNING likes`

	var likes int
	if err := r.db.QueryRow(ctx, query, id).Scan(&likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return likes, true, nil
}

func (r *PgxCategoryRepository) list(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Likes); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
