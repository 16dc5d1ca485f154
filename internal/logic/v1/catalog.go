package v1

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/middleware"
)

const (
	// TopListSize is how many categories and pages the landing page shows.
	TopListSize = 5
	// SuggestionLimit caps the category suggestion list.
	SuggestionLimit = 8
)

// CatalogService implements the category and page business rules.
// It depends on repository interfaces only.
type CatalogService struct {
	categories domain.CategoryRepository
	pages      domain.PageRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(categories domain.CategoryRepository, pages domain.PageRepository) *CatalogService {
	return &CatalogService{categories: categories, pages: pages}
}

// Landing is the data shown on the landing page.
type Landing struct {
	Categories []domain.Category
	Pages      []domain.Page
}

// Landing returns the most liked categories and the most viewed pages.
func (s *CatalogService) Landing(ctx context.Context) (*Landing, error) {
	ctx, span := middleware.StartSpan(ctx, "catalog.landing", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	cats, err := s.categories.TopByLikes(ctx, TopListSize)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("list top categories", err)
	}
	pages, err := s.pages.TopByViews(ctx, TopListSize)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("list top pages", err)
	}
	return &Landing{Categories: cats, Pages: pages}, nil
}

// GetCategory returns the category with the given slug.
func (s *CatalogService) GetCategory(ctx context.Context, slug string) (*domain.Category, error) {
	c, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, persistence("query category "+slug, err)
	}
	if c == nil {
		return nil, fmt.Errorf("lookup %q: %w", slug, ErrCategoryNotFound)
	}
	return c, nil
}

// ShowCategory returns the category and its pages.
func (s *CatalogService) ShowCategory(ctx context.Context, slug string) (*domain.Category, []domain.Page, error) {
	ctx, span := middleware.StartSpan(ctx, "catalog.show_category", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("category.slug", slug),
	))
	defer span.End()

	c, err := s.GetCategory(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	pages, err := s.pages.ListByCategory(ctx, c.ID)
	if err != nil {
		span.RecordError(err)
		return nil, nil, persistence("list pages", err)
	}
	return c, pages, nil
}

// AddCategory creates a category with a slug derived from its name. Names
// that collide case-insensitively, or whose slug is taken, are rejected.
func (s *CatalogService) AddCategory(ctx context.Context, form domain.CategoryForm) (*domain.Category, error) {
	name := strings.TrimSpace(form.Name)
	ctx, span := middleware.StartSpan(ctx, "catalog.add_category", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("category.name", name),
	))
	defer span.End()

	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: name %q yields an empty slug", ErrValidationFailed, name)
	}

	exists, err := s.categories.ExistsByNameOrSlug(ctx, name, slug)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("check existing category", err)
	}
	if exists {
		return nil, fmt.Errorf("add %q: %w", name, ErrCategoryExists)
	}

	id, err := s.categories.Create(ctx, name, slug)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("add %q: %w", name, ErrCategoryExists)
		}
		return nil, persistence("insert category", err)
	}

	span.AddEvent("category.created")
	return &domain.Category{ID: id, Name: name, Slug: slug}, nil
}

// AddPage creates a page with zero views in the category with the given slug.
func (s *CatalogService) AddPage(ctx context.Context, slug string, form domain.PageForm) (*domain.Page, error) {
	ctx, span := middleware.StartSpan(ctx, "catalog.add_page", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("category.slug", slug),
	))
	defer span.End()

	c, err := s.GetCategory(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p := domain.Page{
		CategoryID: c.ID,
		Title:      strings.TrimSpace(form.Title),
		URL:        NormalizeURL(form.URL),
		Views:      0,
	}
	id, err := s.pages.Create(ctx, p)
	if err != nil {
		span.RecordError(err)
		return nil, persistence("insert page", err)
	}
	p.ID = id

	span.AddEvent("page.created")
	return &p, nil
}

// TrackView counts one view of the page and returns the URL to redirect to.
func (s *CatalogService) TrackView(ctx context.Context, pageID int) (string, error) {
	ctx, span := middleware.StartSpan(ctx, "catalog.track_view", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("page.id", pageID),
	))
	defer span.End()

	target, found, err := s.pages.IncrementViews(ctx, pageID)
	if err != nil {
		span.RecordError(err)
		return "", persistence("increment page views", err)
	}
	if !found {
		return "", fmt.Errorf("track page %d: %w", pageID, ErrPageNotFound)
	}

	middleware.PageViewsTotal.Inc()
	return target, nil
}

// LikeCategory adds a like and returns the new count.
func (s *CatalogService) LikeCategory(ctx context.Context, categoryID int) (int, error) {
	ctx, span := middleware.StartSpan(ctx, "catalog.like_category", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("category.id", categoryID),
	))
	defer span.End()

	likes, found, err := s.categories.IncrementLikes(ctx, categoryID)
	if err != nil {
		span.RecordError(err)
		return 0, persistence("increment likes", err)
	}
	if !found {
		return 0, fmt.Errorf("like category %d: %w", categoryID, ErrCategoryNotFound)
	}

	middleware.CategoryLikesTotal.Inc()
	return likes, nil
}

// Suggest returns categories whose name starts with prefix. An empty
// prefix returns the most liked categories.
func (s *CatalogService) Suggest(ctx context.Context, prefix string) ([]domain.Category, error) {
	prefix = strings.TrimSpace(prefix)

	var (
		cats []domain.Category
		err  error
	)
	if prefix == "" {
		cats, err = s.categories.TopByLikes(ctx, SuggestionLimit)
	} else {
		cats, err = s.categories.SearchByPrefix(ctx, prefix, SuggestionLimit)
	}
	if err != nil {
		return nil, persistence("suggest categories", err)
	}
	return cats, nil
}

// NormalizeURL prepends http:// to URLs given without a scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return raw
	}
	return "http://" + raw
}
