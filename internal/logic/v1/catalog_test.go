package v1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/testutil"
)

func newCatalog() (*CatalogService, *testutil.Categories, *testutil.Pages) {
	cats := testutil.NewCategories()
	pages := testutil.NewPages()
	return NewCatalogService(cats, pages), cats, pages
}

func TestCatalogService_Landing(t *testing.T) {
	svc, cats, pages := newCatalog()
	for i, name := range []string{"A", "B", "C", "D", "E", "F"} {
		c := cats.Add(name, Slugify(name), i)
		pages.Add(domain.Page{CategoryID: c.ID, Title: name, URL: "http://" + name, Views: 10 - i})
	}

	got, err := svc.Landing(context.Background())
	require.NoError(t, err)

	require.Len(t, got.Categories, TopListSize)
	assert.Equal(t, "F", got.Categories[0].Name)
	require.Len(t, got.Pages, TopListSize)
	assert.Equal(t, "A", got.Pages[0].Title)
}

func TestCatalogService_ShowCategory(t *testing.T) {
	svc, cats, pages := newCatalog()
	c := cats.Add("Python", "python", 0)
	pages.Add(domain.Page{CategoryID: c.ID, Title: "Tutorial", URL: "http://docs.python.org"})

	got, list, err := svc.ShowCategory(context.Background(), "python")
	require.NoError(t, err)
	assert.Equal(t, "Python", got.Name)
	assert.Len(t, list, 1)

	_, _, err = svc.ShowCategory(context.Background(), "cobol")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_AddCategory(t *testing.T) {
	svc, cats, _ := newCatalog()
	ctx := context.Background()

	c, err := svc.AddCategory(ctx, domain.CategoryForm{Name: " Other Frameworks "})
	require.NoError(t, err)
	assert.Equal(t, "Other Frameworks", c.Name)
	assert.Equal(t, "other-frameworks", c.Slug)
	assert.Equal(t, 0, c.Likes)

	_, err = svc.AddCategory(ctx, domain.CategoryForm{Name: "other frameworks"})
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = svc.AddCategory(ctx, domain.CategoryForm{Name: "Other-Frameworks"})
	assert.ErrorIs(t, err, ErrCategoryExists, "slug collision")

	_, err = svc.AddCategory(ctx, domain.CategoryForm{Name: "!!!"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Equal(t, 1, cats.Len())
}

// staleCategories misses existing names, as a concurrent insert would.
type staleCategories struct{ *testutil.Categories }

func (staleCategories) ExistsByNameOrSlug(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestCatalogService_AddCategoryConcurrentDuplicate(t *testing.T) {
	_, cats, pages := newCatalog()
	cats.Add("Python", "python", 0)
	svc := NewCatalogService(staleCategories{cats}, pages)

	_, err := svc.AddCategory(context.Background(), domain.CategoryForm{Name: "python"})
	assert.ErrorIs(t, err, ErrCategoryExists)
	assert.NotErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 1, cats.Len())
}

func TestCatalogService_AddCategoryPersistenceFailure(t *testing.T) {
	svc, cats, _ := newCatalog()
	cats.Fail = true

	_, err := svc.AddCategory(context.Background(), domain.CategoryForm{Name: "Go"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, testutil.ErrInjected)
}

func TestCatalogService_AddPage(t *testing.T) {
	svc, cats, pages := newCatalog()
	cats.Add("Django", "django", 0)

	p, err := svc.AddPage(context.Background(), "django", domain.PageForm{Title: "Docs", URL: "docs.djangoproject.com"})
	require.NoError(t, err)
	assert.Equal(t, "http://docs.djangoproject.com", p.URL)
	assert.Equal(t, 0, p.Views)

	_, err = svc.AddPage(context.Background(), "missing", domain.PageForm{Title: "x", URL: "http://x"})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Equal(t, 1, pages.Len())
}

func TestCatalogService_TrackView(t *testing.T) {
	svc, cats, pages := newCatalog()
	c := cats.Add("Go", "go", 0)
	p := pages.Add(domain.Page{CategoryID: c.ID, Title: "Tour", URL: "https://go.dev/tour", Views: 4})

	target, err := svc.TrackView(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev/tour", target)
	assert.Equal(t, 5, pages.Get(p.ID).Views)

	_, err = svc.TrackView(context.Background(), 999)
	assert.ErrorIs(t, err, ErrPageNotFound)
	assert.Equal(t, 5, pages.Get(p.ID).Views)

	pages.Fail = true
	_, err = svc.TrackView(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestCatalogService_LikeCategory(t *testing.T) {
	svc, cats, _ := newCatalog()
	c := cats.Add("Go", "go", 7)

	likes, err := svc.LikeCategory(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, likes)

	_, err = svc.LikeCategory(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCatalogService_Suggest(t *testing.T) {
	svc, cats, _ := newCatalog()
	cats.Add("Python", "python", 3)
	cats.Add("Pyramid", "pyramid", 1)
	cats.Add("Django", "django", 9)

	got, err := svc.Suggest(context.Background(), "py")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Pyramid", got[0].Name)

	got, err = svc.Suggest(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Django", got[0].Name)
}
