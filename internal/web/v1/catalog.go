package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
	logicv1 "github.com/duynhne/rango/internal/logic/v1"
)

// ShowCategory renders a category with its pages. An unknown slug renders
// the page without a category.
func (h *Handler) ShowCategory(c *gin.Context) {
	ctx, span := startSpan(c, "web.category")
	defer span.End()

	slug := c.Param("slug")
	span.SetAttributes(attribute.String("category.slug", slug))

	cat, pages, err := h.catalog.ShowCategory(ctx, slug)
	if err != nil && !errors.Is(err, logicv1.ErrNotFound) {
		span.RecordError(err)
		internalError(c, err, "Category query failed")
		return
	}

	title := "Unknown category"
	if cat != nil {
		title = cat.Name
	}
	render(c, http.StatusOK, "category.html", gin.H{
		"title":    title,
		"slug":     slug,
		"category": cat,
		"pages":    pages,
	})
}

// AddCategoryForm renders the empty add-category form.
func (h *Handler) AddCategoryForm(c *gin.Context) {
	render(c, http.StatusOK, "add_category.html", gin.H{
		"title": "Add a Category",
		"form":  domain.CategoryForm{},
	})
}

// AddCategory creates a category and redirects to the landing page.
// Invalid input re-renders the form.
func (h *Handler) AddCategory(c *gin.Context) {
	ctx, span := startSpan(c, "web.add_category")
	defer span.End()
	log := logger.FromContext(ctx)

	var form domain.CategoryForm
	if err := c.ShouldBind(&form); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Msg("Invalid category form")
		h.rerenderCategory(c, form)
		return
	}

	cat, err := h.catalog.AddCategory(ctx, form)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrValidationFailed):
			log.Warn().Err(err).Str("name", form.Name).Msg("Category rejected")
			h.rerenderCategory(c, form)
		default:
			internalError(c, err, "Add category failed")
		}
		return
	}

	log.Info().Int("category_id", cat.ID).Str("slug", cat.Slug).Msg("Category created")
	c.Redirect(http.StatusFound, LandingPath)
}

func (h *Handler) rerenderCategory(c *gin.Context, form domain.CategoryForm) {
	render(c, http.StatusOK, "add_category.html", gin.H{
		"title": "Add a Category",
		"form":  form,
	})
}

// AddPageForm renders the add-page form for a category.
func (h *Handler) AddPageForm(c *gin.Context) {
	ctx, span := startSpan(c, "web.add_page_form")
	defer span.End()

	cat, err := h.lookupCategory(ctx, c.Param("slug"))
	if err != nil {
		span.RecordError(err)
		internalError(c, err, "Category query failed")
		return
	}
	h.renderPageForm(c, cat, domain.PageForm{})
}

// AddPage creates a page in the category and redirects to the category.
// Pages are never created for an unknown category.
func (h *Handler) AddPage(c *gin.Context) {
	ctx, span := startSpan(c, "web.add_page")
	defer span.End()
	log := logger.FromContext(ctx)

	slug := c.Param("slug")
	cat, err := h.lookupCategory(ctx, slug)
	if err != nil {
		span.RecordError(err)
		internalError(c, err, "Category query failed")
		return
	}

	normalizeURLField(c, "url")

	var form domain.PageForm
	if err := c.ShouldBind(&form); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Msg("Invalid page form")
		h.renderPageForm(c, cat, form)
		return
	}
	if cat == nil {
		log.Warn().Str("slug", slug).Msg("Page submitted for unknown category")
		h.renderPageForm(c, nil, form)
		return
	}

	page, err := h.catalog.AddPage(ctx, slug, form)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrNotFound), errors.Is(err, logicv1.ErrValidationFailed):
			log.Warn().Err(err).Msg("Page rejected")
			h.renderPageForm(c, cat, form)
		default:
			internalError(c, err, "Add page failed")
		}
		return
	}

	log.Info().Int("page_id", page.ID).Int("category_id", cat.ID).Msg("Page created")
	c.Redirect(http.StatusFound, "/rango/category/"+cat.Slug+"/")
}

func (h *Handler) lookupCategory(ctx context.Context, slug string) (*domain.Category, error) {
	cat, err := h.catalog.GetCategory(ctx, slug)
	if errors.Is(err, logicv1.ErrNotFound) {
		return nil, nil
	}
	return cat, err
}

func (h *Handler) renderPageForm(c *gin.Context, cat *domain.Category, form domain.PageForm) {
	render(c, http.StatusOK, "add_page.html", gin.H{
		"title":    "Add a Page",
		"slug":     c.Param("slug"),
		"category": cat,
		"form":     form,
	})
}
