package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
	logicv1 "github.com/duynhne/rango/internal/logic/v1"
	"github.com/duynhne/rango/middleware"
)

// Paths used for redirects.
const (
	LandingPath = "/rango/"
	LoginPath   = "/rango/login/"
)

// Handler groups the HTML handlers of the rango site.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	catalog  *logicv1.CatalogService
	auth     *logicv1.AuthService
	profiles *logicv1.ProfileService
	tracker  *logicv1.VisitTracker
	limiter  *middleware.IPRateLimiter
}

// NewHandler creates a new Handler. limiter may be nil to disable login
// rate limiting.
func NewHandler(
	catalog *logicv1.CatalogService,
	auth *logicv1.AuthService,
	profiles *logicv1.ProfileService,
	tracker *logicv1.VisitTracker,
	limiter *middleware.IPRateLimiter,
) *Handler {
	return &Handler{catalog: catalog, auth: auth, profiles: profiles, tracker: tracker, limiter: limiter}
}

// RegisterRoutes registers the site routes on the /rango group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.Index)
	rg.GET("/about/", h.About)
	rg.GET("/category/:slug/", h.ShowCategory)
	rg.GET("/goto/", h.TrackURL)
	rg.GET("/suggest/", h.SuggestCategory)
	rg.GET("/register/", h.RegisterForm)
	rg.POST("/register/", h.Register)
	rg.GET("/login/", h.LoginForm)
	if h.limiter != nil {
		rg.POST("/login/", h.limiter.Middleware(), h.Login)
	} else {
		rg.POST("/login/", h.Login)
	}

	auth := rg.Group("", middleware.RequireLogin(LoginPath))
	{
		auth.GET("/add_category/", h.AddCategoryForm)
		auth.POST("/add_category/", h.AddCategory)
		auth.GET("/category/:slug/add_page/", h.AddPageForm)
		auth.POST("/category/:slug/add_page/", h.AddPage)
		auth.GET("/like/", h.LikeCategory)
		auth.GET("/register_profile/", h.RegisterProfileForm)
		auth.POST("/register_profile/", h.RegisterProfile)
		auth.GET("/profile/:username/", h.Profile)
		auth.POST("/profile/:username/", h.UpdateProfile)
		auth.GET("/profiles/", h.ListProfiles)
		auth.GET("/logout/", h.Logout)
		auth.GET("/restricted/", h.Restricted)
	}
}

// Index renders the landing page: top categories, top pages and the visit count.
func (h *Handler) Index(c *gin.Context) {
	ctx, span := startSpan(c, "web.index")
	defer span.End()

	visits := h.trackVisit(c)

	landing, err := h.catalog.Landing(ctx)
	if err != nil {
		span.RecordError(err)
		internalError(c, err, "Landing query failed")
		return
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"title":      "Rango",
		"categories": landing.Categories,
		"pages":      landing.Pages,
		"visits":     visits,
	})
}

// About renders the about page with the visit count.
func (h *Handler) About(c *gin.Context) {
	_, span := startSpan(c, "web.about")
	defer span.End()

	render(c, http.StatusOK, "about.html", gin.H{
		"title":  "About",
		"visits": h.trackVisit(c),
	})
}

func (h *Handler) trackVisit(c *gin.Context) int {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		sess = domain.NewSession("", time.Now())
	}
	state := h.tracker.Track(sess)

	outcome := "reset"
	if state.Visits > 1 {
		outcome = "counted"
	}
	middleware.VisitsTotal.WithLabelValues(outcome).Inc()
	return state.Visits
}

// TrackURL counts a page view and redirects to the page's URL.
func (h *Handler) TrackURL(c *gin.Context) {
	ctx, span := startSpan(c, "web.goto")
	defer span.End()
	log := logger.FromContext(ctx)

	raw, ok := c.GetQuery("page_id")
	if !ok || raw == "" {
		log.Info().Msg("goto called without page_id")
		c.Redirect(http.StatusFound, LandingPath)
		return
	}

	id, ok := parseID(raw)
	if !ok {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.String(http.StatusNotFound, "Page not found")
		return
	}
	span.SetAttributes(attribute.Int("page.id", id))

	target, err := h.catalog.TrackView(ctx, id)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrNotFound):
			c.String(http.StatusNotFound, "Page not found")
		default:
			log.Error().Err(err).Int("page_id", id).Msg("Page view tracking failed")
			c.String(http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.Redirect(http.StatusFound, target)
}

// LikeCategory adds one like and responds with the new count as text.
func (h *Handler) LikeCategory(c *gin.Context) {
	ctx, span := startSpan(c, "web.like")
	defer span.End()

	id, ok := parseID(c.Query("category_id"))
	if !ok {
		c.String(http.StatusNotFound, "Category not found")
		return
	}

	likes, err := h.catalog.LikeCategory(ctx, id)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrNotFound):
			c.String(http.StatusNotFound, "Category not found")
		default:
			logger.FromContext(ctx).Error().Err(err).Int("category_id", id).Msg("Like failed")
			c.String(http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.String(http.StatusOK, strconv.Itoa(likes))
}

// SuggestCategory renders the category suggestion fragment.
func (h *Handler) SuggestCategory(c *gin.Context) {
	ctx, span := startSpan(c, "web.suggest")
	defer span.End()

	cats, err := h.catalog.Suggest(ctx, c.Query("suggestion"))
	if err != nil {
		span.RecordError(err)
		internalError(c, err, "Suggest query failed")
		return
	}
	c.HTML(http.StatusOK, "suggest.html", gin.H{"categories": cats})
}

// Restricted renders a page only logged-in users may see.
func (h *Handler) Restricted(c *gin.Context) {
	render(c, http.StatusOK, "restricted.html", gin.H{"title": "Restricted"})
}

func startSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), name, trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
}

// render executes the named template with the current user added to data.
func render(c *gin.Context, status int, name string, data gin.H) {
	data["user"] = middleware.CurrentUser(c)
	c.HTML(status, name, data)
}

func internalError(c *gin.Context, err error, msg string) {
	logger.FromContext(c.Request.Context()).Error().Err(err).Msg(msg)
	c.String(http.StatusInternalServerError, "Internal server error")
}

// parseID parses a positive row id. Values outside the INTEGER column range
// cannot name a row and are rejected.
func parseID(raw string) (int, bool) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int(id), true
}
