package v1

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
	logicv1 "github.com/duynhne/rango/internal/logic/v1"
	"github.com/duynhne/rango/middleware"
)

// RegisterForm renders the empty registration form.
func (h *Handler) RegisterForm(c *gin.Context) {
	render(c, http.StatusOK, "register.html", gin.H{
		"title":   "Register",
		"form":    domain.UserForm{},
		"profile": domain.ProfileForm{},
	})
}

// Register creates a user and profile, logs the new user in and redirects
// to the profile completion form. Invalid input re-renders the form.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := startSpan(c, "web.register")
	defer span.End()
	log := logger.FromContext(ctx)

	normalizeURLField(c, "website")

	var (
		userForm    domain.UserForm
		profileForm domain.ProfileForm
	)
	userErr := c.ShouldBind(&userForm)
	profileErr := c.ShouldBind(&profileForm)
	if err := errors.Join(userErr, profileErr); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Str("username", userForm.Username).Msg("Invalid registration form")
		h.rerenderRegister(c, userForm, profileForm)
		return
	}

	pic, f, err := readUpload(c, "picture")
	if err != nil {
		log.Warn().Err(err).Msg("Unreadable picture upload")
		h.rerenderRegister(c, userForm, profileForm)
		return
	}
	if f != nil {
		defer f.Close()
	}

	reg, err := h.auth.Register(ctx, logicv1.RegisterRequest{User: userForm, Profile: profileForm, Picture: pic})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrValidationFailed):
			log.Warn().Err(err).Str("username", userForm.Username).Msg("Registration rejected")
			h.rerenderRegister(c, userForm, profileForm)
		default:
			internalError(c, err, "Registration failed")
		}
		return
	}

	logIn(c, reg.User.ID)
	log.Info().Int("user_id", reg.User.ID).Msg("User registered")
	c.Redirect(http.StatusFound, "/rango/register_profile/")
}

func (h *Handler) rerenderRegister(c *gin.Context, userForm domain.UserForm, profileForm domain.ProfileForm) {
	userForm.Password = ""
	render(c, http.StatusOK, "register.html", gin.H{
		"title":   "Register",
		"form":    userForm,
		"profile": profileForm,
	})
}

// RegisterProfileForm renders the profile completion form.
func (h *Handler) RegisterProfileForm(c *gin.Context) {
	render(c, http.StatusOK, "register_profile.html", gin.H{
		"title":   "Complete your profile",
		"profile": domain.ProfileForm{},
	})
}

// RegisterProfile gets or creates the caller's profile, applies the form
// and redirects to the profile page.
func (h *Handler) RegisterProfile(c *gin.Context) {
	ctx, span := startSpan(c, "web.register_profile")
	defer span.End()
	log := logger.FromContext(ctx)
	user := middleware.CurrentUser(c)

	normalizeURLField(c, "website")

	var form domain.ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Err(err).Msg("Invalid profile form")
		h.rerenderProfileForm(c, form)
		return
	}

	pic, f, err := readUpload(c, "picture")
	if err != nil {
		log.Warn().Err(err).Msg("Unreadable picture upload")
		h.rerenderProfileForm(c, form)
		return
	}
	if f != nil {
		defer f.Close()
	}

	if _, err := h.profiles.Complete(ctx, user.ID, form, pic); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrValidationFailed):
			log.Warn().Err(err).Msg("Profile rejected")
			h.rerenderProfileForm(c, form)
		default:
			internalError(c, err, "Profile completion failed")
		}
		return
	}

	c.Redirect(http.StatusFound, profilePath(user.Username))
}

func (h *Handler) rerenderProfileForm(c *gin.Context, form domain.ProfileForm) {
	render(c, http.StatusOK, "register_profile.html", gin.H{
		"title":   "Complete your profile",
		"profile": form,
	})
}

// Profile renders a user's profile. Unknown users redirect to the landing page.
func (h *Handler) Profile(c *gin.Context) {
	ctx, span := startSpan(c, "web.profile")
	defer span.End()

	username := c.Param("username")
	view, err := h.profiles.Get(ctx, username)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrNotFound):
			c.Redirect(http.StatusFound, LandingPath)
		default:
			internalError(c, err, "Profile query failed")
		}
		return
	}
	h.renderProfile(c, view, domain.ProfileForm{Website: view.Profile.Website})
}

// UpdateProfile applies the form to the caller's own profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	ctx, span := startSpan(c, "web.update_profile")
	defer span.End()
	log := logger.FromContext(ctx)

	username := c.Param("username")
	user := middleware.CurrentUser(c)
	if user.Username != username {
		log.Warn().Int("user_id", user.ID).Str("target", username).Msg("Profile update by non-owner")
		c.String(http.StatusForbidden, "You may only edit your own profile.")
		return
	}

	normalizeURLField(c, "website")

	var form domain.ProfileForm
	bindErr := c.ShouldBind(&form)
	pic, f, uploadErr := readUpload(c, "picture")
	if f != nil {
		defer f.Close()
	}
	if err := errors.Join(bindErr, uploadErr); err != nil {
		log.Warn().Err(err).Msg("Invalid profile form")
		h.reshowProfile(c, username, form)
		return
	}

	if _, err := h.profiles.Update(ctx, user, username, form, pic); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrForbidden):
			c.String(http.StatusForbidden, "You may only edit your own profile.")
		case errors.Is(err, logicv1.ErrNotFound):
			c.Redirect(http.StatusFound, LandingPath)
		case errors.Is(err, logicv1.ErrValidationFailed):
			log.Warn().Err(err).Msg("Profile rejected")
			h.reshowProfile(c, username, form)
		default:
			internalError(c, err, "Profile update failed")
		}
		return
	}

	c.Redirect(http.StatusFound, profilePath(username))
}

func (h *Handler) reshowProfile(c *gin.Context, username string, form domain.ProfileForm) {
	view, err := h.profiles.Get(c.Request.Context(), username)
	if err != nil {
		internalError(c, err, "Profile query failed")
		return
	}
	h.renderProfile(c, view, form)
}

func (h *Handler) renderProfile(c *gin.Context, view *logicv1.ProfileView, form domain.ProfileForm) {
	user := middleware.CurrentUser(c)
	render(c, http.StatusOK, "profile.html", gin.H{
		"title":       view.User.Username,
		"profileUser": view.User,
		"profile":     view.Profile,
		"pictureURL":  view.PictureURL,
		"owner":       user != nil && user.ID == view.User.ID,
		"form":        form,
	})
}

type profileRow struct {
	Username   string
	Website    string
	PictureURL string
}

// ListProfiles renders every profile.
func (h *Handler) ListProfiles(c *gin.Context) {
	ctx, span := startSpan(c, "web.profiles")
	defer span.End()

	list, err := h.profiles.List(ctx)
	if err != nil {
		span.RecordError(err)
		internalError(c, err, "Profile list failed")
		return
	}

	rows := make([]profileRow, 0, len(list))
	for _, p := range list {
		rows = append(rows, profileRow{
			Username:   p.Username,
			Website:    p.Profile.Website,
			PictureURL: h.profiles.PictureURL(p.Profile.Picture),
		})
	}
	render(c, http.StatusOK, "profiles.html", gin.H{"title": "Profiles", "profiles": rows})
}

// LoginForm renders the login form.
func (h *Handler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, "login.html", gin.H{
		"title": "Login",
		"next":  c.Query("next"),
	})
}

// Login authenticates the posted credentials and stores the user in a
// fresh session.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startSpan(c, "web.login")
	defer span.End()
	log := logger.FromContext(ctx)

	var form domain.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		log.Warn().Str("username", form.Username).Msg("Invalid login details supplied")
		c.String(http.StatusUnauthorized, "Invalid login details supplied.")
		return
	}

	user, err := h.auth.Login(ctx, form)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, logicv1.ErrInvalidCredentials):
			log.Warn().Str("username", form.Username).Msg("Invalid login details supplied")
			c.String(http.StatusUnauthorized, "Invalid login details supplied.")
		case errors.Is(err, logicv1.ErrAccountDisabled):
			log.Warn().Str("username", form.Username).Msg("Login to disabled account")
			c.String(http.StatusForbidden, "Your account is disabled.")
		default:
			internalError(c, err, "Login failed")
		}
		return
	}

	logIn(c, user.ID)
	log.Info().Int("user_id", user.ID).Msg("Login successful")
	c.Redirect(http.StatusFound, safeNext(c.PostForm("next")))
}

// Logout ends the session and redirects to the landing page.
func (h *Handler) Logout(c *gin.Context) {
	if user := middleware.CurrentUser(c); user != nil {
		logger.FromContext(c.Request.Context()).Info().Int("user_id", user.ID).Msg("Logout")
	}
	middleware.FlushSession(c)
	c.Redirect(http.StatusFound, LandingPath)
}

func logIn(c *gin.Context, userID int) {
	if sess := middleware.RotateSession(c); sess != nil {
		sess.Set(domain.AuthUserKey, strconv.Itoa(userID))
	}
}

// safeNext returns next when it is a local absolute path, the landing page otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return LandingPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return LandingPath
	}
	return next
}

func profilePath(username string) string {
	return "/rango/profile/" + url.PathEscape(username) + "/"
}
