package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
)

const userContextKey = "rango.user"

// UserLookup resolves the user recorded in a session.
type UserLookup interface {
	GetUser(ctx context.Context, id int) (*domain.User, error)
}

// Authentication resolves the session's user and exposes it through
// CurrentUser. Sessions pointing at deleted or disabled users are logged out.
func Authentication(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || sess.UserID() == 0 {
			c.Next()
			return
		}

		user, err := users.GetUser(c.Request.Context(), sess.UserID())
		switch {
		case err != nil:
			logger.FromContext(c.Request.Context()).Warn().Err(err).Int("user_id", sess.UserID()).Msg("Session user lookup failed")
			sess.Delete(domain.AuthUserKey)
		case user == nil || !user.IsActive:
			sess.Delete(domain.AuthUserKey)
		default:
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	return v.(*domain.User)
}

// RequireLogin redirects anonymous requests to loginURL with a next parameter.
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		target := loginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}
