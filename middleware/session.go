package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
)

const sessionContextKey = "rango.session"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

type sessionState struct {
	store   domain.SessionRepository
	opts    SessionOptions
	session *domain.Session
	// stale holds a key whose stored session must be removed after the handler.
	stale string
}

// Sessions loads the client's session (or starts a new one), exposes it to
// handlers through CurrentSession, and saves it after the handler when it
// was modified or its expiry was extended. The cookie is written before the handler runs so that
// handlers may stream responses.
func Sessions(store domain.SessionRepository, opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		var sess *domain.Session
		if key, err := c.Cookie(opts.CookieName); err == nil && key != "" {
			loaded, err := store.Get(ctx, key)
			if err != nil {
				log.Warn().Err(err).Msg("Session load failed, starting a new session")
			}
			sess = loaded
		}
		if sess == nil {
			sess = domain.NewSession(uuid.NewString(), time.Now().Add(opts.MaxAge))
		} else if time.Until(sess.ExpiresAt) < opts.MaxAge-refreshAfter(opts.MaxAge) {
			sess.Extend(time.Now().Add(opts.MaxAge))
		}

		state := &sessionState{store: store, opts: opts, session: sess}
		c.Set(sessionContextKey, state)
		setSessionCookie(c, opts, sess)

		c.Next()

		// Saving uses a fresh context so a cancelled request still persists its counters.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if state.stale != "" {
			if err := store.Delete(saveCtx, state.stale); err != nil {
				log.Warn().Err(err).Msg("Session delete failed")
			}
		}
		if state.session.Modified() {
			if err := store.Save(saveCtx, state.session); err != nil {
				log.Error().Err(err).Msg("Session save failed")
				return
			}
			state.session.MarkSaved()
		}
	}
}

// CurrentSession returns the request's session, or nil outside the Sessions middleware.
func CurrentSession(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	return v.(*sessionState).session
}

// RotateSession moves the current values to a fresh session key, as done on
// login to prevent session fixation.
func RotateSession(c *gin.Context) *domain.Session {
	return renew(c, true)
}

// FlushSession discards every session value and issues a fresh key.
func FlushSession(c *gin.Context) *domain.Session {
	return renew(c, false)
}

func renew(c *gin.Context, keepValues bool) *domain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	state := v.(*sessionState)
	old := state.session

	next := domain.NewSession(uuid.NewString(), time.Now().Add(state.opts.MaxAge))
	if keepValues {
		for k, val := range old.Values {
			next.Set(k, val)
		}
	}

	state.stale = old.Key
	state.session = next
	setSessionCookie(c, state.opts, next)
	return next
}

// refreshAfter is how long a session is used before its expiry slides
// forward and it is written back to the store.
func refreshAfter(maxAge time.Duration) time.Duration {
	return min(time.Minute, maxAge/2)
}

// setSessionCookie writes the cookie so that it expires with the stored session.
func setSessionCookie(c *gin.Context, opts SessionOptions, sess *domain.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(opts.MaxAge.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.CookieName, sess.Key, maxAge, "/", "", opts.Secure, true)
}
