package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/core/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSessionOpts = SessionOptions{CookieName: "sessionid", MaxAge: time.Hour}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sessionid" {
			found = c
		}
	}
	require.NotNil(t, found, "response sets no session cookie")
	return found
}

func TestSessions_NewSessionSavedOnlyWhenModified(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/noop", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/touch", func(c *gin.Context) {
		CurrentSession(c).Set("visits", "1")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/noop", nil))
	assert.Equal(t, 0, store.Len())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/touch", nil))
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	saved, err := store.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "1", saved.Get("visits"))
}

func TestSessions_ExistingSessionIsLoaded(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	existing := domain.NewSession("known-key", time.Now().Add(time.Hour))
	existing.Set("visits", "7")
	require.NoError(t, store.Save(context.Background(), existing))

	var seen string
	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/", func(c *gin.Context) {
		seen = CurrentSession(c).Get("visits")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "known-key"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "7", seen)
	assert.Equal(t, "known-key", sessionCookie(t, w).Value)
}

func TestSessions_UnknownCookieStartsFreshSession(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "forged"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "forged", sessionCookie(t, w).Value)
}

func TestRotateSession_KeepsValuesAndDropsOldKey(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	existing := domain.NewSession("before-login", time.Now().Add(time.Hour))
	existing.Set("visits", "3")
	require.NoError(t, store.Save(context.Background(), existing))

	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.POST("/login", func(c *gin.Context) {
		RotateSession(c).Set(domain.AuthUserKey, "5")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "before-login"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	newKey := sessionCookie(t, w).Value
	assert.NotEqual(t, "before-login", newKey)

	old, err := store.Get(context.Background(), "before-login")
	require.NoError(t, err)
	assert.Nil(t, old)

	rotated, err := store.Get(context.Background(), newKey)
	require.NoError(t, err)
	require.NotNil(t, rotated)
	assert.Equal(t, "3", rotated.Get("visits"))
	assert.Equal(t, 5, rotated.UserID())
}

func TestFlushSession_DropsValues(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	existing := domain.NewSession("logged-in", time.Now().Add(time.Hour))
	existing.Set(domain.AuthUserKey, "5")
	require.NoError(t, store.Save(context.Background(), existing))

	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/logout", func(c *gin.Context) {
		FlushSession(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "logged-in"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, store.Len())
}

func TestSessions_ActiveSessionExtendsStoredExpiry(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	existing := domain.NewSession("active", time.Now().Add(10*time.Minute))
	existing.Set(domain.AuthUserKey, "5")
	require.NoError(t, store.Save(context.Background(), existing))

	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "active"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	saved, err := store.Get(context.Background(), "active")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.WithinDuration(t, time.Now().Add(time.Hour), saved.ExpiresAt, 5*time.Second)
	assert.Equal(t, 5, saved.UserID())

	cookie := sessionCookie(t, w)
	assert.InDelta(t, time.Hour.Seconds(), float64(cookie.MaxAge), 5)
}

func TestSessions_FreshSessionKeepsStoredExpiry(t *testing.T) {
	store := repository.NewMemorySessionRepository()
	expires := time.Now().Add(time.Hour - 10*time.Second)
	existing := domain.NewSession("fresh", expires)
	existing.Set("visits", "1")
	require.NoError(t, store.Save(context.Background(), existing))

	r := gin.New()
	r.Use(Sessions(store, testSessionOpts))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "fresh"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	saved, err := store.Get(context.Background(), "fresh")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.WithinDuration(t, expires, saved.ExpiresAt, time.Millisecond)
	assert.LessOrEqual(t, sessionCookie(t, w).MaxAge, int((time.Hour - 10*time.Second).Seconds()))
}
