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

type stubUsers map[int]*domain.User

func (s stubUsers) GetUser(_ context.Context, id int) (*domain.User, error) {
	return s[id], nil
}

func newAuthRouter(t *testing.T, users stubUsers) (*gin.Engine, *repository.MemorySessionRepository) {
	t.Helper()
	store := repository.NewMemorySessionRepository()
	r := gin.New()
	r.Use(Sessions(store, testSessionOpts), Authentication(users))
	r.GET("/restricted/", RequireLogin("/login/"), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})
	return r, store
}

func TestRequireLogin_RedirectsAnonymous(t *testing.T) {
	r, _ := newAuthRouter(t, stubUsers{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/restricted/?a=1", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/?next=%2Frestricted%2F%3Fa%3D1", w.Header().Get("Location"))
}

func TestRequireLogin_AllowsLoggedInUser(t *testing.T) {
	r, store := newAuthRouter(t, stubUsers{4: {ID: 4, Username: "leifos", IsActive: true}})

	sess := domain.NewSession("k", time.Now().Add(time.Hour))
	sess.Set(domain.AuthUserKey, "4")
	require.NoError(t, store.Save(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/restricted/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "k"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leifos", w.Body.String())
}

func TestAuthentication_DisabledUserIsLoggedOut(t *testing.T) {
	r, store := newAuthRouter(t, stubUsers{4: {ID: 4, Username: "leifos", IsActive: false}})

	sess := domain.NewSession("k", time.Now().Add(time.Hour))
	sess.Set(domain.AuthUserKey, "4")
	sess.Set("visits", "2")
	require.NoError(t, store.Save(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/restricted/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "k"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	saved, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 0, saved.UserID())
	assert.Equal(t, "2", saved.Get("visits"))
}

func TestIPRateLimiter(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.Any("/login/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/", nil))
		codes = append(codes, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/", nil))
	codes = append(codes, w.Code)

	assert.Equal(t, []int{200, 200, 429, 200}, codes)
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	rl := NewIPRateLimiter(1, 1)
	rl.idle = 0
	rl.Allow("10.0.0.1")
	time.Sleep(time.Millisecond)
	rl.Sweep()
	assert.Empty(t, rl.visitors)
}
