package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/cache"
	"github.com/emilythestrangee/yatube/internal/database"
	"github.com/emilythestrangee/yatube/internal/models"
)

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCachePage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(0, time.Minute)
	calls := 0

	r := gin.New()
	key := func(c *gin.Context) string { return "page:" + c.Query("page") }
	r.GET("/", CachePage(store, key), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "render %d", calls)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "render 1", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "render 1", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, 1, calls)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/?page=2", nil))
	assert.Equal(t, "render 2", w.Body.String())

	require.NoError(t, store.Clear(context.Background()))
	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "render 3", w.Body.String())
}

func TestCachePageSkipsFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(0, time.Minute)

	r := gin.New()
	r.GET("/broken", CachePage(store, func(*gin.Context) string { return "broken" }), func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "boom")
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/broken", nil))
	_, ok, err := store.Get(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	d, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return auth.NewService(d.DB, "test-secret")
}

func TestCurrentUserAndLoginRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newAuthService(t)

	user, err := svc.Register(context.Background(), models.SignupForm{Username: "leo", Password: "secret1"})
	require.NoError(t, err)
	token, _, err := svc.IssueToken(user)
	require.NoError(t, err)

	r := gin.New()
	r.Use(CurrentUser(svc))
	r.GET("/whoami", func(c *gin.Context) {
		if actor := Actor(c); actor != nil {
			c.String(http.StatusOK, actor.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/private/", LoginRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, "secret")
	})

	cases := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{"no credentials", func(*http.Request) {}, "anonymous"},
		{"cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		}, "leo"},
		{"bearer", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		}, "leo"},
		{"garbage cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: "not-a-token"})
		}, "anonymous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tc.setup(req)
			w := serve(r, req)
			assert.Equal(t, tc.expect, w.Body.String())
		})
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/private/?tab=1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fprivate%2F%3Ftab%3D1", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/private/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret", w.Body.String())
}

func TestCachePageEmptyKeyBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.NewMemoryStore(0, time.Minute)
	calls := 0

	r := gin.New()
	r.GET("/", CachePage(store, func(*gin.Context) string { return "" }), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, w.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls)
	_, ok, err := store.Get(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}
