package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/posts/:post_id/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET(MetricsPath, gin.WrapH(Handler()))

	before := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("/posts/:post_id/", "GET", "200"))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/"+id+"/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("/posts/:post_id/", "GET", "200"))
	assert.Equal(t, 3.0, after-before)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
