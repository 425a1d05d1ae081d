package monitoring

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsPath = "/metrics"

// Middleware records request counts and durations, labelled by route
// template rather than raw path.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == MetricsPath {
			// Skip collecting metrics from metrics endpoint itself
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		timer := prometheus.NewTimer(HttpRequestDuration.WithLabelValues(path))
		ActiveConnections.Inc()

		c.Next()

		timer.ObserveDuration()
		ActiveConnections.Dec()
		HttpRequestsTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
