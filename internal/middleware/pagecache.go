package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/yatube/internal/cache"
	"github.com/emilythestrangee/yatube/internal/monitoring"
)

type recordingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves GET responses from store when present, and records
// successful responses otherwise. key decides which requests share an entry;
// an empty key bypasses the cache.
func CachePage(store cache.Store, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		k := key(c)
		if k == "" {
			c.Next()
			return
		}

		entry, ok, err := store.Get(ctx, k)
		if err != nil {
			log.WithError(err).Warn("page cache lookup failed")
		}
		if ok {
			monitoring.PageCacheLookups.WithLabelValues("hit").Inc()
			c.Header("X-Cache", "HIT")
			c.Data(entry.Status, entry.ContentType, entry.Body)
			c.Abort()
			return
		}
		monitoring.PageCacheLookups.WithLabelValues("miss").Inc()

		w := &recordingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Header("X-Cache", "MISS")
		c.Next()

		if w.Status() != http.StatusOK {
			return
		}
		err = store.Set(ctx, k, &cache.Entry{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			log.WithError(err).Warn("page cache store failed")
		}
	}
}
