package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/models"
)

const (
	actorKey  = "actor"
	LoginPath = "/auth/login/"
)

// CurrentUser resolves the session cookie, or a bearer token, into the
// acting user. Anonymous requests pass through without an actor.
func CurrentUser(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie(auth.SessionCookie)
		}
		if token == "" {
			c.Next()
			return
		}

		user, err := svc.UserFromToken(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Debug("ignoring session token")
			c.Next()
			return
		}

		c.Set(actorKey, user)
		c.Next()
	}
}

// Actor returns the current user, or nil for anonymous visitors.
func Actor(c *gin.Context) *models.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SetActor attaches user to the request, used by login right after
// issuing a cookie.
func SetActor(c *gin.Context, user *models.User) {
	c.Set(actorKey, user)
}

// LoginRequired sends anonymous visitors to the login page, remembering
// where they were going.
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Actor(c) != nil {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
