package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/models"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Signup registers a new account and logs it in
func (h *AuthHandler) Signup(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		render(c, http.StatusOK, "signup.html", gin.H{
			"title":  "Sign up",
			"form":   models.SignupForm{},
			"errors": map[string][]string{},
		})
		return
	}

	var form models.SignupForm
	errs := formErrors(c.ShouldBind(&form))
	if len(errs) == 0 {
		user, err := h.auth.Register(c.Request.Context(), form)
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			errs["username"] = []string{"A user with that username already exists."}
		case err != nil:
			serverError(c, err)
			return
		default:
			if err := h.startSession(c, user); err != nil {
				serverError(c, err)
				return
			}
			log.WithField("username", user.Username).Info("user signed up")
			c.Redirect(http.StatusFound, "/")
			return
		}
	}

	form.Password = ""
	render(c, http.StatusOK, "signup.html", gin.H{
		"title":  "Sign up",
		"form":   form,
		"errors": errs,
	})
}

// Login checks credentials, sets the session cookie and follows next
func (h *AuthHandler) Login(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		render(c, http.StatusOK, "login.html", gin.H{
			"title":  "Log in",
			"form":   models.LoginForm{},
			"next":   safeNext(c.Query("next")),
			"errors": map[string][]string{},
		})
		return
	}

	var form models.LoginForm
	errs := formErrors(c.ShouldBind(&form))
	next := safeNext(form.Next)
	if len(errs) == 0 {
		user, err := h.auth.Authenticate(c.Request.Context(), form.Username, form.Password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			errs["__all__"] = []string{"Please enter a correct username and password."}
		case err != nil:
			serverError(c, err)
			return
		default:
			if err := h.startSession(c, user); err != nil {
				serverError(c, err)
				return
			}
			c.Redirect(http.StatusFound, next)
			return
		}
	}

	form.Password = ""
	render(c, http.StatusOK, "login.html", gin.H{
		"title":  "Log in",
		"form":   form,
		"next":   next,
		"errors": errs,
	})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// GetMe returns the current user (PROTECTED - requires authentication)
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := middleware.Actor(c)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	})
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) error {
	token, expires, err := h.auth.IssueToken(user)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(time.Until(expires).Seconds()), "/", "", false, true)
	middleware.SetActor(c, user)
	return nil
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
