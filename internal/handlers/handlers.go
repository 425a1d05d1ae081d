package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/models"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Group   *GroupHandler
	Comment *CommentHandler
	User    *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, authService *auth.Service, mediaRoot string) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(authService),
		Post:    NewPostHandler(db, mediaRoot),
		Group:   NewGroupHandler(db),
		Comment: NewCommentHandler(db),
		User:    NewUserHandler(db),
	}
}

// NotFound renders the not-found page for unknown routes.
func (h *Handler) NotFound(c *gin.Context) {
	notFound(c)
}

// render writes data as the named HTML page, or as JSON when the client
// asks for it.
func render(c *gin.Context, status int, name string, data gin.H) {
	if _, ok := data["actor"]; !ok {
		data["actor"] = middleware.Actor(c)
	}

	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(status, data)
	default:
		c.HTML(status, name, data)
	}
}

func notFound(c *gin.Context) {
	render(c, http.StatusNotFound, "404.html", gin.H{
		"title": "Not found",
		"path":  c.Request.URL.Path,
		"error": "not found",
	})
}

func serverError(c *gin.Context, err error) {
	log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	_ = c.Error(err)
	render(c, http.StatusInternalServerError, "500.html", gin.H{
		"title": "Server error",
		"error": "internal error",
	})
}

// lookupFailed renders 404 for missing records and 500 for anything else.
func lookupFailed(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		notFound(c)
		return
	}
	serverError(c, err)
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// formErrors turns a binding error into per-field messages keyed by the
// lower-cased field name; anything else lands under "__all__".
func formErrors(err error) map[string][]string {
	errs := map[string][]string{}
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			errs[field] = append(errs[field], fieldMessage(fe))
		}
		return errs
	}

	errs["__all__"] = []string{"The submitted form could not be read."}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "numeric":
		return "Select a valid choice."
	}
	return "Enter a valid value."
}

func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Group").Order(models.PostOrder)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id int) string {
	return fmt.Sprintf("/posts/%d/", id)
}
