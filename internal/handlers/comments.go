package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/models"
)

type CommentHandler struct {
	db *gorm.DB
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{db: db}
}

// AddComment adds a comment to a post (PROTECTED - requires authentication).
// The visitor always lands back on the post; an empty comment is dropped.
func (h *CommentHandler) AddComment(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		notFound(c)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	// Verify post exists
	var post models.Post
	if err := db.Select("id").First(&post, postID).Error; err != nil {
		lookupFailed(c, err)
		return
	}

	var form models.CommentForm
	if err := c.ShouldBind(&form); err == nil {
		if text := strings.TrimSpace(form.Text); text != "" {
			comment := models.Comment{
				Text:     text,
				PostID:   post.ID,
				AuthorID: middleware.Actor(c).ID,
			}
			if err := db.Create(&comment).Error; err != nil {
				serverError(c, err)
				return
			}
		}
	} else {
		log.WithError(err).Debug("comment rejected")
	}

	c.Redirect(http.StatusFound, postURL(post.ID))
}
