package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/models"
	"github.com/emilythestrangee/yatube/internal/paginator"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

func (h *UserHandler) findAuthor(c *gin.Context) (*models.User, bool) {
	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ?", c.Param("username")).
		First(&user).Error
	if err != nil {
		lookupFailed(c, err)
		return nil, false
	}
	return &user, true
}

// Profile returns an author's page with their posts and follow counts
func (h *UserHandler) Profile(c *gin.Context) {
	author, ok := h.findAuthor(c)
	if !ok {
		return
	}
	db := h.db.WithContext(c.Request.Context())

	page, err := paginator.Paginate[models.Post](
		db.Model(&models.Post{}).Where("author_id = ?", author.ID),
		c.Query("page"),
		paginator.PostsPerPage,
		withPostRelations,
	)
	if err != nil {
		serverError(c, err)
		return
	}

	// Get follower/following counts
	var followers, following int64
	if err := db.Model(&models.Follow{}).Where("author_id = ?", author.ID).Count(&followers).Error; err != nil {
		serverError(c, err)
		return
	}
	if err := db.Model(&models.Follow{}).Where("user_id = ?", author.ID).Count(&following).Error; err != nil {
		serverError(c, err)
		return
	}

	// Check if current user follows this author
	isFollowing := false
	if actor := middleware.Actor(c); actor != nil {
		var n int64
		err := db.Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", actor.ID, author.ID).
			Count(&n).Error
		if err != nil {
			serverError(c, err)
			return
		}
		isFollowing = n > 0
	}

	render(c, http.StatusOK, "profile.html", gin.H{
		"title":           "Profile of " + author.Username,
		"author":          author,
		"page_obj":        page,
		"posts_count":     page.Count,
		"followers_count": followers,
		"following_count": following,
		"following":       isFollowing,
	})
}

// ProfileFollow makes the actor follow an author (PROTECTED).
// Following twice, or following yourself, changes nothing.
func (h *UserHandler) ProfileFollow(c *gin.Context) {
	author, ok := h.findAuthor(c)
	if !ok {
		return
	}
	actor := middleware.Actor(c)

	if author.ID != actor.ID {
		follow := models.Follow{UserID: actor.ID, AuthorID: author.ID}
		err := h.db.WithContext(c.Request.Context()).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&follow).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			serverError(c, err)
			return
		}
		log.WithFields(log.Fields{"user": actor.Username, "author": author.Username}).Debug("followed")
	}

	c.Redirect(http.StatusFound, profileURL(author.Username))
}

// ProfileUnfollow removes the actor's follow edge to an author, if any (PROTECTED)
func (h *UserHandler) ProfileUnfollow(c *gin.Context) {
	author, ok := h.findAuthor(c)
	if !ok {
		return
	}
	actor := middleware.Actor(c)

	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND author_id = ?", actor.ID, author.ID).
		Delete(&models.Follow{}).Error
	if err != nil {
		serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, profileURL(author.Username))
}

// FollowIndex lists posts by the authors the actor follows (PROTECTED)
func (h *UserHandler) FollowIndex(c *gin.Context) {
	actor := middleware.Actor(c)
	db := h.db.WithContext(c.Request.Context())

	followed := db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", actor.ID)
	page, err := paginator.Paginate[models.Post](
		db.Model(&models.Post{}).Where("author_id IN (?)", followed),
		c.Query("page"),
		paginator.PostsPerPage,
		withPostRelations,
	)
	if err != nil {
		serverError(c, err)
		return
	}

	render(c, http.StatusOK, "follow.html", gin.H{
		"title":    "Following",
		"page_obj": page,
	})
}

// GetFollowers returns an author's followers
func (h *UserHandler) GetFollowers(c *gin.Context) {
	h.listFollows(c, "author_id", "User", func(f models.Follow) models.User { return f.User })
}

// GetFollowing returns the authors a user follows
func (h *UserHandler) GetFollowing(c *gin.Context) {
	h.listFollows(c, "user_id", "Author", func(f models.Follow) models.User { return f.Author })
}

func (h *UserHandler) listFollows(c *gin.Context, column, preload string, pick func(models.Follow) models.User) {
	user, ok := h.findAuthor(c)
	if !ok {
		return
	}

	var follows []models.Follow
	err := h.db.WithContext(c.Request.Context()).
		Where(column+" = ?", user.ID).
		Preload(preload).
		Order("created_at desc, id desc").
		Find(&follows).Error
	if err != nil {
		serverError(c, err)
		return
	}

	users := make([]gin.H, 0, len(follows))
	for _, follow := range follows {
		u := pick(follow)
		users = append(users, gin.H{
			"id":       u.ID,
			"username": u.Username,
		})
	}

	c.JSON(http.StatusOK, users)
}
