package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/yatube/internal/models"
	"github.com/emilythestrangee/yatube/internal/paginator"
)

type GroupHandler struct {
	db *gorm.DB
}

func NewGroupHandler(db *gorm.DB) *GroupHandler {
	return &GroupHandler{db: db}
}

// GroupList shows a group and its posts, newest first.
func (h *GroupHandler) GroupList(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	var group models.Group
	if err := db.Where("slug = ?", c.Param("slug")).First(&group).Error; err != nil {
		lookupFailed(c, err)
		return
	}

	page, err := paginator.Paginate[models.Post](
		db.Model(&models.Post{}).Where("group_id = ?", group.ID),
		c.Query("page"),
		paginator.PostsPerPage,
		withPostRelations,
	)
	if err != nil {
		serverError(c, err)
		return
	}

	render(c, http.StatusOK, "group_list.html", gin.H{
		"title":    group.Title,
		"group":    group,
		"page_obj": page,
	})
}
