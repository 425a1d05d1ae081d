package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/models"
	"github.com/emilythestrangee/yatube/internal/paginator"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]bool{
	".gif":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".webp": true,
}

type PostHandler struct {
	db        *gorm.DB
	mediaRoot string
}

func NewPostHandler(db *gorm.DB, mediaRoot string) *PostHandler {
	return &PostHandler{db: db, mediaRoot: mediaRoot}
}

// Index lists every post, newest first. The page is rendered without the
// actor because the response is shared through the page cache.
func (h *PostHandler) Index(c *gin.Context) {
	page, err := paginator.Paginate[models.Post](
		h.db.WithContext(c.Request.Context()).Model(&models.Post{}),
		c.Query("page"),
		paginator.PostsPerPage,
		withPostRelations,
	)
	if err != nil {
		serverError(c, err)
		return
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"title":    "Latest posts",
		"page_obj": page,
		"actor":    (*models.User)(nil),
		"shared":   true,
	})
}

// IndexCacheKey keys the index page by response format and resolved page
// number, so every out-of-range request shares the last page's entry. The
// actor and any other query parameters do not take part. An empty key
// means the page could not be resolved and the response is not cached.
func (h *PostHandler) IndexCacheKey(c *gin.Context) string {
	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Post{}).Count(&count).Error; err != nil {
		log.WithError(err).Warn("could not count posts for the index cache key")
		return ""
	}
	number, _ := paginator.Resolve(c.Query("page"), count, paginator.PostsPerPage)

	format := "html"
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		format = "json"
	}
	return fmt.Sprintf("index:%s:%d", format, number)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		notFound(c)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var post models.Post
	if err := db.Preload("Author").Preload("Group").First(&post, postID).Error; err != nil {
		lookupFailed(c, err)
		return
	}

	var comments []models.Comment
	if err := db.Where("post_id = ?", post.ID).Preload("Author").Order("created desc, id desc").Find(&comments).Error; err != nil {
		serverError(c, err)
		return
	}

	var authorPosts int64
	if err := db.Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&authorPosts).Error; err != nil {
		serverError(c, err)
		return
	}

	actor := middleware.Actor(c)
	render(c, http.StatusOK, "post_detail.html", gin.H{
		"title":              truncateTitle(post.Text),
		"post":               post,
		"comments":           comments,
		"author_posts_count": authorPosts,
		"can_edit":           actor != nil && actor.ID == post.AuthorID,
	})
}

// CreatePost shows the post form and creates a post owned by the actor
// (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	actor := middleware.Actor(c)

	if c.Request.Method != http.MethodPost {
		h.renderForm(c, models.PostForm{}, map[string][]string{}, 0)
		return
	}

	sub, errs := h.bindPostForm(c)
	if len(errs) > 0 {
		h.renderForm(c, sub.form, errs, 0)
		return
	}

	image, err := h.saveImage(c, sub.image)
	if err != nil {
		serverError(c, err)
		return
	}

	post := models.Post{
		Text:     sub.text,
		GroupID:  sub.groupID,
		Image:    image,
		AuthorID: actor.ID,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&post).Error; err != nil {
		h.removeImage(image)
		serverError(c, err)
		return
	}

	log.WithFields(log.Fields{"post_id": post.ID, "author": actor.Username}).Info("post created")
	c.Redirect(http.StatusFound, profileURL(actor.Username))
}

// UpdatePost edits an existing post (PROTECTED - requires ownership).
// Anyone but the author is sent back to the post page.
func (h *PostHandler) UpdatePost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		notFound(c)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		lookupFailed(c, err)
		return
	}

	if actor := middleware.Actor(c); actor.ID != post.AuthorID {
		c.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	if c.Request.Method != http.MethodPost {
		form := models.PostForm{Text: post.Text}
		if post.GroupID != nil {
			form.Group = strconv.Itoa(*post.GroupID)
		}
		h.renderForm(c, form, map[string][]string{}, post.ID)
		return
	}

	sub, errs := h.bindPostForm(c)
	if len(errs) > 0 {
		h.renderForm(c, sub.form, errs, post.ID)
		return
	}

	oldImage, image := post.Image, post.Image
	if sub.image != nil {
		saved, err := h.saveImage(c, sub.image)
		if err != nil {
			serverError(c, err)
			return
		}
		image = saved
	}

	err := db.Model(&post).Updates(map[string]interface{}{
		"text":     sub.text,
		"group_id": sub.groupID,
		"image":    image,
	}).Error
	if err != nil {
		if image != oldImage {
			h.removeImage(image)
		}
		serverError(c, err)
		return
	}
	if image != oldImage {
		h.removeImage(oldImage)
	}

	c.Redirect(http.StatusFound, postURL(post.ID))
}

// DeletePost deletes a post and its comments (PROTECTED - requires ownership).
// The cached index page is left alone and catches up when it expires.
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		notFound(c)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		lookupFailed(c, err)
		return
	}

	actor := middleware.Actor(c)
	if actor.ID != post.AuthorID {
		c.Redirect(http.StatusFound, postURL(post.ID))
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		serverError(c, err)
		return
	}
	h.removeImage(post.Image)

	c.Redirect(http.StatusFound, profileURL(actor.Username))
}

type postSubmission struct {
	form    models.PostForm
	text    string
	groupID *int
	image   *multipart.FileHeader
}

// bindPostForm validates a submitted post form. Nothing is written while
// validating, so an invalid form never leaves partial state behind.
func (h *PostHandler) bindPostForm(c *gin.Context) (postSubmission, map[string][]string) {
	var sub postSubmission
	errs := formErrors(c.ShouldBind(&sub.form))

	sub.text = strings.TrimSpace(sub.form.Text)
	if sub.text == "" && len(errs["text"]) == 0 {
		errs["text"] = []string{"This field is required."}
	}

	if sub.form.Group != "" && len(errs["group"]) == 0 {
		id, err := strconv.Atoi(sub.form.Group)
		var group models.Group
		if err == nil {
			err = h.db.WithContext(c.Request.Context()).Select("id").First(&group, id).Error
		}
		switch {
		case err == nil:
			sub.groupID = &group.ID
		case errors.Is(err, gorm.ErrRecordNotFound), errors.As(err, new(*strconv.NumError)):
			errs["group"] = []string{"Select a valid choice. That choice is not one of the available choices."}
		default:
			errs["__all__"] = append(errs["__all__"], "Could not check the selected group.")
			log.WithError(err).Error("group lookup failed")
		}
	}

	file, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		errs["image"] = []string{"The submitted file could not be read."}
	default:
		if msg := checkImage(file); msg != "" {
			errs["image"] = []string{msg}
		} else {
			sub.image = file
		}
	}

	return sub, errs
}

func checkImage(file *multipart.FileHeader) string {
	if !imageExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
	if file.Size > maxImageSize {
		return "The image is too large."
	}

	f, err := file.Open()
	if err != nil {
		return "The submitted file could not be read."
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "The submitted file could not be read."
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	}
	return ""
}

// saveImage stores an upload under MEDIA_ROOT/posts and returns its
// media-relative path.
func (h *PostHandler) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", nil
	}
	name := path.Join("posts", uuid.NewString()+strings.ToLower(filepath.Ext(file.Filename)))
	dst := filepath.Join(h.mediaRoot, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

func (h *PostHandler) removeImage(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(h.mediaRoot, filepath.FromSlash(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not remove image")
	}
}

func (h *PostHandler) renderForm(c *gin.Context, form models.PostForm, errs map[string][]string, postID int) {
	var groups []models.Group
	if err := h.db.WithContext(c.Request.Context()).Order("title").Find(&groups).Error; err != nil {
		serverError(c, err)
		return
	}

	data := gin.H{
		"title":  "New post",
		"form":   form,
		"errors": errs,
		"groups": groups,
	}
	if postID != 0 {
		data["title"] = "Edit post"
		data["is_edit"] = true
		data["post_id"] = postID
	}
	render(c, http.StatusOK, "create_post.html", data)
}

func truncateTitle(text string) string {
	r := []rune(text)
	if len(r) <= 30 {
		return text
	}
	return string(r[:30])
}
