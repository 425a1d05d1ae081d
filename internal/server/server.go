package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/cache"
	"github.com/emilythestrangee/yatube/internal/database"
	"github.com/emilythestrangee/yatube/internal/handlers"
	"github.com/emilythestrangee/yatube/internal/logging"
	"github.com/emilythestrangee/yatube/internal/middleware"
	"github.com/emilythestrangee/yatube/internal/monitoring"
	"github.com/emilythestrangee/yatube/internal/templates"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	DB             *database.Database
	Auth           *auth.Service
	PageCache      cache.Store
	MediaRoot      string
	AllowedOrigins []string
}

type Server struct {
	db        *database.Database
	auth      *auth.Service
	pageCache cache.Store
	handler   *handlers.Handler
	deps      Deps
}

func New(deps Deps) *Server {
	return &Server{
		db:        deps.DB,
		auth:      deps.Auth,
		pageCache: deps.PageCache,
		handler:   handlers.NewHandler(deps.DB.DB, deps.Auth, deps.MediaRoot),
		deps:      deps,
	}
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string) (*http.Server, error) {
	router, err := s.RegisterRoutes()
	if err != nil {
		return nil, err
	}

	log.Infof("Server starting on %s", addr)

	return &http.Server{
		Addr:         addr,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

// corsConfig allows credentials only for explicit origins; browsers refuse
// credentialed responses to a wildcard origin.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(), monitoring.Middleware())

	tmpl, err := templates.Load()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(cors.New(corsConfig(s.deps.AllowedOrigins)))

	r.Use(middleware.CurrentUser(s.auth))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET(monitoring.MetricsPath, gin.WrapH(monitoring.Handler()))
	r.Static("/media", s.deps.MediaRoot)

	h := s.handler

	// Public pages
	r.GET("/", middleware.CachePage(s.pageCache, h.Post.IndexCacheKey), h.Post.Index)
	r.GET("/group/:slug/", h.Group.GroupList)
	r.GET("/profile/:username/", h.User.Profile)
	r.GET("/profile/:username/followers/", h.User.GetFollowers)
	r.GET("/profile/:username/following/", h.User.GetFollowing)
	r.GET("/posts/:post_id/", h.Post.GetPost)

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/signup/", h.Auth.Signup)
		authGroup.POST("/signup/", h.Auth.Signup)
		authGroup.GET("/login/", h.Auth.Login)
		authGroup.POST("/login/", h.Auth.Login)
		authGroup.POST("/logout/", h.Auth.Logout)
	}

	// Protected routes (authentication required)
	protected := r.Group("")
	protected.Use(middleware.LoginRequired())
	{
		protected.GET("/auth/me/", h.Auth.GetMe)

		protected.GET("/create/", h.Post.CreatePost)
		protected.POST("/create/", h.Post.CreatePost)
		protected.GET("/posts/:post_id/edit/", h.Post.UpdatePost)
		protected.POST("/posts/:post_id/edit/", h.Post.UpdatePost)
		protected.POST("/posts/:post_id/delete/", h.Post.DeletePost)
		protected.POST("/posts/:post_id/comment/", h.Comment.AddComment)

		protected.GET("/follow/", h.User.FollowIndex)
		protected.POST("/profile/:username/follow/", h.User.ProfileFollow)
		protected.POST("/profile/:username/unfollow/", h.User.ProfileUnfollow)
	}

	r.NoRoute(h.NotFound)

	return r, nil
}
