package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/yatube/internal/auth"
	"github.com/emilythestrangee/yatube/internal/cache"
	"github.com/emilythestrangee/yatube/internal/config"
	"github.com/emilythestrangee/yatube/internal/database"
	"github.com/emilythestrangee/yatube/internal/logging"
	"github.com/emilythestrangee/yatube/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	db, err := database.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	pageCache, closeCache, err := newPageCache(cfg)
	if err != nil {
		log.Fatalf("page cache: %v", err)
	}
	defer closeCache()

	srv, err := server.New(server.Deps{
		DB:             db,
		Auth:           auth.NewService(db.DB, cfg.JWTSecret),
		PageCache:      pageCache,
		MediaRoot:      cfg.MediaRoot,
		AllowedOrigins: cfg.AllowedOrigins,
	}).HTTPServer("0.0.0.0:" + cfg.Port)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}

func newPageCache(cfg *config.Config) (cache.Store, func(), error) {
	if cfg.CacheBackend != "redis" {
		return cache.NewMemoryStore(0, cfg.IndexCacheTTL), func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	log.WithField("addr", cfg.RedisAddr).Info("page cache backed by redis")

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Warn("closing redis")
		}
	}
	return cache.NewRedisStore(redisClient, "yatube:pages:", cfg.IndexCacheTTL), closeFn, nil
}
