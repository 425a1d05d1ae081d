package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port    string
	GinMode string

	DatabaseURL   string
	DBMaxOpen     int
	DBMaxIdle     int
	DBMaxLifetime time.Duration

	JWTSecret string

	IndexCacheTTL time.Duration
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MediaRoot      string
	LogLevel       string
	AllowedOrigins []string
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		DatabaseURL:   getenv("DATABASE_URL", ""),
		DBMaxOpen:     getenvInt("DB_MAX_OPEN", 25),
		DBMaxIdle:     getenvInt("DB_MAX_IDLE", 10),
		DBMaxLifetime: time.Duration(getenvInt("DB_MAX_LIFETIME", 3600)) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),

		CacheBackend:  strings.ToLower(getenv("CACHE_BACKEND", "memory")),
		RedisAddr:     fmt.Sprintf("%s:%s", getenv("REDIS_HOST", "localhost"), getenv("REDIS_PORT", "6379")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),

		MediaRoot: getenv("MEDIA_ROOT", "./media"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			getenv("DB_HOST", "localhost"),
			getenv("DB_PORT", "5432"),
			getenv("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			getenv("DB_NAME", "yatube"),
			getenv("DB_SSLMODE", "disable"),
		)
	}

	ttl, err := time.ParseDuration(getenv("INDEX_CACHE_TTL", "20s"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid INDEX_CACHE_TTL: %w", err)
	}
	cfg.IndexCacheTTL = ttl

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"*"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	switch cfg.CacheBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("config: unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
