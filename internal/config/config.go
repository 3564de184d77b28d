package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	JWTSecret string

	RateLimitGlobal  time.Duration
	RateLimitUpload  time.Duration
	RateLimitComment time.Duration

	// ViewDedupWindow is how long repeat views from the same viewer are
	// suppressed from the counter.
	ViewDedupWindow time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "edushare_materials"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	// Parsing durations
	var err error
	cfg.RateLimitGlobal, err = parseDuration(getEnv("RATE_LIMIT_GLOBAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_GLOBAL: %w", err)
	}
	cfg.RateLimitUpload, err = parseDuration(getEnv("RATE_LIMIT_UPLOAD", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_UPLOAD: %w", err)
	}
	cfg.RateLimitComment, err = parseDuration(getEnv("RATE_LIMIT_COMMENT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_COMMENT: %w", err)
	}
	cfg.ViewDedupWindow, err = parseDuration(getEnv("VIEW_DEDUP_WINDOW", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_DEDUP_WINDOW: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
