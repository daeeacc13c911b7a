package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	OpenRouterAPIKey       string
	AIModel                string
	AIBaseURL              string
	MaxUploadSizeMB        int
	MaxBatchFiles          int
	WorkerConcurrency      int
	OverviewCacheTTL       time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxUploadSizeBytes returns the per-file upload ceiling in bytes.
func (c Config) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.model", "google/gemini-flash-1.5")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("max_upload_size_mb", 10)
	v.SetDefault("max_batch_files", 100)
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("overview.cache_ttl", "30s")
	v.SetDefault("cloudinary.folder", "grader/submissions")

	ttlString := v.GetString("overview.cache_ttl")
	if ttlString == "" {
		ttlString = "30s"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid overview cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		OpenRouterAPIKey:       v.GetString("openrouter_api_key"),
		AIModel:                v.GetString("ai.model"),
		AIBaseURL:              v.GetString("ai.base_url"),
		MaxUploadSizeMB:        v.GetInt("max_upload_size_mb"),
		MaxBatchFiles:          v.GetInt("max_batch_files"),
		WorkerConcurrency:      v.GetInt("worker_concurrency"),
		OverviewCacheTTL:       ttl,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = 10
	}
	if cfg.MaxBatchFiles <= 0 {
		cfg.MaxBatchFiles = 100
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}

	return cfg, nil
}
