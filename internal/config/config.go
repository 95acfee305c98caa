// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/logger"
)

// Queue backend selectors.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the application's configuration values.
type Config struct {
	Server    ServerConfig
	Logging   logger.Config
	Database  *DBConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Embedding EmbeddingConfig

	// Mode is resolved once at load time and selects, per pipeline trigger
	// service, whether operations execute inline or through the queue.
	Mode core.ExecutionMode
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port string
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig covers both the queue backend and the recommendation caches.
type RedisConfig struct {
	Addr    string
	CacheDB int
}

// QueueConfig selects and sizes the queue backend.
type QueueConfig struct {
	Backend     string
	Concurrency int
	// TuningFile optionally points to a .canteen-sync.yml with per-queue
	// job-option overrides.
	TuningFile string
}

// EmbeddingConfig configures the embedding computation collaborators.
type EmbeddingConfig struct {
	OllamaHost        string
	EmbedderModelName string
	QdrantHost        string
	DishCollection    string
	UserCollection    string
	BatchSize         int
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "canteen")
	viper.SetDefault("DB_NAME", "canteen")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_CACHE_DB", 1)
	viper.SetDefault("QUEUE_BACKEND", BackendRedis)
	viper.SetDefault("QUEUE_CONCURRENCY", 5)
	viper.SetDefault("QUEUE_TUNING_FILE", ".canteen-sync.yml")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("EMBEDDER_MODEL_NAME", "nomic-embed-text")
	viper.SetDefault("QDRANT_HOST", "localhost:6334")
	viper.SetDefault("EMBEDDING_DISH_COLLECTION", "dishes")
	viper.SetDefault("EMBEDDING_USER_COLLECTION", "users")
	viper.SetDefault("EMBEDDING_BATCH_SIZE", 20)
	viper.SetDefault("APP_ENV", "development")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	backend := strings.ToLower(viper.GetString("QUEUE_BACKEND"))
	if backend != BackendRedis && backend != BackendMemory {
		return nil, fmt.Errorf("QUEUE_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, backend)
	}

	mode, err := resolveMode()
	if err != nil {
		return nil, err
	}

	if viper.GetString("DB_PASSWORD") == "" {
		return nil, fmt.Errorf("DB_PASSWORD must be set")
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:    viper.GetString("REDIS_ADDR"),
			CacheDB: viper.GetInt("REDIS_CACHE_DB"),
		},
		Queue: QueueConfig{
			Backend:     backend,
			Concurrency: viper.GetInt("QUEUE_CONCURRENCY"),
			TuningFile:  viper.GetString("QUEUE_TUNING_FILE"),
		},
		Embedding: EmbeddingConfig{
			OllamaHost:        viper.GetString("OLLAMA_HOST"),
			EmbedderModelName: viper.GetString("EMBEDDER_MODEL_NAME"),
			QdrantHost:        viper.GetString("QDRANT_HOST"),
			DishCollection:    viper.GetString("EMBEDDING_DISH_COLLECTION"),
			UserCollection:    viper.GetString("EMBEDDING_USER_COLLECTION"),
			BatchSize:         viper.GetInt("EMBEDDING_BATCH_SIZE"),
		},
		Mode: mode,
	}, nil
}

// resolveMode picks the execution mode once per process: PIPELINE_MODE wins
// when set, otherwise the test environment runs sync and everything else
// runs async.
func resolveMode() (core.ExecutionMode, error) {
	if raw := strings.ToLower(viper.GetString("PIPELINE_MODE")); raw != "" {
		switch core.ExecutionMode(raw) {
		case core.ModeSync, core.ModeAsync:
			return core.ExecutionMode(raw), nil
		default:
			return "", fmt.Errorf("PIPELINE_MODE must be %q or %q, got %q", core.ModeSync, core.ModeAsync, raw)
		}
	}
	if strings.ToLower(viper.GetString("APP_ENV")) == "test" {
		return core.ModeSync, nil
	}
	return core.ModeAsync, nil
}
