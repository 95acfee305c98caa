// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/canteen-sync/internal/app"
	"github.com/sevigo/canteen-sync/internal/config"
	"github.com/sevigo/canteen-sync/internal/db"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/logger"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/server"
	"github.com/sevigo/canteen-sync/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	slogLogger := logger.NewLogger(provideLoggerConfig(cfg), provideLogWriter(cfg))

	// Database (migrations run during connect)
	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Storage
	store := storage.NewStore(dbConn.DB)

	// Redis caches
	redisClient := provideRedisClient(cfg)
	cache := storage.NewRedisCache(redisClient)

	// Embedder
	embedder, err := provideEmbedder(cfg, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	// Vector store
	vectorStore := provideVectorStore(cfg, embedder, slogLogger)

	// Pipeline handlers
	dishSyncHandler := dishsync.NewHandler(store, slogLogger)
	reviewStatsHandler := reviewstats.NewHandler(store, slogLogger)
	refresher := embedding.NewRefresher(store, vectorStore, cache, provideEmbeddingConfig(cfg), slogLogger)
	embeddingHandler := embedding.NewHandler(refresher, slogLogger)

	// Handler registry
	registry := provideRegistry(dishSyncHandler, reviewStatsHandler, embeddingHandler)

	// Queue backend
	backend, err := provideBackend(cfg, registry, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create queue backend: %w", err)
	}

	// Per-queue job option overrides
	tuning, err := provideQueueTuning(cfg, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to load queue tuning: %w", err)
	}

	// Trigger services
	dishSyncService := provideDishSyncService(cfg, backend, dishSyncHandler, tuning, slogLogger)
	reviewStatsService := provideReviewStatsService(cfg, backend, reviewStatsHandler, tuning, slogLogger)
	embeddingService := provideEmbeddingService(cfg, backend, refresher, tuning, slogLogger)

	// Server
	srv := server.NewServer(ctx, cfg, provideInspector(backend), dishSyncService, reviewStatsService, embeddingService, slogLogger)

	// App
	application := app.NewApp(ctx, cfg, srv, backend, dbConn, redisClient, dishSyncService, reviewStatsService, embeddingService, slogLogger)

	cleanup := func() {
		dbCleanup()
	}

	return application, cleanup, nil
}

// InitializeWorker creates the asynq worker process with the full handler
// registry. The worker always talks to Redis; the in-process backend runs
// its own workers inside the server and needs no separate process.
func InitializeWorker(ctx context.Context) (*queue.AsynqWorker, func(), error) {
	_ = ctx

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewLogger(provideLoggerConfig(cfg), provideLogWriter(cfg))

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)

	redisClient := provideRedisClient(cfg)
	cache := storage.NewRedisCache(redisClient)

	embedder, err := provideEmbedder(cfg, slogLogger)
	if err != nil {
		dbCleanup()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	vectorStore := provideVectorStore(cfg, embedder, slogLogger)

	dishSyncHandler := dishsync.NewHandler(store, slogLogger)
	reviewStatsHandler := reviewstats.NewHandler(store, slogLogger)
	refresher := embedding.NewRefresher(store, vectorStore, cache, provideEmbeddingConfig(cfg), slogLogger)
	embeddingHandler := embedding.NewHandler(refresher, slogLogger)

	registry := provideRegistry(dishSyncHandler, reviewStatsHandler, embeddingHandler)

	worker := provideWorker(cfg, registry, slogLogger)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			slogLogger.Error("error closing redis cache client", "error", err)
		}
		dbCleanup()
	}

	return worker, cleanup, nil
}
