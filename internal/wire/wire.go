//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

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

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.NewApp,
		server.NewServer,
		config.LoadConfig,
		logger.NewLogger,
		db.NewDatabase,
		storage.NewStore,
		storage.NewRedisCache,
		dishsync.NewHandler,
		reviewstats.NewHandler,
		embedding.NewHandler,
		embedding.NewRefresher,
		provideLoggerConfig,
		provideLogWriter,
		provideDBConfig,
		provideEmbeddingConfig,
		provideRedisClient,
		provideEmbedder,
		provideVectorStore,
		provideRegistry,
		provideInspector,
		provideBackend,
		provideQueueTuning,
		provideDishSyncService,
		provideReviewStatsService,
		provideEmbeddingService,
	)
	return &app.App{}, nil, nil
}

func InitializeWorker(ctx context.Context) (*queue.AsynqWorker, func(), error) {
	wire.Build(
		config.LoadConfig,
		logger.NewLogger,
		db.NewDatabase,
		storage.NewStore,
		storage.NewRedisCache,
		dishsync.NewHandler,
		reviewstats.NewHandler,
		embedding.NewHandler,
		embedding.NewRefresher,
		provideLoggerConfig,
		provideLogWriter,
		provideDBConfig,
		provideEmbeddingConfig,
		provideRedisClient,
		provideEmbedder,
		provideVectorStore,
		provideRegistry,
		provideWorker,
	)
	return &queue.AsynqWorker{}, nil, nil
}
