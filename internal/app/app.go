// Package app initializes and orchestrates the main components of the
// canteen-sync service. It ties together the HTTP surface, the queue
// backend, and the shared infrastructure connections.
package app

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/canteen-sync/internal/config"
	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/db"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/server"
)

// App holds the main application components. The trigger services and the
// queue inspector are exported for the CLI, which drives them in-process.
type App struct {
	cfg     *config.Config
	server  *server.Server
	backend queue.Backend
	dbConn  *db.DB
	cache   *redis.Client
	logger  *slog.Logger

	Inspector   core.QueueInspector
	DishSync    dishsync.Service
	ReviewStats reviewstats.Service
	Embeddings  embedding.Service
}

// NewApp assembles the application from already-constructed components.
func NewApp(
	_ context.Context,
	cfg *config.Config,
	srv *server.Server,
	backend queue.Backend,
	dbConn *db.DB,
	cache *redis.Client,
	ds dishsync.Service,
	rs reviewstats.Service,
	em embedding.Service,
	logger *slog.Logger,
) *App {
	return &App{
		cfg:         cfg,
		server:      srv,
		backend:     backend,
		dbConn:      dbConn,
		cache:       cache,
		logger:      logger,
		Inspector:   backend,
		DishSync:    ds,
		ReviewStats: rs,
		Embeddings:  em,
	}
}

// Start runs the HTTP server and blocks until shutdown or error.
func (a *App) Start() error {
	a.logger.Info("starting canteen-sync",
		"server_port", a.cfg.Server.Port,
		"queue_backend", a.cfg.Queue.Backend,
		"mode", a.cfg.Mode)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down canteen-sync services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Close the queue backend; the in-process backend drains in-flight jobs.
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing queue backend", "error", err)
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("error closing redis cache client", "error", err)
		}
	}

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		a.logger.Error("canteen-sync stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("canteen-sync stopped successfully")
	return nil
}
