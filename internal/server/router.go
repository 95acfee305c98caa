package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
	"github.com/sevigo/canteen-sync/internal/server/handler"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(
	inspector core.QueueInspector,
	ds dishsync.Service,
	rs reviewstats.Service,
	em embedding.Service,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		statusHandler := handler.NewStatusHandler(inspector, logger)
		r.Get("/queues/{queueName}/status", statusHandler.QueueStatus)
		r.Get("/queues/{queueName}/jobs/{jobID}", statusHandler.JobStatus)
	})

	// Administrative pipeline triggers
	r.Route("/admin", func(r chi.Router) {
		triggerHandler := handler.NewTriggerHandler(ds, rs, em, logger)
		r.Post("/sync/canteen-name", triggerHandler.SyncCanteenName)
		r.Post("/sync/window-info", triggerHandler.SyncWindowInfo)
		r.Post("/sync/floor-info", triggerHandler.SyncFloorInfo)
		r.Post("/reviews/recompute", triggerHandler.RecomputeReviewStats)
		r.Post("/embeddings/refresh-dish", triggerHandler.RefreshDishEmbedding)
		r.Post("/embeddings/refresh-batch", triggerHandler.RefreshDishesBatch)
		r.Post("/embeddings/refresh-canteen", triggerHandler.RefreshCanteenEmbeddings)
		r.Post("/embeddings/refresh-user", triggerHandler.RefreshUserEmbedding)
	})

	return r
}
