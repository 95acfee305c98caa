package reviewstats

import (
	"context"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/storage"
)

// Handler recomputes review aggregates. The operation is a read-aggregate
// followed by a single write with no state carried between them, so it is
// safe to re-run arbitrarily often, including after a partial prior failure.
type Handler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewHandler(store storage.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register wires the recompute handler into the worker registry.
func (h *Handler) Register(r *queue.Registry) {
	r.Register(QueueName, JobTypeRecompute, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.RecomputeReviewStatsPayload) (any, error) {
			return h.Recompute(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: DefaultOptions().Backoff,
	})
}

// Recompute aggregates the dish's approved, non-deleted reviews and writes
// the result back onto the dish. A dish without such reviews gets count 0
// and average 0, never null.
func (h *Handler) Recompute(ctx context.Context, p core.RecomputeReviewStatsPayload) (core.ReviewStats, error) {
	stats, err := h.store.DishReviewStats(ctx, p.DishID)
	if err != nil {
		return core.ReviewStats{}, err
	}
	if err := h.store.UpdateDishReviewStats(ctx, p.DishID, stats); err != nil {
		return core.ReviewStats{}, err
	}
	h.logger.Info("recomputed dish review stats",
		"dish_id", p.DishID, "review_count", stats.Count, "average_rating", stats.Average)
	return stats, nil
}
