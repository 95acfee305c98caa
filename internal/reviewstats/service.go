package reviewstats

import (
	"context"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Service triggers a recompute after any review change that affects a dish:
// approval, rejection, soft delete, or restore.
type Service interface {
	RecomputeDishStats(ctx context.Context, dishID string) (string, error)
}

// NewService selects the implementation for the configured mode.
func NewService(mode core.ExecutionMode, q core.Queue, handler *Handler, opts core.JobOptions, logger *slog.Logger) Service {
	if mode == core.ModeSync {
		return &inlineService{handler: handler}
	}
	return &queuedService{queue: q, opts: opts, logger: logger}
}

type inlineService struct {
	handler *Handler
}

func (s *inlineService) RecomputeDishStats(ctx context.Context, dishID string) (string, error) {
	_, err := s.handler.Recompute(ctx, core.RecomputeReviewStatsPayload{DishID: dishID})
	return "", err
}

type queuedService struct {
	queue  core.Queue
	opts   core.JobOptions
	logger *slog.Logger
}

func (s *queuedService) RecomputeDishStats(ctx context.Context, dishID string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeRecompute,
		core.RecomputeReviewStatsPayload{DishID: dishID}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Debug("queued review stats recompute", "job_id", jobID, "dish_id", dishID)
	return jobID, nil
}
