package embedding

import (
	"context"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Service is the trigger surface business code calls when dish content or
// user behavior changes. Async-mode calls return the queued job's ID; sync
// mode returns an empty ID once the refresh itself completed.
type Service interface {
	EnqueueRefreshDish(ctx context.Context, dishID string) (string, error)
	EnqueueRefreshDishesBatch(ctx context.Context, dishIDs []string) (string, error)
	EnqueueRefreshCanteenDishes(ctx context.Context, canteenID string) (string, error)
	EnqueueRefreshUser(ctx context.Context, userID string) (string, error)
}

// NewService selects the implementation for the configured mode.
func NewService(mode core.ExecutionMode, q core.Queue, refresher Refresher, opts core.JobOptions, logger *slog.Logger) Service {
	if mode == core.ModeSync {
		return &inlineService{refresher: refresher}
	}
	return &queuedService{queue: q, opts: opts, logger: logger}
}

type inlineService struct {
	refresher Refresher
}

func (s *inlineService) EnqueueRefreshDish(ctx context.Context, dishID string) (string, error) {
	_, err := s.refresher.RefreshDish(ctx, dishID)
	return "", err
}

func (s *inlineService) EnqueueRefreshDishesBatch(ctx context.Context, dishIDs []string) (string, error) {
	if len(dishIDs) == 0 {
		return "", nil
	}
	_, err := s.refresher.RefreshDishes(ctx, dishIDs)
	return "", err
}

func (s *inlineService) EnqueueRefreshCanteenDishes(ctx context.Context, canteenID string) (string, error) {
	_, err := s.refresher.RefreshCanteenDishes(ctx, canteenID)
	return "", err
}

func (s *inlineService) EnqueueRefreshUser(ctx context.Context, userID string) (string, error) {
	return "", s.refresher.RefreshUser(ctx, userID)
}

type queuedService struct {
	queue  core.Queue
	opts   core.JobOptions
	logger *slog.Logger
}

func (s *queuedService) EnqueueRefreshDish(ctx context.Context, dishID string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeRefreshDish,
		core.RefreshDishPayload{DishID: dishID}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("queued dish embedding refresh", "job_id", jobID, "dish_id", dishID)
	return jobID, nil
}

func (s *queuedService) EnqueueRefreshDishesBatch(ctx context.Context, dishIDs []string) (string, error) {
	if len(dishIDs) == 0 {
		return "", nil
	}
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeRefreshDishesBatch,
		core.RefreshDishesBatchPayload{DishIDs: dishIDs}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("queued batch dish embedding refresh", "job_id", jobID, "dishes", len(dishIDs))
	return jobID, nil
}

func (s *queuedService) EnqueueRefreshCanteenDishes(ctx context.Context, canteenID string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeRefreshCanteenDishes,
		core.RefreshCanteenDishesPayload{CanteenID: canteenID}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("queued canteen embedding refresh", "job_id", jobID, "canteen_id", canteenID)
	return jobID, nil
}

// EnqueueRefreshUser coalesces bursts for the same user through a dedup key
// so frequent preference edits do not pile up recompute jobs.
func (s *queuedService) EnqueueRefreshUser(ctx context.Context, userID string) (string, error) {
	opts := s.opts
	opts.DedupKey = UserDedupKey(userID)
	opts.RemoveOnComplete = 50
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeRefreshUser,
		core.RefreshUserPayload{UserID: userID}, opts)
	if err != nil {
		return "", err
	}
	s.logger.Info("queued user embedding refresh", "job_id", jobID, "user_id", userID)
	return jobID, nil
}
