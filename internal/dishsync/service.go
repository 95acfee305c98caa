package dishsync

import (
	"context"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
)

// Service is the only entry point business code calls after mutating a
// canteen, window, or floor. The execution mode is fixed at construction:
// sync runs the handler inline and returns once the database write
// completed with an empty job ID, async returns the queued job's ID as
// soon as the job is accepted.
type Service interface {
	SyncCanteenName(ctx context.Context, canteenID, newName string) (string, error)
	SyncWindowInfo(ctx context.Context, windowID, newName string, newNumber, newFloorID *string) (string, error)
	SyncFloorInfo(ctx context.Context, floorID, newName, newLevel string) (string, error)
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

func (s *inlineService) SyncCanteenName(ctx context.Context, canteenID, newName string) (string, error) {
	_, err := s.handler.SyncCanteenName(ctx, core.SyncCanteenNamePayload{
		CanteenID: canteenID,
		NewName:   newName,
	})
	return "", err
}

func (s *inlineService) SyncWindowInfo(ctx context.Context, windowID, newName string, newNumber, newFloorID *string) (string, error) {
	_, err := s.handler.SyncWindowInfo(ctx, core.SyncWindowInfoPayload{
		WindowID:   windowID,
		NewName:    newName,
		NewNumber:  newNumber,
		NewFloorID: newFloorID,
	})
	return "", err
}

func (s *inlineService) SyncFloorInfo(ctx context.Context, floorID, newName, newLevel string) (string, error) {
	_, err := s.handler.SyncFloorInfo(ctx, core.SyncFloorInfoPayload{
		FloorID:  floorID,
		NewName:  newName,
		NewLevel: newLevel,
	})
	return "", err
}

type queuedService struct {
	queue  core.Queue
	opts   core.JobOptions
	logger *slog.Logger
}

func (s *queuedService) SyncCanteenName(ctx context.Context, canteenID, newName string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeSyncCanteenName, core.SyncCanteenNamePayload{
		CanteenID: canteenID,
		NewName:   newName,
	}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Debug("queued canteen name sync", "job_id", jobID, "canteen_id", canteenID)
	return jobID, nil
}

func (s *queuedService) SyncWindowInfo(ctx context.Context, windowID, newName string, newNumber, newFloorID *string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeSyncWindowInfo, core.SyncWindowInfoPayload{
		WindowID:   windowID,
		NewName:    newName,
		NewNumber:  newNumber,
		NewFloorID: newFloorID,
	}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Debug("queued window info sync", "job_id", jobID, "window_id", windowID)
	return jobID, nil
}

func (s *queuedService) SyncFloorInfo(ctx context.Context, floorID, newName, newLevel string) (string, error) {
	jobID, err := s.queue.Enqueue(ctx, QueueName, JobTypeSyncFloorInfo, core.SyncFloorInfoPayload{
		FloorID:  floorID,
		NewName:  newName,
		NewLevel: newLevel,
	}, s.opts)
	if err != nil {
		return "", err
	}
	s.logger.Debug("queued floor info sync", "job_id", jobID, "floor_id", floorID)
	return jobID, nil
}
