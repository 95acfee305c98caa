package dishsync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/queue"
	"github.com/sevigo/canteen-sync/internal/storage"
)

// WindowSyncResult reports a window sync. Floor is non-nil only when the
// optional floor portion was applied.
type WindowSyncResult struct {
	Affected int64             `json:"affected"`
	Floor    *core.FloorUpdate `json:"floor,omitempty"`
}

// Handler executes dish-sync jobs. Every operation is one bulk UPDATE that
// overwrites its full field set, so re-running after a partial failure or
// interleaving with an independent sync converges to the correct state.
type Handler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewHandler(store storage.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register wires the handler into the worker registry. All dish-sync jobs
// propagate errors so the queue's retry machinery engages.
func (h *Handler) Register(r *queue.Registry) {
	backoff := DefaultOptions().Backoff
	r.Register(QueueName, JobTypeSyncCanteenName, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.SyncCanteenNamePayload) (any, error) {
			return h.SyncCanteenName(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
	r.Register(QueueName, JobTypeSyncWindowInfo, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.SyncWindowInfoPayload) (any, error) {
			return h.SyncWindowInfo(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
	r.Register(QueueName, JobTypeSyncFloorInfo, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.SyncFloorInfoPayload) (any, error) {
			return h.SyncFloorInfo(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
}

// SyncCanteenName copies the renamed canteen onto all its dishes. A canteen
// without dishes succeeds with zero affected rows.
func (h *Handler) SyncCanteenName(ctx context.Context, p core.SyncCanteenNamePayload) (int64, error) {
	count, err := h.store.UpdateDishCanteenName(ctx, p.CanteenID, p.NewName)
	if err != nil {
		return 0, err
	}
	h.logger.Info("synced canteen name onto dishes",
		"canteen_id", p.CanteenID, "new_name", p.NewName, "affected", count)
	return count, nil
}

// SyncWindowInfo copies the window's new name (and number, when provided)
// onto all its dishes. When a new floor ID is provided the floor is looked
// up first; a missing floor logs a warning and skips only the floor portion,
// the window fields still update.
func (h *Handler) SyncWindowInfo(ctx context.Context, p core.SyncWindowInfoPayload) (*WindowSyncResult, error) {
	var floorUpdate *core.FloorUpdate
	if p.NewFloorID != nil && *p.NewFloorID != "" {
		floor, err := h.store.GetFloor(ctx, *p.NewFloorID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			h.logger.Warn("floor not found, skipping floor portion of window sync",
				"window_id", p.WindowID, "floor_id", *p.NewFloorID)
		case err != nil:
			return nil, err
		default:
			floorUpdate = &core.FloorUpdate{
				FloorID:    floor.ID,
				FloorName:  floor.Name,
				FloorLevel: floor.Level,
			}
		}
	}

	count, err := h.store.UpdateDishWindowInfo(ctx, p.WindowID, p.NewName, p.NewNumber, floorUpdate)
	if err != nil {
		return nil, err
	}
	h.logger.Info("synced window info onto dishes",
		"window_id", p.WindowID, "affected", count, "floor_synced", floorUpdate != nil)
	return &WindowSyncResult{Affected: count, Floor: floorUpdate}, nil
}

// SyncFloorInfo copies the floor's new name and level onto all dishes
// located on it.
func (h *Handler) SyncFloorInfo(ctx context.Context, p core.SyncFloorInfoPayload) (int64, error) {
	count, err := h.store.UpdateDishFloorInfo(ctx, p.FloorID, p.NewName, p.NewLevel)
	if err != nil {
		return 0, err
	}
	h.logger.Info("synced floor info onto dishes",
		"floor_id", p.FloorID, "affected", count)
	return count, nil
}
