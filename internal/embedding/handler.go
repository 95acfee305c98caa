package embedding

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/queue"
)

// Result shapes reported back through the job status surface.
type (
	DishRefreshReport struct {
		DishID  string `json:"dishId"`
		Success bool   `json:"success"`
	}
	BatchRefreshReport struct {
		Count int `json:"count"`
	}
	CanteenRefreshReport struct {
		CanteenID string `json:"canteenId"`
		Count     int    `json:"count"`
	}
	UserRefreshReport struct {
		UserID  string `json:"userId"`
		Success bool   `json:"success"`
	}
)

// Handler executes embedding-refresh jobs by delegating to the Refresher.
type Handler struct {
	refresher Refresher
	logger    *slog.Logger
}

func NewHandler(refresher Refresher, logger *slog.Logger) *Handler {
	return &Handler{refresher: refresher, logger: logger}
}

// Register wires the handlers into the worker registry. The dish-side jobs
// propagate errors for retry; the user refresh is a best-effort side
// computation behind primary flows, so it swallows failures into a report
// while transient errors still retry at the queue level via the dish path.
func (h *Handler) Register(r *queue.Registry) {
	backoff := DefaultOptions().Backoff
	r.Register(QueueName, JobTypeRefreshDish, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.RefreshDishPayload) (any, error) {
			return h.RefreshDish(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
	r.Register(QueueName, JobTypeRefreshDishesBatch, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.RefreshDishesBatchPayload) (any, error) {
			return h.RefreshDishesBatch(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
	r.Register(QueueName, JobTypeRefreshCanteenDishes, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.RefreshCanteenDishesPayload) (any, error) {
			return h.RefreshCanteenDishes(ctx, p)
		}),
		Policy:  core.Propagate,
		Backoff: backoff,
	})
	r.Register(QueueName, JobTypeRefreshUser, queue.Registration{
		Handler: queue.Typed(func(ctx context.Context, p core.RefreshUserPayload) (any, error) {
			return h.RefreshUser(ctx, p)
		}),
		Policy:  core.SwallowAndReport,
		OnError: userRefreshFailure,
		Backoff: backoff,
	})
}

func (h *Handler) RefreshDish(ctx context.Context, p core.RefreshDishPayload) (DishRefreshReport, error) {
	ok, err := h.refresher.RefreshDish(ctx, p.DishID)
	if err != nil {
		return DishRefreshReport{}, err
	}
	return DishRefreshReport{DishID: p.DishID, Success: ok}, nil
}

func (h *Handler) RefreshDishesBatch(ctx context.Context, p core.RefreshDishesBatchPayload) (BatchRefreshReport, error) {
	count, err := h.refresher.RefreshDishes(ctx, p.DishIDs)
	if err != nil {
		return BatchRefreshReport{}, err
	}
	return BatchRefreshReport{Count: count}, nil
}

func (h *Handler) RefreshCanteenDishes(ctx context.Context, p core.RefreshCanteenDishesPayload) (CanteenRefreshReport, error) {
	count, err := h.refresher.RefreshCanteenDishes(ctx, p.CanteenID)
	if err != nil {
		return CanteenRefreshReport{}, err
	}
	return CanteenRefreshReport{CanteenID: p.CanteenID, Count: count}, nil
}

func (h *Handler) RefreshUser(ctx context.Context, p core.RefreshUserPayload) (UserRefreshReport, error) {
	if err := h.refresher.RefreshUser(ctx, p.UserID); err != nil {
		return UserRefreshReport{}, err
	}
	return UserRefreshReport{UserID: p.UserID, Success: true}, nil
}

// userRefreshFailure builds the completion report for a swallowed user
// refresh failure.
func userRefreshFailure(payload []byte, _ error) any {
	var p core.RefreshUserPayload
	_ = json.Unmarshal(payload, &p)
	return UserRefreshReport{UserID: p.UserID, Success: false}
}
