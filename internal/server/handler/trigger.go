package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sevigo/canteen-sync/internal/core"
	"github.com/sevigo/canteen-sync/internal/dishsync"
	"github.com/sevigo/canteen-sync/internal/embedding"
	"github.com/sevigo/canteen-sync/internal/reviewstats"
)

// TriggerHandler accepts administrative requests that kick off the
// consistency pipelines. In async mode the response carries the queued
// job's ID; in sync mode the work has already completed when the
// response is written.
type TriggerHandler struct {
	dishSync    dishsync.Service
	reviewStats reviewstats.Service
	embeddings  embedding.Service
	logger      *slog.Logger
}

// NewTriggerHandler creates a trigger handler wired to the three pipelines.
func NewTriggerHandler(ds dishsync.Service, rs reviewstats.Service, em embedding.Service, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		dishSync:    ds,
		reviewStats: rs,
		embeddings:  em,
		logger:      logger,
	}
}

type triggerResponse struct {
	JobID string `json:"jobId,omitempty"`
}

// SyncCanteenName propagates a canteen rename into its dishes.
func (h *TriggerHandler) SyncCanteenName(w http.ResponseWriter, r *http.Request) {
	var req core.SyncCanteenNamePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CanteenID == "" || req.NewName == "" {
		http.Error(w, "canteenId and newName are required", http.StatusBadRequest)
		return
	}

	jobID, err := h.dishSync.SyncCanteenName(r.Context(), req.CanteenID, req.NewName)
	h.respond(w, "canteen name sync", jobID, err)
}

// SyncWindowInfo propagates window rename and optional relocation.
func (h *TriggerHandler) SyncWindowInfo(w http.ResponseWriter, r *http.Request) {
	var req core.SyncWindowInfoPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.WindowID == "" || req.NewName == "" {
		http.Error(w, "windowId and newName are required", http.StatusBadRequest)
		return
	}

	jobID, err := h.dishSync.SyncWindowInfo(r.Context(), req.WindowID, req.NewName, req.NewNumber, req.NewFloorID)
	h.respond(w, "window info sync", jobID, err)
}

// SyncFloorInfo propagates floor rename and level changes.
func (h *TriggerHandler) SyncFloorInfo(w http.ResponseWriter, r *http.Request) {
	var req core.SyncFloorInfoPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FloorID == "" {
		http.Error(w, "floorId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.dishSync.SyncFloorInfo(r.Context(), req.FloorID, req.NewName, req.NewLevel)
	h.respond(w, "floor info sync", jobID, err)
}

// RecomputeReviewStats recomputes a dish's review count and average rating.
func (h *TriggerHandler) RecomputeReviewStats(w http.ResponseWriter, r *http.Request) {
	var req core.RecomputeReviewStatsPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DishID == "" {
		http.Error(w, "dishId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.reviewStats.RecomputeDishStats(r.Context(), req.DishID)
	h.respond(w, "review stats recompute", jobID, err)
}

// RefreshDishEmbedding refreshes the vector for a single dish.
func (h *TriggerHandler) RefreshDishEmbedding(w http.ResponseWriter, r *http.Request) {
	var req core.RefreshDishPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DishID == "" {
		http.Error(w, "dishId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.embeddings.EnqueueRefreshDish(r.Context(), req.DishID)
	h.respond(w, "dish embedding refresh", jobID, err)
}

// RefreshDishesBatch refreshes vectors for an explicit list of dishes.
func (h *TriggerHandler) RefreshDishesBatch(w http.ResponseWriter, r *http.Request) {
	var req core.RefreshDishesBatchPayload
	if !decodeBody(w, r, &req) {
		return
	}

	jobID, err := h.embeddings.EnqueueRefreshDishesBatch(r.Context(), req.DishIDs)
	h.respond(w, "batch embedding refresh", jobID, err)
}

// RefreshCanteenEmbeddings refreshes vectors for every online dish of a canteen.
func (h *TriggerHandler) RefreshCanteenEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req core.RefreshCanteenDishesPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CanteenID == "" {
		http.Error(w, "canteenId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.embeddings.EnqueueRefreshCanteenDishes(r.Context(), req.CanteenID)
	h.respond(w, "canteen embedding refresh", jobID, err)
}

// RefreshUserEmbedding rebuilds a user's taste profile vector and caches.
func (h *TriggerHandler) RefreshUserEmbedding(w http.ResponseWriter, r *http.Request) {
	var req core.RefreshUserPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	jobID, err := h.embeddings.EnqueueRefreshUser(r.Context(), req.UserID)
	h.respond(w, "user embedding refresh", jobID, err)
}

func (h *TriggerHandler) respond(w http.ResponseWriter, op string, jobID string, err error) {
	if err != nil {
		h.logger.Error("trigger failed", "operation", op, "error", err)
		http.Error(w, "Failed to run "+op, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{JobID: jobID})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
