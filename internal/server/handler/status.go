// Package handler provides HTTP handlers for the canteen-sync service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/canteen-sync/internal/core"
)

// StatusHandler exposes queue depth and per-job state for operators.
type StatusHandler struct {
	inspector core.QueueInspector
	logger    *slog.Logger
}

// NewStatusHandler creates a status handler backed by the given inspector.
func NewStatusHandler(inspector core.QueueInspector, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		inspector: inspector,
		logger:    logger,
	}
}

// QueueStatus reports counts per job state for a single queue.
func (h *StatusHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	queueName := chi.URLParam(r, "queueName")

	status, err := h.inspector.QueueStatus(r.Context(), queueName)
	if err != nil {
		h.logger.Error("failed to read queue status", "queue", queueName, "error", err)
		http.Error(w, "Failed to read queue status", http.StatusInternalServerError)
		return
	}
	if status == nil {
		http.Error(w, "Queue not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// JobStatus reports the state of a single job within a queue.
func (h *StatusHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	queueName := chi.URLParam(r, "queueName")
	jobID := chi.URLParam(r, "jobID")

	status, err := h.inspector.JobStatus(r.Context(), queueName, jobID)
	if err != nil {
		h.logger.Error("failed to read job status", "queue", queueName, "job_id", jobID, "error", err)
		http.Error(w, "Failed to read job status", http.StatusInternalServerError)
		return
	}
	if status == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}
