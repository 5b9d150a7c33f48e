package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/moreai/moreai/internal/repository"
)

// HealthStore defines the storage checks the health endpoint performs.
type HealthStore interface {
	Ping(ctx context.Context) error
	CountAll(ctx context.Context) (repository.Counts, error)
}

// HealthHandler manages the health check endpoint.
type HealthHandler struct {
	store HealthStore
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store HealthStore) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string             `json:"status"`
	Database  string             `json:"database"`
	Counts    *repository.Counts `json:"counts,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Health handles GET /health. It checks database connectivity and reports
// row counts per table.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		Timestamp: time.Now().UTC(),
	}

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Database = "error: " + err.Error()
		writeJSON(w, http.StatusInternalServerError, response)
		return
	}

	counts, err := h.store.CountAll(ctx)
	if err != nil {
		response.Status = "unhealthy"
		response.Database = "error: " + err.Error()
		writeJSON(w, http.StatusInternalServerError, response)
		return
	}

	response.Counts = &counts
	writeJSON(w, http.StatusOK, response)
}
