package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler handles health check requests
type HealthHandler struct {
	batches BatchController
	db      Pinger
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(batches BatchController, db Pinger) *HealthHandler {
	return &HealthHandler{
		batches: batches,
		db:      db,
	}
}

// BatchStatus summarises the current batch
type BatchStatus struct {
	ID       string            `json:"id"`
	State    domain.BatchState `json:"state"`
	Progress domain.Progress   `json:"progress"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Batch   *BatchStatus `json:"batch,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	if snap, err := h.batches.Snapshot(); err == nil {
		response.Batch = &BatchStatus{ID: snap.ID, State: snap.State, Progress: snap.Progress}
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable: " + err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
