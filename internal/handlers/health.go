package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wellora/wellness-api/internal/database"
	"github.com/wellora/wellness-api/internal/queue"
)

// Pinger is anything that can answer a liveness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	db       *database.DB
	cache    Pinger
	jobQueue queue.JobQueue
}

// NewHealthChecker creates a new health checker. Dependencies are
// optional; nil ones are skipped in extended mode.
func NewHealthChecker(db *database.DB, cache Pinger, jobQueue queue.JobQueue) *HealthChecker {
	return &HealthChecker{db: db, cache: cache, jobQueue: jobQueue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		checks := make(map[string]string)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if h.db != nil {
			if err := h.db.PingContext(ctx); err != nil {
				response.Status = "unhealthy"
				checks["database"] = "unhealthy: " + err.Error()
			} else {
				checks["database"] = "healthy"
			}
		}

		if h.cache != nil {
			if err := h.cache.Ping(ctx); err != nil {
				response.Status = "unhealthy"
				checks["cache"] = "unhealthy: " + err.Error()
			} else {
				checks["cache"] = "healthy"
			}
		}

		if h.jobQueue != nil {
			if err := h.jobQueue.HealthCheck(ctx); err != nil {
				response.Status = "unhealthy"
				checks["queue"] = "unhealthy: " + err.Error()
			} else {
				checks["queue"] = "healthy"
			}
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Basic mode - just return that the server is running
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
