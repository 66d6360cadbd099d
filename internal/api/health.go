package api

import (
	"net/http"
	"time"

	"github.com/mybiom/biom/internal/api/respond"
	"github.com/mybiom/biom/internal/health"
)

// HealthReporter exposes the cached service health.
type HealthReporter interface {
	IsHealthy() bool
	Snapshot() health.Snapshot
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	reporter HealthReporter
}

func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	resp := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.reporter != nil {
		if h.reporter.IsHealthy() {
			status = "healthy"
		}
		resp["components"] = h.reporter.Snapshot().Components
	}
	resp["status"] = status
	respond.WriteJSON(w, http.StatusOK, resp)
}
