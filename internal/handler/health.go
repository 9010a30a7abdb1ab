package handler

import (
	"context"
	"net/http"
	"time"

	natsclient "github.com/leadline-ai/bot-platform/internal/nats"
	"github.com/leadline-ai/bot-platform/internal/ratelimit"
	"github.com/leadline-ai/bot-platform/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db         *store.DB
	limiter    *ratelimit.Limiter
	natsClient *natsclient.Client
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *store.DB, limiter *ratelimit.Limiter, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		db:         db,
		limiter:    limiter,
		natsClient: natsClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. The database is load-bearing; Redis and NATS
// degrade gracefully, so they are reported but do not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db == nil || h.db.Ping(ctx) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not reachable",
		})
		return
	}

	status := map[string]string{"status": "ready", "redis": "ok", "nats": "ok"}
	if h.limiter == nil || h.limiter.Ping(ctx) != nil {
		status["redis"] = "degraded"
	}
	if h.natsClient == nil || !h.natsClient.IsConnected() {
		status["nats"] = "degraded"
	}

	writeJSON(w, http.StatusOK, status)
}
