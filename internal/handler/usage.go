package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/middleware"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/usage"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// UsageHandler exposes the tenant's current-month consumption.
type UsageHandler struct {
	gate   *usage.Gate
	logger *logger.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(gate *usage.Gate, log *logger.Logger) *UsageHandler {
	return &UsageHandler{gate: gate, logger: log}
}

// Current handles GET /api/v1/tenants/me/usage
func (h *UsageHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		writeError(w, http.StatusUnauthorized, "missing tenant")
		return
	}

	d, err := h.gate.Usage(r.Context(), tenantID, model.UsageEventMessage)
	if err != nil {
		h.logger.Error("usage lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}

	writeJSON(w, http.StatusOK, d)
}
