package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/chat"
	"github.com/leadline-ai/bot-platform/internal/middleware"
	"github.com/leadline-ai/bot-platform/internal/retrieval"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// KnowledgeHandler serves the authenticated knowledge-base search
// endpoint used by the dashboard to preview retrieval quality.
type KnowledgeHandler struct {
	bots      store.BotRepository
	retriever chat.Retriever
	logger    *logger.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(bots store.BotRepository, retriever chat.Retriever, log *logger.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{bots: bots, retriever: retriever, logger: log}
}

// searchResponse carries the method tag so callers can tell vector
// ranking from the unranked text fallback.
type searchResponse struct {
	Results []retrieval.Result `json:"results"`
	Method  retrieval.Method   `json:"method"`
}

// Search handles GET /api/v1/bots/{botID}/knowledge/search
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	if err := middleware.ValidateBotID(botID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bot, err := h.bots.GetByID(r.Context(), botID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && bot.TenantID != middleware.GetTenantID(r.Context())) {
		writeError(w, http.StatusNotFound, "bot not found")
		return
	}
	if err != nil {
		h.logger.Error("bot lookup failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load bot")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 20 {
			limit = parsed
		}
	}

	results, method, err := h.retriever.Retrieve(r.Context(), botID, query, limit)
	if err != nil {
		h.logger.Error("knowledge search failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Method: method})
}
