package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/chat"
	"github.com/leadline-ai/bot-platform/internal/middleware"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// Converser is the slice of the turn service the handler needs.
type Converser interface {
	Converse(ctx context.Context, botID string, req *model.ChatRequest) (*model.ChatResponse, error)
}

// ChatHandler serves the public turn endpoint consumed by the embed
// widget. No authentication: tenant identity derives from the bot id.
type ChatHandler struct {
	turns  Converser
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(turns Converser, log *logger.Logger) *ChatHandler {
	return &ChatHandler{turns: turns, logger: log}
}

// Converse handles POST /api/v1/bots/{botID}/chat
func (h *ChatHandler) Converse(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	if err := middleware.ValidateBotID(botID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateChatMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateVisitorID(req.VisitorID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.turns.Converse(r.Context(), botID, &req)
	if err != nil {
		h.writeTurnError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeTurnError maps the turn taxonomy to HTTP responses. Quota and
// rate-limit denials get actionable text; everything else gets a generic
// retry message so internal detail never reaches the public endpoint.
func (h *ChatHandler) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, chat.ErrBotNotFound), errors.Is(err, chat.ErrBotInactive):
		writeError(w, http.StatusNotFound, "bot not found")
	case errors.Is(err, chat.ErrQuotaExceeded):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   "quota_exceeded",
			"message": "This bot has reached its conversation limit. Please contact the site owner.",
		})
	case errors.Is(err, chat.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "the assistant is busy, please try again in a moment")
	default:
		h.logger.Error("turn failed",
			zap.String("bot_id", chi.URLParam(r, "botID")),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
