package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/internal/middleware"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

// BotHandler serves authenticated bot configuration endpoints.
type BotHandler struct {
	bots   store.BotRepository
	logger *logger.Logger
}

// NewBotHandler creates a new bot handler.
func NewBotHandler(bots store.BotRepository, log *logger.Logger) *BotHandler {
	return &BotHandler{bots: bots, logger: log}
}

// botUpdateField maps one camelCase request key to its column and value
// check. The table is explicit rather than a case-conversion transform:
// regex snake_casing silently mangles keys like "webhookUrl" vs
// "webhookURL", and an allowlist doubles as update authorization.
type botUpdateField struct {
	column string
	coerce func(v any) (any, error)
}

var botUpdateFields = map[string]botUpdateField{
	"name":              {"name", stringMax(256)},
	"active":            {"active", asBool},
	"systemPrompt":      {"system_prompt", stringMax(16384)},
	"model":             {"model", stringMax(128)},
	"temperature":       {"temperature", asTemperature},
	"leadCapturePrompt": {"lead_capture_prompt", stringMax(4096)},
	"hotLeadThreshold":  {"hot_lead_threshold", asScoreThreshold},
	"webhookUrl":        {"webhook_url", stringMax(2048)},
}

// Get handles GET /api/v1/bots/{botID}
func (h *BotHandler) Get(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, bot)
}

// Update handles PATCH /api/v1/bots/{botID}
func (h *BotHandler) Update(w http.ResponseWriter, r *http.Request) {
	bot, ok := h.ownedBot(w, r)
	if !ok {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updates, err := mapBotUpdates(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "no updatable fields in request")
		return
	}

	updated, err := h.bots.Update(r.Context(), bot.ID, updates)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		h.logger.Error("bot update failed", zap.String("bot_id", bot.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update bot")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// mapBotUpdates translates request keys to vetted columns. Unknown keys
// are rejected so typos surface instead of being dropped.
func mapBotUpdates(body map[string]any) (map[string]any, error) {
	updates := make(map[string]any, len(body))
	for key, raw := range body {
		field, ok := botUpdateFields[key]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		val, err := field.coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", key, err)
		}
		updates[field.column] = val
	}
	return updates, nil
}

func (h *BotHandler) ownedBot(w http.ResponseWriter, r *http.Request) (*model.Bot, bool) {
	botID := chi.URLParam(r, "botID")
	if err := middleware.ValidateBotID(botID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	b, err := h.bots.GetByID(r.Context(), botID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bot not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("bot lookup failed", zap.String("bot_id", botID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load bot")
		return nil, false
	}

	if b.TenantID != middleware.GetTenantID(r.Context()) {
		// Same response as absent so the API does not leak bot ids
		// across tenants.
		writeError(w, http.StatusNotFound, "bot not found")
		return nil, false
	}
	return b, true
}

func stringMax(max int) func(v any) (any, error) {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		if len(s) > max {
			return nil, fmt.Errorf("exceeds maximum length %d", max)
		}
		return s, nil
	}
}

func asBool(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.New("must be a boolean")
	}
	return b, nil
}

func asTemperature(v any) (any, error) {
	f, ok := v.(float64)
	if !ok {
		return nil, errors.New("must be a number")
	}
	if f < 0 || f > 1 {
		return nil, errors.New("must be between 0.0 and 1.0")
	}
	return f, nil
}

func asScoreThreshold(v any) (any, error) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return nil, errors.New("must be an integer")
	}
	n := int(f)
	if n < 0 || n > 100 {
		return nil, errors.New("must be between 0 and 100")
	}
	return n, nil
}
