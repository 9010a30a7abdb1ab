package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/bot-platform/internal/middleware"
	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/internal/store"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

type fakeBotRepo struct {
	bot        *model.Bot
	getErr     error
	updateErr  error
	gotUpdates map[string]any
}

func (f *fakeBotRepo) GetByID(ctx context.Context, id string) (*model.Bot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.bot == nil || f.bot.ID != id {
		return nil, store.ErrNotFound
	}
	return f.bot, nil
}

func (f *fakeBotRepo) Update(ctx context.Context, id string, updates map[string]any) (*model.Bot, error) {
	f.gotUpdates = updates
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.bot, nil
}

func newBotServer(t *testing.T, repo *fakeBotRepo, tenantID string) http.Handler {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)

	h := NewBotHandler(repo, log)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.TenantIDKey, tenantID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/v1/bots/{botID}", h.Get)
	r.Patch("/api/v1/bots/{botID}", h.Update)
	return r
}

func ownedTestBot() *model.Bot {
	return &model.Bot{ID: testBotID, TenantID: "tenant-1", Name: "Support Bot", Active: true}
}

func TestBotGet(t *testing.T) {
	t.Run("owned bot", func(t *testing.T) {
		srv := newBotServer(t, &fakeBotRepo{bot: ownedTestBot()}, "tenant-1")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bots/"+testBotID, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("foreign tenant gets 404", func(t *testing.T) {
		srv := newBotServer(t, &fakeBotRepo{bot: ownedTestBot()}, "tenant-2")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bots/"+testBotID, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		srv := newBotServer(t, &fakeBotRepo{bot: ownedTestBot()}, "tenant-1")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bots/banana", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBotUpdateFieldMapping(t *testing.T) {
	repo := &fakeBotRepo{bot: ownedTestBot()}
	srv := newBotServer(t, repo, "tenant-1")

	body := `{
		"name": "Sales Bot",
		"active": false,
		"systemPrompt": "You sell widgets.",
		"model": "claude-3-5-sonnet-20241022",
		"temperature": 0.3,
		"leadCapturePrompt": "Ask for an email.",
		"hotLeadThreshold": 80,
		"webhookUrl": "https://example.com/hook"
	}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/bots/"+testBotID, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, map[string]any{
		"name":                "Sales Bot",
		"active":              false,
		"system_prompt":       "You sell widgets.",
		"model":               "claude-3-5-sonnet-20241022",
		"temperature":         0.3,
		"lead_capture_prompt": "Ask for an email.",
		"hot_lead_threshold":  80,
		"webhook_url":         "https://example.com/hook",
	}, repo.gotUpdates)
}

func TestBotUpdateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown field", `{"plan":"enterprise"}`},
		{"snake_case key not accepted", `{"system_prompt":"x"}`},
		{"temperature above range", `{"temperature":1.5}`},
		{"temperature below range", `{"temperature":-0.1}`},
		{"threshold above range", `{"hotLeadThreshold":101}`},
		{"threshold not an integer", `{"hotLeadThreshold":75.5}`},
		{"active not a boolean", `{"active":"yes"}`},
		{"empty patch", `{}`},
		{"malformed body", `{"name":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeBotRepo{bot: ownedTestBot()}
			srv := newBotServer(t, repo, "tenant-1")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/bots/"+testBotID, strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, repo.gotUpdates, "rejected patches must not reach the store")
		})
	}
}

func TestBotUpdateForeignTenant(t *testing.T) {
	repo := &fakeBotRepo{bot: ownedTestBot()}
	srv := newBotServer(t, repo, "tenant-2")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/bots/"+testBotID, strings.NewReader(`{"name":"hijacked"}`)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, repo.gotUpdates)
}
