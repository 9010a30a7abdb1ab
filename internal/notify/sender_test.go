package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/bot-platform/internal/model"
	"github.com/leadline-ai/bot-platform/pkg/logger"
)

func testSender(t *testing.T, email EmailConfig) *Sender {
	t.Helper()
	log, err := logger.New("error")
	require.NoError(t, err)
	return NewSender(2*time.Second, email, log)
}

func testJob() *HotLeadJob {
	return &HotLeadJob{
		TenantID:       "tenant-1",
		TenantEmail:    "owner@example.com",
		BotID:          "bot-1",
		BotName:        "Support Bot",
		ConversationID: "conv-1",
		LastMessage:    "Can I get a quote? buyer@example.com",
		Lead: LeadInfo{
			ID:    "lead-1",
			Email: "buyer@example.com",
			Score: 85,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestDeliverPostsWebhook(t *testing.T) {
	var got map[string]any
	var auth string
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	job := testJob()
	job.WebhookURL = hook.URL
	testSender(t, EmailConfig{}).Deliver(context.Background(), job)

	require.NotNil(t, got)
	assert.Equal(t, "hot_lead", got["event"])
	assert.Equal(t, "bot-1", got["bot_id"])
	assert.Equal(t, "conv-1", got["conversation_id"])
	assert.Empty(t, auth, "webhooks carry no platform credentials")

	lead, ok := got["lead"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "buyer@example.com", lead["email"])
	assert.Equal(t, float64(85), lead["score"])
}

func TestDeliverSendsEmail(t *testing.T) {
	var got map[string]any
	var auth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer api.Close()

	sender := testSender(t, EmailConfig{Endpoint: api.URL, APIKey: "key-123", From: "alerts@leadline.ai"})
	sender.Deliver(context.Background(), testJob())

	require.NotNil(t, got)
	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, "alerts@leadline.ai", got["from"])
	assert.Equal(t, []any{"owner@example.com"}, got["to"])
	assert.Contains(t, got["subject"], "Support Bot")
	assert.Contains(t, got["text"], "buyer@example.com")
}

func TestDeliverFailuresAreSwallowed(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	job := testJob()
	job.WebhookURL = failing.URL

	sender := testSender(t, EmailConfig{Endpoint: failing.URL, APIKey: "k", From: "alerts@leadline.ai"})

	// Both channels fail with a 500; Deliver must return normally.
	sender.Deliver(context.Background(), job)
}

func TestDeliverSkipsUnconfiguredChannels(t *testing.T) {
	// No webhook URL on the job and no email endpoint configured: no
	// outbound requests are attempted at all.
	job := testJob()
	job.WebhookURL = ""
	testSender(t, EmailConfig{}).Deliver(context.Background(), job)
}

func TestNewHotLeadJobToleratesMissingTenant(t *testing.T) {
	bot := &model.Bot{ID: "bot-1", TenantID: "tenant-1", Name: "Support Bot", WebhookURL: "https://example.com/hook"}
	hot := &model.Lead{ID: "lead-1", Email: "buyer@example.com", Score: 85}

	job := NewHotLeadJob(bot, nil, hot, "conv-1", "hello")
	assert.Empty(t, job.TenantEmail)
	assert.Equal(t, "bot-1", job.BotID)
	assert.Equal(t, "https://example.com/hook", job.WebhookURL)
	assert.Equal(t, 85, job.Lead.Score)
}
