package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leadline-ai/bot-platform/pkg/logger"
	"github.com/leadline-ai/bot-platform/pkg/metrics"
)

// EmailConfig points at the transactional-email HTTP API.
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
}

// Sender performs the two best-effort delivery actions for one job.
// Errors are logged and counted, never returned.
type Sender struct {
	httpClient *http.Client
	email      EmailConfig
	logger     *logger.Logger
}

// NewSender creates a sender. timeout bounds each outbound request.
func NewSender(timeout time.Duration, email EmailConfig, log *logger.Logger) *Sender {
	return &Sender{
		httpClient: &http.Client{Timeout: timeout},
		email:      email,
		logger:     log,
	}
}

// Deliver attempts both sub-actions independently.
func (s *Sender) Deliver(ctx context.Context, job *HotLeadJob) {
	if job.WebhookURL != "" {
		s.postWebhook(ctx, job)
	}
	if job.TenantEmail != "" && s.email.Endpoint != "" {
		s.sendEmail(ctx, job)
	}
}

func (s *Sender) postWebhook(ctx context.Context, job *HotLeadJob) {
	payload := map[string]any{
		"event":           "hot_lead",
		"bot_id":          job.BotID,
		"conversation_id": job.ConversationID,
		"lead":            job.Lead,
		"last_message":    job.LastMessage,
		"created_at":      job.CreatedAt,
	}

	if err := s.postJSON(ctx, job.WebhookURL, "", payload); err != nil {
		s.logger.Warn("hot lead webhook delivery failed",
			zap.String("bot_id", job.BotID),
			zap.String("lead_id", job.Lead.ID),
			zap.Error(err),
		)
		metrics.NotificationsTotal.WithLabelValues("webhook", "error").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("webhook", "ok").Inc()
}

func (s *Sender) sendEmail(ctx context.Context, job *HotLeadJob) {
	contact := job.Lead.Email
	if contact == "" {
		contact = job.Lead.Phone
	}

	payload := map[string]any{
		"from":    s.email.From,
		"to":      []string{job.TenantEmail},
		"subject": fmt.Sprintf("Hot lead from %s (score %d)", job.BotName, job.Lead.Score),
		"text": fmt.Sprintf(
			"Your bot %q captured a hot lead.\n\nContact: %s\nScore: %d\nConversation: %s\n\nLast message:\n%s\n",
			job.BotName, contact, job.Lead.Score, job.ConversationID, job.LastMessage,
		),
	}

	if err := s.postJSON(ctx, s.email.Endpoint, s.email.APIKey, payload); err != nil {
		s.logger.Warn("hot lead email delivery failed",
			zap.String("bot_id", job.BotID),
			zap.String("lead_id", job.Lead.ID),
			zap.Error(err),
		)
		metrics.NotificationsTotal.WithLabelValues("email", "error").Inc()
		return
	}
	metrics.NotificationsTotal.WithLabelValues("email", "ok").Inc()
}

func (s *Sender) postJSON(ctx context.Context, url, bearer string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("delivery endpoint returned %d", resp.StatusCode)
	}
	return nil
}
