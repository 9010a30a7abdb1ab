// Package notify delivers hot-lead notifications. Delivery is
// fire-and-forget: jobs are queued to JetStream and a background worker
// performs the webhook POST and email send, each independently
// best-effort. Nothing in this package ever fails a visitor turn.
package notify

import (
	"time"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// HotLeadJob is the queued notification payload.
type HotLeadJob struct {
	TenantID       string    `json:"tenant_id"`
	TenantEmail    string    `json:"tenant_email"`
	BotID          string    `json:"bot_id"`
	BotName        string    `json:"bot_name"`
	WebhookURL     string    `json:"webhook_url,omitempty"`
	ConversationID string    `json:"conversation_id"`
	LastMessage    string    `json:"last_message,omitempty"`
	Lead           LeadInfo  `json:"lead"`
	CreatedAt      time.Time `json:"created_at"`
}

// LeadInfo is the lead snapshot embedded in webhook and email payloads.
type LeadInfo struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Score int    `json:"score"`
}

// NewHotLeadJob assembles a job from the turn's state.
func NewHotLeadJob(bot *model.Bot, tenant *model.Tenant, lead *model.Lead, conversationID, lastMessage string) *HotLeadJob {
	job := &HotLeadJob{
		TenantID:       bot.TenantID,
		BotID:          bot.ID,
		BotName:        bot.Name,
		WebhookURL:     bot.WebhookURL,
		ConversationID: conversationID,
		LastMessage:    lastMessage,
		Lead: LeadInfo{
			ID:    lead.ID,
			Email: lead.Email,
			Phone: lead.Phone,
			Score: lead.Score,
		},
		CreatedAt: time.Now().UTC(),
	}
	if tenant != nil {
		job.TenantEmail = tenant.Email
	}
	return job
}
