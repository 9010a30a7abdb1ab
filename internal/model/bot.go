// Package model defines data structures for the bot platform.
package model

import (
	"time"
)

// Bot is a tenant-owned chatbot configuration embedded on third-party sites.
type Bot struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	Name              string     `json:"name"`
	Active            bool       `json:"active"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	SystemPrompt      string     `json:"system_prompt"`
	Model             string     `json:"model"`
	Temperature       float64    `json:"temperature"`
	LeadCapturePrompt string     `json:"lead_capture_prompt,omitempty"`
	HotLeadThreshold  int        `json:"hot_lead_threshold"`
	WebhookURL        string     `json:"webhook_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DefaultHotLeadThreshold is the notification threshold used when a bot
// has none configured.
const DefaultHotLeadThreshold = 75

// AcceptsTurns reports whether the bot may serve public chat turns.
// Bots are soft-deleted only, so both flags must be checked.
func (b *Bot) AcceptsTurns() bool {
	return b.Active && b.DeletedAt == nil
}
