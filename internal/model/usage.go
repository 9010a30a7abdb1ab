package model

import (
	"time"
)

// UsageEventType classifies billable actions.
type UsageEventType string

const (
	UsageEventConversation UsageEventType = "conversation"
	UsageEventMessage      UsageEventType = "message"
	UsageEventLeadCapture  UsageEventType = "lead_capture"
	UsageEventAPICall      UsageEventType = "api_call"
)

// UsageEvent is an append-only ledger entry. Quota checks sum quantities
// over the current calendar month; rows are never mutated or deleted.
type UsageEvent struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	BotID     string         `json:"bot_id,omitempty"`
	Type      UsageEventType `json:"type"`
	Quantity  int            `json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
}
