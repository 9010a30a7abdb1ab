package model

import (
	"time"
)

// Conversation is one visitor session against one bot. The tenant ID is
// denormalized from the bot so usage queries never need a join.
type Conversation struct {
	ID            string    `json:"id"`
	BotID         string    `json:"bot_id"`
	TenantID      string    `json:"tenant_id"`
	VisitorID     string    `json:"visitor_id"`
	MessageCount  int       `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	Sentiment     int       `json:"sentiment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
