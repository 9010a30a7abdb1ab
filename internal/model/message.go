package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is an immutable turn record. Messages are append-only and
// ordered within a conversation by (created_at, seq); duplicate user
// turns from client retries are tolerated, not deduplicated.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// LLM metadata, nil for user messages.
	Model     *string `json:"model,omitempty"`
	TokensIn  *int    `json:"tokens_in,omitempty"`
	TokensOut *int    `json:"tokens_out,omitempty"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Seq is a store-assigned monotonic sequence within the conversation,
	// populated on read.
	Seq int64 `json:"seq,omitempty"`
}
