// Package store provides typed repositories over the shared multi-tenant
// Postgres database. Each entity gets its own repository interface so the
// storage engine stays an implementation detail to callers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ContactField names the exact lead lookup key. Lookups never cross
// fields: an email only matches leads keyed by that email.
type ContactField string

const (
	ContactEmail ContactField = "email"
	ContactPhone ContactField = "phone"
)

// BotRepository reads and updates bot configuration.
type BotRepository interface {
	GetByID(ctx context.Context, id string) (*model.Bot, error)
	// Update applies a partial update. Keys of updates are column names
	// vetted by the caller's field-mapping table; the repository never
	// derives column names from request input.
	Update(ctx context.Context, id string, updates map[string]any) (*model.Bot, error)
}

// TenantRepository resolves tenant plan and notification address.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
}

// ConversationRepository manages visitor sessions.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	// RecordTurn bumps message_count by two (user + assistant), advances
	// last_message_at, and stores the new rolling sentiment.
	RecordTurn(ctx context.Context, id string, at time.Time, sentiment int) error
}

// MessageRepository appends and reads immutable turn records.
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	// ListRecent returns at most limit of the newest messages in the
	// conversation, ordered oldest-first for prompt assembly.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// KnowledgeRepository reads a bot's knowledge base. Writes belong to the
// ingestion pipeline, not this service.
type KnowledgeRepository interface {
	ListByBot(ctx context.Context, botID string) ([]model.KnowledgeChunk, error)
	// SearchText is the keyword fallback used when embeddings are
	// unavailable. Results carry no similarity score.
	SearchText(ctx context.Context, botID, query string, limit int) ([]model.KnowledgeChunk, error)
}

// LeadRepository upserts leads keyed by (bot, exact contact value).
type LeadRepository interface {
	FindByContact(ctx context.Context, botID string, field ContactField, value string) (*model.Lead, error)
	FindByVisitor(ctx context.Context, botID, visitorID string) (*model.Lead, error)
	Create(ctx context.Context, lead *model.Lead) error
	// Touch records a re-contact: bumps conversation_count, advances
	// last_contact_at, and raises (never lowers) the score.
	Touch(ctx context.Context, id string, at time.Time, score int) error
}

// UsageEventRepository appends to and sums the billing ledger.
type UsageEventRepository interface {
	Record(ctx context.Context, ev *model.UsageEvent) error
	// CountSince sums event quantities for the tenant and type created at
	// or after the given instant.
	CountSince(ctx context.Context, tenantID string, typ model.UsageEventType, since time.Time) (int, error)
}
