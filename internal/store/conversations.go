package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresConversationRepository implements ConversationRepository.
type PostgresConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a Postgres-backed conversation repository.
func NewConversationRepository(db *DB) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// GetByID fetches a conversation.
func (r *PostgresConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	query := `
		SELECT id, bot_id, tenant_id, visitor_id, message_count, last_message_at,
		       sentiment, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var c model.Conversation
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.BotID,
		&c.TenantID,
		&c.VisitorID,
		&c.MessageCount,
		&c.LastMessageAt,
		&c.Sentiment,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new conversation.
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	query := `
		INSERT INTO conversations
			(id, bot_id, tenant_id, visitor_id, message_count, last_message_at,
			 sentiment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		conv.ID,
		conv.BotID,
		conv.TenantID,
		conv.VisitorID,
		conv.MessageCount,
		conv.LastMessageAt,
		conv.Sentiment,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return err
}

// RecordTurn updates per-turn aggregates. message_count only ever grows,
// preserving the monotonic invariant even under concurrent turns.
func (r *PostgresConversationRepository) RecordTurn(ctx context.Context, id string, at time.Time, sentiment int) error {
	query := `
		UPDATE conversations
		SET message_count = message_count + 2,
		    last_message_at = GREATEST(last_message_at, $2),
		    sentiment = $3,
		    updated_at = $2
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, at, sentiment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
