package store

import (
	"context"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresMessageRepository implements MessageRepository.
type PostgresMessageRepository struct {
	db *DB
}

// NewMessageRepository creates a Postgres-backed message repository.
func NewMessageRepository(db *DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// Create appends a message. seq is a bigserial so arrival order within a
// conversation is preserved even when timestamps collide.
func (r *PostgresMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages
			(id, conversation_id, role, content, model, tokens_in, tokens_out,
			 latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`

	return r.db.Pool.QueryRow(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Model,
		msg.TokensIn,
		msg.TokensOut,
		msg.LatencyMs,
		msg.CreatedAt,
	).Scan(&msg.Seq)
}

// ListRecent returns the newest limit messages, oldest-first.
func (r *PostgresMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, model, tokens_in, tokens_out,
		       latency_ms, created_at, seq
		FROM (
			SELECT id, conversation_id, role, content, model, tokens_in, tokens_out,
			       latency_ms, created_at, seq
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.Role,
			&m.Content,
			&m.Model,
			&m.TokensIn,
			&m.TokensOut,
			&m.LatencyMs,
			&m.CreatedAt,
			&m.Seq,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
