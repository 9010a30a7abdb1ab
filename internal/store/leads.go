package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresLeadRepository implements LeadRepository.
type PostgresLeadRepository struct {
	db *DB
}

// NewLeadRepository creates a Postgres-backed lead repository.
func NewLeadRepository(db *DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

const leadColumns = `id, bot_id, tenant_id, conversation_id, visitor_id, email, phone,
	score, status, last_contact_at, conversation_count, created_at, updated_at`

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID,
		&l.BotID,
		&l.TenantID,
		&l.ConversationID,
		&l.VisitorID,
		&l.Email,
		&l.Phone,
		&l.Score,
		&l.Status,
		&l.LastContactAt,
		&l.ConversationCount,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByContact looks up a lead by the exact contact field. field is one
// of the ContactField constants, never request input.
func (r *PostgresLeadRepository) FindByContact(ctx context.Context, botID string, field ContactField, value string) (*model.Lead, error) {
	if field != ContactEmail && field != ContactPhone {
		return nil, fmt.Errorf("invalid contact field %q", field)
	}
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE bot_id = $1 AND %s = $2`, leadColumns, field)
	return scanLead(r.db.Pool.QueryRow(ctx, query, botID, value))
}

// FindByVisitor returns the most recently contacted lead for a visitor.
func (r *PostgresLeadRepository) FindByVisitor(ctx context.Context, botID, visitorID string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE bot_id = $1 AND visitor_id = $2
		ORDER BY last_contact_at DESC
		LIMIT 1`
	return scanLead(r.db.Pool.QueryRow(ctx, query, botID, visitorID))
}

// Create inserts a new lead.
func (r *PostgresLeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	query := `
		INSERT INTO leads
			(id, bot_id, tenant_id, conversation_id, visitor_id, email, phone,
			 score, status, last_contact_at, conversation_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		lead.ID,
		lead.BotID,
		lead.TenantID,
		lead.ConversationID,
		lead.VisitorID,
		lead.Email,
		lead.Phone,
		lead.Score,
		lead.Status,
		lead.LastContactAt,
		lead.ConversationCount,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return err
}

// Touch records a re-contact. GREATEST keeps the score monotone under
// concurrent duplicate detections; exactness under race is not required.
func (r *PostgresLeadRepository) Touch(ctx context.Context, id string, at time.Time, score int) error {
	query := `
		UPDATE leads
		SET last_contact_at = $2,
		    conversation_count = conversation_count + 1,
		    score = GREATEST(score, $3),
		    updated_at = $2
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, at, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
