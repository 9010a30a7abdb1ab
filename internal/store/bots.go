package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresBotRepository implements BotRepository.
type PostgresBotRepository struct {
	db *DB
}

// NewBotRepository creates a Postgres-backed bot repository.
func NewBotRepository(db *DB) *PostgresBotRepository {
	return &PostgresBotRepository{db: db}
}

const botColumns = `id, tenant_id, name, active, deleted_at, system_prompt, model,
	temperature, lead_capture_prompt, hot_lead_threshold, webhook_url, created_at, updated_at`

func scanBot(row pgx.Row) (*model.Bot, error) {
	var b model.Bot
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.Name,
		&b.Active,
		&b.DeletedAt,
		&b.SystemPrompt,
		&b.Model,
		&b.Temperature,
		&b.LeadCapturePrompt,
		&b.HotLeadThreshold,
		&b.WebhookURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID fetches a bot; soft-deleted bots are still returned so the
// caller can distinguish "unknown" from "inactive".
func (r *PostgresBotRepository) GetByID(ctx context.Context, id string) (*model.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`
	return scanBot(r.db.Pool.QueryRow(ctx, query, id))
}

// Update applies a partial update built from vetted column names and
// returns the updated row.
func (r *PostgresBotRepository) Update(ctx context.Context, id string, updates map[string]any) (*model.Bot, error) {
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}

	set := ""
	args := make([]any, 0, len(updates)+2)
	i := 1
	for col, val := range updates {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, i)
		args = append(args, val)
		i++
	}
	set += fmt.Sprintf(", updated_at = $%d", i)
	args = append(args, time.Now().UTC())
	i++
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE bots SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		set, i, botColumns,
	)
	return scanBot(r.db.Pool.QueryRow(ctx, query, args...))
}
