package store

import (
	"context"
	"time"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresUsageEventRepository implements UsageEventRepository.
type PostgresUsageEventRepository struct {
	db *DB
}

// NewUsageEventRepository creates a Postgres-backed usage ledger.
func NewUsageEventRepository(db *DB) *PostgresUsageEventRepository {
	return &PostgresUsageEventRepository{db: db}
}

// Record appends a ledger entry.
func (r *PostgresUsageEventRepository) Record(ctx context.Context, ev *model.UsageEvent) error {
	query := `
		INSERT INTO usage_events (id, tenant_id, bot_id, event_type, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		ev.ID,
		ev.TenantID,
		ev.BotID,
		ev.Type,
		ev.Quantity,
		ev.CreatedAt,
	)
	return err
}

// CountSince sums quantities for a tenant and event type from the given
// instant. The ledger is append-only, so this is always consistent.
func (r *PostgresUsageEventRepository) CountSince(ctx context.Context, tenantID string, typ model.UsageEventType, since time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM usage_events
		WHERE tenant_id = $1 AND event_type = $2 AND created_at >= $3
	`

	var total int
	err := r.db.Pool.QueryRow(ctx, query, tenantID, typ, since).Scan(&total)
	return total, err
}
