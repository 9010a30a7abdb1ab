package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/leadline-ai/bot-platform/internal/model"
)

// PostgresTenantRepository implements TenantRepository.
type PostgresTenantRepository struct {
	db *DB
}

// NewTenantRepository creates a Postgres-backed tenant repository.
func NewTenantRepository(db *DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db}
}

// GetByID fetches a tenant.
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	query := `SELECT id, name, email, plan, created_at FROM tenants WHERE id = $1`

	var t model.Tenant
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.Plan,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
