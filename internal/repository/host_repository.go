package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

// HostRepository reads calendar owners.
type HostRepository struct {
	db *sqlx.DB
}

// NewHostRepository constructs a host repository.
func NewHostRepository(db *sqlx.DB) *HostRepository {
	return &HostRepository{db: db}
}

// GetBySlug fetches a host by its public slug.
func (r *HostRepository) GetBySlug(ctx context.Context, slug string) (*models.Host, error) {
	const query = `SELECT id, name, slug, timezone, created_at, updated_at FROM hosts WHERE slug = $1`
	var host models.Host
	if err := r.db.GetContext(ctx, &host, query, slug); err != nil {
		return nil, err
	}
	return &host, nil
}

// GetByID fetches a host.
func (r *HostRepository) GetByID(ctx context.Context, id string) (*models.Host, error) {
	const query = `SELECT id, name, slug, timezone, created_at, updated_at FROM hosts WHERE id = $1`
	var host models.Host
	if err := r.db.GetContext(ctx, &host, query, id); err != nil {
		return nil, err
	}
	return &host, nil
}
