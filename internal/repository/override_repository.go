package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

// OverrideRepository reads per-date availability exceptions.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs an override repository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// GetByDate returns the override for (host, date), with its explicit
// windows loaded, or nil when the date has no override.
func (r *OverrideRepository) GetByDate(ctx context.Context, hostID, date string) (*models.DateOverride, error) {
	const query = `SELECT id, host_id, date, is_blocked, created_at
FROM date_overrides WHERE host_id = $1 AND date = $2`
	var override models.DateOverride
	if err := r.db.GetContext(ctx, &override, query, hostID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get date override: %w", err)
	}

	if !override.IsBlocked {
		const windowQuery = `SELECT start_time, end_time
FROM date_override_windows WHERE override_id = $1 ORDER BY start_time ASC`
		if err := r.db.SelectContext(ctx, &override.Windows, windowQuery, override.ID); err != nil {
			return nil, fmt.Errorf("get override windows: %w", err)
		}
	}
	return &override, nil
}
