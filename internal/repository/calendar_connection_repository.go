package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

// CalendarConnectionRepository reads external calendar links per host.
type CalendarConnectionRepository struct {
	db *sqlx.DB
}

// NewCalendarConnectionRepository constructs the repository.
func NewCalendarConnectionRepository(db *sqlx.DB) *CalendarConnectionRepository {
	return &CalendarConnectionRepository{db: db}
}

// GetByHost returns the host's calendar connection. Callers treat
// sql.ErrNoRows as "not connected".
func (r *CalendarConnectionRepository) GetByHost(ctx context.Context, hostID string) (*models.CalendarConnection, error) {
	const query = `SELECT id, host_id, provider, calendar_id, token, created_at, updated_at
FROM calendar_connections WHERE host_id = $1`
	var conn models.CalendarConnection
	if err := r.db.GetContext(ctx, &conn, query, hostID); err != nil {
		return nil, err
	}
	return &conn, nil
}
