package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

const eventTypeColumns = `id, host_id, schedule_id, slug, title, description, duration_minutes,
location_type, requires_confirmation, min_notice_minutes, max_future_days,
buffer_before_minutes, buffer_after_minutes, created_at, updated_at`

// EventTypeRepository reads bookable meeting definitions.
type EventTypeRepository struct {
	db *sqlx.DB
}

// NewEventTypeRepository constructs an event type repository.
func NewEventTypeRepository(db *sqlx.DB) *EventTypeRepository {
	return &EventTypeRepository{db: db}
}

// ListByHost returns every event type offered by a host.
func (r *EventTypeRepository) ListByHost(ctx context.Context, hostID string) ([]models.EventType, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_types WHERE host_id = $1 ORDER BY title ASC`, eventTypeColumns)
	var eventTypes []models.EventType
	if err := r.db.SelectContext(ctx, &eventTypes, query, hostID); err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	return eventTypes, nil
}

// GetBySlug fetches one event type of a host by its public slug.
func (r *EventTypeRepository) GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_types WHERE host_id = $1 AND slug = $2`, eventTypeColumns)
	var eventType models.EventType
	if err := r.db.GetContext(ctx, &eventType, query, hostID, slug); err != nil {
		return nil, err
	}
	return &eventType, nil
}

// GetByID fetches an event type.
func (r *EventTypeRepository) GetByID(ctx context.Context, id string) (*models.EventType, error) {
	query := fmt.Sprintf(`SELECT %s FROM event_types WHERE id = $1`, eventTypeColumns)
	var eventType models.EventType
	if err := r.db.GetContext(ctx, &eventType, query, id); err != nil {
		return nil, err
	}
	return &eventType, nil
}
