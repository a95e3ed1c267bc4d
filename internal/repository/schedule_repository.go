package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

// ScheduleRepository reads availability schedules and their recurring rules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// DefaultSchedule returns the host's default availability schedule.
func (r *ScheduleRepository) DefaultSchedule(ctx context.Context, hostID string) (*models.AvailabilitySchedule, error) {
	const query = `SELECT id, host_id, name, is_default, created_at
FROM availability_schedules WHERE host_id = $1 AND is_default = TRUE`
	var schedule models.AvailabilitySchedule
	if err := r.db.GetContext(ctx, &schedule, query, hostID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetByID fetches a schedule.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.AvailabilitySchedule, error) {
	const query = `SELECT id, host_id, name, is_default, created_at
FROM availability_schedules WHERE id = $1`
	var schedule models.AvailabilitySchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListRules returns every recurring rule of a schedule ordered by day and
// start time. Rules for the same day may still overlap; ordering is a
// convenience, not a guarantee of disjointness.
func (r *ScheduleRepository) ListRules(ctx context.Context, scheduleID string) ([]models.AvailabilitySlotRule, error) {
	const query = `SELECT id, schedule_id, day_of_week, start_time, end_time, created_at
FROM availability_slot_rules WHERE schedule_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var rules []models.AvailabilitySlotRule
	if err := r.db.SelectContext(ctx, &rules, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}
