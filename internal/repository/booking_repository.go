package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/melnyresults/booking-api/internal/models"
)

// ErrBookingOverlap is returned by Create when another active booking
// already covers part of the requested time range.
var ErrBookingOverlap = errors.New("booking overlaps an existing booking")

// BookingRepository persists reservations.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts the booking inside a transaction that first takes a row
// lock on any overlapping active booking for the same host. Two
// concurrent inserts for overlapping ranges serialize on that lock, so at
// most one commits; the loser gets ErrBookingOverlap.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const overlapQuery = `SELECT id FROM bookings
WHERE host_id = $1 AND status IN ('pending', 'confirmed')
AND start_at < $3 AND end_at > $2
LIMIT 1
FOR UPDATE`
	var existingID string
	err = tx.GetContext(ctx, &existingID, overlapQuery, booking.HostID, booking.StartAt, booking.EndAt)
	if err == nil {
		return ErrBookingOverlap
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check booking overlap: %w", err)
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const insertQuery = `INSERT INTO bookings
(id, event_type_id, host_id, guest_name, guest_email, start_at, end_at, timezone, status, created_at, updated_at)
VALUES (:id, :event_type_id, :host_id, :guest_name, :guest_email, :start_at, :end_at, :timezone, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT id, event_type_id, host_id, guest_name, guest_email, start_at, end_at, timezone, status, created_at, updated_at
FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatus transitions a booking's status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// ListActiveBetween returns pending and confirmed bookings of a host that
// touch the [from, to) range, ordered chronologically.
func (r *BookingRepository) ListActiveBetween(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error) {
	const query = `SELECT id, event_type_id, host_id, guest_name, guest_email, start_at, end_at, timezone, status, created_at, updated_at
FROM bookings
WHERE host_id = $1 AND status IN ('pending', 'confirmed') AND start_at < $3 AND end_at > $2
ORDER BY start_at ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, hostID, from, to); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
