package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// CanTransitionTo reports whether the status may move to next.
// Allowed: pending→confirmed, pending→cancelled, confirmed→cancelled.
// Cancelled is terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled
	default:
		return false
	}
}

// Booking is a concrete reservation of a host's time. Start and end are
// UTC instants; Timezone is the guest's display zone, carried for
// boundary conversion only.
type Booking struct {
	ID          string        `db:"id" json:"id"`
	EventTypeID string        `db:"event_type_id" json:"event_type_id"`
	HostID      string        `db:"host_id" json:"host_id"`
	GuestName   string        `db:"guest_name" json:"guest_name"`
	GuestEmail  string        `db:"guest_email" json:"guest_email"`
	StartAt     time.Time     `db:"start_at" json:"start_at"`
	EndAt       time.Time     `db:"end_at" json:"end_at"`
	Timezone    string        `db:"timezone" json:"timezone"`
	Status      BookingStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}
