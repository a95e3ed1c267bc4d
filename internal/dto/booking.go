package dto

import (
	"time"

	"github.com/melnyresults/booking-api/internal/models"
)

// BookingItem is a booking as exposed over the API. StartAt and EndAt
// are UTC; StartLocal renders the start in the guest's timezone when
// that timezone still parses.
type BookingItem struct {
	ID          string    `json:"id"`
	EventTypeID string    `json:"event_type_id"`
	HostID      string    `json:"host_id"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	StartLocal  string    `json:"start_local,omitempty"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBookingItem maps a booking model.
func NewBookingItem(booking *models.Booking) BookingItem {
	item := BookingItem{
		ID:          booking.ID,
		EventTypeID: booking.EventTypeID,
		HostID:      booking.HostID,
		GuestName:   booking.GuestName,
		GuestEmail:  booking.GuestEmail,
		StartAt:     booking.StartAt,
		EndAt:       booking.EndAt,
		Timezone:    booking.Timezone,
		Status:      string(booking.Status),
		CreatedAt:   booking.CreatedAt,
	}
	if loc, err := time.LoadLocation(booking.Timezone); err == nil {
		item.StartLocal = booking.StartAt.In(loc).Format("2006-01-02 15:04")
	}
	return item
}
