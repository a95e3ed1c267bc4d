package models

import "time"

// LocationType describes where a meeting of this type takes place.
type LocationType string

const (
	LocationVideoCall LocationType = "VIDEO_CALL"
	LocationPhone     LocationType = "PHONE"
	LocationInPerson  LocationType = "IN_PERSON"
)

// EventType is a bookable meeting definition owned by a host. Durations
// are stored as minutes in the database and exposed as time.Duration.
type EventType struct {
	ID                   string       `db:"id" json:"id"`
	HostID               string       `db:"host_id" json:"host_id"`
	ScheduleID           *string      `db:"schedule_id" json:"schedule_id,omitempty"`
	Slug                 string       `db:"slug" json:"slug"`
	Title                string       `db:"title" json:"title"`
	Description          string       `db:"description" json:"description"`
	DurationMinutes      int          `db:"duration_minutes" json:"duration_minutes"`
	LocationType         LocationType `db:"location_type" json:"location_type"`
	RequiresConfirmation bool         `db:"requires_confirmation" json:"requires_confirmation"`
	MinNoticeMinutes     int          `db:"min_notice_minutes" json:"min_notice_minutes"`
	MaxFutureDays        int          `db:"max_future_days" json:"max_future_days"`
	BufferBeforeMinutes  int          `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes   int          `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

// Duration returns the meeting length.
func (e *EventType) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// MinNotice returns the lead time before which no booking may start.
func (e *EventType) MinNotice() time.Duration {
	return time.Duration(e.MinNoticeMinutes) * time.Minute
}

// BufferBefore returns the free time required before meetings of this type.
func (e *EventType) BufferBefore() time.Duration {
	return time.Duration(e.BufferBeforeMinutes) * time.Minute
}

// BufferAfter returns the free time required after meetings of this type.
func (e *EventType) BufferAfter() time.Duration {
	return time.Duration(e.BufferAfterMinutes) * time.Minute
}
