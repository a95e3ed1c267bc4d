package models

import "time"

// AvailabilitySchedule is a named container of recurring weekly rules.
// Each host has at most one schedule flagged as default.
type AvailabilitySchedule struct {
	ID        string    `db:"id" json:"id"`
	HostID    string    `db:"host_id" json:"host_id"`
	Name      string    `db:"name" json:"name"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AvailabilitySlotRule is a recurring weekly open window in the host's
// schedule timezone. Rules for the same day may overlap (split shifts);
// the resolver merges them. Overnight rules (end at or before start) are
// rejected: represent them as two same-day rules split at midnight.
type AvailabilitySlotRule struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	DayOfWeek  int       `db:"day_of_week" json:"day_of_week"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ClockRange is an open window expressed as times of day ("HH:MM").
type ClockRange struct {
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// DateOverride replaces the recurring rules for one calendar date.
// A blocked override wins over everything; otherwise the explicit
// windows supersede all recurring rules for that date. At most one
// override exists per (host, date).
type DateOverride struct {
	ID        string       `db:"id" json:"id"`
	HostID    string       `db:"host_id" json:"host_id"`
	Date      string       `db:"date" json:"date"`
	IsBlocked bool         `db:"is_blocked" json:"is_blocked"`
	Windows   []ClockRange `db:"-" json:"windows,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Slot is a single bookable window in UTC.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
