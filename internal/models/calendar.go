package models

import "time"

// CalendarConnection links a host to an external calendar account. The
// token column holds the serialized OAuth2 token for the provider.
type CalendarConnection struct {
	ID         string    `db:"id" json:"id"`
	HostID     string    `db:"host_id" json:"host_id"`
	Provider   string    `db:"provider" json:"provider"`
	CalendarID string    `db:"calendar_id" json:"calendar_id"`
	Token      []byte    `db:"token" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
