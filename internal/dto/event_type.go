package dto

import (
	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

// HostProfile is the public host header shown on booking pages.
type HostProfile struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone"`
}

// EventTypeItem is a bookable meeting definition as exposed to guests.
type EventTypeItem struct {
	Slug                 string `json:"slug"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	Duration             string `json:"duration"`
	DurationMinutes      int    `json:"duration_minutes"`
	LocationType         string `json:"location_type"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
}

// EventTypeList pairs a host profile with its offered event types.
type EventTypeList struct {
	Host       HostProfile     `json:"host"`
	EventTypes []EventTypeItem `json:"event_types"`
}

// NewHostProfile maps a host model.
func NewHostProfile(host *models.Host) HostProfile {
	return HostProfile{Name: host.Name, Slug: host.Slug, Timezone: host.Timezone}
}

// NewEventTypeItem maps an event type model.
func NewEventTypeItem(eventType *models.EventType) EventTypeItem {
	return EventTypeItem{
		Slug:                 eventType.Slug,
		Title:                eventType.Title,
		Description:          eventType.Description,
		Duration:             timeutil.FormatDuration(eventType.Duration()),
		DurationMinutes:      eventType.DurationMinutes,
		LocationType:         string(eventType.LocationType),
		RequiresConfirmation: eventType.RequiresConfirmation,
	}
}

// NewEventTypeList maps a host and its event types.
func NewEventTypeList(host *models.Host, eventTypes []models.EventType) EventTypeList {
	items := make([]EventTypeItem, 0, len(eventTypes))
	for i := range eventTypes {
		items = append(items, NewEventTypeItem(&eventTypes[i]))
	}
	return EventTypeList{Host: NewHostProfile(host), EventTypes: items}
}
