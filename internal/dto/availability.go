package dto

import (
	"time"

	"github.com/melnyresults/booking-api/internal/models"
)

// SlotItem is one bookable slot. Start and End are UTC instants; the
// Local fields carry the same instants rendered in the requested
// display timezone.
type SlotItem struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	StartLocal string    `json:"start_local"`
	EndLocal   string    `json:"end_local"`
}

// SlotList is the response for a day's slot query.
type SlotList struct {
	Date     string     `json:"date"`
	Timezone string     `json:"timezone"`
	Slots    []SlotItem `json:"slots"`
}

// NewSlotList renders slots in the given display timezone.
func NewSlotList(date string, slots []models.Slot, loc *time.Location) SlotList {
	items := make([]SlotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, SlotItem{
			Start:      s.Start,
			End:        s.End,
			StartLocal: s.Start.In(loc).Format("2006-01-02 15:04"),
			EndLocal:   s.End.In(loc).Format("2006-01-02 15:04"),
		})
	}
	return SlotList{Date: date, Timezone: loc.String(), Slots: items}
}
