package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/melnyresults/booking-api/internal/dto"
	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/internal/service"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/response"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

// defaultDateWindowDays is the month view loaded when the caller does
// not pass an explicit range.
const defaultDateWindowDays = 30

type eventTypeFinder interface {
	GetForHost(ctx context.Context, hostSlug, eventTypeSlug string) (*models.Host, *models.EventType, error)
}

type dateLister interface {
	ListAvailableDates(ctx context.Context, host *models.Host, eventType *models.EventType, from, to timeutil.Date, now time.Time) ([]service.DateAvailability, error)
}

type slotLister interface {
	ListSlots(ctx context.Context, host *models.Host, eventType *models.EventType, date timeutil.Date) ([]models.Slot, error)
}

// AvailabilityHandler exposes the per-date index and the per-day slot
// listing of the public booking page.
type AvailabilityHandler struct {
	eventTypes eventTypeFinder
	dates      dateLister
	slots      slotLister
	now        func() time.Time
}

// NewAvailabilityHandler builds a new handler.
func NewAvailabilityHandler(eventTypes eventTypeFinder, dates dateLister, slots slotLister) *AvailabilityHandler {
	return &AvailabilityHandler{
		eventTypes: eventTypes,
		dates:      dates,
		slots:      slots,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Dates godoc
// @Summary List per-date availability for the booking calendar
// @Tags Availability
// @Produce json
// @Param slug path string true "Host slug"
// @Param eventTypeSlug path string true "Event type slug"
// @Param from query string false "Range start (YYYY-MM-DD, defaults to today)"
// @Param to query string false "Range end (YYYY-MM-DD, defaults to from+30d)"
// @Success 200 {object} response.Envelope
// @Router /hosts/{slug}/event-types/{eventTypeSlug}/dates [get]
func (h *AvailabilityHandler) Dates(c *gin.Context) {
	host, eventType, err := h.eventTypes.GetForHost(c.Request.Context(), c.Param("slug"), c.Param("eventTypeSlug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	now := h.now()
	from := timeutil.DateOf(now, time.UTC)
	if raw := c.Query("from"); raw != "" {
		if from, err = timeutil.ParseDate(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
			return
		}
	}
	to := from.AddDays(defaultDateWindowDays)
	if raw := c.Query("to"); raw != "" {
		if to, err = timeutil.ParseDate(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
			return
		}
	}

	dates, err := h.dates.ListAvailableDates(c.Request.Context(), host, eventType, from, to, now)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates, nil)
}

// Slots godoc
// @Summary List bookable slots for one date
// @Tags Availability
// @Produce json
// @Param slug path string true "Host slug"
// @Param eventTypeSlug path string true "Event type slug"
// @Param date query string true "Calendar date (YYYY-MM-DD)"
// @Param timezone query string false "Display timezone (defaults to the host's)"
// @Success 200 {object} response.Envelope
// @Router /hosts/{slug}/event-types/{eventTypeSlug}/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	host, eventType, err := h.eventTypes.GetForHost(c.Request.Context(), c.Param("slug"), c.Param("eventTypeSlug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	date, err := timeutil.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid or missing date, expected YYYY-MM-DD"))
		return
	}

	display := host.Timezone
	if tz := c.Query("timezone"); tz != "" {
		display = tz
	}
	loc, err := timeutil.LoadLocation(display)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown display timezone"))
		return
	}

	slots, err := h.slots.ListSlots(c.Request.Context(), host, eventType, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSlotList(date.String(), slots, loc), nil)
}
