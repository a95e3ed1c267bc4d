package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/melnyresults/booking-api/internal/gcal"
	"github.com/melnyresults/booking-api/internal/models"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/interval"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

type dayResolver interface {
	ScheduleIDFor(ctx context.Context, host *models.Host, eventType *models.EventType) (string, error)
	ResolveDay(ctx context.Context, host *models.Host, scheduleID string, date timeutil.Date) ([]interval.Span, error)
}

type bookingReader interface {
	ListActiveBetween(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error)
}

type busyFetcher interface {
	BusyIntervals(ctx context.Context, hostID string, from, to time.Time) ([]interval.Span, error)
}

// SlotService discretizes a day's open windows into bookable slots,
// pruning against existing bookings and external busy time. Given the
// same inputs and clock reading its output is identical and order-stable.
type SlotService struct {
	availability dayResolver
	bookings     bookingReader
	calendar     busyFetcher // nil when no external provider is configured
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
}

// NewSlotService constructs the service. calendar and metrics may be nil.
func NewSlotService(availability dayResolver, bookings bookingReader, calendar busyFetcher, metrics *MetricsService, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		availability: availability,
		bookings:     bookings,
		calendar:     calendar,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ListSlots returns every bookable slot for the date in chronological
// order, as UTC instants. Timezone conversion for display happens at the
// handler boundary, never here.
func (s *SlotService) ListSlots(ctx context.Context, host *models.Host, eventType *models.EventType, date timeutil.Date) ([]models.Slot, error) {
	if err := validateEventTypeConfig(eventType); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSlotComputation(time.Since(started))
		}
	}()

	loc, err := timeutil.LoadLocation(host.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid host timezone")
	}

	now := s.now()
	today := timeutil.DateOf(now, loc)

	// Beyond the booking horizon the date is unbookable outright; skip
	// the booking and busy-interval queries entirely.
	if eventType.MaxFutureDays > 0 && date.After(today.AddDays(eventType.MaxFutureDays)) {
		return nil, nil
	}

	scheduleID, err := s.availability.ScheduleIDFor(ctx, host, eventType)
	if err != nil {
		return nil, err
	}
	windows, err := s.availability.ResolveDay(ctx, host, scheduleID, date)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	dayStart := date.StartIn(loc)
	dayEnd := date.AddDays(1).StartIn(loc)

	// Pad the booking query so a neighbouring day's booking whose buffer
	// reaches into this day is still part of the mask.
	pad := eventType.BufferBefore() + eventType.BufferAfter() + time.Hour
	bookings, err := s.bookings.ListActiveBetween(ctx, host.ID, dayStart.Add(-pad), dayEnd.Add(pad))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	mask := make([]interval.Span, 0, len(bookings))
	for _, b := range bookings {
		mask = append(mask, interval.Span{
			Start: b.StartAt.Add(-eventType.BufferBefore()),
			End:   b.EndAt.Add(eventType.BufferAfter()),
		})
	}
	mask = append(mask, s.fetchBusy(ctx, host.ID, dayStart, dayEnd)...)
	mask = interval.Merge(mask)

	minStart := now.Add(eventType.MinNotice())
	duration := eventType.Duration()

	var slots []models.Slot
	for _, window := range windows {
		for _, usable := range interval.Subtract(window, mask) {
			for t := usable.Start; !t.Add(duration).After(usable.End); t = t.Add(duration) {
				if t.Before(minStart) {
					continue
				}
				slots = append(slots, models.Slot{Start: t, End: t.Add(duration)})
			}
		}
	}
	return slots, nil
}

// fetchBusy loads the external exclusion set. The provider bounds the
// call with its own timeout; any failure degrades to "no external busy
// data" so slot computation never depends on the provider being up.
func (s *SlotService) fetchBusy(ctx context.Context, hostID string, from, to time.Time) []interval.Span {
	if s.calendar == nil {
		return nil
	}
	busy, err := s.calendar.BusyIntervals(ctx, hostID, from, to)
	if err != nil {
		if errors.Is(err, gcal.ErrNotConnected) {
			return nil
		}
		if s.metrics != nil {
			s.metrics.IncCalendarFetchFailure()
		}
		s.logger.Warn("external calendar lookup failed, continuing without busy data",
			zap.String("host_id", hostID),
			zap.Error(err))
		return nil
	}
	return busy
}

func validateEventTypeConfig(eventType *models.EventType) error {
	switch {
	case eventType.DurationMinutes <= 0:
		return appErrors.Clone(appErrors.ErrValidation, "event type duration must be positive")
	case eventType.MinNoticeMinutes < 0:
		return appErrors.Clone(appErrors.ErrValidation, "event type minimum notice must not be negative")
	case eventType.MaxFutureDays < 0:
		return appErrors.Clone(appErrors.ErrValidation, "event type booking horizon must not be negative")
	case eventType.BufferBeforeMinutes < 0 || eventType.BufferAfterMinutes < 0:
		return appErrors.Clone(appErrors.ErrValidation, "event type buffers must not be negative")
	}
	return nil
}
