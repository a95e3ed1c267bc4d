package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/melnyresults/booking-api/internal/models"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/interval"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

// maxDateRangeDays caps a single availability-index query; the booking
// page never asks for more than two month views at once.
const maxDateRangeDays = 62

type scheduleRepository interface {
	DefaultSchedule(ctx context.Context, hostID string) (*models.AvailabilitySchedule, error)
	ListRules(ctx context.Context, scheduleID string) ([]models.AvailabilitySlotRule, error)
}

type overrideRepository interface {
	GetByDate(ctx context.Context, hostID, date string) (*models.DateOverride, error)
}

// AvailabilityService resolves a host's raw open windows for calendar
// dates. It reads schedule data only; bookings and external busy time
// are the slot generator's concern.
type AvailabilityService struct {
	schedules scheduleRepository
	overrides overrideRepository
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(schedules scheduleRepository, overrides overrideRepository, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{schedules: schedules, overrides: overrides, logger: logger}
}

// ScheduleIDFor returns the schedule backing an event type: its own
// association when set, otherwise the host's default schedule.
func (s *AvailabilityService) ScheduleIDFor(ctx context.Context, host *models.Host, eventType *models.EventType) (string, error) {
	if eventType.ScheduleID != nil && *eventType.ScheduleID != "" {
		return *eventType.ScheduleID, nil
	}
	schedule, err := s.schedules.DefaultSchedule(ctx, host.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "host has no availability schedule")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability schedule")
	}
	return schedule.ID, nil
}

// ResolveDay computes the raw open windows for one calendar date as UTC
// spans. Precedence: a blocking override empties the day outright; an
// override with explicit windows supersedes every recurring rule; only
// otherwise do the weekday rules apply. The weekday is taken in the
// host's timezone.
func (s *AvailabilityService) ResolveDay(ctx context.Context, host *models.Host, scheduleID string, date timeutil.Date) ([]interval.Span, error) {
	loc, err := timeutil.LoadLocation(host.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid host timezone")
	}

	override, err := s.overrides.GetByDate(ctx, host.ID, date.String())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date override")
	}
	if override != nil {
		if override.IsBlocked {
			return nil, nil
		}
		spans := make([]interval.Span, 0, len(override.Windows))
		for _, w := range override.Windows {
			span, err := anchorWindow(date, w.StartTime, w.EndTime, loc)
			if err != nil {
				return nil, err
			}
			spans = append(spans, span)
		}
		return interval.Merge(spans), nil
	}

	rules, err := s.schedules.ListRules(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}

	weekday := int(date.Weekday())
	var spans []interval.Span
	for _, rule := range rules {
		if rule.DayOfWeek != weekday {
			continue
		}
		span, err := anchorWindow(date, rule.StartTime, rule.EndTime, loc)
		if err != nil {
			return nil, err
		}
		spans = append(spans, span)
	}
	return interval.Merge(spans), nil
}

// DateAvailability flags one calendar date for the month view.
type DateAvailability struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

// ListAvailableDates returns the coarse per-date availability used to
// light up the booking calendar. It consults overrides and recurring
// rules only, so a flagged date may still produce zero slots once
// bookings and busy time are applied; callers must present that as a
// normal empty state.
func (s *AvailabilityService) ListAvailableDates(ctx context.Context, host *models.Host, eventType *models.EventType, from, to timeutil.Date, now time.Time) ([]DateAvailability, error) {
	if from.After(to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if to.After(from.AddDays(maxDateRangeDays)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds %d days", maxDateRangeDays))
	}

	loc, err := timeutil.LoadLocation(host.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid host timezone")
	}

	scheduleID, err := s.ScheduleIDFor(ctx, host, eventType)
	if err != nil {
		return nil, err
	}

	today := timeutil.DateOf(now, loc)
	horizon := today.AddDays(eventType.MaxFutureDays)

	var out []DateAvailability
	for d := from; !d.After(to); d = d.AddDays(1) {
		entry := DateAvailability{Date: d.String()}
		inWindow := !today.After(d) && !(eventType.MaxFutureDays > 0 && d.After(horizon))
		if inWindow {
			windows, err := s.ResolveDay(ctx, host, scheduleID, d)
			if err != nil {
				return nil, err
			}
			entry.Available = len(windows) > 0
		}
		out = append(out, entry)
	}
	return out, nil
}

func anchorWindow(date timeutil.Date, startTime, endTime string, loc *time.Location) (interval.Span, error) {
	start, err := timeutil.ParseClock(startTime)
	if err != nil {
		return interval.Span{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window start time")
	}
	end, err := timeutil.ParseClock(endTime)
	if err != nil {
		return interval.Span{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid window end time")
	}
	if !start.Before(end) {
		// Overnight windows are not supported; they must be stored as
		// two same-day windows split at midnight.
		return interval.Span{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("window %s-%s does not end after it starts; split overnight windows at midnight", startTime, endTime))
	}
	return interval.Span{
		Start: timeutil.Anchor(date, start, loc),
		End:   timeutil.Anchor(date, end, loc),
	}, nil
}
