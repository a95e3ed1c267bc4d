package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/melnyresults/booking-api/internal/gcal"
	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/internal/repository"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/jobs"
	"github.com/melnyresults/booking-api/pkg/lock"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

// Calendar sync outcomes reported to the caller as response metadata.
const (
	SyncScheduled = "scheduled"
	SyncSkipped   = "skipped"
)

type hostReader interface {
	GetBySlug(ctx context.Context, slug string) (*models.Host, error)
}

type eventTypeReader interface {
	GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error)
	GetByID(ctx context.Context, id string) (*models.EventType, error)
}

type bookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
}

type slotLister interface {
	ListSlots(ctx context.Context, host *models.Host, eventType *models.EventType, date timeutil.Date) ([]models.Slot, error)
}

type calendarProvider interface {
	Connected(ctx context.Context, hostID string) (bool, error)
	CreateEvent(ctx context.Context, hostID string, booking *models.Booking, eventType *models.EventType) (string, error)
}

type syncDispatcher interface {
	Enqueue(job jobs.SyncJob)
}

// BookingService owns the conflict-safe write path that turns a selected
// slot into a persisted reservation, plus the booking state machine.
type BookingService struct {
	hosts      hostReader
	eventTypes eventTypeReader
	bookings   bookingStore
	slots      slotLister
	locker     lock.HostLocker
	calendar   calendarProvider // nil when no external provider is configured
	syncQueue  syncDispatcher   // nil when sync is disabled
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewBookingService constructs the service. calendar, syncQueue and
// metrics may be nil.
func NewBookingService(
	hosts hostReader,
	eventTypes eventTypeReader,
	bookings bookingStore,
	slots slotLister,
	locker lock.HostLocker,
	calendar calendarProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &BookingService{
		hosts:      hosts,
		eventTypes: eventTypes,
		bookings:   bookings,
		slots:      slots,
		locker:     locker,
		calendar:   calendar,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetSyncQueue attaches the calendar sync queue. Called once at startup;
// the queue's handler is this service's SyncToCalendar.
func (s *BookingService) SetSyncQueue(queue syncDispatcher) {
	s.syncQueue = queue
}

// CreateBookingRequest is the guest-facing commit payload.
type CreateBookingRequest struct {
	HostSlug      string    `json:"host_slug" validate:"required"`
	EventTypeSlug string    `json:"event_type_slug" validate:"required"`
	Start         time.Time `json:"start" validate:"required"`
	GuestName     string    `json:"guest_name" validate:"required"`
	GuestEmail    string    `json:"guest_email" validate:"required,email"`
	Timezone      string    `json:"timezone" validate:"required"`
}

// Create re-validates the requested slot against a fresh slot
// computation and inserts the booking. The validate+insert section runs
// under the host's commit lock, and the repository repeats the overlap
// check with a row lock, so two concurrent creates for overlapping slots
// on the same host cannot both succeed.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if _, err := timeutil.LoadLocation(req.Timezone); err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unknown guest timezone")
	}

	host, err := s.hosts.GetBySlug(ctx, req.HostSlug)
	if err != nil {
		return nil, "", notFoundOr(err, "host not found")
	}
	eventType, err := s.eventTypes.GetBySlug(ctx, host.ID, req.EventTypeSlug)
	if err != nil {
		return nil, "", notFoundOr(err, "event type not found")
	}
	hostLoc, err := timeutil.LoadLocation(host.Timezone)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid host timezone")
	}

	start := req.Start.UTC()
	end := start.Add(eventType.Duration())

	release, err := s.locker.Acquire(ctx, host.ID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, "", appErrors.Clone(appErrors.ErrSlotTaken, "another booking for this host is in progress, please retry")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize booking commit")
	}
	defer release()

	// Staleness defense: the guest picked this slot from an earlier
	// computation; recompute before writing.
	date := timeutil.DateOf(start, hostLoc)
	slots, err := s.slots.ListSlots(ctx, host, eventType, date)
	if err != nil {
		return nil, "", err
	}
	if !containsSlot(slots, start, end) {
		return nil, "", appErrors.Clone(appErrors.ErrSlotTaken, "")
	}

	status := models.BookingConfirmed
	if eventType.RequiresConfirmation {
		status = models.BookingPending
	}

	booking := &models.Booking{
		EventTypeID: eventType.ID,
		HostID:      host.ID,
		GuestName:   req.GuestName,
		GuestEmail:  req.GuestEmail,
		StartAt:     start,
		EndAt:       end,
		Timezone:    req.Timezone,
		Status:      status,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrBookingOverlap) {
			return nil, "", appErrors.Clone(appErrors.ErrSlotTaken, "")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booking")
	}
	if s.metrics != nil {
		s.metrics.IncBookingCreated(string(status))
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("host_id", host.ID),
		zap.String("event_type", eventType.Slug),
		zap.Time("start_at", booking.StartAt),
		zap.String("status", string(status)))

	return booking, s.scheduleSync(ctx, booking), nil
}

// Get fetches a booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "booking not found")
	}
	return booking, nil
}

// Confirm transitions a pending booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingConfirmed)
}

// Cancel transitions a pending or confirmed booking to cancelled.
func (s *BookingService) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingCancelled)
}

func (s *BookingService) transition(ctx context.Context, id string, next models.BookingStatus) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "booking not found")
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move a %s booking to %s", booking.Status, next))
	}
	if err := s.bookings.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	booking.Status = next
	return booking, nil
}

// scheduleSync arranges the best-effort external calendar event. It
// never fails the booking; the outcome string becomes response metadata.
func (s *BookingService) scheduleSync(ctx context.Context, booking *models.Booking) string {
	if s.calendar == nil || s.syncQueue == nil {
		return SyncSkipped
	}
	connected, err := s.calendar.Connected(ctx, booking.HostID)
	if err != nil {
		s.logger.Warn("calendar connection lookup failed, skipping sync",
			zap.String("booking_id", booking.ID),
			zap.Error(err))
		return SyncSkipped
	}
	if !connected {
		return SyncSkipped
	}
	s.syncQueue.Enqueue(jobs.SyncJob{BookingID: booking.ID, HostID: booking.HostID})
	return SyncScheduled
}

// SyncToCalendar is the sync queue's handler: it mirrors one committed
// booking into the host's external calendar.
func (s *BookingService) SyncToCalendar(ctx context.Context, job jobs.SyncJob) error {
	if s.calendar == nil {
		return nil
	}
	booking, err := s.bookings.GetByID(ctx, job.BookingID)
	if err != nil {
		return fmt.Errorf("load booking for sync: %w", err)
	}
	if booking.Status == models.BookingCancelled {
		return nil
	}
	eventType, err := s.eventTypes.GetByID(ctx, booking.EventTypeID)
	if err != nil {
		return fmt.Errorf("load event type for sync: %w", err)
	}

	eventID, err := s.calendar.CreateEvent(ctx, booking.HostID, booking, eventType)
	if err != nil {
		if errors.Is(err, gcal.ErrNotConnected) {
			return nil
		}
		if s.metrics != nil {
			s.metrics.IncCalendarSyncFailure()
		}
		return err
	}

	s.logger.Info("booking mirrored to external calendar",
		zap.String("booking_id", booking.ID),
		zap.String("event_id", eventID))
	return nil
}

func containsSlot(slots []models.Slot, start, end time.Time) bool {
	for _, slot := range slots {
		if slot.Start.Equal(start) && slot.End.Equal(end) {
			return true
		}
	}
	return false
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lookup failed")
}
