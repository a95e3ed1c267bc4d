package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnyresults/booking-api/internal/gcal"
	"github.com/melnyresults/booking-api/internal/models"
	"github.com/melnyresults/booking-api/internal/repository"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/jobs"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

type hostReaderStub struct {
	host *models.Host
	err  error
}

func (s *hostReaderStub) GetBySlug(ctx context.Context, slug string) (*models.Host, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.host, nil
}

type eventTypeReaderStub struct {
	eventType *models.EventType
	err       error
}

func (s *eventTypeReaderStub) GetBySlug(ctx context.Context, hostID, slug string) (*models.EventType, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.eventType, nil
}

func (s *eventTypeReaderStub) GetByID(ctx context.Context, id string) (*models.EventType, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.eventType, nil
}

// bookingStoreStub mimics the repository's transactional overlap check
// against its own in-memory state.
type bookingStoreStub struct {
	mu        sync.Mutex
	bookings  map[string]*models.Booking
	createErr error
	seq       int
}

func (s *bookingStoreStub) Create(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.bookings {
		if existing.Status != models.BookingCancelled &&
			existing.StartAt.Before(booking.EndAt) && booking.StartAt.Before(existing.EndAt) {
			return repository.ErrBookingOverlap
		}
	}
	s.seq++
	booking.ID = fmt.Sprintf("bk-%d", s.seq)
	if s.bookings == nil {
		s.bookings = map[string]*models.Booking{}
	}
	s.bookings[booking.ID] = booking
	return nil
}

func (s *bookingStoreStub) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *booking
	return &copied, nil
}

func (s *bookingStoreStub) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return sql.ErrNoRows
	}
	booking.Status = status
	return nil
}

func (s *bookingStoreStub) activeOverlapping(start, end time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.Status != models.BookingCancelled && b.StartAt.Before(end) && start.Before(b.EndAt) {
			return true
		}
	}
	return false
}

type slotListerStub struct {
	fn    func() []models.Slot
	err   error
	calls int
}

func (s *slotListerStub) ListSlots(ctx context.Context, host *models.Host, eventType *models.EventType, date timeutil.Date) ([]models.Slot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.fn == nil {
		return nil, nil
	}
	return s.fn(), nil
}

func staticSlots(slots ...models.Slot) *slotListerStub {
	return &slotListerStub{fn: func() []models.Slot { return slots }}
}

type calendarStub struct {
	connected    bool
	connectedErr error
	eventID      string
	createErr    error
	createCalls  int
}

func (s *calendarStub) Connected(ctx context.Context, hostID string) (bool, error) {
	return s.connected, s.connectedErr
}

func (s *calendarStub) CreateEvent(ctx context.Context, hostID string, booking *models.Booking, eventType *models.EventType) (string, error) {
	s.createCalls++
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.eventID, nil
}

type syncQueueStub struct {
	mu   sync.Mutex
	jobs []jobs.SyncJob
}

func (s *syncQueueStub) Enqueue(job jobs.SyncJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

func nineOClockSlot() models.Slot {
	return models.Slot{Start: mondayAt(9, 0), End: mondayAt(9, 30)}
}

func validCreateRequest() CreateBookingRequest {
	return CreateBookingRequest{
		HostSlug:      "melny",
		EventTypeSlug: "intro-call",
		Start:         mondayAt(9, 0),
		GuestName:     "Ada Lovelace",
		GuestEmail:    "ada@example.com",
		Timezone:      "Europe/Berlin",
	}
}

func newBookingService(store *bookingStoreStub, slots slotLister, eventType *models.EventType, calendar calendarProvider) *BookingService {
	hosts := &hostReaderStub{host: utcHost()}
	eventTypes := &eventTypeReaderStub{eventType: eventType}
	return NewBookingService(hosts, eventTypes, store, slots, nil, calendar, nil, nil, nil)
}

func TestCreateBookingConfirmedImmediately(t *testing.T) {
	store := &bookingStoreStub{}
	svc := newBookingService(store, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), nil)

	booking, sync, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, mondayAt(9, 0), booking.StartAt)
	assert.Equal(t, mondayAt(9, 30), booking.EndAt)
	assert.Equal(t, SyncSkipped, sync)
	assert.Len(t, store.bookings, 1)
}

func TestCreateBookingPendingWhenConfirmationRequired(t *testing.T) {
	eventType := thirtyMinuteEventType()
	eventType.RequiresConfirmation = true
	svc := newBookingService(&bookingStoreStub{}, staticSlots(nineOClockSlot()), eventType, nil)

	booking, _, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
}

func TestCreateBookingRejectsStaleSlot(t *testing.T) {
	store := &bookingStoreStub{}
	svc := newBookingService(store, staticSlots(models.Slot{Start: mondayAt(10, 0), End: mondayAt(10, 30)}), thirtyMinuteEventType(), nil)

	_, _, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.bookings)
}

func TestCreateBookingMapsOverlapToSlotTaken(t *testing.T) {
	store := &bookingStoreStub{createErr: repository.ErrBookingOverlap}
	svc := newBookingService(store, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), nil)

	_, _, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotTaken.Code, appErrors.FromError(err).Code)
}

func TestCreateBookingValidatesPayload(t *testing.T) {
	svc := newBookingService(&bookingStoreStub{}, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), nil)

	req := validCreateRequest()
	req.GuestEmail = "not-an-email"
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateBookingRejectsUnknownGuestTimezone(t *testing.T) {
	svc := newBookingService(&bookingStoreStub{}, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), nil)

	req := validCreateRequest()
	req.Timezone = "Mars/Olympus_Mons"
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateBookingHostNotFound(t *testing.T) {
	svc := NewBookingService(
		&hostReaderStub{err: sql.ErrNoRows},
		&eventTypeReaderStub{eventType: thirtyMinuteEventType()},
		&bookingStoreStub{},
		staticSlots(nineOClockSlot()),
		nil, nil, nil, nil, nil,
	)

	_, _, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateBookingSchedulesCalendarSync(t *testing.T) {
	calendar := &calendarStub{connected: true}
	queue := &syncQueueStub{}
	svc := newBookingService(&bookingStoreStub{}, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), calendar)
	svc.SetSyncQueue(queue)

	booking, sync, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, SyncScheduled, sync)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, booking.ID, queue.jobs[0].BookingID)
	assert.Equal(t, booking.HostID, queue.jobs[0].HostID)
}

func TestCreateBookingSkipsSyncWhenLookupFails(t *testing.T) {
	calendar := &calendarStub{connectedErr: errors.New("token store down")}
	queue := &syncQueueStub{}
	svc := newBookingService(&bookingStoreStub{}, staticSlots(nineOClockSlot()), thirtyMinuteEventType(), calendar)
	svc.SetSyncQueue(queue)

	_, sync, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err, "calendar trouble must never fail the booking")
	assert.Equal(t, SyncSkipped, sync)
	assert.Empty(t, queue.jobs)
}

func TestConcurrentCreatesOnlyOneWins(t *testing.T) {
	store := &bookingStoreStub{}
	slot := nineOClockSlot()
	slots := &slotListerStub{fn: func() []models.Slot {
		if store.activeOverlapping(slot.Start, slot.End) {
			return nil
		}
		return []models.Slot{slot}
	}}
	svc := newBookingService(store, slots, thirtyMinuteEventType(), nil)

	const attempts = 4
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Create(context.Background(), validCreateRequest())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, taken int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case appErrors.FromError(err).Code == appErrors.ErrSlotTaken.Code:
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, taken)
	assert.Len(t, store.bookings, 1)
}

func TestBookingTransitions(t *testing.T) {
	tests := []struct {
		name     string
		initial  models.BookingStatus
		action   func(*BookingService, context.Context, string) (*models.Booking, error)
		want     models.BookingStatus
		conflict bool
	}{
		{"confirm pending", models.BookingPending, (*BookingService).Confirm, models.BookingConfirmed, false},
		{"cancel pending", models.BookingPending, (*BookingService).Cancel, models.BookingCancelled, false},
		{"cancel confirmed", models.BookingConfirmed, (*BookingService).Cancel, models.BookingCancelled, false},
		{"confirm confirmed", models.BookingConfirmed, (*BookingService).Confirm, "", true},
		{"confirm cancelled", models.BookingCancelled, (*BookingService).Confirm, "", true},
		{"cancel cancelled", models.BookingCancelled, (*BookingService).Cancel, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &bookingStoreStub{bookings: map[string]*models.Booking{
				"bk-1": {ID: "bk-1", Status: tt.initial, StartAt: mondayAt(9, 0), EndAt: mondayAt(9, 30)},
			}}
			svc := newBookingService(store, staticSlots(), thirtyMinuteEventType(), nil)

			booking, err := tt.action(svc, context.Background(), "bk-1")
			if tt.conflict {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, booking.Status)
			assert.Equal(t, tt.want, store.bookings["bk-1"].Status)
		})
	}
}

func TestGetBookingNotFound(t *testing.T) {
	svc := newBookingService(&bookingStoreStub{}, staticSlots(), thirtyMinuteEventType(), nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSyncToCalendarMirrorsBooking(t *testing.T) {
	store := &bookingStoreStub{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", HostID: "host-1", EventTypeID: "et-1", Status: models.BookingConfirmed},
	}}
	calendar := &calendarStub{eventID: "evt-42"}
	svc := newBookingService(store, staticSlots(), thirtyMinuteEventType(), calendar)

	err := svc.SyncToCalendar(context.Background(), jobs.SyncJob{BookingID: "bk-1", HostID: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, calendar.createCalls)
}

func TestSyncToCalendarSkipsCancelled(t *testing.T) {
	store := &bookingStoreStub{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", HostID: "host-1", EventTypeID: "et-1", Status: models.BookingCancelled},
	}}
	calendar := &calendarStub{eventID: "evt-42"}
	svc := newBookingService(store, staticSlots(), thirtyMinuteEventType(), calendar)

	err := svc.SyncToCalendar(context.Background(), jobs.SyncJob{BookingID: "bk-1", HostID: "host-1"})
	require.NoError(t, err)
	assert.Zero(t, calendar.createCalls)
}

func TestSyncToCalendarDisconnectedIsSilent(t *testing.T) {
	store := &bookingStoreStub{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", HostID: "host-1", EventTypeID: "et-1", Status: models.BookingConfirmed},
	}}
	calendar := &calendarStub{createErr: gcal.ErrNotConnected}
	svc := newBookingService(store, staticSlots(), thirtyMinuteEventType(), calendar)

	err := svc.SyncToCalendar(context.Background(), jobs.SyncJob{BookingID: "bk-1"})
	require.NoError(t, err)
}

func TestSyncToCalendarPropagatesFailure(t *testing.T) {
	store := &bookingStoreStub{bookings: map[string]*models.Booking{
		"bk-1": {ID: "bk-1", HostID: "host-1", EventTypeID: "et-1", Status: models.BookingConfirmed},
	}}
	calendar := &calendarStub{createErr: errors.New("events.insert: 500")}
	svc := newBookingService(store, staticSlots(), thirtyMinuteEventType(), calendar)

	err := svc.SyncToCalendar(context.Background(), jobs.SyncJob{BookingID: "bk-1"})
	require.Error(t, err)
}
