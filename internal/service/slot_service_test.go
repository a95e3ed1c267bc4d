package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnyresults/booking-api/internal/models"
	appErrors "github.com/melnyresults/booking-api/pkg/errors"
	"github.com/melnyresults/booking-api/pkg/interval"
	"github.com/melnyresults/booking-api/pkg/timeutil"
)

type resolverStub struct {
	windows       []interval.Span
	resolveErr    error
	scheduleCalls int
	resolveCalls  int
}

func (s *resolverStub) ScheduleIDFor(ctx context.Context, host *models.Host, eventType *models.EventType) (string, error) {
	s.scheduleCalls++
	return "sched-1", nil
}

func (s *resolverStub) ResolveDay(ctx context.Context, host *models.Host, scheduleID string, date timeutil.Date) ([]interval.Span, error) {
	s.resolveCalls++
	return s.windows, s.resolveErr
}

type bookingReaderStub struct {
	bookings []models.Booking
	err      error
	calls    int
}

func (s *bookingReaderStub) ListActiveBetween(ctx context.Context, hostID string, from, to time.Time) ([]models.Booking, error) {
	s.calls++
	return s.bookings, s.err
}

type busyStub struct {
	spans []interval.Span
	err   error
	calls int
}

func (s *busyStub) BusyIntervals(ctx context.Context, hostID string, from, to time.Time) ([]interval.Span, error) {
	s.calls++
	return s.spans, s.err
}

func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

func mondayWindow(startHour, endHour int) interval.Span {
	return interval.Span{Start: mondayAt(startHour, 0), End: mondayAt(endHour, 0)}
}

func thirtyMinuteEventType() *models.EventType {
	return &models.EventType{
		ID:              "et-1",
		HostID:          "host-1",
		Slug:            "intro-call",
		DurationMinutes: 30,
		MaxFutureDays:   30,
	}
}

func slotStarts(slots []models.Slot) []time.Time {
	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
	}
	return starts
}

func newSlotServiceAt(now time.Time, resolver *resolverStub, bookings *bookingReaderStub, busy busyFetcher) *SlotService {
	svc := NewSlotService(resolver, bookings, busy, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestListSlotsAroundExistingBooking(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 12)}}
	bookings := &bookingReaderStub{bookings: []models.Booking{
		{ID: "b-1", HostID: "host-1", Status: models.BookingConfirmed, StartAt: mondayAt(10, 0), EndAt: mondayAt(10, 30)},
	}}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, nil)

	slots, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		mondayAt(9, 0), mondayAt(9, 30), mondayAt(10, 30), mondayAt(11, 0), mondayAt(11, 30),
	}, slotStarts(slots))
}

func TestListSlotsEmptyDaySkipsBookingQuery(t *testing.T) {
	resolver := &resolverStub{}
	bookings := &bookingReaderStub{}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, nil)

	slots, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.Zero(t, bookings.calls)
}

func TestListSlotsBeyondHorizonShortCircuits(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 12)}}
	bookings := &bookingReaderStub{}
	busy := &busyStub{}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, busy)

	eventType := thirtyMinuteEventType()
	eventType.MaxFutureDays = 7

	slots, err := svc.ListSlots(context.Background(), utcHost(), eventType, monday.AddDays(8))
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.Zero(t, resolver.scheduleCalls)
	assert.Zero(t, bookings.calls)
	assert.Zero(t, busy.calls)
}

func TestListSlotsMinNoticeCutsEarlyStarts(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 12)}}
	svc := newSlotServiceAt(mondayAt(8, 0), resolver, &bookingReaderStub{}, nil)

	eventType := thirtyMinuteEventType()
	eventType.MinNoticeMinutes = 90

	slots, err := svc.ListSlots(context.Background(), utcHost(), eventType, monday)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, mondayAt(9, 30), slots[0].Start, "the 09:00 slot is inside the notice period")
	assert.Equal(t, mondayAt(11, 30), slots[len(slots)-1].Start)
}

func TestListSlotsBuffersExpandBookings(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 12)}}
	bookings := &bookingReaderStub{bookings: []models.Booking{
		{ID: "b-1", Status: models.BookingConfirmed, StartAt: mondayAt(10, 0), EndAt: mondayAt(10, 30)},
	}}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, nil)

	eventType := thirtyMinuteEventType()
	eventType.BufferBeforeMinutes = 15
	eventType.BufferAfterMinutes = 15

	slots, err := svc.ListSlots(context.Background(), utcHost(), eventType, monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		mondayAt(9, 0), mondayAt(10, 45), mondayAt(11, 15),
	}, slotStarts(slots))
}

func TestListSlotsExternalBusyIsSubtracted(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 11)}}
	busy := &busyStub{spans: []interval.Span{{Start: mondayAt(9, 30), End: mondayAt(10, 0)}}}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, &bookingReaderStub{}, busy)

	slots, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		mondayAt(9, 0), mondayAt(10, 0), mondayAt(10, 30),
	}, slotStarts(slots))
}

func TestListSlotsDegradesWhenExternalCalendarFails(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 10)}}
	busy := &busyStub{err: errors.New("freebusy: 503")}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, &bookingReaderStub{}, busy)

	slots, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{mondayAt(9, 0), mondayAt(9, 30)}, slotStarts(slots))
}

func TestListSlotsIsDeterministic(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 12), mondayWindow(13, 15)}}
	bookings := &bookingReaderStub{bookings: []models.Booking{
		{ID: "b-1", Status: models.BookingPending, StartAt: mondayAt(13, 30), EndAt: mondayAt(14, 0)},
	}}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, nil)

	first, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	second, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].Start.After(first[i-1].Start), "slots must be chronological")
	}
}

func TestListSlotsPendingBookingBlocks(t *testing.T) {
	resolver := &resolverStub{windows: []interval.Span{mondayWindow(9, 10)}}
	bookings := &bookingReaderStub{bookings: []models.Booking{
		{ID: "b-1", Status: models.BookingPending, StartAt: mondayAt(9, 0), EndAt: mondayAt(9, 30)},
	}}
	svc := newSlotServiceAt(mondayAt(0, 0), resolver, bookings, nil)

	slots, err := svc.ListSlots(context.Background(), utcHost(), thirtyMinuteEventType(), monday)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{mondayAt(9, 30)}, slotStarts(slots))
}

func TestListSlotsRejectsBrokenEventType(t *testing.T) {
	svc := newSlotServiceAt(mondayAt(0, 0), &resolverStub{}, &bookingReaderStub{}, nil)

	eventType := thirtyMinuteEventType()
	eventType.DurationMinutes = 0

	_, err := svc.ListSlots(context.Background(), utcHost(), eventType, monday)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
