package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melnyresults/booking-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WithArgs("host-1", start, end).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(sqlmock.AnyArg(), "et-1", "host-1", "Ada Lovelace", "ada@example.com",
			start, end, "Europe/London", "confirmed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	booking := &models.Booking{
		EventTypeID: "et-1",
		HostID:      "host-1",
		GuestName:   "Ada Lovelace",
		GuestEmail:  "ada@example.com",
		StartAt:     start,
		EndAt:       end,
		Timezone:    "Europe/London",
		Status:      models.BookingConfirmed,
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateOverlap(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bookings")).
		WithArgs("host-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-1"))
	mock.ExpectRollback()

	booking := &models.Booking{
		EventTypeID: "et-1",
		HostID:      "host-1",
		GuestName:   "Ada Lovelace",
		GuestEmail:  "ada@example.com",
		StartAt:     start,
		EndAt:       end,
		Status:      models.BookingPending,
	}
	err := repo.Create(context.Background(), booking)
	require.ErrorIs(t, err, ErrBookingOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListActiveBetween(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	from := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "event_type_id", "host_id", "guest_name", "guest_email",
		"start_at", "end_at", "timezone", "status", "created_at", "updated_at"}).
		AddRow("b-1", "et-1", "host-1", "Ada", "ada@example.com",
			from.Add(10*time.Hour), from.Add(10*time.Hour+30*time.Minute),
			"UTC", "confirmed", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, event_type_id, host_id")).
		WithArgs("host-1", from, to).
		WillReturnRows(rows)

	bookings, err := repo.ListActiveBetween(context.Background(), "host-1", from, to)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.BookingConfirmed, bookings[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status")).
		WithArgs("b-1", "cancelled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "b-1", models.BookingCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}
