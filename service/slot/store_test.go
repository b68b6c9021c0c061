package slot

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return db, mock
}

func slotRows(mock sqlmock.Sqlmock, s models.TimeSlot) *sqlmock.Rows {
	return mock.NewRows([]string{
		"id", "doctor_id", "date", "start_time", "end_time",
		"is_available", "max_capacity", "current_bookings",
	}).AddRow(
		s.ID, s.DoctorID, s.Date, s.StartTime, s.EndTime,
		s.IsAvailable, s.MaxCapacity, s.CurrentBookings,
	)
}

func TestLockSlotNotFound(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(mock.NewRows([]string{"id"}))

	_, err := LockSlot(db, 99)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSlotUsesRowLock(t *testing.T) {
	db, mock := newTestDB(t)

	s := models.TimeSlot{
		DoctorID:        7,
		Date:            time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:00",
		EndTime:         "08:30",
		IsAvailable:     true,
		MaxCapacity:     5,
		CurrentBookings: 2,
	}
	s.ID = 12

	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(slotRows(mock, s))

	locked, err := LockSlot(db, 12)
	require.NoError(t, err)
	assert.Equal(t, uint(12), locked.ID)
	assert.Equal(t, 2, locked.CurrentBookings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementBookings(t *testing.T) {
	db, mock := newTestDB(t)

	s := &models.TimeSlot{IsAvailable: true, MaxCapacity: 5, CurrentBookings: 3}
	s.ID = 12

	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, IncrementBookings(db, s))
	assert.Equal(t, 4, s.CurrentBookings)
	assert.True(t, s.IsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementBookingsFillsSlot(t *testing.T) {
	db, mock := newTestDB(t)

	s := &models.TimeSlot{IsAvailable: true, MaxCapacity: 5, CurrentBookings: 4}
	s.ID = 12

	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, IncrementBookings(db, s))
	assert.Equal(t, 5, s.CurrentBookings)
	assert.False(t, s.IsAvailable, "slot flips unavailable at capacity")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementBookingsFullSlot(t *testing.T) {
	db, mock := newTestDB(t)

	s := &models.TimeSlot{IsAvailable: false, MaxCapacity: 5, CurrentBookings: 5}
	s.ID = 12

	err := IncrementBookings(db, s)
	assert.ErrorIs(t, err, ErrSlotFull)
	assert.Equal(t, 5, s.CurrentBookings, "counter untouched on rejection")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementBookings(t *testing.T) {
	db, mock := newTestDB(t)

	s := &models.TimeSlot{IsAvailable: false, MaxCapacity: 5, CurrentBookings: 5}
	s.ID = 12

	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, DecrementBookings(db, s))
	assert.Equal(t, 4, s.CurrentBookings)
	assert.True(t, s.IsAvailable, "slot reopens once capacity frees up")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementBookingsFloorsAtZero(t *testing.T) {
	db, mock := newTestDB(t)

	s := &models.TimeSlot{IsAvailable: true, MaxCapacity: 5, CurrentBookings: 0}
	s.ID = 12

	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, DecrementBookings(db, s))
	assert.Equal(t, 0, s.CurrentBookings)
	assert.True(t, s.IsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
