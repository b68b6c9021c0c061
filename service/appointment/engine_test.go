package appointment

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/slot"
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

func timeSlotRows(mock sqlmock.Sqlmock, maxCapacity, currentBookings int) *sqlmock.Rows {
	return mock.NewRows([]string{
		"id", "doctor_id", "date", "start_time", "end_time",
		"is_available", "max_capacity", "current_bookings",
	}).AddRow(
		12, 7, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "08:00", "08:30",
		currentBookings < maxCapacity, maxCapacity, currentBookings,
	)
}

func appointmentRows(mock sqlmock.Sqlmock, id, status, paymentStatus string) *sqlmock.Rows {
	return mock.NewRows([]string{
		"appointment_id", "patient_id", "doctor_id", "time_slot_id",
		"schedule_time", "status", "payment_status", "reason",
	}).AddRow(
		id, 3, 7, 12,
		time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), status, paymentStatus, "checkup",
	)
}

func TestBookSlot(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 3))
	mock.ExpectQuery(`SELECT (.+) FROM "patient_profiles"`).
		WillReturnRows(mock.NewRows([]string{"id", "user_id"}).AddRow(3, 9))
	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appt, err := NewEngine(db).BookSlot(12, 3, "checkup")
	require.NoError(t, err)

	assert.NotEmpty(t, appt.AppointmentID)
	assert.Equal(t, uint(3), appt.PatientID)
	assert.Equal(t, uint(7), appt.DoctorID)
	require.NotNil(t, appt.TimeSlotID)
	assert.Equal(t, uint(12), *appt.TimeSlotID)
	assert.Equal(t, models.AppointmentPending, appt.Status)
	assert.Equal(t, models.PaymentUnpaid, appt.PaymentStatus)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), appt.ScheduleTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotFull(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 5))
	mock.ExpectRollback()

	_, err := NewEngine(db).BookSlot(12, 3, "checkup")
	assert.ErrorIs(t, err, slot.ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet(), "no appointment row and no counter change on a full slot")
}

func TestBookSlotNotFound(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewEngine(db).BookSlot(99, 3, "checkup")
	assert.ErrorIs(t, err, slot.ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotUnknownPatient(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 3))
	mock.ExpectQuery(`SELECT (.+) FROM "patient_profiles"`).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewEngine(db).BookSlot(12, 99, "checkup")
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotInsertFailureRollsBack(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 3))
	mock.ExpectQuery(`SELECT (.+) FROM "patient_profiles"`).
		WillReturnRows(mock.NewRows([]string{"id", "user_id"}).AddRow(3, 9))
	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := NewEngine(db).BookSlot(12, 3, "checkup")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "a failed insert must not leave the counter incremented")
}

type capturingBroadcaster struct {
	slots []*models.TimeSlot
}

func (b *capturingBroadcaster) BroadcastSlot(s *models.TimeSlot) {
	b.slots = append(b.slots, s)
}

func TestBookSlotBroadcastsAfterCommit(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 3))
	mock.ExpectQuery(`SELECT (.+) FROM "patient_profiles"`).
		WillReturnRows(mock.NewRows([]string{"id", "user_id"}).AddRow(3, 9))
	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	broadcaster := &capturingBroadcaster{}
	_, err := NewEngine(db).WithBroadcaster(broadcaster).BookSlot(12, 3, "checkup")
	require.NoError(t, err)

	require.Len(t, broadcaster.slots, 1)
	assert.Equal(t, 4, broadcaster.slots[0].CurrentBookings)
}

type panickyBroadcaster struct{}

func (panickyBroadcaster) BroadcastSlot(*models.TimeSlot) { panic("hub down") }

func TestBookSlotSurvivesBroadcastPanic(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 3))
	mock.ExpectQuery(`SELECT (.+) FROM "patient_profiles"`).
		WillReturnRows(mock.NewRows([]string{"id", "user_id"}).AddRow(3, 9))
	mock.ExpectExec(`INSERT INTO "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appt, err := NewEngine(db).WithBroadcaster(panickyBroadcaster{}).BookSlot(12, 3, "checkup")
	require.NoError(t, err, "a broken broadcaster must not fail a committed booking")
	assert.NotEmpty(t, appt.AppointmentID)
}

func TestDeleteActiveAppointmentReleasesCapacity(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "appointments"`).
		WillReturnRows(appointmentRows(mock, "appt-1", models.AppointmentConfirmed, models.PaymentPaid))
	mock.ExpectQuery(`SELECT (.+) FROM "time_slots" (.+)FOR UPDATE`).
		WillReturnRows(timeSlotRows(mock, 5, 4))
	mock.ExpectExec(`UPDATE "time_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewEngine(db).Delete("appt-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCancelledAppointmentSkipsSlot(t *testing.T) {
	db, mock := newTestDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "appointments"`).
		WillReturnRows(appointmentRows(mock, "appt-1", models.AppointmentCancelled, models.PaymentUnpaid))
	mock.ExpectExec(`DELETE FROM "appointments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewEngine(db).Delete("appt-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "cancelled appointments hold no capacity to release")
}
