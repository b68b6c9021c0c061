package appointment

import (
	"errors"
	"log"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/slot"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier receives booking events after the transaction commits. Failures
// are the notifier's problem; they never fail the booking.
type Notifier interface {
	AppointmentBooked(appt *models.Appointment)
}

// SlotBroadcaster pushes live slot capacity changes to connected clients.
type SlotBroadcaster interface {
	BroadcastSlot(s *models.TimeSlot)
}

// Engine performs the atomic slot reservation. All capacity reads and writes
// happen inside one transaction holding the slot row lock, so two concurrent
// bookings of the same slot serialize and the loser sees the winner's
// committed increment.
type Engine struct {
	db          *gorm.DB
	notifier    Notifier
	broadcaster SlotBroadcaster
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

func (e *Engine) WithBroadcaster(b SlotBroadcaster) *Engine {
	e.broadcaster = b
	return e
}

// BookSlot reserves capacity on the slot and creates the appointment as one
// atomic unit. On any failure the appointment insert and the counter
// increment roll back together; partial state is never observable.
func (e *Engine) BookSlot(slotID, patientID uint, reason string) (*models.Appointment, error) {
	var appt models.Appointment
	var bookedSlot *models.TimeSlot

	err := e.db.Transaction(func(tx *gorm.DB) error {
		lockedSlot, err := slot.LockSlot(tx, slotID)
		if err != nil {
			return err
		}

		if lockedSlot.CurrentBookings >= lockedSlot.MaxCapacity {
			return slot.ErrSlotFull
		}

		var patient models.PatientProfile
		if err := tx.First(&patient, patientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPatientNotFound
			}
			return err
		}

		scheduleTime, err := lockedSlot.ScheduleTime()
		if err != nil {
			return err
		}

		slotID := lockedSlot.ID
		appt = models.Appointment{
			AppointmentID: uuid.NewString(),
			PatientID:     patient.ID,
			DoctorID:      lockedSlot.DoctorID,
			TimeSlotID:    &slotID,
			ScheduleTime:  scheduleTime,
			Status:        models.AppointmentPending,
			PaymentStatus: models.PaymentUnpaid,
			Reason:        reason,
		}
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}

		if err := slot.IncrementBookings(tx, lockedSlot); err != nil {
			return err
		}

		bookedSlot = lockedSlot
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publishSlotUpdate(bookedSlot)
	if e.notifier != nil {
		go e.notifier.AppointmentBooked(&appt)
	}

	return &appt, nil
}

func (e *Engine) publishSlotUpdate(s *models.TimeSlot) {
	if e.broadcaster == nil || s == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("slot broadcast panic: %v", r)
		}
	}()
	e.broadcaster.BroadcastSlot(s)
}
