package appointment

import (
	"errors"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"github.com/clinicdesk/clinic-server/service/slot"
	"gorm.io/gorm"
)

// ValidTransition implements the appointment state machine: pending ->
// confirmed -> completed, cancellation from any active or completed state,
// and reinstatement of a cancelled appointment back to an active status.
func ValidTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch to {
	case models.AppointmentCancelled:
		return from != models.AppointmentCancelled
	case models.AppointmentConfirmed:
		return from == models.AppointmentPending || from == models.AppointmentCancelled
	case models.AppointmentPending:
		return from == models.AppointmentCancelled
	case models.AppointmentCompleted:
		return from == models.AppointmentConfirmed
	}
	return false
}

func isActiveStatus(status string) bool {
	return status == models.AppointmentPending || status == models.AppointmentConfirmed
}

// capacityDelta is the slot counter adjustment a transition causes. Approval
// and completion keep the reservation, cancellation releases it, and
// reinstatement takes it again.
func capacityDelta(from, to string) int {
	// Completion keeps the capacity reserved at booking time; the slot must
	// not reopen because the visit happened. The sync recount reclaims it.
	if to == models.AppointmentCompleted {
		return 0
	}
	switch {
	case isActiveStatus(from) && !isActiveStatus(to):
		return -1
	case !isActiveStatus(from) && isActiveStatus(to):
		return +1
	default:
		return 0
	}
}

// UpdateStatus applies one guarded transition. Capacity-adjusting transitions
// lock the slot row first, inside the same transaction, so the booking count
// invariant holds against concurrent bookings. Reinstatement into a full slot
// fails with ErrSlotFull and changes nothing.
func (e *Engine) UpdateStatus(appointmentID, newStatus string) (*models.Appointment, error) {
	var appt models.Appointment
	var touchedSlot *models.TimeSlot

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("appointment_id = ?", appointmentID).First(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if !ValidTransition(appt.Status, newStatus) {
			return ErrInvalidTransition
		}

		if delta := capacityDelta(appt.Status, newStatus); delta != 0 && appt.TimeSlotID != nil {
			lockedSlot, err := slot.LockSlot(tx, *appt.TimeSlotID)
			if err != nil {
				return err
			}
			if delta > 0 {
				if err := slot.IncrementBookings(tx, lockedSlot); err != nil {
					return err
				}
			} else {
				if err := slot.DecrementBookings(tx, lockedSlot); err != nil {
					return err
				}
			}
			touchedSlot = lockedSlot
		}

		appt.Status = newStatus
		return tx.Save(&appt).Error
	})
	if err != nil {
		return nil, err
	}

	e.publishSlotUpdate(touchedSlot)
	return &appt, nil
}

// Delete hard-deletes an appointment. An active appointment still occupies
// slot capacity, so the delete releases it the same way a cancellation does.
func (e *Engine) Delete(appointmentID string) error {
	var touchedSlot *models.TimeSlot

	err := e.db.Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		if err := tx.Where("appointment_id = ?", appointmentID).First(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if appt.IsActive() && appt.TimeSlotID != nil {
			lockedSlot, err := slot.LockSlot(tx, *appt.TimeSlotID)
			if err != nil {
				return err
			}
			if err := slot.DecrementBookings(tx, lockedSlot); err != nil {
				return err
			}
			touchedSlot = lockedSlot
		}

		return tx.Where("appointment_id = ?", appointmentID).
			Delete(&models.Appointment{}).Error
	})
	if err != nil {
		return err
	}

	e.publishSlotUpdate(touchedSlot)
	return nil
}

// MarkPaidAndConfirmed finalizes an appointment after a successful payment.
// Idempotent: a second confirmation for an already confirmed and paid
// appointment is a no-op. The slot keeps the capacity it reserved at booking
// time, so no counter changes here.
func MarkPaidAndConfirmed(tx *gorm.DB, appointmentID string) (*models.Appointment, bool, error) {
	var appt models.Appointment
	if err := tx.Where("appointment_id = ?", appointmentID).First(&appt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrAppointmentNotFound
		}
		return nil, false, err
	}

	if appt.Status == models.AppointmentConfirmed && appt.PaymentStatus == models.PaymentPaid {
		return &appt, false, nil
	}

	// A cancelled or completed appointment no longer holds slot capacity;
	// confirming it here would break the booking count invariant.
	if !appt.IsActive() {
		return &appt, false, nil
	}

	appt.Status = models.AppointmentConfirmed
	appt.PaymentStatus = models.PaymentPaid
	if err := tx.Save(&appt).Error; err != nil {
		return nil, false, err
	}
	return &appt, true, nil
}
