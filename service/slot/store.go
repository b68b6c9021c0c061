package slot

import (
	"errors"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListSlots returns every slot for the doctor on the given date ordered by
// start time, fully booked ones included so clients can render them disabled.
func ListSlots(db *gorm.DB, doctorID uint, date time.Time) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := db.Where("doctor_id = ? AND date = ?", doctorID, date.Format("2006-01-02")).
		Order("start_time").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// LockSlot loads the slot under an exclusive row lock. Every read-then-write
// of the booking counter goes through here so concurrent capacity mutations
// on the same slot serialize; the lock is held until the caller's transaction
// commits or rolls back.
func LockSlot(tx *gorm.DB, slotID uint) (*models.TimeSlot, error) {
	var s models.TimeSlot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, slotID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// IncrementBookings reserves one unit of capacity on a slot the caller has
// locked via LockSlot. Availability flips off when the slot fills.
func IncrementBookings(tx *gorm.DB, s *models.TimeSlot) error {
	if s.CurrentBookings >= s.MaxCapacity {
		return ErrSlotFull
	}

	s.CurrentBookings++
	s.IsAvailable = s.CurrentBookings < s.MaxCapacity

	return tx.Model(s).Updates(map[string]interface{}{
		"current_bookings": s.CurrentBookings,
		"is_available":     s.IsAvailable,
	}).Error
}

// DecrementBookings releases one unit of capacity on a locked slot. The
// counter never drops below zero, and availability flips back on as soon as
// there is room again.
func DecrementBookings(tx *gorm.DB, s *models.TimeSlot) error {
	if s.CurrentBookings > 0 {
		s.CurrentBookings--
	}
	s.IsAvailable = s.CurrentBookings < s.MaxCapacity

	return tx.Model(s).Updates(map[string]interface{}{
		"current_bookings": s.CurrentBookings,
		"is_available":     s.IsAvailable,
	}).Error
}
