package slot

import (
	"github.com/clinicdesk/clinic-server/cmd/models"
	"gorm.io/gorm"
)

type SyncResult struct {
	MarkedFull      int64 `json:"marked_full"`
	MarkedAvailable int64 `json:"marked_available"`
}

// SyncBookings recomputes every slot's current_bookings from the authoritative
// count of its active appointments and repairs is_available. Used to self-heal
// drift from direct data manipulation or legacy rows without counters.
func SyncBookings(db *gorm.DB) (SyncResult, error) {
	var result SyncResult

	err := db.Exec(`
		UPDATE time_slots ts
		SET current_bookings = (
			SELECT COUNT(*)
			FROM appointments a
			WHERE a.time_slot_id = ts.id
			AND a.status IN ('pending', 'confirmed')
		)`).Error
	if err != nil {
		return result, err
	}

	full := db.Model(&models.TimeSlot{}).
		Where("current_bookings >= max_capacity").
		Update("is_available", false)
	if full.Error != nil {
		return result, full.Error
	}
	result.MarkedFull = full.RowsAffected

	open := db.Model(&models.TimeSlot{}).
		Where("current_bookings < max_capacity").
		Update("is_available", true)
	if open.Error != nil {
		return result, open.Error
	}
	result.MarkedAvailable = open.RowsAffected

	return result, nil
}
