package slot

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/clinicdesk/clinic-server/cmd/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Clinic schedule, in minutes from midnight. Morning runs every day the clinic
// is open; afternoon is skipped on Saturday. Sunday the clinic is closed.
const (
	morningStart   = 8 * 60
	morningEnd     = 10*60 + 30
	afternoonStart = 14 * 60
	afternoonEnd   = 16*60 + 30

	slotIntervalMinutes  = 30
	generationWindowDays = 7

	defaultSlotCapacity = 5
)

type slotWindow struct {
	StartTime string
	EndTime   string
}

// DefaultCapacity reads DEFAULT_SLOT_CAPACITY, falling back to 5 per slot.
func DefaultCapacity() int {
	if v := os.Getenv("DEFAULT_SLOT_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultSlotCapacity
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func windowsForPeriod(startMinutes, endMinutes int) []slotWindow {
	var windows []slotWindow
	for t := startMinutes; t < endMinutes; t += slotIntervalMinutes {
		windows = append(windows, slotWindow{
			StartTime: clock(t),
			EndTime:   clock(t + slotIntervalMinutes),
		})
	}
	return windows
}

// windowsForDay returns the bookable windows for one weekday. Sunday returns
// nothing; Saturday gets the morning session only.
func windowsForDay(weekday time.Weekday) []slotWindow {
	if weekday == time.Sunday {
		return nil
	}
	windows := windowsForPeriod(morningStart, morningEnd)
	if weekday != time.Saturday {
		windows = append(windows, windowsForPeriod(afternoonStart, afternoonEnd)...)
	}
	return windows
}

// EnsureSlotsForDoctor idempotently generates slots for the 7 days after
// fromDate (today itself is never bookable). Existing rows only get end_time
// and max_capacity refreshed; current_bookings reflects live reservations and
// is never reset here. Concurrent generation for the same doctor is resolved
// by the (doctor_id, date, start_time) unique index.
func EnsureSlotsForDoctor(db *gorm.DB, doctorID uint, fromDate time.Time) error {
	var doctor models.DoctorProfile
	if err := db.First(&doctor, doctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDoctorNotFound
		}
		return err
	}

	capacity := DefaultCapacity()

	for i := 1; i <= generationWindowDays; i++ {
		date := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day()+i,
			0, 0, 0, 0, time.UTC)

		for _, window := range windowsForDay(date.Weekday()) {
			var existing models.TimeSlot
			err := db.Where("doctor_id = ? AND date = ? AND start_time = ?",
				doctorID, date.Format("2006-01-02"), window.StartTime).
				First(&existing).Error

			switch {
			case err == nil:
				if err := db.Model(&existing).Updates(map[string]interface{}{
					"end_time":     window.EndTime,
					"max_capacity": capacity,
				}).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				newSlot := models.TimeSlot{
					DoctorID:        doctorID,
					Date:            date,
					StartTime:       window.StartTime,
					EndTime:         window.EndTime,
					IsAvailable:     true,
					MaxCapacity:     capacity,
					CurrentBookings: 0,
				}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&newSlot).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
	}

	return nil
}
