package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TimeSlot is one bookable window for a doctor on a given date. Uniqueness on
// (doctor_id, date, start_time) is what keeps concurrent slot generation from
// inserting duplicates.
type TimeSlot struct {
	gorm.Model
	DoctorID        uint      `gorm:"column:doctor_id;not null;uniqueIndex:idx_doctor_date_start,priority:1" json:"doctor_id"`
	Date            time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_doctor_date_start,priority:2" json:"date"`
	StartTime       string    `gorm:"column:start_time;size:5;not null;uniqueIndex:idx_doctor_date_start,priority:3" json:"start_time"`
	EndTime         string    `gorm:"column:end_time;size:5;not null" json:"end_time"`
	IsAvailable     bool      `gorm:"column:is_available;not null;default:true" json:"is_available"`
	MaxCapacity     int       `gorm:"column:max_capacity;not null;default:5" json:"max_capacity"`
	CurrentBookings int       `gorm:"column:current_bookings;not null;default:0" json:"current_bookings"`

	Doctor *DoctorProfile `gorm:"foreignKey:DoctorID" json:"-"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

// RemainingCapacity never reports below zero even if the counter has drifted.
func (s *TimeSlot) RemainingCapacity() int {
	remaining := s.MaxCapacity - s.CurrentBookings
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ScheduleTime combines the slot date with its start time of day. Appointments
// copy this value at booking time so later slot edits cannot move them.
func (s *TimeSlot) ScheduleTime() (time.Time, error) {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot start time %q: %w", s.StartTime, err)
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
		start.Hour(), start.Minute(), 0, 0, s.Date.Location()), nil
}
