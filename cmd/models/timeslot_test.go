package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingCapacity(t *testing.T) {
	tests := []struct {
		name     string
		slot     TimeSlot
		expected int
	}{
		{"empty slot", TimeSlot{MaxCapacity: 5, CurrentBookings: 0}, 5},
		{"partially booked", TimeSlot{MaxCapacity: 5, CurrentBookings: 3}, 2},
		{"full slot", TimeSlot{MaxCapacity: 5, CurrentBookings: 5}, 0},
		{"drifted counter never reports negative", TimeSlot{MaxCapacity: 5, CurrentBookings: 7}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.slot.RemainingCapacity())
		})
	}
}

func TestScheduleTime(t *testing.T) {
	slot := TimeSlot{
		Date:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "08:30",
	}

	scheduleTime, err := slot.ScheduleTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC), scheduleTime)
}

func TestScheduleTimeInvalidStart(t *testing.T) {
	slot := TimeSlot{
		Date:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: "garbage",
	}

	_, err := slot.ScheduleTime()
	assert.Error(t, err)
}

func TestAppointmentIsActive(t *testing.T) {
	assert.True(t, (&Appointment{Status: AppointmentPending}).IsActive())
	assert.True(t, (&Appointment{Status: AppointmentConfirmed}).IsActive())
	assert.False(t, (&Appointment{Status: AppointmentCancelled}).IsActive())
	assert.False(t, (&Appointment{Status: AppointmentCompleted}).IsActive())
}
