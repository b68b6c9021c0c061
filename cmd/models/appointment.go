package models

import (
	"time"
)

// Appointment statuses. pending -> confirmed -> completed, cancel from any state.
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
	AppointmentCompleted = "completed"
)

// Appointment payment states.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

type Appointment struct {
	AppointmentID string `gorm:"column:appointment_id;primaryKey;size:36" json:"appointment_id"`
	PatientID     uint   `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID      uint   `gorm:"column:doctor_id;not null;index" json:"doctor_id"`
	// Nullable: appointments created before slot modeling carry no slot reference.
	TimeSlotID    *uint     `gorm:"column:time_slot_id;index" json:"time_slot_id"`
	ScheduleTime  time.Time `gorm:"column:schedule_time;not null" json:"schedule_time"`
	Status        string    `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	PaymentStatus string    `gorm:"column:payment_status;size:20;not null;default:unpaid" json:"payment_status"`
	Reason        string    `gorm:"column:reason;size:500" json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Patient  *PatientProfile `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor   *DoctorProfile  `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	TimeSlot *TimeSlot       `gorm:"foreignKey:TimeSlotID" json:"time_slot,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsActive reports whether the appointment currently occupies slot capacity.
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentPending || a.Status == AppointmentConfirmed
}
