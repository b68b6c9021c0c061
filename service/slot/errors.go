package slot

import "errors"

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrSlotNotFound   = errors.New("time slot not found")
	ErrSlotFull       = errors.New("time slot is fully booked")
)
