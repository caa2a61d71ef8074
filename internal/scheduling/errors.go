package scheduling

import "errors"

var (
	ErrUnknownDoctor       = errors.New("doctor not found")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD form")
	ErrInvalidSlotTime     = errors.New("time must be in HH:MM form")
	ErrInvalidSlotIndex    = errors.New("slot index is outside the day's grid")
	ErrSlotTaken           = errors.New("slot is not available")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidStatus       = errors.New("unknown appointment status")
	ErrInvalidTransition   = errors.New("invalid status transition")

	// ErrScheduleBusy is returned when another caller holds the schedule lock
	// for the same doctor and day. The operation was not attempted and can be
	// retried.
	ErrScheduleBusy = errors.New("schedule is currently being modified, please retry")

	// ErrLockNotAcquired is returned by Locker implementations on contention.
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)
