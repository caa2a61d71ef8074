package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository is the record-of-truth store for appointments. Every
// mutating call must be durable before it returns nil: a reported success
// that a crash can lose is a contract violation.
type AppointmentRepository interface {
	// CreateAppointment persists a new pending appointment and returns it
	// with its generated id and timestamps.
	CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, day time.Time, slot SlotTime) (*Appointment, error)

	AppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateAppointmentStatus moves an appointment from one status to another
	// as a compare-and-swap: if the stored status no longer matches from, it
	// fails with ErrAppointmentNotFound and writes nothing.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// DeleteAppointment removes the record outright. Used only to undo a
	// half-finished reschedule; cancellation is a status transition.
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)
	AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)

	// ActiveSlotTimes returns the times of all slot-occupying appointments
	// for one doctor and day (the booking index).
	ActiveSlotTimes(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]SlotTime, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// DoctorDirectory is owned by the user-management collaborator; the engine
// only asks whether a doctor exists.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
}

// UnavailabilitySource exposes doctor-declared blocked times (leave, breaks).
// Read-only from the engine's perspective.
type UnavailabilitySource interface {
	Unavailability(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]SlotTime, error)
}
