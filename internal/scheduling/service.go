package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	EventAppointmentScheduled   = "APPOINTMENT_SCHEDULED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventStatusChanged          = "APPOINTMENT_STATUS_CHANGED"
)

// Service is the scheduling engine. It owns the invariant that no doctor has
// two slot-occupying appointments at the same time, and it is the only writer
// of the appointment store.
type Service struct {
	repo      AppointmentRepository
	directory DoctorDirectory
	unavail   UnavailabilitySource
	locker    Locker
	grid      Grid
}

func NewService(repo AppointmentRepository, directory DoctorDirectory, unavail UnavailabilitySource, locker Locker, grid Grid) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		unavail:   unavail,
		locker:    locker,
		grid:      grid,
	}
}

// AvailableSlots resolves the bookable grid for one doctor and day: the full
// working-hours grid in chronological order, each slot flagged available
// unless the doctor declared the time blocked or an active booking holds it.
// Advisory only; booking operations re-resolve under the schedule lock.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	ok, err := s.directory.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !ok {
		return nil, ErrUnknownDoctor
	}
	return s.resolveSlots(ctx, doctorID, day)
}

func (s *Service) resolveSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	blocked, err := s.unavail.Unavailability(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load unavailability: %w", err)
	}
	booked, err := s.repo.ActiveSlotTimes(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	busy := make(map[SlotTime]struct{}, len(blocked)+len(booked))
	for _, t := range blocked {
		busy[t] = struct{}{}
	}
	for _, t := range booked {
		busy[t] = struct{}{}
	}

	times := s.grid.Times()
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		_, taken := busy[t]
		slots = append(slots, Slot{Time: t, Available: !taken})
	}
	return slots, nil
}

// Schedule books a pending appointment for a patient at the slot addressed by
// slotIndex into the day's grid. The availability check and the booking write
// run inside the per-doctor/day schedule lock, so concurrent callers for the
// same slot cannot both succeed. Nothing is written when validation fails.
func (s *Service) Schedule(ctx context.Context, patientID, doctorID uuid.UUID, day time.Time, slotIndex int) (*Appointment, error) {
	ok, err := s.directory.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !ok {
		return nil, ErrUnknownDoctor
	}

	var created *Appointment

	err = s.locker.WithScheduleLock(ctx, doctorID, day, func(lockCtx context.Context) error {
		appt, err := s.bookSlot(lockCtx, doctorID, patientID, day, slotIndex)
		if err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentScheduled, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"day":        FormatDate(day),
			"time":       appt.TimeSlot.String(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

// bookSlot re-resolves availability and creates the pending appointment.
// Callers must hold the schedule lock for (doctorID, day).
func (s *Service) bookSlot(ctx context.Context, doctorID, patientID uuid.UUID, day time.Time, slotIndex int) (*Appointment, error) {
	slots, err := s.resolveSlots(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	if slotIndex < 0 || slotIndex >= len(slots) {
		return nil, ErrInvalidSlotIndex
	}
	if !slots[slotIndex].Available {
		return nil, ErrSlotTaken
	}

	appt, err := s.repo.CreateAppointment(ctx, doctorID, patientID, day, slots[slotIndex].Time)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return appt, nil
}

// Reschedule moves an active appointment to a new day/slot for the same
// doctor and patient. The new pending appointment is booked first; the old
// one is marked rescheduled only after that succeeds, so a failed rebooking
// leaves the patient's existing appointment untouched. If marking the old
// appointment fails, the fresh booking is deleted again.
func (s *Service) Reschedule(ctx context.Context, appointmentID uuid.UUID, newDay time.Time, newSlotIndex int) (*Appointment, error) {
	old, err := s.repo.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(old.Status, StatusRescheduled) {
		// Cancelled, completed and already-rescheduled appointments no
		// longer represent a live booking to move.
		return nil, ErrAppointmentNotFound
	}

	var created *Appointment

	err = s.locker.WithScheduleLock(ctx, old.DoctorID, newDay, func(lockCtx context.Context) error {
		appt, err := s.bookSlot(lockCtx, old.DoctorID, old.PatientID, newDay, newSlotIndex)
		if err != nil {
			return err
		}

		if _, err := s.repo.UpdateAppointmentStatus(lockCtx, old.ID, old.Status, StatusRescheduled); err != nil {
			if delErr := s.repo.DeleteAppointment(lockCtx, appt.ID); delErr != nil {
				log.Printf("failed to undo booking %s after reschedule failure: %v", appt.ID, delErr)
			}
			return fmt.Errorf("mark appointment rescheduled: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, old.ID, EventAppointmentRescheduled, map[string]any{
			"new_appointment_id": appt.ID.String(),
			"new_day":            FormatDate(newDay),
			"new_time":           appt.TimeSlot.String(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

// Cancel soft-cancels an appointment, freeing its slot. Cancelling an
// already-cancelled appointment is a no-op success, so retries are harmless.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled {
		return appt, nil
	}
	if !CanTransition(appt.Status, StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"previous_status": string(appt.Status),
	})
	return updated, nil
}

// UpdateStatus applies one transition of the appointment state machine.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.AppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The status changed underneath us between read and write.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})
	return updated, nil
}

// Appointment returns one appointment by id.
func (s *Service) Appointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.AppointmentByID(ctx, id)
}

// AppointmentsByDoctor lists all appointments for a doctor, any status.
func (s *Service) AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	ok, err := s.directory.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !ok {
		return nil, ErrUnknownDoctor
	}
	return s.repo.AppointmentsByDoctor(ctx, doctorID)
}

// AppointmentsByPatient lists all appointments for a patient, any status.
func (s *Service) AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.AppointmentsByPatient(ctx, patientID)
}

// Doctors lists the doctor directory.
func (s *Service) Doctors(ctx context.Context) ([]Doctor, error) {
	return s.directory.ListDoctors(ctx)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
