package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Grid indexes used throughout: 0 -> 09:00, 2 -> 11:00, 5 -> 14:00.

func TestScheduleCreatesPendingAppointment(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, f.doctorID, appt.DoctorID)
	assert.Equal(t, f.patientID, appt.PatientID)
	assert.Equal(t, "09:00", appt.TimeSlot.String())
	assert.Equal(t, StatusPending, appt.Status)
}

func TestScheduleReadYourWrite(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.False(t, slots[0].Available, "booked slot must disappear from availability immediately")
}

func TestScheduleSameSlotTwiceConflicts(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	otherPatient := uuid.New()
	_, err = f.svc.Schedule(context.Background(), otherPatient, f.doctorID, f.day, 0)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestScheduleSlotIndexOutOfRange(t *testing.T) {
	f := newFixture(t)

	for _, idx := range []int{-1, 9, 100} {
		_, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, idx)
		assert.ErrorIs(t, err, ErrInvalidSlotIndex, "index %d", idx)
	}

	appts, err := f.repo.AppointmentsByDoctor(context.Background(), f.doctorID)
	require.NoError(t, err)
	assert.Empty(t, appts, "failed validation must not create anything")
}

func TestScheduleUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), f.patientID, uuid.New(), f.day, 0)
	assert.ErrorIs(t, err, ErrUnknownDoctor)
}

func TestScheduleOntoBlockedSlot(t *testing.T) {
	f := newFixture(t)

	f.unavail.Block(f.doctorID, f.day, mustSlotTime(t, "09:00"))

	_, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

type failingCreateRepo struct {
	*MemoryRepository
}

func (r *failingCreateRepo) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, day time.Time, slot SlotTime) (*Appointment, error) {
	return nil, errors.New("disk full")
}

func TestSchedulePersistenceFailureLeavesNoState(t *testing.T) {
	f := newFixture(t)
	broken := &failingCreateRepo{MemoryRepository: f.repo}
	svc := NewService(broken, f.directory, f.unavail, NewMutexLocker(), f.svc.grid)

	_, err := svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.Error(t, err)

	times, err := f.repo.ActiveSlotTimes(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.Empty(t, times, "rejected write must not occupy the slot")
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// A different patient can now take the freed slot.
	other, err := f.svc.Schedule(context.Background(), uuid.New(), f.doctorID, f.day, 0)
	require.NoError(t, err)
	assert.Equal(t, "09:00", other.TimeSlot.String())
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	again, err := f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err, "cancelling an already-cancelled appointment is a no-op")
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestCancelCompletedAppointment(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), appt.ID, StatusCompleted)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelMissingAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestRescheduleMovesAppointment(t *testing.T) {
	f := newFixture(t)

	old, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(context.Background(), old.ID, f.day, 2)
	require.NoError(t, err)

	assert.Equal(t, "11:00", moved.TimeSlot.String())
	assert.Equal(t, StatusPending, moved.Status)
	assert.Equal(t, f.patientID, moved.PatientID)
	assert.Equal(t, f.doctorID, moved.DoctorID)
	assert.NotEqual(t, old.ID, moved.ID)

	stored, err := f.svc.Appointment(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, stored.Status)
}

func TestRescheduleToTakenSlotKeepsOldAppointment(t *testing.T) {
	f := newFixture(t)

	old, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.Schedule(context.Background(), uuid.New(), f.doctorID, f.day, 2)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), old.ID, f.day, 2)
	assert.ErrorIs(t, err, ErrSlotTaken)

	stored, err := f.svc.Appointment(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status, "failed reschedule must leave the old appointment untouched")
}

type failingRescheduleMarkRepo struct {
	*MemoryRepository
}

func (r *failingRescheduleMarkRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	if to == StatusRescheduled {
		return nil, errors.New("write rejected")
	}
	return r.MemoryRepository.UpdateAppointmentStatus(ctx, id, from, to)
}

func TestRescheduleRollsBackNewBookingWhenMarkFails(t *testing.T) {
	f := newFixture(t)
	broken := &failingRescheduleMarkRepo{MemoryRepository: f.repo}
	svc := NewService(broken, f.directory, f.unavail, NewMutexLocker(), f.svc.grid)

	old, err := svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	_, err = svc.Reschedule(context.Background(), old.ID, f.day, 2)
	require.Error(t, err)

	stored, err := svc.Appointment(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)

	slots, err := svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.True(t, slots[2].Available, "half-finished reschedule must release the new slot")
}

func TestRescheduleInactiveAppointment(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(context.Background(), appt.ID, f.day, 2)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestRescheduleMissingAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Reschedule(context.Background(), uuid.New(), f.day, 2)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)

	confirmed, err := f.svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	completed, err := f.svc.UpdateStatus(context.Background(), appt.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = f.svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition, "completed is terminal")
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), appt.ID, StatusConfirmed)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), appt.ID, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScheduleWritesEventLog(t *testing.T) {
	f := newFixture(t)

	appt, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	events := f.repo.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventAppointmentScheduled, events[0].EventType)
	assert.Equal(t, EventAppointmentCancelled, events[1].EventType)
	require.NotNil(t, events[0].AppointmentID)
	assert.Equal(t, appt.ID, *events[0].AppointmentID)
}

// Two callers racing for the same slot: exactly one booking is created, the
// loser gets a conflict.
func TestConcurrentScheduleSameSlot(t *testing.T) {
	f := newFixture(t)

	const callers = 8

	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Schedule(context.Background(), uuid.New(), f.doctorID, f.day, 0)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes, "exactly one caller may win the slot")
	assert.Equal(t, callers-1, conflicts)

	times, err := f.repo.ActiveSlotTimes(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.Len(t, times, 1)
}

func TestRescheduledRecordKeepsItsSlotOccupied(t *testing.T) {
	f := newFixture(t)

	old, err := f.svc.Schedule(context.Background(), f.patientID, f.doctorID, f.day, 0)
	require.NoError(t, err)
	_, err = f.svc.Reschedule(context.Background(), old.ID, f.day, 2)
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.False(t, slots[0].Available, "rescheduled record still occupies its original slot")
	assert.False(t, slots[2].Available)
}
