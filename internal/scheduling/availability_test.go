package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	svc       *Service
	repo      *MemoryRepository
	directory *MemoryDirectory
	unavail   *MemoryUnavailability
	doctorID  uuid.UUID
	patientID uuid.UUID
	day       time.Time
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	grid, err := NewGrid(mustSlotTime(t, "09:00"), mustSlotTime(t, "17:00"), time.Hour)
	require.NoError(t, err)

	repo := NewMemoryRepository()
	directory := NewMemoryDirectory()
	unavail := NewMemoryUnavailability()

	doctorID := uuid.New()
	directory.AddDoctor(Doctor{ID: doctorID, Name: "Dr. Reyes"})

	day, err := ParseDate("2024-06-01")
	require.NoError(t, err)

	return &testFixture{
		svc:       NewService(repo, directory, unavail, NewMutexLocker(), grid),
		repo:      repo,
		directory: directory,
		unavail:   unavail,
		doctorID:  doctorID,
		patientID: uuid.New(),
		day:       day,
	}
}

func availableTimes(slots []Slot) []string {
	var out []string
	for _, s := range slots {
		if s.Available {
			out = append(out, s.Time.String())
		}
	}
	return out
}

func TestAvailableSlotsFullDay(t *testing.T) {
	f := newFixture(t)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	require.Len(t, slots, 9)

	for _, s := range slots {
		assert.True(t, s.Available, "slot %s", s.Time)
	}
}

// Working hours 09:00-17:00 at 1h, leave at 10:00 and a booking at 14:00:
// everything else stays bookable.
func TestAvailableSlotsSubtractsLeaveAndBookings(t *testing.T) {
	f := newFixture(t)

	f.unavail.Block(f.doctorID, f.day, mustSlotTime(t, "10:00"))
	_, err := f.repo.CreateAppointment(context.Background(), f.doctorID, uuid.New(), f.day, mustSlotTime(t, "14:00"))
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	require.Len(t, slots, 9)

	assert.Equal(t,
		[]string{"09:00", "11:00", "12:00", "13:00", "15:00", "16:00", "17:00"},
		availableTimes(slots),
	)
}

func TestAvailableSlotsNoDuplicates(t *testing.T) {
	f := newFixture(t)

	// Same time both blocked and booked must not produce a duplicate entry.
	f.unavail.Block(f.doctorID, f.day, mustSlotTime(t, "10:00"))
	_, err := f.repo.CreateAppointment(context.Background(), f.doctorID, uuid.New(), f.day, mustSlotTime(t, "10:00"))
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)

	seen := make(map[SlotTime]bool)
	for _, s := range slots {
		assert.False(t, seen[s.Time], "duplicate slot %s", s.Time)
		seen[s.Time] = true
	}
	require.Len(t, slots, 9)
}

func TestAvailableSlotsChronologicalOrder(t *testing.T) {
	f := newFixture(t)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)

	for i := 1; i < len(slots); i++ {
		assert.Greater(t, slots[i].Time, slots[i-1].Time)
	}
}

// A nonexistent doctor must fail loudly, never look fully available.
func TestAvailableSlotsUnknownDoctor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AvailableSlots(context.Background(), uuid.New(), f.day)
	assert.ErrorIs(t, err, ErrUnknownDoctor)
}

func TestAvailableSlotsIgnoresInactiveBookings(t *testing.T) {
	f := newFixture(t)

	appt, err := f.repo.CreateAppointment(context.Background(), f.doctorID, uuid.New(), f.day, mustSlotTime(t, "09:00"))
	require.NoError(t, err)
	_, err = f.repo.UpdateAppointmentStatus(context.Background(), appt.ID, StatusPending, StatusCancelled)
	require.NoError(t, err)

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, f.day)
	require.NoError(t, err)
	assert.True(t, slots[0].Available, "cancelled booking must free its slot")
}

func TestAvailableSlotsOtherDoctorUnaffected(t *testing.T) {
	f := newFixture(t)

	otherID := uuid.New()
	f.directory.AddDoctor(Doctor{ID: otherID, Name: "Dr. Okafor"})
	f.unavail.Block(f.doctorID, f.day, mustSlotTime(t, "10:00"))

	slots, err := f.svc.AvailableSlots(context.Background(), otherID, f.day)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Available)
	}
}
