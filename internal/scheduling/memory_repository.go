package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory AppointmentRepository. Mutations apply
// atomically under its mutex, so the write-through contract holds trivially:
// a returned success is never rolled back later. Used by tests and by
// single-process deployments without Postgres.
type MemoryRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appointments: make(map[uuid.UUID]Appointment),
		nextEventID:  1,
	}
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, day time.Time, slot SlotTime) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	appt := Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Day:       day,
		TimeSlot:  slot,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.appointments[appt.ID] = appt

	out := appt
	return &out, nil
}

func (r *MemoryRepository) AppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := appt
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok || appt.Status != from {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt

	out := appt
	return &out, nil
}

func (r *MemoryRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *MemoryRepository) AppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, appt := range r.appointments {
		if appt.DoctorID == doctorID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (r *MemoryRepository) AppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, appt := range r.appointments {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ActiveSlotTimes(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]SlotTime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := FormatDate(day)
	var out []SlotTime
	for _, appt := range r.appointments {
		if appt.DoctorID == doctorID && FormatDate(appt.Day) == key && appt.Status.Active() {
			out = append(out, appt.TimeSlot)
		}
	}
	return out, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = r.nextEventID
	r.nextEventID++
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

// MemoryDirectory is an in-memory DoctorDirectory.
type MemoryDirectory struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]Doctor
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{doctors: make(map[uuid.UUID]Doctor)}
}

func (d *MemoryDirectory) AddDoctor(doc Doctor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doctors[doc.ID] = doc
}

func (d *MemoryDirectory) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.doctors[id]
	return ok, nil
}

func (d *MemoryDirectory) ListDoctors(ctx context.Context) ([]Doctor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		out = append(out, doc)
	}
	return out, nil
}

// MemoryUnavailability is an in-memory UnavailabilitySource. The doctor-facing
// collaborator mutates it; the engine only reads.
type MemoryUnavailability struct {
	mu      sync.Mutex
	blocked map[string][]SlotTime // doctorID:day -> times
}

func NewMemoryUnavailability() *MemoryUnavailability {
	return &MemoryUnavailability{blocked: make(map[string][]SlotTime)}
}

func unavailKey(doctorID uuid.UUID, day time.Time) string {
	return doctorID.String() + ":" + FormatDate(day)
}

func (u *MemoryUnavailability) Block(doctorID uuid.UUID, day time.Time, t SlotTime) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := unavailKey(doctorID, day)
	u.blocked[key] = append(u.blocked[key], t)
}

func (u *MemoryUnavailability) Unavailability(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]SlotTime, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	src := u.blocked[unavailKey(doctorID, day)]
	out := make([]SlotTime, len(src))
	copy(out, src)
	return out, nil
}
