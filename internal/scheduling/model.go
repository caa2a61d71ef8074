package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is the record of truth for a booking. Day carries no time
// component; the time of day lives in TimeSlot, which is always grid-aligned.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Day       time.Time
	TimeSlot  SlotTime
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is a derived value: one grid position of a doctor's day and whether it
// can still be booked. Never stored, recomputed on every resolver call.
type Slot struct {
	Time      SlotTime
	Available bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

const dateLayout = "2006-01-02"

// ParseDate parses a calendar day in YYYY-MM-DD form. Past days are accepted:
// back-dating an appointment is a front-desk correction flow, not an error.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders a day the way ParseDate reads it.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
