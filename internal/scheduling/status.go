package scheduling

import "fmt"

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
)

// transitions is the closed set of legal status moves. Anything absent here
// is rejected with ErrInvalidTransition.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRescheduled, StatusCancelled, StatusCompleted},
	StatusConfirmed: {StatusRescheduled, StatusCancelled, StatusCompleted},
}

// ParseStatus validates a status at the boundary so free-form strings never
// reach the store.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusRescheduled, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Active reports whether the appointment still occupies its slot. Cancelled
// and completed appointments release the slot; a rescheduled record keeps its
// original slot occupied as the audit trail of the move.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled:
		return true
	}
	return false
}
