package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// SlotTime is a grid-aligned time of day, stored as minutes from midnight.
type SlotTime int

func (t SlotTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseSlotTime parses an HH:MM clock value.
func ParseSlotTime(s string) (SlotTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlotTime, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlotTime, s)
	}
	return SlotTime(h*60 + m), nil
}

// Grid generates the canonical slot start times for one working day. It is
// pure: the same grid always yields the same times in the same order.
//
// Both boundaries are inclusive. With hours 09:00-17:00 and a 1h step the
// grid is 09:00 through 17:00, nine slots; the end-of-day value is itself a
// bookable start. If the step does not land exactly on the end time, the last
// slot is the last step before it.
type Grid struct {
	start SlotTime
	end   SlotTime
	step  int // minutes
}

func NewGrid(start, end SlotTime, step time.Duration) (Grid, error) {
	stepMin := int(step / time.Minute)
	if stepMin <= 0 {
		return Grid{}, errors.New("grid step must be a positive number of minutes")
	}
	if end < start {
		return Grid{}, errors.New("grid end is before grid start")
	}
	return Grid{start: start, end: end, step: stepMin}, nil
}

// Times returns the ordered slot start times. A fresh slice on every call so
// callers can't mutate the grid.
func (g Grid) Times() []SlotTime {
	var out []SlotTime
	for t := g.start; t <= g.end; t += SlotTime(g.step) {
		out = append(out, t)
	}
	return out
}

// Len reports the number of slots in the grid.
func (g Grid) Len() int {
	return (int(g.end)-int(g.start))/g.step + 1
}
