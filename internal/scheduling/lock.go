package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker serializes the read-check-write sequence of booking operations per
// doctor and day, so two callers can never both observe a slot as free and
// both take it.
type Locker interface {
	WithScheduleLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error
}

// ScheduleLockKey is the canonical lock key for a doctor's day. Shared with
// the Redis locker so both implementations contend on the same name.
func ScheduleLockKey(doctorID uuid.UUID, day time.Time) string {
	return "lock:schedule:" + doctorID.String() + ":" + FormatDate(day)
}

// mutexLocker serializes within a single process. Suitable for the
// single-facility deployment and for tests; multi-process deployments use the
// Redis locker instead.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMutexLocker() Locker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := ScheduleLockKey(doctorID, day)

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
