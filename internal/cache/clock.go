package cache

import "time"

// Clock abstracts time and timer scheduling so expiration behavior can be
// tested deterministically.
type Clock interface {
	Now() time.Time

	// AfterFunc schedules f to run after d and returns a handle that can
	// cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled call.
type Timer interface {
	// Stop cancels the pending call. It reports whether the call was
	// stopped before it ran.
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct {
	t *time.Timer
}

func (t realTimer) Stop() bool { return t.t.Stop() }
