package idle

import "time"

// Clock abstracts the time source so the scheduler stays deterministic under
// test.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc arms a timer that runs f after d elapses.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is an armed timer.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending; a false return means f already ran or is running.
	Stop() bool
}

// realClock is the wall-clock implementation.
type realClock struct{}

// RealClock returns the wall-clock Clock.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
