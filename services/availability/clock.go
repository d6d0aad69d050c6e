package availability

import "time"

// Clock abstracts the wall clock so availability math can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time { return c.At }
