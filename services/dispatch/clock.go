package dispatch

import "time"

// Clock abstracts wall-clock reads so offer expiry can be driven by a fake
// clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
