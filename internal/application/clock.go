package application

import "time"

// Clock interface so time can be pinned in tests
type Clock interface {
	Now() time.Time
}

// SystemClock is the default implementation, returns UTC wall time
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
