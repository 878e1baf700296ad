// Package clock abstracts time for services that evaluate validity windows.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a test clock pinned to one instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }
