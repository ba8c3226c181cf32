// Package clock abstracts wall time so effect timing can be driven virtually.
package clock

import "time"

//go:generate mockgen -destination=mocks/mock_time_provider.go -package=mocks github.com/KirkDiggler/effect-engine/internal/clock TimeProvider

// TimeProvider reports the current time
type TimeProvider interface {
	Now() time.Time
}

// System is the wall clock
type System struct{}

// Now returns time.Now
func (System) Now() time.Time { return time.Now() }

// Millis converts a duration to fractional milliseconds
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FromMillis converts fractional milliseconds to a duration
func FromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
