package clock

import "time"

// Clock abstracts time so playback logic runs against both real and virtual
// time. All time-dependent code in playhead uses this interface instead of
// calling time.Now() directly, which keeps frame stepping and engine timing
// deterministic under test.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// After returns a channel that receives the current time after duration d.
	After(d time.Duration) <-chan time.Time
}

// RealClock delegates to the standard time package.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Millis converts a duration to whole milliseconds, the unit playback
// positions are expressed in.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// FromMillis converts a millisecond playback position back to a duration.
func FromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
