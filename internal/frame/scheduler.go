// Package frame provides the display-refresh scheduler that drives per-frame
// playback state derivation. The player registers a step function once and
// the scheduler invokes it on every frame until the returned stop function is
// called; there is no implicit teardown tied to any other lifecycle.
package frame

import (
	"sync"
	"time"

	"github.com/playhead-dev/playhead/internal/clock"
)

// DefaultInterval approximates a 60fps display refresh.
const DefaultInterval = 16 * time.Millisecond

// StepFunc runs once per frame with the frame's timestamp.
type StepFunc func(now time.Time)

// Scheduler runs a step function on every frame until cancelled.
type Scheduler interface {
	// Start begins invoking step each frame. The returned stop function
	// cancels the loop and is safe to call more than once.
	Start(step StepFunc) (stop func())
}

// IntervalScheduler ticks at a fixed interval on a Clock. With a VirtualClock
// the loop only progresses when the clock is advanced, which makes frame
// stepping deterministic under test.
type IntervalScheduler struct {
	clk      clock.Clock
	interval time.Duration
}

// NewIntervalScheduler creates a scheduler ticking every interval.
// A non-positive interval falls back to DefaultInterval.
func NewIntervalScheduler(clk clock.Clock, interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &IntervalScheduler{clk: clk, interval: interval}
}

func (s *IntervalScheduler) Start(step StepFunc) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			after := s.clk.After(s.interval)
			select {
			case <-done:
				return
			case now := <-after:
				select {
				case <-done:
					return
				default:
				}
				step(now)
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler lets tests drive frames by hand via Tick.
type ManualScheduler struct {
	mu      sync.Mutex
	step    StepFunc
	running bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Start(step StepFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	s.running = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.running = false
			s.step = nil
			s.mu.Unlock()
		})
	}
}

// Tick runs one frame at the given time. It is a no-op when no step function
// is registered or the scheduler has been stopped.
func (s *ManualScheduler) Tick(now time.Time) {
	s.mu.Lock()
	step := s.step
	running := s.running
	s.mu.Unlock()

	if running && step != nil {
		step(now)
	}
}
