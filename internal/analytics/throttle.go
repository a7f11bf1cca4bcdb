package analytics

import (
	"sync"
	"time"

	"github.com/playhead-dev/playhead/internal/clock"
)

// Throttle drops repeats of the same (name, surface) pair emitted within the
// window, so rapid UI toggling does not flood the sink.
type Throttle struct {
	mu     sync.Mutex
	next   Sink
	clk    clock.Clock
	window time.Duration
	last   map[throttleKey]time.Time
}

type throttleKey struct {
	name    string
	surface string
}

// NewThrottle wraps next with a dedupe window.
func NewThrottle(next Sink, clk clock.Clock, window time.Duration) *Throttle {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Throttle{
		next:   next,
		clk:    clk,
		window: window,
		last:   make(map[throttleKey]time.Time),
	}
}

func (t *Throttle) Emit(e Event) {
	key := throttleKey{name: e.Name, surface: e.Surface}
	now := t.clk.Now()

	t.mu.Lock()
	if prev, ok := t.last[key]; ok && now.Sub(prev) < t.window {
		t.mu.Unlock()
		return
	}
	t.last[key] = now
	t.mu.Unlock()

	t.next.Emit(e)
}
