// Package analytics emits playback interaction events. Emission is
// fire-and-forget: sinks never surface errors to the caller, failures are
// logged and dropped.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single analytics emission.
type Event struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	OrgID   string         `json:"org_id,omitempty"`
	UserID  string         `json:"user_id,omitempty"`
	Surface string         `json:"surface,omitempty"`
	Time    time.Time      `json:"time"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Sink receives analytics events. Implementations must be safe for
// concurrent use and must not block playback.
type Sink interface {
	Emit(e Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// fill assigns an ID and timestamp when the caller left them unset.
func fill(e Event, now time.Time) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = now
	}
	return e
}
