// Package session holds the immutable data model for a recorded replay
// session: an ordered sequence of timestamped events with a derived duration
// and an optional clip window restricting the playable range.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a recorded event.
type EventKind string

const (
	KindDOMMutation EventKind = "dom_mutation"
	KindNetwork     EventKind = "network"
	KindInput       EventKind = "input"
	KindVideoFrame  EventKind = "video_frame"
)

// Event is a single recorded moment in a session.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      EventKind       `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClipWindow restricts playback to a sub-range of the session,
// expressed in milliseconds relative to the session start.
type ClipWindow struct {
	StartMs int64 `json:"start_ms"`
	EndMs   int64 `json:"end_ms"`
}

// Session is one recorded user interaction capture. Immutable once built;
// the player owns it for the lifetime of a single playback session.
type Session struct {
	id        string
	startedAt time.Time
	events    []Event
	clip      *ClipWindow
}

// envelope is the on-disk JSON shape.
type envelope struct {
	ID        string      `json:"id"`
	StartedAt time.Time   `json:"started_at"`
	Clip      *ClipWindow `json:"clip,omitempty"`
	Events    []Event     `json:"events"`
}

// New builds a session from events. Events are copied and sorted by
// timestamp; the first event's timestamp becomes the session start.
func New(id string, events []Event, clip *ClipWindow) (*Session, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("session requires at least one event")
	}
	if id == "" {
		id = uuid.NewString()
	}

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := &Session{
		id:        id,
		startedAt: sorted[0].Timestamp,
		events:    sorted,
	}

	if clip != nil {
		c := *clip
		if c.StartMs < 0 {
			c.StartMs = 0
		}
		if c.EndMs <= 0 || c.EndMs > s.rawDurationMs() {
			c.EndMs = s.rawDurationMs()
		}
		if c.StartMs >= c.EndMs {
			return nil, fmt.Errorf("clip window [%d, %d] is empty", c.StartMs, c.EndMs)
		}
		s.clip = &c
	}

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns the timestamp of the first recorded event.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Events returns a copy of the ordered event sequence.
func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of events.
func (s *Session) Len() int { return len(s.events) }

// Clip returns the clip window, or nil when the whole session is playable.
func (s *Session) Clip() *ClipWindow {
	if s.clip == nil {
		return nil
	}
	c := *s.clip
	return &c
}

// rawDurationMs is the full recorded span, ignoring any clip window.
func (s *Session) rawDurationMs() int64 {
	last := s.events[len(s.events)-1].Timestamp
	return last.Sub(s.startedAt).Milliseconds()
}

// RawDurationMs returns the full recorded span in milliseconds.
func (s *Session) RawDurationMs() int64 { return s.rawDurationMs() }

// DurationMs returns the playable duration: the clip window's span when one
// is set, otherwise the full recorded span.
func (s *Session) DurationMs() int64 {
	if s.clip != nil {
		return s.clip.EndMs - s.clip.StartMs
	}
	return s.rawDurationMs()
}

// StartOffsetMs returns where playback begins inside the recording,
// in milliseconds from the first event.
func (s *Session) StartOffsetMs() int64 {
	if s.clip != nil {
		return s.clip.StartMs
	}
	return 0
}

// EndOffsetMs returns where playback ends inside the recording.
func (s *Session) EndOffsetMs() int64 {
	return s.StartOffsetMs() + s.DurationMs()
}

// OffsetMs returns the event's position in milliseconds from the first event.
func (s *Session) OffsetMs(e Event) int64 {
	return e.Timestamp.Sub(s.startedAt).Milliseconds()
}

// IdleGap is a span with no recorded activity.
type IdleGap struct {
	FromMs     int64 `json:"from_ms"`
	ToMs       int64 `json:"to_ms"`
	DurationMs int64 `json:"duration_ms"`
}

// IdleGaps returns gaps between consecutive events longer than threshold,
// in milliseconds relative to the session start.
func (s *Session) IdleGaps(threshold time.Duration) []IdleGap {
	thresholdMs := threshold.Milliseconds()
	var gaps []IdleGap
	for i := 1; i < len(s.events); i++ {
		from := s.OffsetMs(s.events[i-1])
		to := s.OffsetMs(s.events[i])
		if to-from > thresholdMs {
			gaps = append(gaps, IdleGap{FromMs: from, ToMs: to, DurationMs: to - from})
		}
	}
	return gaps
}

// CountByKind tallies events per kind.
func (s *Session) CountByKind() map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range s.events {
		counts[e.Kind]++
	}
	return counts
}

// LoadJSON reads a session from its JSON envelope.
func LoadJSON(r io.Reader) (*Session, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return New(env.ID, env.Events, env.Clip)
}

// LoadFile reads a session from a JSON file.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer f.Close()
	return LoadJSON(f)
}

// ExportJSON writes the session's JSON envelope.
func (s *Session) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{
		ID:        s.id,
		StartedAt: s.startedAt,
		Clip:      s.clip,
		Events:    s.events,
	})
}

// ExportFile writes the session to a JSON file.
func (s *Session) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ExportJSON(f)
}
