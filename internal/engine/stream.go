// Package engine provides a headless rendering engine: it reconstructs
// playback time over a session's event stream without drawing anything.
// The terminal player, the HTTP server, and the tests all run against it.
//
// Engine time advances with the clock scaled by the configured speed. When
// idle-skip is enabled, gaps with no recorded activity are crossed at an
// accelerated rate so every gap takes roughly the same wall time, with
// skip-start/skip-end notifications carrying the computed multiplier.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/player"
	"github.com/playhead-dev/playhead/internal/session"
)

const (
	// DefaultIdleThreshold is the smallest gap considered inactive.
	DefaultIdleThreshold = 10 * time.Second
	// DefaultMaxSkipSpeed caps the fast-forward multiplier.
	DefaultMaxSkipSpeed = 360
	// defaultGapCross is the wall time one skipped gap should take at 1x.
	defaultGapCross = time.Second
)

// Options configure a Stream engine.
type Options struct {
	Clock         clock.Clock
	IdleThreshold time.Duration
	MaxSkipSpeed  float64
	GapCross      time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.NewRealClock()
	}
	if o.IdleThreshold <= 0 {
		o.IdleThreshold = DefaultIdleThreshold
	}
	if o.MaxSkipSpeed <= 0 {
		o.MaxSkipSpeed = DefaultMaxSkipSpeed
	}
	if o.GapCross <= 0 {
		o.GapCross = defaultGapCross
	}
	return o
}

// Factory returns a player.EngineFactory building Stream engines.
func Factory(opts Options) player.EngineFactory {
	return func(_ player.Surface, sess *session.Session, cfg player.EngineConfig, cb player.EventCallback) (player.Engine, error) {
		return NewStream(sess, cfg, cb, opts)
	}
}

// Stream is the headless engine. Thread-safe; time is computed lazily on
// each CurrentTime call rather than by a background goroutine, so all
// notifications are delivered on the caller's frame path.
type Stream struct {
	mu  sync.Mutex
	clk clock.Clock
	cb  player.EventCallback
	cfg player.EngineConfig

	gaps     []session.IdleGap
	startMs  int64
	endMs    int64
	maxSkip  float64
	gapCross time.Duration

	pos      int64 // media position at the last observation
	anchor   time.Time
	playing  bool
	skipping bool
	finished bool
	closed   bool
}

// NewStream builds an engine over the session's playable range.
func NewStream(sess *session.Session, cfg player.EngineConfig, cb player.EventCallback, opts Options) (*Stream, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cb == nil {
		cb = func(player.EngineNotification) {}
	}
	opts = opts.withDefaults()

	start := sess.StartOffsetMs()
	end := sess.EndOffsetMs()

	// Only gaps inside the playable range matter.
	var gaps []session.IdleGap
	for _, g := range sess.IdleGaps(opts.IdleThreshold) {
		if g.ToMs <= start || g.FromMs >= end {
			continue
		}
		if g.FromMs < start {
			g.FromMs = start
		}
		if g.ToMs > end {
			g.ToMs = end
		}
		g.DurationMs = g.ToMs - g.FromMs
		gaps = append(gaps, g)
	}

	return &Stream{
		clk:      opts.Clock,
		cb:       cb,
		cfg:      cfg,
		gaps:     gaps,
		startMs:  start,
		endMs:    end,
		maxSkip:  opts.MaxSkipSpeed,
		gapCross: opts.GapCross,
		pos:      start,
		anchor:   opts.Clock.Now(),
	}, nil
}

func (s *Stream) Play(atMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.endSkipLocked()
	s.pos = s.clampLocked(atMs)
	s.anchor = s.clk.Now()
	s.playing = true
	if s.pos < s.endMs {
		s.finished = false
	}
}

func (s *Stream) Pause(atMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.endSkipLocked()
	s.pos = s.clampLocked(atMs)
	s.anchor = s.clk.Now()
	s.playing = false
	if s.pos < s.endMs {
		s.finished = false
	}
}

func (s *Stream) SetConfig(cfg player.EngineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}

	// Settle time under the old configuration so the change applies
	// from this instant forward.
	s.advanceLocked()
	s.cfg = cfg
	if s.skipping && !cfg.SkipInactive {
		s.endSkipLocked()
	}
}

func (s *Stream) Config() player.EngineConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Stream) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
	return s.pos
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.playing = false
	return nil
}

// advanceLocked moves the media position forward to account for wall time
// elapsed since the last observation, crossing idle gaps at the skip rate
// and firing skip/finish notifications as segment boundaries are passed.
func (s *Stream) advanceLocked() {
	now := s.clk.Now()
	if s.closed || !s.playing {
		s.anchor = now
		return
	}

	budget := now.Sub(s.anchor)
	s.anchor = now

	for budget > 0 && s.pos < s.endMs {
		gap, inGap := s.gapAtLocked(s.pos)

		rate := s.cfg.Speed
		segEnd := s.endMs
		if inGap && s.cfg.SkipInactive {
			if !s.skipping {
				s.skipping = true
				s.cb(player.EngineNotification{
					Kind:      player.EngineSkipStarted,
					SkipSpeed: s.skipSpeed(gap),
				})
			}
			rate *= s.skipSpeed(gap)
			segEnd = gap.ToMs
		} else {
			if s.skipping {
				s.endSkipLocked()
			}
			if next, ok := s.nextGapLocked(s.pos); ok && s.cfg.SkipInactive && next.FromMs < segEnd {
				segEnd = next.FromMs
			}
		}

		wallNeeded := time.Duration(float64(segEnd-s.pos) / rate * float64(time.Millisecond))
		if budget >= wallNeeded {
			s.pos = segEnd
			budget -= wallNeeded
			// Skipping ends the moment the gap is fully crossed.
			if inGap && s.skipping && s.pos >= gap.ToMs {
				s.endSkipLocked()
			}
		} else {
			s.pos += int64(float64(budget.Milliseconds()) * rate)
			if s.pos > segEnd {
				s.pos = segEnd
			}
			budget = 0
		}
	}

	if s.pos >= s.endMs {
		s.pos = s.endMs
		if s.skipping {
			s.endSkipLocked()
		}
		if !s.finished {
			s.finished = true
			s.playing = false
			s.cb(player.EngineNotification{Kind: player.EngineFinished, AtMs: s.endMs})
		}
	}
}

func (s *Stream) endSkipLocked() {
	if s.skipping {
		s.skipping = false
		s.cb(player.EngineNotification{Kind: player.EngineSkipEnded})
	}
}

// gapAtLocked returns the gap containing pos, if any.
func (s *Stream) gapAtLocked(pos int64) (session.IdleGap, bool) {
	for _, g := range s.gaps {
		if pos >= g.FromMs && pos < g.ToMs {
			return g, true
		}
	}
	return session.IdleGap{}, false
}

// nextGapLocked returns the first gap starting at or after pos.
func (s *Stream) nextGapLocked(pos int64) (session.IdleGap, bool) {
	for _, g := range s.gaps {
		if g.FromMs >= pos {
			return g, true
		}
	}
	return session.IdleGap{}, false
}

// skipSpeed sizes the fast-forward multiplier so a gap crosses in roughly
// GapCross wall time at 1x, capped at MaxSkipSpeed.
func (s *Stream) skipSpeed(g session.IdleGap) float64 {
	speed := float64(g.DurationMs) / float64(s.gapCross.Milliseconds())
	if speed < 1 {
		speed = 1
	}
	if speed > s.maxSkip {
		speed = s.maxSkip
	}
	return speed
}

func (s *Stream) clampLocked(ms int64) int64 {
	if ms < s.startMs {
		return s.startMs
	}
	if ms > s.endMs {
		return s.endMs
	}
	return ms
}
