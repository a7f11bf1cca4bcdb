package player

import (
	"github.com/playhead-dev/playhead/internal/session"
)

// Surface identifies the rendering target an engine is mounted on.
type Surface interface {
	SurfaceID() string
}

// StaticSurface is a Surface with a fixed identifier, used by headless
// frontends (terminal player, HTTP server).
type StaticSurface string

func (s StaticSurface) SurfaceID() string { return string(s) }

// EngineConfig is the engine-side playback configuration.
type EngineConfig struct {
	Speed        float64
	SkipInactive bool
}

// EngineEventKind identifies an engine callback.
type EngineEventKind int

const (
	EngineResized EngineEventKind = iota
	EngineFinished
	EngineSkipStarted
	EngineSkipEnded
)

// EngineNotification is delivered by the engine through its event callback.
// AtMs carries the engine time for finish events; SkipSpeed carries the
// computed fast-forward multiplier for skip-start events.
type EngineNotification struct {
	Kind      EngineEventKind
	AtMs      int64
	SkipSpeed float64
	Width     int
	Height    int
}

// EventCallback receives engine notifications. The player queues them and
// observes them on the next frame step, so callbacks may be invoked from
// inside engine calls without re-entering the player.
type EventCallback func(EngineNotification)

// Engine is the rendering engine the player coordinates. The player is a
// client of this interface, never an implementer; the engine reconstructs
// the recorded session visually and reports its own notion of time.
type Engine interface {
	// Play starts or resumes playback at the given engine time.
	Play(atMs int64)
	// Pause halts playback, leaving the engine at the given time.
	Pause(atMs int64)
	// SetConfig reconfigures speed and idle-skip behavior.
	SetConfig(cfg EngineConfig)
	// Config reports the engine's current configuration.
	Config() EngineConfig
	// CurrentTime reports the engine's playback position in milliseconds.
	CurrentTime() int64
	// Close releases the engine. The player calls it exactly once per
	// instance, before constructing a replacement.
	Close() error
}

// EngineFactory constructs an engine bound to a surface for the given
// session. Called on mount and whenever the loaded session changes.
type EngineFactory func(surface Surface, sess *session.Session, cfg EngineConfig, cb EventCallback) (Engine, error)
