// Package playback is the public embedding surface for playhead: it
// re-exports the player, its state model, and the headless engine so other
// programs can drive session replay without reaching into internal packages.
package playback

import (
	internalengine "github.com/playhead-dev/playhead/internal/engine"
	internalplayer "github.com/playhead-dev/playhead/internal/player"
	"github.com/playhead-dev/playhead/internal/session"
)

// Player owns playback for one loaded session at a time.
type Player = internalplayer.Player

// Options configure a Player.
type Options = internalplayer.Options

// State is the canonical playback state snapshot.
type State = internalplayer.State

// Status is the playback lifecycle state.
type Status = internalplayer.Status

// Lifecycle states.
const (
	StatusUninitialized = internalplayer.StatusUninitialized
	StatusReady         = internalplayer.StatusReady
	StatusPlaying       = internalplayer.StatusPlaying
	StatusFinished      = internalplayer.StatusFinished
)

// Surface identifies where playback renders.
type Surface = internalplayer.Surface

// StaticSurface is a fixed-name Surface.
type StaticSurface = internalplayer.StaticSurface

// Engine drives playback over a session's events.
type Engine = internalplayer.Engine

// EngineConfig is the engine's reconfigurable playback settings.
type EngineConfig = internalplayer.EngineConfig

// EngineFactory constructs engines on mount.
type EngineFactory = internalplayer.EngineFactory

// EngineOptions tune the headless stream engine.
type EngineOptions = internalengine.Options

// Session is an immutable recorded event sequence.
type Session = session.Session

// Event is one recorded occurrence inside a session.
type Event = session.Event

// ClipWindow restricts playback to a sub-range of a session.
type ClipWindow = session.ClipWindow

// New creates a Player.
func New(opts Options) (*Player, error) {
	return internalplayer.New(opts)
}

// NewEngineFactory returns a factory building headless stream engines.
func NewEngineFactory(opts EngineOptions) EngineFactory {
	return internalengine.Factory(opts)
}

// NewSession builds a session from events, optionally clipped.
func NewSession(id string, events []Event, clip *ClipWindow) (*Session, error) {
	return session.New(id, events, clip)
}

// LoadSessionFile reads a session JSON file.
func LoadSessionFile(path string) (*Session, error) {
	return session.LoadFile(path)
}
