// Package prefs persists per-user playback preferences. Persistence is
// best-effort: the player loads preferences when a session starts and writes
// them back on every change, but a failing store never blocks playback.
package prefs

import "context"

// Prefs are the persisted playback preferences.
type Prefs struct {
	PlaybackSpeed      float64 `json:"playback_speed"`
	IsSkippingInactive bool    `json:"is_skipping_inactive"`
}

// Default returns the preferences used before anything has been saved.
func Default() Prefs {
	return Prefs{PlaybackSpeed: 1.0}
}

// Store abstracts the preferences backend.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the saved preferences, or Default() when none exist.
	Get(ctx context.Context) (Prefs, error)
	// Set saves the preferences.
	Set(ctx context.Context, p Prefs) error
}
