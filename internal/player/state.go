package player

// Status is the playback lifecycle state.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusReady         Status = "ready"
	StatusPlaying       Status = "playing"
	StatusFinished      Status = "finished"
)

// State is the canonical playback state, derived once per frame and mutated
// by control calls. CurrentTimeMs is relative to the session's start offset.
type State struct {
	SessionID          string  `json:"session_id,omitempty"`
	CurrentTimeMs      int64   `json:"current_time_ms"`
	DurationMs         int64   `json:"duration_ms"`
	IsPlaying          bool    `json:"is_playing"`
	Speed              float64 `json:"speed"`
	IsSkippingInactive bool    `json:"is_skipping_inactive"`
	FastForwardSpeed   float64 `json:"fast_forward_speed"`
	IsBuffering        bool    `json:"is_buffering"`
	IsFinished         bool    `json:"is_finished"`
	Status             Status  `json:"status"`
	HoverTimeMs        int64   `json:"hover_time_ms,omitempty"`
	HasHover           bool    `json:"has_hover,omitempty"`
}

// bufferTarget is the transient (target, previous) pair recorded on seek and
// used to detect whether the engine has caught up to the requested time.
type bufferTarget struct {
	targetMs   int64
	previousMs int64
}
