// Package player implements the playback synchronizer: the single owner of
// the authoritative current time for a recorded session replay. It translates
// imperative playback commands into engine calls, derives state once per
// frame, and broadcasts the canonical time to subscribers.
//
// Each Player is an explicit per-session handle passed by reference to its
// callers; there is no ambient shared playback context. Commands issued
// before an engine is mounted are silently ignored.
package player

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playhead-dev/playhead/internal/analytics"
	"github.com/playhead-dev/playhead/internal/clock"
	"github.com/playhead-dev/playhead/internal/frame"
	"github.com/playhead-dev/playhead/internal/highlight"
	"github.com/playhead-dev/playhead/internal/prefs"
	"github.com/playhead-dev/playhead/internal/session"
)

// EventPlayPause is the analytics event emitted on play/pause toggles.
const EventPlayPause = "replay.play-pause"

// Highlighter is the external highlight subsystem the player calls into.
type Highlighter interface {
	AddHighlight(h highlight.Highlight) string
	RemoveHighlight(id string)
	ClearAllHighlights()
}

// Options configure a Player.
type Options struct {
	// Factory constructs engines on mount. Required.
	Factory EngineFactory

	// Prefs persists playback preferences. Defaults to an in-memory store.
	Prefs prefs.Store
	// Analytics receives interaction events. Defaults to a no-op sink.
	Analytics analytics.Sink
	// Highlights is the external highlight controller. Optional.
	Highlights Highlighter
	// Clock drives all time reads. Defaults to the real clock.
	Clock clock.Clock

	// OrgID and UserID are attached to analytics events.
	OrgID  string
	UserID string

	// InitialTimeMs seeks once after the first mount of each session.
	InitialTimeMs int64
	// InitialHighlight is added once alongside the initial seek.
	InitialHighlight *highlight.Highlight
}

// Player owns playback for one loaded session at a time.
// Thread-safe; state transitions are serialized by an internal mutex and
// derived state is recomputed on each frame step.
type Player struct {
	opts Options

	mu         sync.Mutex
	sess       *session.Session
	generation uint64
	mountedGen uint64
	engine     Engine
	surface    Surface

	state        State
	finishedAtMs int64
	buffer       *bufferTarget
	pendingSeek  *int64
	appliedInit  bool

	viewportW int
	viewportH int

	subs    map[int]func(State)
	nextSub int

	evMu    sync.Mutex
	evQueue []EngineNotification
}

// New creates a Player. The engine factory is required; every other
// collaborator has a working default.
func New(opts Options) (*Player, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	if opts.Analytics == nil {
		opts.Analytics = analytics.NopSink{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}

	return &Player{
		opts:         opts,
		finishedAtMs: -1,
		state: State{
			Speed:  1,
			Status: StatusUninitialized,
		},
		subs: make(map[int]func(State)),
	}, nil
}

// LoadSession replaces the loaded session. Any existing engine is torn down
// exactly once; a subsequent Mount constructs a fresh engine for the new
// session. Preferences are loaded best-effort and seed speed and idle-skip.
func (p *Player) LoadSession(sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}

	pr, err := p.opts.Prefs.Get(context.Background())
	if err != nil {
		log.Printf("prefs load error: %v", err)
		pr = prefs.Default()
	}
	if pr.PlaybackSpeed <= 0 {
		pr.PlaybackSpeed = 1
	}

	p.mu.Lock()
	if p.engine != nil {
		if err := p.engine.Close(); err != nil {
			log.Printf("engine close error: %v", err)
		}
		p.engine = nil
	}
	p.generation++
	p.sess = sess
	p.finishedAtMs = -1
	p.buffer = nil
	p.pendingSeek = nil
	p.appliedInit = false
	p.state = State{
		SessionID:          sess.ID(),
		DurationMs:         sess.DurationMs(),
		Speed:              pr.PlaybackSpeed,
		IsSkippingInactive: pr.IsSkippingInactive,
		Status:             StatusUninitialized,
	}
	p.drainEngineQueue()
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
	return nil
}

// Mount binds the player to a rendering surface, constructing the engine.
// Remounting the same surface for an unchanged session reuses the existing
// engine; a changed session (tracked by a generation counter, not reference
// identity) tears the old engine down before building a new one.
func (p *Player) Mount(surface Surface) error {
	p.mu.Lock()

	if p.sess == nil {
		p.mu.Unlock()
		return fmt.Errorf("no session loaded")
	}
	if p.engine != nil && p.mountedGen == p.generation && p.surface == surface {
		p.mu.Unlock()
		return nil
	}

	if p.engine != nil {
		if err := p.engine.Close(); err != nil {
			log.Printf("engine close error: %v", err)
		}
		p.engine = nil
	}

	cfg := EngineConfig{
		Speed:        p.state.Speed,
		SkipInactive: p.state.IsSkippingInactive,
	}
	eng, err := p.opts.Factory(surface, p.sess, cfg, p.queueEngineEvent)
	if err != nil {
		// Engine construction is the one fatal-class failure; the player
		// stays Uninitialized and defines no recovery beyond that.
		p.state.Status = StatusUninitialized
		p.mu.Unlock()
		return fmt.Errorf("constructing engine: %w", err)
	}

	p.engine = eng
	p.mountedGen = p.generation
	p.surface = surface
	p.state.Status = StatusReady
	p.state.IsPlaying = false

	if !p.appliedInit {
		p.appliedInit = true
		if p.opts.InitialTimeMs > 0 {
			p.setCurrentTimeLocked(p.opts.InitialTimeMs)
		}
		if p.opts.InitialHighlight != nil && p.opts.Highlights != nil {
			p.opts.Highlights.AddHighlight(*p.opts.InitialHighlight)
		}
	}

	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
	return nil
}

// SetCurrentTime requests a seek. The time is clamped to [0, duration];
// repeated calls before the next frame coalesce into a single engine seek to
// the last requested target. Any active highlights are cleared.
func (p *Player) SetCurrentTime(requestedMs int64) {
	p.mu.Lock()
	if p.engine == nil {
		p.mu.Unlock()
		return
	}
	p.setCurrentTimeLocked(requestedMs)
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

func (p *Player) setCurrentTimeLocked(requestedMs int64) {
	clamped := clampMs(requestedMs, 0, p.state.DurationMs)
	target := clamped + p.sess.StartOffsetMs()

	p.buffer = &bufferTarget{
		targetMs:   target,
		previousMs: floorZero(p.engine.CurrentTime()),
	}
	// Replacing the pending target cancels any seek scheduled earlier in
	// the same frame.
	t := target
	p.pendingSeek = &t

	p.state.CurrentTimeMs = clamped
	if p.state.IsFinished && target != p.finishedAtMs {
		p.state.IsFinished = false
		p.state.Status = statusFor(p.state, true)
	}

	if p.opts.Highlights != nil {
		p.opts.Highlights.ClearAllHighlights()
	}
}

// TogglePlayPause starts or pauses playback at the engine's current time.
// surface names the UI surface issuing the command and is attached to the
// analytics event along with the org/user context.
func (p *Player) TogglePlayPause(play bool, surface string) {
	p.mu.Lock()
	if p.engine == nil {
		p.mu.Unlock()
		return
	}

	cur := floorZero(p.engine.CurrentTime())
	if play {
		p.engine.Play(cur)
	} else {
		p.engine.Pause(cur)
	}
	p.state.IsPlaying = play
	p.state.Status = statusFor(p.state, true)
	st, fns := p.snapshotLocked()
	sessionID := p.state.SessionID
	p.mu.Unlock()

	p.opts.Analytics.Emit(analytics.Event{
		Name:    EventPlayPause,
		OrgID:   p.opts.OrgID,
		UserID:  p.opts.UserID,
		Surface: surface,
		Fields: map[string]any{
			"play":       play,
			"session_id": sessionID,
		},
	})
	publish(st, fns)
}

// SetSpeed changes the playback speed and persists it. While playing, the
// engine is paused, reconfigured, and resumed at the same time so the speed
// change alone causes no time jump. Non-positive speeds are ignored.
func (p *Player) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}

	p.mu.Lock()
	p.state.Speed = speed
	p.persistPrefsLocked()

	if p.engine != nil {
		cfg := EngineConfig{Speed: speed, SkipInactive: p.state.IsSkippingInactive}
		cur := floorZero(p.engine.CurrentTime())
		if p.state.IsPlaying {
			p.engine.Pause(cur)
			p.engine.SetConfig(cfg)
			p.engine.Play(cur)
		} else {
			p.engine.SetConfig(cfg)
		}
	}
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// ToggleSkipInactive changes the idle-skip preference and persists it. The
// engine is reconfigured only when its configuration actually differs, which
// avoids an unnecessary engine reset.
func (p *Player) ToggleSkipInactive(skip bool) {
	p.mu.Lock()
	p.state.IsSkippingInactive = skip
	p.persistPrefsLocked()

	if p.engine != nil && p.engine.Config().SkipInactive != skip {
		p.engine.SetConfig(EngineConfig{Speed: p.state.Speed, SkipInactive: skip})
	}
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// Restart seeks to the session's start offset and begins playing.
func (p *Player) Restart() {
	p.mu.Lock()
	if p.engine == nil {
		p.mu.Unlock()
		return
	}

	start := p.sess.StartOffsetMs()
	p.buffer = nil
	p.pendingSeek = nil
	p.engine.Play(start)
	p.state.IsPlaying = true
	p.state.IsFinished = false
	p.state.CurrentTimeMs = 0
	p.state.Status = statusFor(p.state, true)
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// SetHoverTime records the advisory hover marker. Pure state; no engine
// interaction.
func (p *Player) SetHoverTime(ms int64) {
	p.mu.Lock()
	p.state.HoverTimeMs = ms
	p.state.HasHover = true
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// ClearHoverTime removes the hover marker.
func (p *Player) ClearHoverTime() {
	p.mu.Lock()
	p.state.HoverTimeMs = 0
	p.state.HasHover = false
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// SetVisible reports surface visibility. Losing visibility pauses playback
// without touching any other state, so resuming continues from the same
// position.
func (p *Player) SetVisible(visible bool) {
	p.mu.Lock()
	if visible || !p.state.IsPlaying || p.engine == nil {
		p.mu.Unlock()
		return
	}

	p.engine.Pause(floorZero(p.engine.CurrentTime()))
	p.state.IsPlaying = false
	p.state.Status = statusFor(p.state, true)
	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// Step derives per-frame state: it applies the coalesced seek, drains queued
// engine notifications, and recomputes time, buffering, and finish state.
// The frame scheduler calls this; tests may call it directly.
func (p *Player) Step(now time.Time) {
	p.mu.Lock()
	if p.engine == nil {
		p.mu.Unlock()
		return
	}

	// Exactly one engine seek per frame, to the last requested target.
	if p.pendingSeek != nil {
		target := *p.pendingSeek
		p.pendingSeek = nil
		if p.state.IsPlaying {
			p.engine.Play(target)
		} else {
			p.engine.Pause(target)
		}
	}

	cur := floorZero(p.engine.CurrentTime())

	for _, n := range p.takeEngineQueue() {
		switch n.Kind {
		case EngineFinished:
			p.finishedAtMs = n.AtMs
			p.state.IsPlaying = false
		case EngineSkipStarted:
			// Fast-forward is reported only when the idle-skip preference
			// is active at the moment skipping begins.
			if p.state.IsSkippingInactive {
				p.state.FastForwardSpeed = n.SkipSpeed
			}
		case EngineSkipEnded:
			p.state.FastForwardSpeed = 0
		case EngineResized:
			p.viewportW = n.Width
			p.viewportH = n.Height
		}
	}

	if p.buffer != nil {
		if cur == p.buffer.previousMs && cur != p.buffer.targetMs {
			p.state.IsBuffering = true
		} else {
			p.state.IsBuffering = false
			p.buffer = nil
		}
	} else {
		p.state.IsBuffering = false
	}

	rel := cur - p.sess.StartOffsetMs()
	p.state.CurrentTimeMs = clampMs(rel, 0, p.state.DurationMs)
	p.state.IsFinished = p.finishedAtMs >= 0 && cur == p.finishedAtMs
	p.state.Status = statusFor(p.state, true)

	st, fns := p.snapshotLocked()
	p.mu.Unlock()

	publish(st, fns)
}

// Attach runs Step on every frame of the scheduler until the returned stop
// function is called.
func (p *Player) Attach(sched frame.Scheduler) (stop func()) {
	return sched.Start(p.Step)
}

// Subscribe registers a state observer, invoked after every state derivation
// or command. The returned cancel function removes it.
func (p *Player) Subscribe(fn func(State)) (cancel func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// State returns a copy of the current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Session returns the loaded session, or nil.
func (p *Player) Session() *session.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

// Viewport reports the engine's last announced dimensions.
func (p *Player) Viewport() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewportW, p.viewportH
}

// Close tears down the engine, if any.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return nil
	}
	err := p.engine.Close()
	p.engine = nil
	p.state.Status = StatusUninitialized
	return err
}

// persistPrefsLocked writes preferences best-effort.
func (p *Player) persistPrefsLocked() {
	pr := prefs.Prefs{
		PlaybackSpeed:      p.state.Speed,
		IsSkippingInactive: p.state.IsSkippingInactive,
	}
	if err := p.opts.Prefs.Set(context.Background(), pr); err != nil {
		log.Printf("prefs save error: %v", err)
	}
}

// queueEngineEvent is the engine callback. Notifications are queued and
// observed on the next frame step, keeping all state transitions on the
// frame path even when the engine reports from inside an engine call.
func (p *Player) queueEngineEvent(n EngineNotification) {
	p.evMu.Lock()
	p.evQueue = append(p.evQueue, n)
	p.evMu.Unlock()
}

func (p *Player) takeEngineQueue() []EngineNotification {
	p.evMu.Lock()
	q := p.evQueue
	p.evQueue = nil
	p.evMu.Unlock()
	return q
}

func (p *Player) drainEngineQueue() {
	p.evMu.Lock()
	p.evQueue = nil
	p.evMu.Unlock()
}

func (p *Player) snapshotLocked() (State, []func(State)) {
	fns := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	return p.state, fns
}

func publish(st State, fns []func(State)) {
	for _, fn := range fns {
		fn(st)
	}
}

func statusFor(st State, mounted bool) Status {
	switch {
	case !mounted:
		return StatusUninitialized
	case st.IsFinished:
		return StatusFinished
	case st.IsPlaying:
		return StatusPlaying
	default:
		return StatusReady
	}
}

func clampMs(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
