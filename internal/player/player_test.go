package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/playhead-dev/playhead/internal/analytics"
	"github.com/playhead-dev/playhead/internal/highlight"
	"github.com/playhead-dev/playhead/internal/prefs"
	"github.com/playhead-dev/playhead/internal/session"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// fakeEngine records every call the player makes. With lag enabled, seeks do
// not move the reported time until the test advances it by hand, which is how
// buffering is exercised.
type fakeEngine struct {
	mu         sync.Mutex
	time       int64
	cfg        EngineConfig
	cb         EventCallback
	lag        bool
	playCalls  []int64
	pauseCalls []int64
	configs    []EngineConfig
	closeCount int
}

func (e *fakeEngine) Play(atMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playCalls = append(e.playCalls, atMs)
	if !e.lag {
		e.time = atMs
	}
}

func (e *fakeEngine) Pause(atMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCalls = append(e.pauseCalls, atMs)
	if !e.lag {
		e.time = atMs
	}
}

func (e *fakeEngine) SetConfig(cfg EngineConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.configs = append(e.configs, cfg)
}

func (e *fakeEngine) Config() EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *fakeEngine) CurrentTime() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.time
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeCount++
	return nil
}

func (e *fakeEngine) setTime(ms int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.time = ms
}

func (e *fakeEngine) seekCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.playCalls) + len(e.pauseCalls)
}

func (e *fakeEngine) notify(n EngineNotification) {
	e.mu.Lock()
	cb := e.cb
	e.mu.Unlock()
	cb(n)
}

// fakeFactory tracks every engine it builds.
type fakeFactory struct {
	mu      sync.Mutex
	lag     bool
	engines []*fakeEngine
}

func (f *fakeFactory) build(_ Surface, _ *session.Session, cfg EngineConfig, cb EventCallback) (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &fakeEngine{cfg: cfg, cb: cb, lag: f.lag}
	f.engines = append(f.engines, e)
	return e, nil
}

func (f *fakeFactory) last() *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[len(f.engines)-1]
}

func makeSession(t *testing.T, dur time.Duration, clip *session.ClipWindow) *session.Session {
	t.Helper()
	events := []session.Event{
		{Timestamp: epoch, Kind: session.KindDOMMutation},
		{Timestamp: epoch.Add(dur / 2), Kind: session.KindNetwork},
		{Timestamp: epoch.Add(dur), Kind: session.KindDOMMutation},
	}
	s, err := session.New("sess-1", events, clip)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newMounted(t *testing.T, f *fakeFactory, opts Options) *Player {
	t.Helper()
	opts.Factory = f.build
	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.LoadSession(makeSession(t, 10*time.Second, nil)); err != nil {
		t.Fatal(err)
	}
	if err := p.Mount(StaticSurface("test")); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew_RequiresFactory(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without an engine factory")
	}
}

func TestSetCurrentTime_ClampsToDuration(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})

	// Duration 10000ms: over-range and negative requests clamp.
	p.SetCurrentTime(15000)
	p.Step(epoch)
	if got := p.State().CurrentTimeMs; got != 10000 {
		t.Errorf("CurrentTimeMs after seek to 15000 = %d, want 10000", got)
	}

	p.SetCurrentTime(-500)
	p.Step(epoch)
	if got := p.State().CurrentTimeMs; got != 0 {
		t.Errorf("CurrentTimeMs after seek to -500 = %d, want 0", got)
	}
}

func TestSetCurrentTime_CoalescesWithinFrame(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	before := eng.seekCount()
	p.SetCurrentTime(1000)
	p.SetCurrentTime(2000)
	p.SetCurrentTime(3000)
	p.Step(epoch)

	if got := eng.seekCount() - before; got != 1 {
		t.Fatalf("engine saw %d seeks for 3 requests in one frame, want 1", got)
	}
	if last := eng.pauseCalls[len(eng.pauseCalls)-1]; last != 3000 {
		t.Errorf("engine sought to %d, want the last requested 3000", last)
	}
}

func TestTogglePlayPause_RoundTripKeepsTime(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()
	eng.setTime(4200)

	p.TogglePlayPause(true, "controls")
	p.TogglePlayPause(false, "controls")

	if got := eng.CurrentTime(); got != 4200 {
		t.Errorf("engine time after play+pause = %d, want 4200", got)
	}
	if p.State().IsPlaying {
		t.Error("IsPlaying = true after pause")
	}
}

func TestBuffering_Transitions(t *testing.T) {
	f := &fakeFactory{lag: true}
	p := newMounted(t, f, Options{})
	eng := f.last()
	eng.setTime(1000)

	p.SetCurrentTime(5000)
	p.Step(epoch)
	if !p.State().IsBuffering {
		t.Fatal("IsBuffering = false right after an unfulfilled seek")
	}

	// Engine still at the pre-seek time: stays buffering.
	p.Step(epoch.Add(16 * time.Millisecond))
	if !p.State().IsBuffering {
		t.Fatal("IsBuffering = false while engine time unchanged")
	}

	// Engine moves off the pre-seek time: buffering resolves.
	eng.setTime(5000)
	p.Step(epoch.Add(32 * time.Millisecond))
	if p.State().IsBuffering {
		t.Error("IsBuffering = true after engine reached the target")
	}
	if got := p.State().CurrentTimeMs; got != 5000 {
		t.Errorf("CurrentTimeMs = %d, want 5000", got)
	}
}

func TestSetSpeed_ResumesAtSameTime(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()
	eng.setTime(4000)
	p.TogglePlayPause(true, "controls")

	p.SetSpeed(2)

	// Pause, reconfigure, resume — all at 4000ms.
	if len(eng.pauseCalls) == 0 || eng.pauseCalls[len(eng.pauseCalls)-1] != 4000 {
		t.Errorf("pause calls = %v, want trailing 4000", eng.pauseCalls)
	}
	if len(eng.playCalls) == 0 || eng.playCalls[len(eng.playCalls)-1] != 4000 {
		t.Errorf("play calls = %v, want trailing 4000", eng.playCalls)
	}
	if got := eng.Config().Speed; got != 2 {
		t.Errorf("engine speed = %v, want 2", got)
	}
	if got := eng.CurrentTime(); got != 4000 {
		t.Errorf("engine time after speed change = %d, want 4000", got)
	}
	if !p.State().IsPlaying {
		t.Error("speed change stopped playback")
	}
}

func TestSetSpeed_PausedOnlyReconfigures(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	plays := len(eng.playCalls)
	p.SetSpeed(4)
	if len(eng.playCalls) != plays {
		t.Error("speed change while paused resumed playback")
	}
	if got := eng.Config().Speed; got != 4 {
		t.Errorf("engine speed = %v, want 4", got)
	}
}

func TestSetSpeed_IgnoresNonPositive(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	p.SetSpeed(0)
	p.SetSpeed(-1)
	if got := p.State().Speed; got != 1 {
		t.Errorf("Speed = %v, want unchanged 1", got)
	}
}

func TestVisibilityLoss_PausesWithoutSeeking(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()
	eng.setTime(3000)
	p.TogglePlayPause(true, "controls")
	p.Step(epoch)
	before := p.State().CurrentTimeMs

	p.SetVisible(false)

	st := p.State()
	if st.IsPlaying {
		t.Error("IsPlaying = true after visibility loss")
	}
	if st.CurrentTimeMs != before {
		t.Errorf("CurrentTimeMs changed on visibility loss: %d -> %d", before, st.CurrentTimeMs)
	}

	// Visibility loss while already paused is a no-op.
	pauses := len(eng.pauseCalls)
	p.SetVisible(false)
	if len(eng.pauseCalls) != pauses {
		t.Error("visibility loss while paused issued an engine pause")
	}
}

func TestLoadSession_TearsDownOldEngineOnce(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	old := f.last()

	next := makeSession(t, 20*time.Second, nil)
	if err := p.LoadSession(next); err != nil {
		t.Fatal(err)
	}
	if err := p.Mount(StaticSurface("test")); err != nil {
		t.Fatal(err)
	}

	if old.closeCount != 1 {
		t.Errorf("old engine closed %d times, want exactly 1", old.closeCount)
	}
	if len(f.engines) != 2 {
		t.Errorf("factory built %d engines, want 2", len(f.engines))
	}
}

func TestMount_ReusesEngineForSameSession(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})

	if err := p.Mount(StaticSurface("test")); err != nil {
		t.Fatal(err)
	}
	if len(f.engines) != 1 {
		t.Errorf("remount for unchanged session rebuilt the engine (%d builds)", len(f.engines))
	}
	if f.last().closeCount != 0 {
		t.Error("remount for unchanged session closed the engine")
	}
}

func TestCommandsBeforeMount_AreSilentlyIgnored(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(Options{Factory: f.build})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.LoadSession(makeSession(t, 10*time.Second, nil)); err != nil {
		t.Fatal(err)
	}

	// No engine yet: every command is a no-op, never a panic.
	p.SetCurrentTime(1000)
	p.TogglePlayPause(true, "controls")
	p.Restart()
	p.SetVisible(false)
	p.Step(epoch)

	st := p.State()
	if st.Status != StatusUninitialized {
		t.Errorf("Status = %v, want uninitialized", st.Status)
	}
	if st.IsPlaying || st.CurrentTimeMs != 0 {
		t.Errorf("state mutated before mount: %+v", st)
	}
}

func TestFinish_AndSeekBackToReady(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	eng.setTime(10000)
	eng.notify(EngineNotification{Kind: EngineFinished, AtMs: 10000})
	p.Step(epoch)

	st := p.State()
	if !st.IsFinished || st.Status != StatusFinished {
		t.Fatalf("after finish: %+v", st)
	}
	if st.IsPlaying {
		t.Error("IsPlaying = true after finish")
	}

	p.SetCurrentTime(2000)
	p.Step(epoch.Add(16 * time.Millisecond))
	st = p.State()
	if st.IsFinished {
		t.Error("IsFinished = true after seeking below the finish mark")
	}
	if st.Status != StatusReady {
		t.Errorf("Status = %v, want ready", st.Status)
	}
}

func TestFastForward_GatedByPreference(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	// Preference off: skip-start is ignored.
	eng.notify(EngineNotification{Kind: EngineSkipStarted, SkipSpeed: 30})
	p.Step(epoch)
	if got := p.State().FastForwardSpeed; got != 0 {
		t.Errorf("FastForwardSpeed = %v with skip preference off, want 0", got)
	}

	p.ToggleSkipInactive(true)
	eng.notify(EngineNotification{Kind: EngineSkipStarted, SkipSpeed: 30})
	p.Step(epoch)
	if got := p.State().FastForwardSpeed; got != 30 {
		t.Errorf("FastForwardSpeed = %v, want 30", got)
	}

	eng.notify(EngineNotification{Kind: EngineSkipEnded})
	p.Step(epoch)
	if got := p.State().FastForwardSpeed; got != 0 {
		t.Errorf("FastForwardSpeed = %v after skip end, want 0", got)
	}
}

func TestToggleSkipInactive_AvoidsRedundantReconfigure(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	configs := len(eng.configs)
	p.ToggleSkipInactive(false) // engine already has skip off
	if len(eng.configs) != configs {
		t.Error("redundant skip toggle reconfigured the engine")
	}

	p.ToggleSkipInactive(true)
	if len(eng.configs) != configs+1 {
		t.Error("skip toggle did not reconfigure the engine")
	}
}

func TestPrefs_PersistedAndSeeded(t *testing.T) {
	store := prefs.NewMemoryStore()
	f := &fakeFactory{}
	p := newMounted(t, f, Options{Prefs: store})

	p.SetSpeed(8)
	p.ToggleSkipInactive(true)

	saved, err := store.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.PlaybackSpeed != 8 || !saved.IsSkippingInactive {
		t.Errorf("saved prefs = %+v", saved)
	}

	// A fresh session load seeds state from the store.
	if err := p.LoadSession(makeSession(t, 5*time.Second, nil)); err != nil {
		t.Fatal(err)
	}
	st := p.State()
	if st.Speed != 8 || !st.IsSkippingInactive {
		t.Errorf("seeded state = %+v", st)
	}
}

func TestSeek_ClearsHighlights(t *testing.T) {
	hl := highlight.NewController()
	f := &fakeFactory{}
	p := newMounted(t, f, Options{Highlights: hl})

	hl.AddHighlight(highlight.Highlight{TimeMs: 1000})
	p.SetCurrentTime(2000)
	if hl.Len() != 0 {
		t.Errorf("highlights not cleared on seek: %d remain", hl.Len())
	}
}

func TestInitialOffset_AppliedOncePerSession(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(Options{Factory: f.build, InitialTimeMs: 3000})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.LoadSession(makeSession(t, 10*time.Second, nil)); err != nil {
		t.Fatal(err)
	}
	if err := p.Mount(StaticSurface("a")); err != nil {
		t.Fatal(err)
	}
	p.Step(epoch)
	if got := p.State().CurrentTimeMs; got != 3000 {
		t.Fatalf("initial offset not applied: CurrentTimeMs = %d", got)
	}

	// Remount on a new surface within the same session: no re-seek.
	p.SetCurrentTime(7000)
	p.Step(epoch.Add(16 * time.Millisecond))
	if err := p.Mount(StaticSurface("b")); err != nil {
		t.Fatal(err)
	}
	p.Step(epoch.Add(32 * time.Millisecond))
	if got := p.State().CurrentTimeMs; got == 3000 {
		t.Error("initial offset re-applied on remount")
	}
}

func TestClipWindow_RelativeTime(t *testing.T) {
	f := &fakeFactory{}
	p, err := New(Options{Factory: f.build})
	if err != nil {
		t.Fatal(err)
	}
	sess := makeSession(t, 10*time.Second, &session.ClipWindow{StartMs: 2000, EndMs: 8000})
	if err := p.LoadSession(sess); err != nil {
		t.Fatal(err)
	}
	if err := p.Mount(StaticSurface("test")); err != nil {
		t.Fatal(err)
	}
	eng := f.last()

	// A seek to relative 1000ms lands at absolute 3000ms in the recording.
	p.SetCurrentTime(1000)
	p.Step(epoch)
	if last := eng.pauseCalls[len(eng.pauseCalls)-1]; last != 3000 {
		t.Errorf("engine seek = %d, want absolute 3000", last)
	}
	if got := p.State().CurrentTimeMs; got != 1000 {
		t.Errorf("CurrentTimeMs = %d, want relative 1000", got)
	}
	if got := p.State().DurationMs; got != 6000 {
		t.Errorf("DurationMs = %d, want 6000", got)
	}
}

func TestRestart(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()
	eng.setTime(9000)

	p.Restart()
	st := p.State()
	if !st.IsPlaying {
		t.Error("IsPlaying = false after restart")
	}
	if last := eng.playCalls[len(eng.playCalls)-1]; last != 0 {
		t.Errorf("restart sought to %d, want the start offset 0", last)
	}
}

func TestHoverTime_PureStateUpdate(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})
	eng := f.last()

	seeks := eng.seekCount()
	p.SetHoverTime(4500)
	st := p.State()
	if !st.HasHover || st.HoverTimeMs != 4500 {
		t.Errorf("hover state = %+v", st)
	}
	if eng.seekCount() != seeks {
		t.Error("hover update touched the engine")
	}

	p.ClearHoverTime()
	if p.State().HasHover {
		t.Error("hover not cleared")
	}
}

func TestSubscribe_NotifiesAndCancels(t *testing.T) {
	f := &fakeFactory{}
	p := newMounted(t, f, Options{})

	var got []State
	cancel := p.Subscribe(func(st State) { got = append(got, st) })

	p.SetCurrentTime(1000)
	if len(got) == 0 {
		t.Fatal("subscriber not notified")
	}

	n := len(got)
	cancel()
	cancel() // idempotent
	p.SetCurrentTime(2000)
	if len(got) != n {
		t.Error("cancelled subscriber still notified")
	}
}

func TestAnalytics_PlayPauseContext(t *testing.T) {
	sink := &captureSink{}
	f := &fakeFactory{}
	p := newMounted(t, f, Options{Analytics: sink, OrgID: "org-9", UserID: "user-3"})

	p.TogglePlayPause(true, "replay-timeline")

	events := sink.events()
	if len(events) != 1 {
		t.Fatalf("got %d analytics events, want 1", len(events))
	}
	e := events[0]
	if e.Name != EventPlayPause || e.OrgID != "org-9" || e.UserID != "user-3" || e.Surface != "replay-timeline" {
		t.Errorf("event = %+v", e)
	}
	if e.Fields["play"] != true {
		t.Errorf("fields = %+v", e.Fields)
	}
}

type captureSink struct {
	mu  sync.Mutex
	evs []analytics.Event
}

func (s *captureSink) Emit(e analytics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, e)
}

func (s *captureSink) events() []analytics.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analytics.Event, len(s.evs))
	copy(out, s.evs)
	return out
}
