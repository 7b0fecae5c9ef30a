package multiview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"multiview/internal/geometry"
	"multiview/internal/keybind"
	"multiview/internal/platform/metrics"
	"multiview/internal/platform/retry"
	"multiview/internal/player"
	"multiview/internal/player/playertest"
	"multiview/internal/settings"
	"multiview/internal/stream"
)

const (
	id1 = "dQw4w9WgXcQ"
	id2 = "jNQXAC9IVRw"
	id3 = "9bZkp7q5f_w"
)

type fakeFactory struct {
	mu      sync.Mutex
	players map[stream.Slot]*playertest.Fake
	ready   map[stream.Slot]func()
	created int
	err     error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		players: make(map[stream.Slot]*playertest.Fake),
		ready:   make(map[stream.Slot]func()),
	}
}

func (f *fakeFactory) build(slot stream.Slot, _ stream.ID, onReady func()) (player.Proxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p := playertest.New(0)
	f.players[slot] = p
	f.ready[slot] = onReady
	f.created++
	return p, nil
}

func (f *fakeFactory) player(slot stream.Slot) *playertest.Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[slot]
}

// markReady runs slot's ready callback as the render layer's first report would.
func (f *fakeFactory) markReady(slot stream.Slot) {
	f.mu.Lock()
	fn := f.ready[slot]
	f.mu.Unlock()
	fn()
}

type recorder struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *recorder) Broadcast(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

type testEnv struct {
	ctrl    *Controller
	factory *fakeFactory
	out     *recorder
	store   *settings.MemoryStore
}

func newTestEnv(t *testing.T, store *settings.MemoryStore) *testEnv {
	t.Helper()
	if store == nil {
		store = settings.NewMemoryStore()
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{factory: newFakeFactory(), out: &recorder{}, store: store}
	env.ctrl = New(Config{
		Log:           log,
		Settings:      settings.NewAdapter(store, log),
		Factory:       env.factory.build,
		Out:           env.out,
		SettlePolicy:  retry.Policy{Interval: time.Millisecond, MaxAttempts: 1},
		QualityPolicy: retry.Policy{Interval: time.Millisecond, MaxAttempts: 5},
	})
	t.Cleanup(env.ctrl.Close)
	return env
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func mustSetStream(t *testing.T, c *Controller, s stream.Slot, id string) {
	t.Helper()
	if err := c.SetStream(s, id); err != nil {
		t.Fatalf("SetStream(%s): %v", s, err)
	}
}

func TestController_three_column(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, "https://www.youtube.com/watch?v="+id2)
	mustSetStream(t, c, stream.S3, "youtu.be/"+id3)
	c.SetViewport(geometry.Size{Width: 1280, Height: 720})
	if err := c.SetMode("three_column"); err != nil {
		t.Fatal(err)
	}

	var rects []geometry.Rect
	for _, s := range stream.Slots {
		r, err := c.Rect(s.String())
		if err != nil {
			t.Fatal(err)
		}
		if r.Visibility != geometry.Visible {
			t.Fatalf("%s hidden: %+v", s, r)
		}
		rects = append(rects, r)
	}
	for i, r := range rects {
		if r.Width != rects[0].Width || r.Height != rects[0].Height {
			t.Errorf("tile %d differs in size: %+v vs %+v", i, r, rects[0])
		}
		if math.Abs(r.Width/r.Height-16.0/9.0) > 1e-9 {
			t.Errorf("tile %d not 16:9: %+v", i, r)
		}
		if top := (720 - r.Height) / 2; math.Abs(r.Top-top) > 1e-9 {
			t.Errorf("tile %d not vertically centered: top %v want %v", i, r.Top, top)
		}
		for j := i + 1; j < len(rects); j++ {
			if r.Overlaps(rects[j]) {
				t.Errorf("tiles %d and %d overlap", i, j)
			}
		}
	}
	if rects[0].Width != 416 || rects[0].Top != 243 {
		t.Errorf("unexpected tile %+v", rects[0])
	}
}

func TestController_disable_slot_mid_session(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)
	c.SetViewport(geometry.Size{Width: 1280, Height: 720})
	c.SetMeasurements(map[geometry.Cell]geometry.Rect{
		geometry.CellPrimary:   {Left: 0, Top: 0, Width: 640, Height: 360},
		geometry.CellSecondary: {Left: 640, Top: 0, Width: 640, Height: 360},
	})

	p1, p2 := env.factory.player(stream.S1), env.factory.player(stream.S2)
	p1.SetTime(100)
	p2.SetTime(95)
	s := c.Sample()
	if s.Drift != 5 {
		t.Fatalf("expected drift 5, got %v", s.Drift)
	}
	p2.SetTime(80)
	if s = c.Sample(); s.Behind[stream.S2] != 15 {
		t.Fatalf("expected S2 15s behind, got %v", s.Behind[stream.S2])
	}

	if err := c.ClearStream(stream.S2); err != nil {
		t.Fatal(err)
	}
	p2.Inspect(func(f *playertest.Fake) {
		if !f.Destroyed {
			t.Error("S2 proxy should be destroyed")
		}
	})
	r, _ := c.Rect("s2")
	if r.Visibility != geometry.Hidden {
		t.Errorf("S2 should be hidden, got %+v", r)
	}

	s = c.Sample()
	if s.Drift != 0 || s.Behind[stream.S2] != 0 {
		t.Errorf("disabled slot should read 0: %+v", s)
	}
	snap := c.Snapshot()
	if snap.Slots[1].Enabled || snap.Slots[1].Stream != "" {
		t.Errorf("snapshot still shows S2: %+v", snap.Slots[1])
	}
}

func TestController_SetStream_invalid(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.ctrl.SetStream(stream.S1, "not a stream"); !errors.Is(err, stream.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := env.ctrl.SetStream(stream.Slot(7), id1); !errors.Is(err, stream.ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot, got %v", err)
	}
	if env.factory.created != 0 {
		t.Error("no player should be created")
	}

	env.factory.err = errors.New("embed failed")
	if err := env.ctrl.SetStream(stream.S1, id1); err == nil {
		t.Error("expected factory error")
	}
	if env.ctrl.Snapshot().Slots[0].Enabled {
		t.Error("slot must stay disabled after a failed create")
	}
}

func TestController_SetStream_same_id_keeps_player(t *testing.T) {
	env := newTestEnv(t, nil)
	mustSetStream(t, env.ctrl, stream.S1, id1)
	mustSetStream(t, env.ctrl, stream.S1, "https://youtu.be/"+id1)
	if env.factory.created != 1 {
		t.Errorf("expected one player, got %d", env.factory.created)
	}
	mustSetStream(t, env.ctrl, stream.S1, id2)
	if env.factory.created != 2 {
		t.Errorf("expected a replacement player, got %d", env.factory.created)
	}
}

func TestController_ready_applies_preferences(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	if err := c.SetVolume(stream.S1, 140); err != nil {
		t.Fatal(err)
	}
	if err := c.SetMuted(stream.S1, true); err != nil {
		t.Fatal(err)
	}
	if err := c.SetQuality(stream.S1, "hd720"); err != nil {
		t.Fatal(err)
	}
	mustSetStream(t, c, stream.S1, id1)
	env.factory.markReady(stream.S1)

	p := env.factory.player(stream.S1)
	eventually(t, func() bool {
		var n int
		p.Inspect(func(f *playertest.Fake) { n = len(f.Qualities) })
		return n > 0
	})
	p.Inspect(func(f *playertest.Fake) {
		if len(f.Volumes) == 0 || f.Volumes[len(f.Volumes)-1] != 100 {
			t.Errorf("volume not applied: %v", f.Volumes)
		}
		if !f.Muted {
			t.Error("mute not applied")
		}
		if f.Qualities[0] != "hd720" {
			t.Errorf("quality: %v", f.Qualities)
		}
	})

	snap := c.Snapshot()
	if !snap.Slots[0].Ready || snap.Slots[0].Volume != 100 {
		t.Errorf("snapshot: %+v", snap.Slots[0])
	}
}

func TestController_quality_assertion_retries_until_playing(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	p := env.factory.player(stream.S1)
	p.Inspect(func(f *playertest.Fake) { f.PlayState = player.Buffering })
	env.factory.markReady(stream.S1)

	if err := c.SetQuality(stream.S1, "hd1080"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		var n int
		p.Inspect(func(f *playertest.Fake) { n = len(f.Qualities) })
		return n >= 2
	})
	p.Inspect(func(f *playertest.Fake) { f.PlayState = player.Playing })

	time.Sleep(30 * time.Millisecond)
	var n int
	p.Inspect(func(f *playertest.Fake) { n = len(f.Qualities) })
	if n > 5 {
		t.Errorf("assertion exceeded its attempts: %d", n)
	}
}

func TestController_stale_ready_ignored(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	env.factory.mu.Lock()
	stale := env.factory.ready[stream.S1]
	env.factory.mu.Unlock()

	if err := c.ClearStream(stream.S1); err != nil {
		t.Fatal(err)
	}
	stale()
	if c.Snapshot().Slots[0].Ready {
		t.Error("ready callback of a destroyed player must be ignored")
	}
}

func TestController_Report_forwards_to_remote(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	out := &recorder{}
	c := New(Config{Log: log, Factory: player.RemoteFactory(nopSender{}), Out: out})
	defer c.Close()

	if err := c.Report(player.Report{Slot: stream.S1}); !errors.Is(err, ErrSlotEmpty) {
		t.Errorf("expected ErrSlotEmpty, got %v", err)
	}
	mustSetStream(t, c, stream.S1, id1)

	tm, st := 42.0, player.Paused
	if err := c.Report(player.Report{Slot: stream.S1, Time: &tm, State: &st}); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return c.Snapshot().Slots[0].Ready })
	if !c.SetMarker(stream.S1) {
		t.Fatal("marker should be set from the reported time")
	}
	if m := c.Snapshot().Slots[0].Mark; m == nil || *m != 42 {
		t.Errorf("mark: %v", m)
	}
}

type nopSender struct{}

func (nopSender) Send([]byte) {}

func TestController_keys(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)

	if a, ok := c.HandleKey(keybind.Event{Key: "3"}); !ok || a != keybind.LayoutStacked {
		t.Fatalf("expected layout_stacked, got %q %v", a, ok)
	}
	if c.Snapshot().Layout.Mode != geometry.ModeStacked {
		t.Error("mode not switched")
	}

	if _, ok := c.HandleKey(keybind.Event{Key: "q", Target: keybind.Target{Tag: "input"}}); ok {
		t.Error("key aimed at a text field must be ignored")
	}
	if _, ok := c.HandleKey(keybind.Event{Key: "q"}); !ok || !c.Snapshot().Slots[0].Muted {
		t.Error("q should mute S1")
	}

	c.HandleKey(keybind.Event{Key: "?"})
	if c.Snapshot().Shortcuts {
		t.Fatal("shortcuts should be disabled")
	}
	if _, ok := c.HandleKey(keybind.Event{Key: "x"}); ok {
		t.Error("swap fired while shortcuts are disabled")
	}
	if a, ok := c.HandleKey(keybind.Event{Key: "F1"}); !ok || a != keybind.ToggleShortcuts {
		t.Error("toggle must work while disabled")
	}

	before := c.Snapshot().Layout.Split.Primary
	c.HandleKey(keybind.Event{Key: "="})
	if got := c.Snapshot().Layout.Split.Primary; math.Abs(got-(before+geometry.PrimaryStep)) > 1e-9 {
		t.Errorf("split grow: %v -> %v", before, got)
	}
}

func TestController_duplicate_trigger(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)
	if err := c.Bind(keybind.Swap, 1, "g"); err != nil {
		t.Fatal(err)
	}
	if err := c.Bind(keybind.SyncNow, 1, "g"); err != nil {
		t.Fatal(err)
	}

	flagged := 0
	for _, b := range c.Bindings().Actions {
		if b.Duplicate {
			flagged++
			if b.Action != keybind.Swap && b.Action != keybind.SyncNow {
				t.Errorf("unexpected duplicate %s", b.Action)
			}
		}
	}
	if flagged != 2 {
		t.Errorf("expected two flagged actions, got %d", flagged)
	}

	a, ok := c.HandleKey(keybind.Event{Key: "g"})
	if !ok || a != keybind.Swap {
		t.Fatalf("expected swap, got %q", a)
	}
	if !c.Snapshot().Layout.Swap {
		t.Error("swap not applied")
	}
	for _, s := range []stream.Slot{stream.S1, stream.S2} {
		if _, seeked := env.factory.player(s).LastSeek(); seeked {
			t.Errorf("sync must not fire on %s", s)
		}
	}

	if err := c.Bind(keybind.Swap, 0, "Alt"); !errors.Is(err, keybind.ErrInvalidTrigger) {
		t.Errorf("expected ErrInvalidTrigger, got %v", err)
	}
}

func TestController_sync_operations(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)
	p1, p2 := env.factory.player(stream.S1), env.factory.player(stream.S2)

	p1.SetTime(120.4)
	if !c.SetMarker(stream.S1) {
		t.Fatal("SetMarker failed")
	}
	p1.SetTime(300)
	if !c.ApplyMarker(stream.S1, stream.S2) {
		t.Fatal("ApplyMarker failed")
	}
	if got, _ := p2.LastSeek(); got != 120.4 {
		t.Errorf("S2 should seek to 120.4, got %v", got)
	}

	p1.SetTime(100)
	p2.SetTime(95)
	corr, ok := c.SyncNow()
	if !ok || corr.Slot != stream.S1 || corr.Target != 95 {
		t.Errorf("unexpected correction %+v", corr)
	}

	if err := c.SetSyncTarget(2, "bogus"); err == nil {
		t.Error("expected strategy error")
	}
	if err := c.SetSyncTarget(2, "s2"); err != nil {
		t.Fatal(err)
	}
	view := c.Snapshot().Sync
	if view.TargetDrift != 2 || view.Strategy != "s2" {
		t.Errorf("sync view: %+v", view)
	}

	if !c.GoLive(stream.S2) {
		t.Error("GoLive failed")
	}
	if !c.Nudge(stream.S1, -10) {
		t.Error("Nudge failed")
	}
	if got, _ := p1.LastSeek(); got != 90 {
		t.Errorf("nudge target %v", got)
	}
}

func TestController_PlayPauseAll(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)

	if c.PlayPauseAll() {
		t.Error("playing players should be paused")
	}
	if !c.PlayPauseAll() {
		t.Error("paused players should be played")
	}
	env.factory.player(stream.S2).Inspect(func(f *playertest.Fake) {
		if f.Pauses != 1 || f.Plays != 1 {
			t.Errorf("S2 pauses=%d plays=%d", f.Pauses, f.Plays)
		}
	})
}

func TestController_focus_cycle(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S3, id3)

	if got := c.FocusNext(); got != stream.S3 {
		t.Errorf("next from s1: %s", got)
	}
	if got := c.FocusNext(); got != stream.S1 {
		t.Errorf("next wraps to s1: %s", got)
	}
	if got := c.FocusPrev(); got != stream.S3 {
		t.Errorf("prev wraps to s3: %s", got)
	}

	c.SetViewport(geometry.Size{Width: 1280, Height: 720})
	if err := c.SetMode("solo"); err != nil {
		t.Fatal(err)
	}
	c.SetMeasurements(map[geometry.Cell]geometry.Rect{
		geometry.CellPrimary: {Width: 1280, Height: 720},
	})
	if r, _ := c.Rect("s3"); r.Visibility != geometry.Visible {
		t.Errorf("focused s3 should be visible in solo: %+v", r)
	}
	if r, _ := c.Rect("s1"); r.Visibility != geometry.Hidden {
		t.Errorf("s1 should be hidden in solo: %+v", r)
	}
}

func TestController_pip_pointer(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)
	c.SetViewport(geometry.Size{Width: 1280, Height: 720})

	if err := c.PointerDown("move", 0, 0, false); !errors.Is(err, ErrPipInactive) {
		t.Errorf("expected ErrPipInactive, got %v", err)
	}
	if err := c.SetMode("pip"); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.Targets.PipOwner != stream.S2 || snap.Targets.Pip == nil {
		t.Fatalf("S2 should own the overlay: %+v", snap.Targets)
	}
	start := *snap.Targets.Pip

	if err := c.PointerDown("zz", 0, 0, false); !errors.Is(err, geometry.ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
	if err := c.PointerDown("se", start.Right(), start.Bottom(), true); err != nil {
		t.Fatal(err)
	}
	if got := c.Cursor(); got != "se-resize" {
		t.Errorf("cursor %q", got)
	}
	if !c.PointerMove(start.Right()-80, start.Bottom()) {
		t.Fatal("resize should change the overlay")
	}
	c.PointerUp()
	if got := c.Cursor(); got != geometry.CursorDefault {
		t.Errorf("cursor after release %q", got)
	}

	pip := *c.Snapshot().Targets.Pip
	if pip.Width != start.Width-80 {
		t.Errorf("width %v, want %v", pip.Width, start.Width-80)
	}
	if math.Abs(pip.Width/pip.Height-16.0/9.0) > 1e-9 {
		t.Errorf("aspect not locked: %+v", pip)
	}
	if c.PointerMove(0, 0) {
		t.Error("move without an active drag must be ignored")
	}

	c.Swap()
	if owner := c.Snapshot().Targets.PipOwner; owner != stream.S1 {
		t.Errorf("swap should hand the overlay to S1, got %s", owner)
	}
	if got := *c.Snapshot().Targets.Pip; got != pip {
		t.Errorf("swap must not move the overlay: %+v vs %+v", got, pip)
	}
}

func TestController_restore(t *testing.T) {
	store := settings.NewMemoryStore()
	first := newTestEnv(t, store)
	c := first.ctrl
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)
	if err := c.SetVolume(stream.S2, 30); err != nil {
		t.Fatal(err)
	}
	if err := c.SetMode("hero_stack"); err != nil {
		t.Fatal(err)
	}
	first.factory.player(stream.S1).SetTime(64)
	c.SetMarker(stream.S1)
	if err := c.Bind(keybind.Swap, 1, "Tab"); err != nil {
		t.Fatal(err)
	}
	c.Close()

	second := newTestEnv(t, store)
	second.ctrl.Restore(context.Background())
	snap := second.ctrl.Snapshot()

	if snap.Layout.Mode != geometry.ModeHeroStack {
		t.Errorf("mode not restored: %s", snap.Layout.Mode)
	}
	if snap.Slots[0].Stream != id1 || snap.Slots[1].Stream != id2 || snap.Slots[2].Enabled {
		t.Errorf("streams not restored: %+v", snap.Slots)
	}
	if snap.Slots[1].Volume != 30 {
		t.Errorf("volume not restored: %d", snap.Slots[1].Volume)
	}
	if snap.Slots[0].Mark == nil || *snap.Slots[0].Mark != 64 {
		t.Errorf("marker not restored: %v", snap.Slots[0].Mark)
	}
	if second.factory.created != 2 {
		t.Errorf("expected two players, got %d", second.factory.created)
	}
	if a, ok := second.ctrl.HandleKey(keybind.Event{Key: "Tab"}); !ok || a != keybind.Swap {
		t.Errorf("binding not restored: %q %v", a, ok)
	}
}

func TestController_restore_tolerates_garbage(t *testing.T) {
	store := settings.NewMemoryStore()
	ctx := context.Background()
	store.Set(ctx, settings.KeyLayout, []byte(`{"mode":`))
	store.Set(ctx, settings.KeySync, []byte(`[1,2]`))
	store.Set(ctx, settings.KeyKeybindings, []byte(`"x"`))
	store.Set(ctx, settings.KeySlots, []byte(`{"slots":[{"slot":"s9","stream":"`+id1+`"},{"slot":"s1","stream":"??"}]}`))

	env := newTestEnv(t, store)
	env.ctrl.Restore(ctx)
	snap := env.ctrl.Snapshot()
	if snap.Layout.Mode != geometry.DefaultLayout().Mode {
		t.Errorf("layout should fall back to default: %s", snap.Layout.Mode)
	}
	for _, s := range snap.Slots {
		if s.Enabled {
			t.Errorf("invalid stored slot enabled: %+v", s)
		}
	}
}

func TestController_publishes_snapshots(t *testing.T) {
	env := newTestEnv(t, nil)
	before := env.out.count()
	env.ctrl.Swap()
	if env.out.count() <= before {
		t.Error("a layout change should publish a snapshot")
	}
	before = env.out.count()
	env.ctrl.Sample()
	if env.out.count() != before+1 {
		t.Error("a sample should publish exactly one sync message")
	}
}

func TestController_TogglePanel(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.ctrl
	c.SetViewport(geometry.Size{Width: 1280, Height: 720})

	on, err := c.TogglePanel(PanelChat)
	if err != nil || !on {
		t.Fatalf("chat toggle: %v %v", on, err)
	}
	chat, _ := c.Rect("chat")
	if chat.Visibility != geometry.Visible || chat.Left+chat.Width != 1280 {
		t.Errorf("chat should hug the right edge: %+v", chat)
	}
	if _, err := c.TogglePanel("sidebar"); !errors.Is(err, ErrUnknownPanel) {
		t.Errorf("expected ErrUnknownPanel, got %v", err)
	}
}

func TestController_proxy_failures_are_counted(t *testing.T) {
	m := metrics.New()
	f := newFakeFactory()
	c := New(Config{
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      m,
		Factory:      f.build,
		SettlePolicy: retry.Policy{Interval: time.Millisecond, MaxAttempts: 1},
	})
	defer c.Close()
	mustSetStream(t, c, stream.S1, id1)
	mustSetStream(t, c, stream.S2, id2)

	f.player(stream.S2).Inspect(func(p *playertest.Fake) { p.Panic = "player gone" })
	if _, ok := c.SyncNow(); ok {
		t.Error("sync must be a no-op when a player panics")
	}
	if err := c.SetVolume(stream.S2, 50); err != nil {
		t.Errorf("a failing player must not surface an error: %v", err)
	}
	c.Sample()

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`multiview_proxy_failures_total{op="getCurrentTime",slot="s2"}`,
		`multiview_proxy_failures_total{op="setVolume",slot="s2"}`,
		`multiview_behind_live_seconds{slot="s1"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
