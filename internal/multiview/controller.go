package multiview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"multiview/internal/geometry"
	"multiview/internal/keybind"
	"multiview/internal/platform/metrics"
	"multiview/internal/platform/retry"
	"multiview/internal/player"
	"multiview/internal/settings"
	"multiview/internal/stream"
	"multiview/internal/timesync"
)

// SettlePolicy re-derives rectangles for a few frames after a layout change,
// while the render layer's measurements settle.
var SettlePolicy = retry.Policy{Interval: 16 * time.Millisecond, MaxAttempts: 8}

const saveTimeout = 2 * time.Second

// Broadcaster delivers an encoded message to every connected render layer.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Config wires a Controller. Only Factory is required.
type Config struct {
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Settings *settings.Adapter
	Factory  player.Factory
	Out      Broadcaster
	// Presets overlay the default keybindings; stored bindings overlay them.
	Presets       map[keybind.Action][]string
	SettlePolicy  retry.Policy
	QualityPolicy retry.Policy

	// LockAspect is the aspect lock used by pointer input that does not choose one.
	LockAspect bool
}

type slotState struct {
	stream   stream.ID
	proxy    player.Proxy
	player   *player.Safe
	ready    bool
	volume   int
	muted    bool
	quality  string
	metadata *stream.Metadata
}

// Controller owns all layout, sync, keybinding and slot state. Every
// exported method is safe for concurrent use; they are serialised by one
// mutex.
type Controller struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	log           *slog.Logger
	metrics       *metrics.Metrics
	settings      *settings.Adapter
	factory       player.Factory
	out           Broadcaster
	presets       map[keybind.Action][]string
	settlePolicy  retry.Policy
	qualityPolicy retry.Policy

	slots [3]slotState
	// gens cancels a slot's ready callback and quality assertion.
	gens   [3]retry.Generation
	settle retry.Generation

	layout     geometry.LayoutRecord
	viewport   geometry.Size
	measured   map[geometry.Cell]geometry.Rect
	cache      *geometry.Cache
	targets    geometry.Targets
	drag       geometry.Drag
	lockAspect bool

	// defaultLockAspect applies to pointer input that leaves the lock unset.
	defaultLockAspect bool

	sync *timesync.Engine
	keys *keybind.Dispatcher
}

// New returns a controller with default state. Call Restore to load
// persisted records and Close to stop its timers.
func New(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		ctx:           ctx,
		cancel:        cancel,
		log:           cfg.Log,
		metrics:       cfg.Metrics,
		settings:      cfg.Settings,
		factory:       cfg.Factory,
		out:           cfg.Out,
		presets:       cfg.Presets,
		settlePolicy:  cfg.SettlePolicy,
		qualityPolicy: cfg.QualityPolicy,
		layout:        geometry.DefaultLayout(),
		measured:      make(map[geometry.Cell]geometry.Rect),
		cache:         geometry.NewCache(),
		sync:          timesync.New(),
		keys:          keybind.NewDispatcher(keybind.NewTable(cfg.Presets)),

		defaultLockAspect: cfg.LockAspect,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.settings == nil {
		c.settings = settings.NewAdapter(nil, c.log)
	}
	if c.settlePolicy == (retry.Policy{}) {
		c.settlePolicy = SettlePolicy
	}
	if c.qualityPolicy == (retry.Policy{}) {
		c.qualityPolicy = player.QualityPolicy
	}
	for i := range c.slots {
		c.slots[i].volume = DefaultVolume
	}
	c.recomputeLocked()
	return c
}

// Close cancels pending settle bursts and quality assertions. Players are
// left running in the render layer.
func (c *Controller) Close() {
	c.cancel()
}

// Restore loads every persisted record. Missing or undecodable records
// leave the defaults in place.
func (c *Controller) Restore(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, ok := c.settings.Load(ctx, settings.KeyLayout); ok {
		rec, err := geometry.DecodeLayout(raw)
		if err != nil {
			c.log.Warn("stored layout ignored", "error", err)
		}
		c.layout = rec
	}
	if raw, ok := c.settings.Load(ctx, settings.KeySync); ok {
		if rec, err := timesync.DecodeRecord(raw); err != nil {
			c.log.Warn("stored sync state ignored", "error", err)
		} else {
			c.sync.Restore(rec)
		}
	}
	if raw, ok := c.settings.Load(ctx, settings.KeyKeybindings); ok {
		if rec, err := keybind.DecodeRecord(raw); err != nil {
			c.log.Warn("stored keybindings ignored", "error", err)
		} else {
			overrides := make(map[keybind.Action][]string, len(c.presets)+len(rec.Bindings))
			for a, list := range c.presets {
				overrides[a] = list
			}
			for a, list := range rec.Bindings {
				overrides[a] = list
			}
			enabled := c.keys.Enabled()
			c.keys = keybind.NewDispatcher(keybind.NewTable(overrides))
			c.keys.SetEnabled(enabled)
		}
	}
	if raw, ok := c.settings.Load(ctx, settings.KeySlots); ok {
		rec, err := DecodeSlots(raw)
		if err != nil {
			c.log.Warn("stored slots ignored", "error", err)
		}
		for _, r := range rec.Slots {
			st := &c.slots[r.Slot.Index()]
			st.volume, st.muted, st.quality = r.Volume, r.Muted, r.Quality
			if r.Stream != "" {
				if err := c.enableLocked(r.Slot, r.Stream); err != nil {
					c.log.Warn("stored stream not restored", "slot", r.Slot.String(), "error", err)
				}
			}
		}
	}

	c.recomputeLocked()
	c.log.Info("state restored",
		"mode", string(c.layout.Mode),
		"streams", len(c.enabledLocked()),
	)
}

func (c *Controller) slot(s stream.Slot) (*slotState, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", stream.ErrInvalidSlot, int(s))
	}
	return &c.slots[s.Index()], nil
}

func (c *Controller) enabledLocked() map[stream.Slot]bool {
	out := make(map[stream.Slot]bool, len(stream.Slots))
	for _, s := range stream.Slots {
		if c.slots[s.Index()].player != nil {
			out[s] = true
		}
	}
	return out
}

// SetStream embeds the stream named by input (an id or a watch URL) in slot,
// replacing whatever played there.
func (c *Controller) SetStream(s stream.Slot, input string) error {
	id, err := stream.ParseID(input)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.slot(s); err != nil {
		return err
	}
	if err := c.enableLocked(s, id); err != nil {
		return err
	}
	c.relayoutLocked(settings.KeySlots)
	return nil
}

// ClearStream destroys slot's player.
func (c *Controller) ClearStream(s stream.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.slot(s); err != nil {
		return err
	}
	c.teardownLocked(s)
	c.relayoutLocked(settings.KeySlots)
	return nil
}

func (c *Controller) enableLocked(s stream.Slot, id stream.ID) error {
	st := &c.slots[s.Index()]
	if st.stream == id && st.player != nil {
		return nil
	}
	c.teardownLocked(s)

	token := c.gens[s.Index()].Next()
	proxy, err := c.factory(s, id, func() { c.playerReady(s, token) })
	if err != nil {
		return fmt.Errorf("create player for %s: %w", s, err)
	}
	st.stream = id
	st.proxy = proxy
	st.player = player.NewSafe(proxy, c.failureHook(s))
	st.ready = false
	c.sync.Attach(s, st.player)
	c.log.Info("stream enabled", "slot", s.String(), "stream", string(id))
	return nil
}

func (c *Controller) teardownLocked(s stream.Slot) {
	st := &c.slots[s.Index()]
	c.gens[s.Index()].Next()
	if st.player != nil {
		st.player.Destroy()
		c.log.Info("stream disabled", "slot", s.String(), "stream", string(st.stream))
	}
	c.sync.Detach(s)
	st.stream, st.proxy, st.player, st.ready, st.metadata = "", nil, nil, false, nil
}

func (c *Controller) failureHook(s stream.Slot) player.FailureFunc {
	return func(op string, err error) {
		c.log.Debug("player call failed", "slot", s.String(), "op", op, "error", err)
		if c.metrics != nil {
			c.metrics.IncProxyFailures(s.String(), op)
		}
	}
}

// playerReady applies the slot's audio and quality preferences once the
// embedded player first reports in.
func (c *Controller) playerReady(s stream.Slot, token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[s.Index()].Stale(token) {
		return
	}
	st := &c.slots[s.Index()]
	st.ready = true
	st.player.SetVolume(st.volume)
	if st.muted {
		st.player.Mute()
	} else {
		st.player.UnMute()
	}
	c.assertQualityLocked(s, token)
	c.publishLocked()
}

func (c *Controller) assertQualityLocked(s stream.Slot, token uint64) {
	st := &c.slots[s.Index()]
	if st.quality == "" || st.player == nil {
		return
	}
	p, label, gen := st.player, st.quality, &c.gens[s.Index()]
	go func() {
		if !player.AssertQuality(c.ctx, p, label, c.qualityPolicy, gen, token) {
			c.log.Debug("quality not confirmed", "slot", s.String(), "quality", label)
		}
	}()
}

// Report forwards a player position/state report from the render layer.
func (c *Controller) Report(rep player.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.slot(rep.Slot)
	if err != nil {
		return err
	}
	if st.proxy == nil {
		return fmt.Errorf("%w: %s", ErrSlotEmpty, rep.Slot)
	}
	if r, ok := st.proxy.(interface{ Report(player.Report) }); ok {
		r.Report(rep)
	}
	return nil
}

// SetVolume sets slot's volume, clamped to 0..100.
func (c *Controller) SetVolume(s stream.Slot, volume int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.slot(s)
	if err != nil {
		return err
	}
	st.volume = clampVolume(volume)
	if st.player != nil {
		st.player.SetVolume(st.volume)
	}
	c.commitLocked(settings.KeySlots)
	return nil
}

// SetMuted mutes or unmutes slot.
func (c *Controller) SetMuted(s stream.Slot, muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.slot(s); err != nil {
		return err
	}
	c.setMutedLocked(s, muted)
	c.commitLocked(settings.KeySlots)
	return nil
}

func (c *Controller) setMutedLocked(s stream.Slot, muted bool) {
	st := &c.slots[s.Index()]
	st.muted = muted
	if st.player == nil {
		return
	}
	if muted {
		st.player.Mute()
	} else {
		st.player.UnMute()
	}
}

// SetQuality records slot's preferred quality and asserts it on a ready player.
func (c *Controller) SetQuality(s stream.Slot, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.slot(s)
	if err != nil {
		return err
	}
	st.quality = label
	if st.ready {
		c.assertQualityLocked(s, c.gens[s.Index()].Next())
	}
	c.commitLocked(settings.KeySlots)
	return nil
}

// SetMetadata attaches display metadata to an enabled slot.
func (c *Controller) SetMetadata(s stream.Slot, md stream.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.slot(s)
	if err != nil {
		return err
	}
	if st.player == nil {
		return fmt.Errorf("%w: %s", ErrSlotEmpty, s)
	}
	st.metadata = &md
	c.publishLocked()
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Slots:    make([]SlotView, 0, len(stream.Slots)),
		Layout:   c.layout,
		Viewport: c.viewport,
		Targets:  c.targets,
		Cursor:   c.drag.Cursor(),
		Sync: SyncView{
			Drift:       c.sync.Drift(),
			TargetDrift: c.sync.TargetDrift(),
			Strategy:    c.sync.Strategy(),
		},
		Shortcuts: c.keys.Enabled(),
		Conflicts: c.keys.Table().Conflicts(),
	}
	for _, s := range stream.Slots {
		st := c.slots[s.Index()]
		v := SlotView{
			Slot:     s,
			Stream:   st.stream,
			Enabled:  st.player != nil,
			Ready:    st.ready,
			Volume:   st.volume,
			Muted:    st.muted,
			Quality:  st.quality,
			Metadata: st.metadata,
			Behind:   c.sync.BehindLive(s),
		}
		if m, ok := c.sync.Mark(s); ok {
			v.Mark = &m
		}
		snap.Slots = append(snap.Slots, v)
	}
	return snap
}

func (c *Controller) slotsRecordLocked() SlotsRecord {
	rec := SlotsRecord{Version: SlotsVersion}
	for _, s := range stream.Slots {
		st := c.slots[s.Index()]
		rec.Slots = append(rec.Slots, SlotRecord{
			Slot:    s,
			Stream:  st.stream,
			Volume:  st.volume,
			Muted:   st.muted,
			Quality: st.quality,
		})
	}
	return rec
}

// commitLocked persists the named records and publishes a snapshot.
func (c *Controller) commitLocked(keys ...string) {
	if len(keys) > 0 {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), saveTimeout)
		defer cancel()
		for _, key := range keys {
			switch key {
			case settings.KeyLayout:
				c.settings.Save(ctx, key, c.layout)
			case settings.KeySync:
				c.settings.Save(ctx, key, c.sync.Record())
			case settings.KeyKeybindings:
				c.settings.Save(ctx, key, c.keys.Table().Record())
			case settings.KeySlots:
				c.settings.Save(ctx, key, c.slotsRecordLocked())
			}
		}
	}
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.send("snapshot", c.snapshotLocked())
}

func (c *Controller) send(kind string, data any) {
	if c.out == nil {
		return
	}
	b, err := json.Marshal(Message{Type: kind, Data: data})
	if err != nil {
		c.log.Error("encode message failed", "type", kind, "error", err)
		return
	}
	c.out.Broadcast(b)
}
