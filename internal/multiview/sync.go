package multiview

import (
	"context"
	"time"

	"multiview/internal/player"
	"multiview/internal/settings"
	"multiview/internal/stream"
	"multiview/internal/timesync"
)

// DefaultSampleInterval is how often drift and behind-live are sampled.
const DefaultSampleInterval = 500 * time.Millisecond

// SetMarker captures slot's current time as its marker.
func (c *Controller) SetMarker(s stream.Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setMarkerLocked(s)
}

func (c *Controller) setMarkerLocked(s stream.Slot) bool {
	if !c.sync.SetMarker(s) {
		return false
	}
	c.commitLocked(settings.KeySync)
	return true
}

// ApplyMarker seeks to to from's marker.
func (c *Controller) ApplyMarker(from, to stream.Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync.ApplyMarker(from, to)
}

// SyncNow corrects S1/S2 towards the target drift.
func (c *Controller) SyncNow() (timesync.Correction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncNowLocked()
}

func (c *Controller) syncNowLocked() (timesync.Correction, bool) {
	corr, ok := c.sync.SyncNow()
	if !ok {
		return corr, false
	}
	c.log.Info("sync correction", "slot", corr.Slot.String(), "target", corr.Target)
	if c.metrics != nil {
		c.metrics.IncSyncCorrections(corr.Slot.String())
	}
	return corr, true
}

// GoLive seeks slot to its live edge.
func (c *Controller) GoLive(s stream.Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync.GoLive(s)
}

// Nudge seeks slot by delta seconds.
func (c *Controller) Nudge(s stream.Slot, delta float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync.Nudge(s, delta)
}

// SetSyncTarget updates the target drift and move strategy. An empty
// strategy leaves it unchanged.
func (c *Controller) SetSyncTarget(targetDrift float64, strategy string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strategy != "" {
		m, err := timesync.ParseMoveStrategy(strategy)
		if err != nil {
			return err
		}
		if err := c.sync.SetStrategy(m); err != nil {
			return err
		}
	}
	c.sync.SetTargetDrift(targetDrift)
	c.commitLocked(settings.KeySync)
	return nil
}

// PlayPauseAll pauses every player when any is playing and plays them all
// otherwise. It reports whether the players were told to play.
func (c *Controller) PlayPauseAll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playPauseAllLocked()
}

func (c *Controller) playPauseAllLocked() bool {
	playing := false
	for i := range c.slots {
		if st, ok := c.slots[i].player.State(); ok && st == player.Playing {
			playing = true
			break
		}
	}
	for i := range c.slots {
		p := c.slots[i].player
		if p == nil {
			continue
		}
		if playing {
			p.Pause()
		} else {
			p.Play()
		}
	}
	return !playing
}

// Sample reads every player, updates drift and behind-live, and publishes the
// reading.
func (c *Controller) Sample() timesync.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sync.Sample()
	if c.metrics != nil {
		c.metrics.SetDrift(s.Drift)
		for slot, b := range s.Behind {
			c.metrics.SetBehindLive(slot.String(), b)
		}
	}
	c.send("sync", s)
	return s
}

// RunSampler calls Sample every interval until ctx is done.
func (c *Controller) RunSampler(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Sample()
		}
	}
}
