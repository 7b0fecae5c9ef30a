package multiview

import (
	"fmt"

	"multiview/internal/geometry"
	"multiview/internal/platform/retry"
	"multiview/internal/settings"
	"multiview/internal/stream"
)

// recomputeLocked derives fresh targets and reports whether they changed.
func (c *Controller) recomputeLocked() bool {
	in := geometry.Input{
		Mode:     c.layout.Mode,
		Swap:     c.layout.Swap,
		Split:    c.layout.Split,
		Viewport: c.viewport,
		Pip:      c.layout.Pip,
		Focus:    c.layout.Focus,
		Enabled:  c.enabledLocked(),
		Chat:     c.layout.Chat,
		Measured: c.measured,
	}
	t := geometry.ComputeTargets(in, c.cache)
	if t.Pip != nil {
		c.layout.Pip = *t.Pip
	}
	changed := !t.Equal(c.targets)
	c.targets = t
	return changed
}

// relayoutLocked recomputes, persists the layout plus any extra records,
// publishes, and starts a settle burst that supersedes any earlier one.
func (c *Controller) relayoutLocked(extra ...string) {
	c.recomputeLocked()
	c.commitLocked(append([]string{settings.KeyLayout}, extra...)...)

	token := c.settle.Next()
	retry.Go(c.ctx, c.settlePolicy, &c.settle, token, func(int) bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.settle.Stale(token) {
			return true
		}
		if c.recomputeLocked() {
			c.publishLocked()
		}
		return false
	})
}

// SetMode switches the layout preset.
func (c *Controller) SetMode(name string) error {
	m, err := geometry.ParseMode(name)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setModeLocked(m)
	return nil
}

func (c *Controller) setModeLocked(m geometry.Mode) {
	if c.layout.Mode == m {
		return
	}
	c.drag.End()
	c.layout.Mode = m
	c.relayoutLocked()
}

// Swap exchanges S1 and S2 in presets that support it.
func (c *Controller) Swap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout.Swap = !c.layout.Swap
	c.relayoutLocked()
}

// FocusNext moves solo focus to the next enabled slot.
func (c *Controller) FocusNext() stream.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleFocusLocked(1)
}

// FocusPrev moves solo focus to the previous enabled slot.
func (c *Controller) FocusPrev() stream.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleFocusLocked(-1)
}

func (c *Controller) cycleFocusLocked(step int) stream.Slot {
	enabled := c.enabledLocked()
	ring := make([]stream.Slot, 0, len(stream.Slots))
	for _, s := range stream.Slots {
		if enabled[s] {
			ring = append(ring, s)
		}
	}
	if len(ring) == 0 {
		ring = stream.Slots
	}
	cur := -1
	for i, s := range ring {
		if s == c.layout.Focus {
			cur = i
		}
	}
	var next int
	switch {
	case cur < 0 && step > 0:
		next = 0
	case cur < 0:
		next = len(ring) - 1
	default:
		next = (cur + step + len(ring)) % len(ring)
	}
	c.layout.Focus = ring[next]
	c.relayoutLocked()
	return c.layout.Focus
}

// SetSplit replaces the split dimensions.
func (c *Controller) SetSplit(split geometry.Split) geometry.Split {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layout.Split = split.Normalize()
	c.relayoutLocked()
	return c.layout.Split
}

// SetViewport records the render layer's viewport size.
func (c *Controller) SetViewport(size geometry.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewport == size {
		return
	}
	c.viewport = size
	c.relayoutLocked()
}

// SetMeasurements records measured cell rectangles. Cells missing from m keep
// their previous measurement.
func (c *Controller) SetMeasurements(m map[geometry.Cell]geometry.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cell, r := range m {
		c.measured[cell] = r
	}
	if c.recomputeLocked() {
		c.publishLocked()
	}
}

// Panel names a toggleable overlay.
type Panel string

const (
	PanelChat    Panel = "chat"
	PanelInfo    Panel = "info"
	PanelBorders Panel = "borders"
)

// TogglePanel flips a panel and returns its new visibility.
func (c *Controller) TogglePanel(p Panel) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.togglePanelLocked(p)
}

func (c *Controller) togglePanelLocked(p Panel) (bool, error) {
	switch p {
	case PanelChat:
		c.layout.Chat = !c.layout.Chat
		c.relayoutLocked()
		return c.layout.Chat, nil
	case PanelInfo:
		c.layout.Info = !c.layout.Info
		c.commitLocked(settings.KeyLayout)
		return c.layout.Info, nil
	case PanelBorders:
		c.layout.Borders = !c.layout.Borders
		c.commitLocked(settings.KeyLayout)
		return c.layout.Borders, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownPanel, p)
}

// Rect returns the current rectangle of a slot ("s1".."s3") or "chat".
func (c *Controller) Rect(target string) (geometry.Rect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target == string(PanelChat) {
		return c.targets.Chat, nil
	}
	s, err := stream.ParseSlot(target)
	if err != nil {
		return geometry.Rect{}, err
	}
	return c.targets.Rect(s), nil
}

// PointerDown starts dragging or resizing the overlay.
func (c *Controller) PointerDown(handle string, x, y float64, lockAspect bool) error {
	h, err := geometry.ParseHandle(handle)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.targets.Pip == nil {
		return ErrPipInactive
	}
	if err := c.drag.Begin(h, x, y, *c.targets.Pip); err != nil {
		return err
	}
	c.lockAspect = lockAspect
	c.publishLocked()
	return nil
}

// DefaultLockAspect reports the aspect lock applied when pointer input does
// not choose one.
func (c *Controller) DefaultLockAspect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultLockAspect
}

// PointerMove applies pointer motion to an active drag. It reports whether
// the overlay moved.
func (c *Controller) PointerMove(x, y float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drag.Active() {
		return false
	}
	pip, ok := c.drag.Move(x, y, c.targets.Stage, c.lockAspect)
	if !ok || pip == c.layout.Pip {
		return false
	}
	c.layout.Pip = pip
	if c.recomputeLocked() {
		c.publishLocked()
	}
	return true
}

// PointerUp ends the active drag and persists the overlay position.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.drag.Active() {
		return
	}
	c.drag.End()
	c.commitLocked(settings.KeyLayout)
}

// Cursor returns the cursor for the active resize handle, or "default".
func (c *Controller) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.Cursor()
}
