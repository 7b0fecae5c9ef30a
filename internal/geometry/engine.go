package geometry

import (
	"maps"

	"multiview/internal/stream"
)

// Input is everything rectangles are derived from.
type Input struct {
	Mode     Mode
	Swap     bool
	Split    Split
	Viewport Size
	Pip      PipRect
	// Focus is the slot shown by the solo preset.
	Focus    stream.Slot
	Enabled  map[stream.Slot]bool
	Chat     bool
	Measured map[Cell]Rect
}

// Targets is the derived placement of every slot and panel.
type Targets struct {
	Mode  Mode                 `json:"mode"`
	Stage Size                 `json:"stage"`
	Slots map[stream.Slot]Rect `json:"slots"`
	Chat  Rect                 `json:"chat"`
	// PipOwner is the slot in the floating overlay, or zero.
	PipOwner stream.Slot `json:"pipOwner,omitempty"`
	Pip      *PipRect    `json:"pip,omitempty"`
}

// Rect returns the rectangle for slot, Offstage when unknown.
func (t Targets) Rect(slot stream.Slot) Rect {
	if r, ok := t.Slots[slot]; ok {
		return r
	}
	return Offstage
}

// Equal reports whether t and o place everything identically.
func (t Targets) Equal(o Targets) bool {
	if t.Mode != o.Mode || t.Stage != o.Stage || t.Chat != o.Chat || t.PipOwner != o.PipOwner {
		return false
	}
	if (t.Pip == nil) != (o.Pip == nil) || (t.Pip != nil && *t.Pip != *o.Pip) {
		return false
	}
	return maps.Equal(t.Slots, o.Slots)
}

// Cache remembers the last valid rectangle per slot.
type Cache struct {
	last map[stream.Slot]Rect
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{last: make(map[stream.Slot]Rect)}
}

// Last returns the last valid rectangle recorded for slot.
func (c *Cache) Last(slot stream.Slot) (Rect, bool) {
	if c == nil {
		return Rect{}, false
	}
	r, ok := c.last[slot]
	return r, ok
}

func (c *Cache) remember(slot stream.Slot, r Rect) {
	if c == nil || !r.Valid() {
		return
	}
	c.last[slot] = r.visible()
}

// fallback returns the last valid rect for slot, or Offstage.
func (c *Cache) fallback(slot stream.Slot) Rect {
	if r, ok := c.Last(slot); ok {
		return r
	}
	return Offstage
}

// Stage returns the area available to players: the viewport minus the chat
// panel when it is shown.
func Stage(viewport Size, split Split, chat bool) Size {
	if !chat {
		return viewport
	}
	return Size{Width: viewport.Width - split.chatWidth(viewport), Height: viewport.Height}
}

// ComputeTargets derives the rectangle of every slot and the chat panel.
// Valid rectangles are recorded in cache; a slot whose rectangle cannot be
// derived falls back to its last valid rectangle, or Offstage. Slots that are
// disabled or not part of the mode are Offstage. Calling it twice with the
// same input yields the same Targets.
func ComputeTargets(in Input, cache *Cache) Targets {
	preset, err := Lookup(in.Mode)
	if err != nil {
		preset = presets[ModeSolo]
	}

	stage := Stage(in.Viewport, in.Split, in.Chat)
	t := Targets{
		Mode:  preset.Mode,
		Stage: stage,
		Slots: make(map[stream.Slot]Rect, len(stream.Slots)),
		Chat:  Offstage,
	}
	for _, s := range stream.Slots {
		t.Slots[s] = Offstage
	}
	if in.Chat && in.Viewport.Valid() {
		w := in.Split.chatWidth(in.Viewport)
		t.Chat = Rect{Left: stage.Width, Top: 0, Width: w, Height: in.Viewport.Height, Visibility: Visible}
	}

	focus := in.Focus
	if preset.Mode == ModeSolo && !in.Enabled[focus] {
		focus = firstEnabled(in.Enabled)
	}
	positions := preset.positions(in.Swap, focus)

	place := func(i int, r Rect, ok bool) {
		slot := positions[i]
		if !slot.Valid() || !in.Enabled[slot] {
			return
		}
		if ok && r.Valid() {
			cache.remember(slot, r)
			t.Slots[slot] = r.visible()
			return
		}
		t.Slots[slot] = cache.fallback(slot)
	}

	switch preset.Strategy {
	case Measured:
		for i, cell := range preset.Cells {
			r, ok := in.Measured[cell]
			place(i, r, ok)
		}
	case Analytic:
		var rects []Rect
		if stage.Valid() {
			rects = preset.arrange(inner(stage))
		}
		for i := range positions {
			if i < len(rects) {
				place(i, rects[i], true)
			} else {
				place(i, Rect{}, false)
			}
		}
	case Floating:
		bg := Rect{Width: stage.Width, Height: stage.Height}
		place(0, bg, stage.Valid())
		pip := in.Pip.Clamp(stage)
		place(1, pip.Rect(), stage.Valid())
		if overlay := positions[1]; in.Enabled[overlay] {
			t.PipOwner = overlay
			t.Pip = &pip
		}
	}
	return t
}

func firstEnabled(enabled map[stream.Slot]bool) stream.Slot {
	for _, s := range stream.Slots {
		if enabled[s] {
			return s
		}
	}
	return stream.S1
}
