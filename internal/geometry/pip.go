package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinPipWidth  = 160.0
	MinPipHeight = 90.0
	pipMargin    = 16.0
)

// ErrUnknownHandle is returned when a pointer interaction names no handle.
var ErrUnknownHandle = errors.New("unknown pip handle")

// PipRect is the floating overlay rectangle, relative to the stage origin.
type PipRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect converts p to a visible Rect.
func (p PipRect) Rect() Rect {
	return Rect{Left: p.X, Top: p.Y, Width: p.Width, Height: p.Height, Visibility: Visible}
}

func (p PipRect) Right() float64  { return p.X + p.Width }
func (p PipRect) Bottom() float64 { return p.Y + p.Height }

// DefaultPip places a 30%-wide 16:9 overlay in the bottom-right corner.
func DefaultPip(stage Size) PipRect {
	w := max(MinPipWidth, stage.Width*0.3)
	h := w / Aspect
	return PipRect{
		X:      stage.Width - w - pipMargin,
		Y:      stage.Height - h - pipMargin,
		Width:  w,
		Height: h,
	}.Clamp(stage)
}

// Clamp keeps p inside stage and at least the minimum size, or the stage
// size when the stage is smaller than the minimum. A zero-sized p is
// replaced by DefaultPip.
func (p PipRect) Clamp(stage Size) PipRect {
	if !stage.Valid() {
		return p
	}
	if p.Width <= 0 || p.Height <= 0 {
		return DefaultPip(stage)
	}
	p.Width = clamp(p.Width, min(MinPipWidth, stage.Width), stage.Width)
	p.Height = clamp(p.Height, min(MinPipHeight, stage.Height), stage.Height)
	p.X = clamp(p.X, 0, stage.Width-p.Width)
	p.Y = clamp(p.Y, 0, stage.Height-p.Height)
	return p
}

// Handle is the part of the overlay a pointer interaction grabbed.
type Handle string

const (
	HandleMove Handle = "move"
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// ParseHandle validates a handle name.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(strings.ToLower(s)); h {
	case HandleMove, HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return h, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHandle, s)
}

// Cursor returns the CSS cursor for h; move has no directional cursor.
func (h Handle) Cursor() string {
	if h == "" || h == HandleMove {
		return CursorDefault
	}
	return string(h) + "-resize"
}

func (h Handle) has(edge byte) bool {
	return h != HandleMove && strings.IndexByte(string(h), edge) >= 0
}

// CursorDefault is reported when no resize is in progress.
const CursorDefault = "default"

// Drag tracks one pointer interaction with the overlay.
type Drag struct {
	active bool
	handle Handle
	startX float64
	startY float64
	start  PipRect
}

// Begin starts an interaction at pointer (x, y) on the overlay at pip.
func (d *Drag) Begin(h Handle, x, y float64, pip PipRect) error {
	if _, err := ParseHandle(string(h)); err != nil {
		return err
	}
	*d = Drag{active: true, handle: h, startX: x, startY: y, start: pip}
	return nil
}

// Active reports whether an interaction is in progress.
func (d *Drag) Active() bool { return d.active }

// End finishes the interaction.
func (d *Drag) End() { *d = Drag{} }

// Cursor returns the directional cursor of the active resize handle, or
// CursorDefault when idle or moving.
func (d *Drag) Cursor() string {
	if !d.active {
		return CursorDefault
	}
	return d.handle.Cursor()
}

// Move applies pointer position (x, y) and returns the new overlay rect,
// clamped to stage. With lockAspect, resizes keep 16:9. ok is false when no
// interaction is active.
func (d *Drag) Move(x, y float64, stage Size, lockAspect bool) (PipRect, bool) {
	if !d.active {
		return PipRect{}, false
	}
	dx, dy := x-d.startX, y-d.startY
	s := d.start.Clamp(stage)

	if d.handle == HandleMove {
		return PipRect{X: s.X + dx, Y: s.Y + dy, Width: s.Width, Height: s.Height}.Clamp(stage), true
	}

	w, h := s.Width, s.Height
	switch {
	case d.handle.has('e'):
		w = s.Width + dx
	case d.handle.has('w'):
		w = s.Width - dx
	}
	switch {
	case d.handle.has('s'):
		h = s.Height + dy
	case d.handle.has('n'):
		h = s.Height - dy
	}
	w = max(w, MinPipWidth)
	h = max(h, MinPipHeight)

	if lockAspect {
		if d.handle == HandleN || d.handle == HandleS {
			w = h * Aspect
		} else {
			h = w / Aspect
		}
		if w < MinPipWidth {
			w, h = MinPipWidth, MinPipWidth/Aspect
		}
	}

	// The edges opposite the grabbed handle stay put, so growth is bounded
	// by the distance from them to the stage edge.
	maxW, maxH := math.Inf(1), math.Inf(1)
	if stage.Valid() {
		maxW, maxH = stage.Width-s.X, stage.Height-s.Y
		if d.handle.has('w') {
			maxW = s.Right()
		}
		if d.handle.has('n') {
			maxH = s.Bottom()
		}
	}
	if w > maxW {
		w = maxW
		if lockAspect {
			h = w / Aspect
		}
	}
	if h > maxH {
		h = maxH
		if lockAspect {
			w = h * Aspect
		}
	}

	nx, ny := s.X, s.Y
	if d.handle.has('w') {
		nx = s.Right() - w
	}
	if d.handle.has('n') {
		ny = s.Bottom() - h
	}
	return PipRect{X: nx, Y: ny, Width: w, Height: h}.Clamp(stage), true
}
