package geometry

import (
	"errors"
	"fmt"

	"multiview/internal/stream"
)

// ErrUnknownMode is returned for a layout mode outside the catalog.
var ErrUnknownMode = errors.New("unknown layout mode")

// Mode names a layout preset.
type Mode string

const (
	ModeSolo        Mode = "solo"
	ModeSideBySide  Mode = "side_by_side"
	ModeStacked     Mode = "stacked"
	ModePip         Mode = "pip"
	ModeHeroStack   Mode = "hero_stack"
	ModeThreeColumn Mode = "three_column"
)

// Strategy is how a preset derives its rectangles.
type Strategy int

const (
	// Measured presets place slots over cells measured by the render layer.
	Measured Strategy = iota + 1
	// Analytic presets solve rectangles from the stage size alone.
	Analytic
	// Floating presets fill the stage with one slot and float another in the PIP rect.
	Floating
)

// Cell names a measured placeholder element in the render layer.
type Cell string

const (
	CellPrimary   Cell = "primary"
	CellSecondary Cell = "secondary"
)

// Preset describes one layout mode.
type Preset struct {
	Mode     Mode
	Strategy Strategy
	// Swappable presets exchange S1 and S2 when swap is on.
	Swappable bool
	// Cells is the measured cell for each slot position (Measured only).
	Cells []Cell
	// Slots lists the slots in position order before swap. A solo preset
	// has a single position filled by the focused slot.
	Slots []stream.Slot
	// arrange solves position rectangles inside inner (Analytic only).
	arrange func(inner Rect) []Rect
}

// Modes lists the catalog in the order it is offered to users.
var Modes = []Mode{ModeSolo, ModeSideBySide, ModeStacked, ModePip, ModeHeroStack, ModeThreeColumn}

var presets = map[Mode]Preset{
	ModeSolo: {
		Mode:     ModeSolo,
		Strategy: Measured,
		Cells:    []Cell{CellPrimary},
		Slots:    []stream.Slot{stream.S1},
	},
	ModeSideBySide: {
		Mode:      ModeSideBySide,
		Strategy:  Measured,
		Swappable: true,
		Cells:     []Cell{CellPrimary, CellSecondary},
		Slots:     []stream.Slot{stream.S1, stream.S2},
	},
	ModeStacked: {
		Mode:      ModeStacked,
		Strategy:  Measured,
		Swappable: true,
		Cells:     []Cell{CellPrimary, CellSecondary},
		Slots:     []stream.Slot{stream.S1, stream.S2},
	},
	ModePip: {
		Mode:     ModePip,
		Strategy: Floating,
		// background, overlay
		Slots: []stream.Slot{stream.S1, stream.S2},
	},
	ModeHeroStack: {
		Mode:      ModeHeroStack,
		Strategy:  Analytic,
		Swappable: true,
		Slots:     []stream.Slot{stream.S1, stream.S2, stream.S3},
		arrange:   heroStack,
	},
	ModeThreeColumn: {
		Mode:     ModeThreeColumn,
		Strategy: Analytic,
		Slots:    []stream.Slot{stream.S1, stream.S2, stream.S3},
		arrange:  threeColumn,
	},
}

// Lookup returns the preset for m.
func Lookup(m Mode) (Preset, error) {
	p, ok := presets[m]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	return p, nil
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, err := Lookup(m); err != nil {
		return "", err
	}
	return m, nil
}

// positions returns the slot in each position after swap. A swapped S1/S2
// pair only changes which slot fills a position, never the geometry.
func (p Preset) positions(swap bool, focus stream.Slot) []stream.Slot {
	out := make([]stream.Slot, len(p.Slots))
	copy(out, p.Slots)
	if p.Mode == ModeSolo {
		out[0] = focus
		return out
	}
	if swap && (p.Swappable || p.Strategy == Floating) {
		for i, s := range out {
			switch s {
			case stream.S1:
				out[i] = stream.S2
			case stream.S2:
				out[i] = stream.S1
			}
		}
	}
	return out
}
