package multiview

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"multiview/internal/geometry"
	"multiview/internal/keybind"
	"multiview/internal/stream"
	"multiview/internal/timesync"
)

var (
	// ErrPipInactive is returned for pointer input while the layout has no overlay.
	ErrPipInactive = errors.New("pip overlay is not active")

	// ErrSlotEmpty is returned for player operations on a slot without a stream.
	ErrSlotEmpty = errors.New("slot has no stream")

	// ErrUnknownPanel is returned for a panel other than chat, info or borders.
	ErrUnknownPanel = errors.New("unknown panel")
)

// DefaultVolume is applied to a slot that has never been adjusted.
const DefaultVolume = 100

// SlotView is the externally visible state of one slot.
type SlotView struct {
	Slot     stream.Slot      `json:"slot"`
	Stream   stream.ID        `json:"stream,omitempty"`
	Enabled  bool             `json:"enabled"`
	Ready    bool             `json:"ready"`
	Volume   int              `json:"volume"`
	Muted    bool             `json:"muted"`
	Quality  string           `json:"quality,omitempty"`
	Metadata *stream.Metadata `json:"metadata,omitempty"`
	Mark     *float64         `json:"mark,omitempty"`
	Behind   float64          `json:"behindLive"`
}

// SyncView is the externally visible sync state.
type SyncView struct {
	Drift       float64               `json:"drift"`
	TargetDrift float64               `json:"targetDrift"`
	Strategy    timesync.MoveStrategy `json:"moveStrategy"`
}

// Snapshot is everything the render layer needs to draw the current state.
type Snapshot struct {
	Slots     []SlotView                  `json:"slots"`
	Layout    geometry.LayoutRecord       `json:"layout"`
	Viewport  geometry.Size               `json:"viewport"`
	Targets   geometry.Targets            `json:"targets"`
	Cursor    string                      `json:"cursor"`
	Sync      SyncView                    `json:"sync"`
	Shortcuts bool                        `json:"shortcuts"`
	Conflicts map[string][]keybind.Action `json:"conflicts,omitempty"`
}

// Message is the envelope of everything sent to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SlotsVersion is the current persisted slots schema.
const SlotsVersion = 1

// SlotRecord is the persisted part of one slot.
type SlotRecord struct {
	Slot    stream.Slot `json:"slot"`
	Stream  stream.ID   `json:"stream,omitempty"`
	Volume  int         `json:"volume"`
	Muted   bool        `json:"muted"`
	Quality string      `json:"quality,omitempty"`
}

// SlotsRecord is the persisted slot list.
type SlotsRecord struct {
	Version int          `json:"version"`
	Slots   []SlotRecord `json:"slots"`
}

// DecodeSlots reads a stored slots record. Entries with an invalid slot or
// stream id are dropped and volumes are clamped.
func DecodeSlots(raw []byte) (SlotsRecord, error) {
	rec := SlotsRecord{Version: SlotsVersion}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return rec, nil
	}
	var stored struct {
		Slots []struct {
			Slot    string `json:"slot"`
			Stream  string `json:"stream"`
			Volume  *int   `json:"volume"`
			Muted   bool   `json:"muted"`
			Quality string `json:"quality"`
		} `json:"slots"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return rec, fmt.Errorf("decode slots: %w", err)
	}
	for _, s := range stored.Slots {
		slot, err := stream.ParseSlot(s.Slot)
		if err != nil {
			continue
		}
		r := SlotRecord{Slot: slot, Volume: DefaultVolume, Muted: s.Muted, Quality: s.Quality}
		if s.Stream != "" {
			id, err := stream.ParseID(s.Stream)
			if err != nil {
				continue
			}
			r.Stream = id
		}
		if s.Volume != nil {
			r.Volume = clampVolume(*s.Volume)
		}
		rec.Slots = append(rec.Slots, r)
	}
	return rec, nil
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}
