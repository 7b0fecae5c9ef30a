package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"multiview/internal/stream"
)

// LayoutVersion is the current persisted layout schema.
//
//	v1: a bare JSON string holding the mode name
//	v2: LayoutRecord
const LayoutVersion = 2

// LayoutRecord is the persisted layout state.
type LayoutRecord struct {
	Version int         `json:"version"`
	Mode    Mode        `json:"mode"`
	Swap    bool        `json:"swap"`
	Split   Split       `json:"split"`
	Pip     PipRect     `json:"pip"`
	Focus   stream.Slot `json:"focus,omitempty"`
	Chat    bool        `json:"chat"`
	Info    bool        `json:"info"`
	Borders bool        `json:"borders"`
}

// DefaultLayout is used when nothing valid is stored.
func DefaultLayout() LayoutRecord {
	return LayoutRecord{
		Version: LayoutVersion,
		Mode:    ModeSideBySide,
		Split:   DefaultSplit,
		Focus:   stream.S1,
		Borders: true,
	}
}

// DecodeLayout migrates a stored layout of any known version to the current
// schema. Fields that fail validation take their defaults; only undecodable
// input is an error.
func DecodeLayout(raw []byte) (LayoutRecord, error) {
	rec := DefaultLayout()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return rec, nil
	}

	if raw[0] == '"' {
		var mode string
		if err := json.Unmarshal(raw, &mode); err != nil {
			return DefaultLayout(), fmt.Errorf("decode layout v1: %w", err)
		}
		if m, err := ParseMode(mode); err == nil {
			rec.Mode = m
		}
		return rec, nil
	}

	var stored struct {
		LayoutRecord
		Focus string `json:"focus"`
	}
	stored.LayoutRecord = rec
	if err := json.Unmarshal(raw, &stored); err != nil {
		return DefaultLayout(), fmt.Errorf("decode layout: %w", err)
	}

	rec = stored.LayoutRecord
	rec.Version = LayoutVersion
	if _, err := Lookup(rec.Mode); err != nil {
		rec.Mode = DefaultLayout().Mode
	}
	if s, err := stream.ParseSlot(stored.Focus); err == nil {
		rec.Focus = s
	} else {
		rec.Focus = stream.S1
	}
	rec.Split = rec.Split.Normalize()
	return rec, nil
}
