package timesync

import (
	"bytes"
	"encoding/json"
	"fmt"

	"multiview/internal/stream"
)

// RecordVersion is the current persisted sync schema.
//
//	v1: {"markS1", "markS2", "targetDriftSeconds", "moveStrategy"}
//	v2: Record
const RecordVersion = 2

// Record is the persisted sync state.
type Record struct {
	Version      int                     `json:"version"`
	Marks        map[stream.Slot]float64 `json:"marks,omitempty"`
	TargetDrift  float64                 `json:"targetDrift"`
	MoveStrategy MoveStrategy            `json:"moveStrategy"`
}

type recordV1 struct {
	MarkS1             *float64 `json:"markS1"`
	MarkS2             *float64 `json:"markS2"`
	TargetDriftSeconds float64  `json:"targetDriftSeconds"`
	MoveStrategy       string   `json:"moveStrategy"`
}

// Record snapshots the persisted part of the engine.
func (e *Engine) Record() Record {
	rec := Record{
		Version:      RecordVersion,
		TargetDrift:  e.target,
		MoveStrategy: e.strategy,
	}
	for _, s := range stream.Slots {
		if m, ok := e.Mark(s); ok {
			if rec.Marks == nil {
				rec.Marks = make(map[stream.Slot]float64)
			}
			rec.Marks[s] = m
		}
	}
	return rec
}

// Restore applies rec. Marks are restored even for slots without a player.
func (e *Engine) Restore(rec Record) {
	e.SetTargetDrift(rec.TargetDrift)
	if err := e.SetStrategy(rec.MoveStrategy); err != nil {
		e.strategy = MoveAuto
	}
	for s, m := range rec.Marks {
		if st := e.slot(s); st != nil {
			v := m
			st.mark = &v
		}
	}
}

// DecodeRecord migrates a stored sync record of any known version.
func DecodeRecord(raw []byte) (Record, error) {
	rec := Record{Version: RecordVersion, MoveStrategy: MoveAuto}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return rec, nil
	}

	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return rec, fmt.Errorf("decode sync record: %w", err)
	}

	if head.Version < 2 {
		var v1 recordV1
		if err := json.Unmarshal(raw, &v1); err != nil {
			return rec, fmt.Errorf("decode sync record v1: %w", err)
		}
		rec.TargetDrift = v1.TargetDriftSeconds
		if m, err := ParseMoveStrategy(v1.MoveStrategy); err == nil {
			rec.MoveStrategy = m
		}
		for s, m := range map[stream.Slot]*float64{stream.S1: v1.MarkS1, stream.S2: v1.MarkS2} {
			if m == nil {
				continue
			}
			if rec.Marks == nil {
				rec.Marks = make(map[stream.Slot]float64)
			}
			rec.Marks[s] = *m
		}
		return rec, nil
	}

	var v2 Record
	if err := json.Unmarshal(raw, &v2); err != nil {
		return rec, fmt.Errorf("decode sync record: %w", err)
	}
	v2.Version = RecordVersion
	if _, err := ParseMoveStrategy(string(v2.MoveStrategy)); err != nil {
		v2.MoveStrategy = MoveAuto
	}
	return v2, nil
}
