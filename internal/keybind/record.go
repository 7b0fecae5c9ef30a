package keybind

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RecordVersion is the current persisted keybinding schema.
//
//	v1: {"<action>": "<trigger>" | ["<trigger>", ...]}
//	v2: {"version": 2, "bindings": {"<action>": ["<trigger>", ...]}}
const RecordVersion = 2

// Record is the persisted keybinding table. Only actions present in
// Bindings override the defaults.
type Record struct {
	Version  int                 `json:"version"`
	Bindings map[Action][]string `json:"bindings"`
}

// Record snapshots the full table.
func (t *Table) Record() Record {
	return Record{Version: RecordVersion, Bindings: t.Bindings()}
}

// Normalize cleans a loosely typed binding map: a bare string becomes a
// one-element list, non-string and blank entries are dropped, lists are
// deduplicated and truncated to MaxTriggers, and unknown actions are
// dropped. Normalizing an already normalized map returns an equal map.
func Normalize(raw map[string]any) map[Action][]string {
	out := make(map[Action][]string, len(raw))
	for id, v := range raw {
		a := Action(id)
		if !a.Known() {
			continue
		}
		var list []string
		switch tv := v.(type) {
		case string:
			list = []string{tv}
		case []string:
			list = tv
		case []any:
			for _, item := range tv {
				if s, ok := item.(string); ok {
					list = append(list, s)
				}
			}
		case nil:
		default:
			continue
		}
		out[a] = normalizeList(list)
	}
	return out
}

// DecodeRecord migrates a stored keybinding record of any known version.
func DecodeRecord(raw []byte) (Record, error) {
	rec := Record{Version: RecordVersion, Bindings: map[Action][]string{}}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return rec, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return rec, fmt.Errorf("decode keybindings: %w", err)
	}

	bindings := doc
	if v, ok := doc["version"].(float64); ok && v >= 2 {
		inner, _ := doc["bindings"].(map[string]any)
		bindings = inner
	}
	rec.Bindings = Normalize(bindings)
	return rec, nil
}
