package keybind

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxTriggers is the number of triggers an action can hold.
const MaxTriggers = 2

var (
	// ErrInvalidTrigger is returned when a captured key cannot be bound.
	ErrInvalidTrigger = errors.New("invalid trigger")

	// ErrInvalidIndex is returned for a trigger index outside [0, MaxTriggers).
	ErrInvalidIndex = errors.New("invalid trigger index")
)

var modifierKeys = map[string]bool{
	"shift": true, "control": true, "alt": true, "meta": true, "os": true,
	"altgraph": true, "capslock": true, "fn": true,
	"shiftleft": true, "shiftright": true, "controlleft": true, "controlright": true,
	"altleft": true, "altright": true, "metaleft": true, "metaright": true,
}

// normalizeTrigger returns the canonical form of s, or "" when s is unusable.
// A literal space becomes "Space".
func normalizeTrigger(s string) string {
	if s == " " {
		return "Space"
	}
	return strings.TrimSpace(s)
}

func triggerKey(s string) string {
	return strings.ToLower(s)
}

// Table maps every action to its ordered triggers.
type Table struct {
	bindings map[Action][]string
}

// NewTable builds a table from defaults overlaid by overrides. An override
// with an empty list unbinds the action.
func NewTable(overrides map[Action][]string) *Table {
	t := &Table{bindings: DefaultBindings()}
	for a, triggers := range overrides {
		if !a.Known() {
			continue
		}
		t.bindings[a] = normalizeList(triggers)
	}
	return t
}

// DefaultTable returns a table holding the factory bindings.
func DefaultTable() *Table {
	return NewTable(nil)
}

// normalizeList drops empty and duplicate triggers and keeps at most MaxTriggers.
func normalizeList(in []string) []string {
	out := make([]string, 0, MaxTriggers)
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		s := normalizeTrigger(raw)
		if s == "" || seen[triggerKey(s)] {
			continue
		}
		seen[triggerKey(s)] = true
		out = append(out, s)
		if len(out) == MaxTriggers {
			break
		}
	}
	return out
}

// Triggers returns a copy of a's triggers.
func (t *Table) Triggers(a Action) []string {
	return append([]string(nil), t.bindings[a]...)
}

// Bindings returns a copy of the whole table.
func (t *Table) Bindings() map[Action][]string {
	out := make(map[Action][]string, len(t.bindings))
	for a, list := range t.bindings {
		out[a] = append([]string(nil), list...)
	}
	return out
}

// Bind sets trigger index of action a. An index past the end appends. The
// table is unchanged on error.
func (t *Table) Bind(a Action, index int, trigger string) error {
	if !a.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	if index < 0 || index >= MaxTriggers {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	s := normalizeTrigger(trigger)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTrigger)
	}
	if modifierKeys[triggerKey(s)] {
		return fmt.Errorf("%w: %q is a modifier", ErrInvalidTrigger, s)
	}

	list := t.Triggers(a)
	if index < len(list) {
		list[index] = s
	} else {
		list = append(list, s)
	}
	t.bindings[a] = normalizeList(list)
	return nil
}

// Unbind removes trigger index of action a; a missing index is a no-op.
func (t *Table) Unbind(a Action, index int) error {
	if !a.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	if index < 0 || index >= MaxTriggers {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	list := t.Triggers(a)
	if index < len(list) {
		list = append(list[:index], list[index+1:]...)
	}
	t.bindings[a] = list
	return nil
}

// Reset restores the factory bindings.
func (t *Table) Reset() {
	t.bindings = DefaultBindings()
}

// Conflicts maps every trigger bound to more than one action to those
// actions, in declaration order. Triggers compare case-insensitively.
func (t *Table) Conflicts() map[string][]Action {
	byTrigger := make(map[string][]Action)
	for _, a := range Actions {
		for _, s := range t.bindings[a] {
			k := triggerKey(s)
			byTrigger[k] = append(byTrigger[k], a)
		}
	}
	out := make(map[string][]Action)
	for k, actions := range byTrigger {
		if len(actions) > 1 {
			out[k] = actions
		}
	}
	return out
}

// Duplicates lists every action involved in a conflict, sorted by id.
func (t *Table) Duplicates() []Action {
	set := make(map[Action]bool)
	for _, actions := range t.Conflicts() {
		for _, a := range actions {
			set[a] = true
		}
	}
	out := make([]Action, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// matches reports whether ev's key or physical code equals one of a's triggers.
func (t *Table) matches(a Action, ev Event) bool {
	for _, s := range t.bindings[a] {
		if strings.EqualFold(s, ev.Key) || (ev.Code != "" && strings.EqualFold(s, ev.Code)) {
			return true
		}
	}
	return false
}
