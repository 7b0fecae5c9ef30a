package keybind

import "strings"

// Target describes the element a key event was aimed at.
type Target struct {
	Tag             string `json:"tag,omitempty"`
	ContentEditable bool   `json:"contentEditable,omitempty"`
}

// Event is a key press forwarded by the render layer.
type Event struct {
	Key    string `json:"key"`
	Code   string `json:"code,omitempty"`
	Target Target `json:"target"`
	Ctrl   bool   `json:"ctrl,omitempty"`
	Meta   bool   `json:"meta,omitempty"`
	Alt    bool   `json:"alt,omitempty"`
	Shift  bool   `json:"shift,omitempty"`
}

// TextEntry reports whether the event was aimed at an element that accepts
// typed text.
func (e Event) TextEntry() bool {
	if e.Target.ContentEditable {
		return true
	}
	switch strings.ToLower(e.Target.Tag) {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// Dispatcher resolves key events against a Table. It is not safe for
// concurrent use.
type Dispatcher struct {
	table   *Table
	enabled bool
}

// NewDispatcher returns an enabled dispatcher over t.
func NewDispatcher(t *Table) *Dispatcher {
	if t == nil {
		t = DefaultTable()
	}
	return &Dispatcher{table: t, enabled: true}
}

// Table returns the binding table the dispatcher reads.
func (d *Dispatcher) Table() *Table { return d.table }

// Enabled reports whether shortcuts other than ToggleShortcuts fire.
func (d *Dispatcher) Enabled() bool { return d.enabled }

// SetEnabled turns shortcuts on or off.
func (d *Dispatcher) SetEnabled(on bool) { d.enabled = on }

// Resolve returns the single action ev triggers. Events aimed at text entry
// and chords with Ctrl or Meta never resolve. When several actions share a
// trigger the one declared first in Actions wins. While disabled, only
// ToggleShortcuts resolves.
func (d *Dispatcher) Resolve(ev Event) (Action, bool) {
	if ev.Key == "" && ev.Code == "" {
		return "", false
	}
	if ev.TextEntry() || ev.Ctrl || ev.Meta {
		return "", false
	}
	if ev.Key == " " {
		ev.Key = "Space"
	}
	for _, a := range Actions {
		if !d.enabled && a != ToggleShortcuts {
			continue
		}
		if d.table.matches(a, ev) {
			return a, true
		}
	}
	return "", false
}
