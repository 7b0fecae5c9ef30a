package keybind

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultBindings_no_conflicts(t *testing.T) {
	tbl := DefaultTable()
	if c := tbl.Conflicts(); len(c) != 0 {
		t.Errorf("default table has conflicts: %v", c)
	}
	for _, a := range Actions {
		if a.Description() == "" {
			t.Errorf("%s has no description", a)
		}
		if len(tbl.Triggers(a)) == 0 {
			t.Errorf("%s has no default trigger", a)
		}
	}
	if len(Actions) != 32 {
		t.Errorf("expected 32 actions, got %d", len(Actions))
	}
}

func TestResolve_key_and_code(t *testing.T) {
	d := NewDispatcher(nil)
	cases := []struct {
		ev   Event
		want Action
	}{
		{Event{Key: "2"}, LayoutSideBySide},
		{Event{Key: "X"}, Swap},
		{Event{Key: "End", Code: "Numpad6"}, LayoutThreeColumn},
		{Event{Key: " ", Code: "Space"}, PlayPauseAll},
		{Event{Key: "arrowleft"}, NudgeBackS1},
		{Event{Key: "?", Shift: true}, ToggleShortcuts},
	}
	for _, c := range cases {
		got, ok := d.Resolve(c.ev)
		if !ok || got != c.want {
			t.Errorf("Resolve(%+v) = %q, %v; want %q", c.ev, got, ok, c.want)
		}
	}
}

func TestResolve_ignores_text_entry(t *testing.T) {
	d := NewDispatcher(nil)
	for _, target := range []Target{
		{Tag: "INPUT"},
		{Tag: "textarea"},
		{Tag: "select"},
		{Tag: "div", ContentEditable: true},
	} {
		if a, ok := d.Resolve(Event{Key: "x", Target: target}); ok {
			t.Errorf("target %+v fired %s", target, a)
		}
	}
	if _, ok := d.Resolve(Event{Key: "x", Ctrl: true}); ok {
		t.Error("ctrl chord should not resolve")
	}
	if _, ok := d.Resolve(Event{}); ok {
		t.Error("empty event should not resolve")
	}
}

func TestResolve_disabled_only_toggle(t *testing.T) {
	d := NewDispatcher(nil)
	d.SetEnabled(false)
	if _, ok := d.Resolve(Event{Key: "x"}); ok {
		t.Error("disabled dispatcher fired swap")
	}
	a, ok := d.Resolve(Event{Key: "F1"})
	if !ok || a != ToggleShortcuts {
		t.Errorf("toggle must fire while disabled: %q %v", a, ok)
	}
}

func TestResolve_duplicate_first_declared_wins(t *testing.T) {
	tbl := DefaultTable()
	if err := tbl.Bind(Swap, 1, "g"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Bind(SyncNow, 1, "G"); err != nil {
		t.Fatal(err)
	}

	conflicts := tbl.Conflicts()
	if got := conflicts["g"]; !reflect.DeepEqual(got, []Action{Swap, SyncNow}) {
		t.Errorf("conflicts[g] = %v", got)
	}
	if got := tbl.Duplicates(); !reflect.DeepEqual(got, []Action{Swap, SyncNow}) {
		t.Errorf("duplicates = %v", got)
	}

	d := NewDispatcher(tbl)
	fired := 0
	for _, a := range Actions {
		if d.table.matches(a, Event{Key: "g"}) {
			fired++
		}
	}
	if fired != 2 {
		t.Fatalf("expected two matching actions, got %d", fired)
	}
	a, ok := d.Resolve(Event{Key: "g"})
	if !ok || a != Swap {
		t.Errorf("expected swap to win, got %q", a)
	}
}

func TestBind_validation(t *testing.T) {
	tbl := DefaultTable()
	before := tbl.Bindings()

	cases := []struct {
		action  Action
		index   int
		trigger string
		want    error
	}{
		{"fly", 0, "f", ErrUnknownAction},
		{Swap, 2, "f", ErrInvalidIndex},
		{Swap, -1, "f", ErrInvalidIndex},
		{Swap, 0, "", ErrInvalidTrigger},
		{Swap, 0, "Shift", ErrInvalidTrigger},
		{Swap, 0, "ControlLeft", ErrInvalidTrigger},
	}
	for _, c := range cases {
		if err := tbl.Bind(c.action, c.index, c.trigger); !errors.Is(err, c.want) {
			t.Errorf("Bind(%s,%d,%q) = %v, want %v", c.action, c.index, c.trigger, err, c.want)
		}
	}
	if !reflect.DeepEqual(before, tbl.Bindings()) {
		t.Error("failed binds must not change the table")
	}

	if err := tbl.Bind(Swap, 0, " "); err != nil {
		t.Fatal(err)
	}
	if got := tbl.Triggers(Swap); !reflect.DeepEqual(got, []string{"Space"}) {
		t.Errorf("space capture: %v", got)
	}
	if err := tbl.Unbind(Swap, 0); err != nil {
		t.Fatal(err)
	}
	if len(tbl.Triggers(Swap)) != 0 {
		t.Errorf("unbind left %v", tbl.Triggers(Swap))
	}
	if err := tbl.Unbind(Swap, 1); err != nil {
		t.Errorf("unbinding a missing index is a no-op: %v", err)
	}

	tbl.Reset()
	if !reflect.DeepEqual(before, tbl.Bindings()) {
		t.Error("reset should restore defaults")
	}
}

func TestNormalize(t *testing.T) {
	raw := map[string]any{
		"swap":        "x",
		"sync_now":    []any{"s", "", 7, "S", "y", "z"},
		"mute_all":    []any{},
		"fly_away":    "f",
		"toggle_chat": []any{" ", "  "},
		"split_grow":  map[string]any{"k": "v"},
	}
	got := Normalize(raw)
	want := map[Action][]string{
		Swap:       {"x"},
		SyncNow:    {"s", "y"},
		MuteAll:    {},
		ToggleChat: {"Space"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}

	again := make(map[string]any, len(got))
	for a, list := range got {
		again[string(a)] = list
	}
	if !reflect.DeepEqual(Normalize(again), got) {
		t.Error("Normalize is not idempotent")
	}
}

func TestDecodeRecord_migrates_v1(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"swap":"g","sync_now":["h","j","k"],"bogus":"z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if rec.Version != RecordVersion {
		t.Errorf("version %d", rec.Version)
	}
	tbl := NewTable(rec.Bindings)
	if got := tbl.Triggers(Swap); !reflect.DeepEqual(got, []string{"g"}) {
		t.Errorf("swap: %v", got)
	}
	if got := tbl.Triggers(SyncNow); !reflect.DeepEqual(got, []string{"h", "j"}) {
		t.Errorf("sync_now: %v", got)
	}
	if got := tbl.Triggers(MuteAll); !reflect.DeepEqual(got, []string{"m"}) {
		t.Errorf("untouched action should keep its default: %v", got)
	}
}

func TestDecodeRecord_round_trip(t *testing.T) {
	tbl := DefaultTable()
	_ = tbl.Bind(FocusNext, 1, "Tab")
	_ = tbl.Unbind(ToggleInfo, 0)

	raw, err := json.Marshal(tbl.Record())
	if err != nil {
		t.Fatal(err)
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(NewTable(rec.Bindings).Bindings(), tbl.Bindings()) {
		t.Error("binding round-trip changed the table")
	}

	if _, err := DecodeRecord([]byte(`"nope"`)); err == nil {
		t.Error("expected error for a non-object record")
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.toml")
	doc := "[bindings]\nswap = [\"x\", \"Tab\"]\nsync_now = \"Enter\"\nnot_real = \"q\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadTOML(path)
	if err != nil {
		t.Fatal(err)
	}
	want := map[Action][]string{Swap: {"x", "Tab"}, SyncNow: {"Enter"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadTOML = %v, want %v", got, want)
	}

	if _, err := ParseTOML([]byte("[bindings\n")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadTOML(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected read error")
	}
}
