package stream

import (
	"errors"
	"testing"
)

func TestParseSlot(t *testing.T) {
	cases := map[string]Slot{"s1": S1, "S2": S2, " 3 ": S3}
	for in, want := range cases {
		got, err := ParseSlot(in)
		if err != nil {
			t.Fatalf("ParseSlot(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSlot(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseSlot("s4"); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestSlot_text_roundtrip(t *testing.T) {
	b, err := S2.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var s Slot
	if err := s.UnmarshalText(b); err != nil {
		t.Fatal(err)
	}
	if s != S2 {
		t.Errorf("got %v", s)
	}
	if _, err := Slot(7).MarshalText(); err == nil {
		t.Error("expected error for out of range slot")
	}
}

func TestParseID(t *testing.T) {
	const id = "dQw4w9WgXcQ"
	inputs := []string{
		id,
		"https://www.youtube.com/watch?v=" + id,
		"youtube.com/watch?v=" + id + "&t=30",
		"https://youtu.be/" + id,
		"https://www.youtube.com/live/" + id + "?si=abc",
		"https://m.youtube.com/embed/" + id,
	}
	for _, in := range inputs {
		got, err := ParseID(in)
		if err != nil {
			t.Errorf("ParseID(%q): %v", in, err)
			continue
		}
		if got != ID(id) {
			t.Errorf("ParseID(%q) = %q", in, got)
		}
	}
}

func TestParseID_invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "short", "https://example.com/watch?v=dQw4w9WgXcQ", "https://youtu.be/", "dQw4w9WgXc!"} {
		if _, err := ParseID(in); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ParseID(%q): expected ErrInvalidID, got %v", in, err)
		}
	}
}
