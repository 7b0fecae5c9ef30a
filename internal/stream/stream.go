package stream

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Slot identifies one of the three independently controlled players.
type Slot int

const (
	S1 Slot = iota + 1
	S2
	S3
)

// Slots lists every slot in display order.
var Slots = []Slot{S1, S2, S3}

var (
	// ErrInvalidSlot is returned when a slot name is not s1, s2 or s3.
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrInvalidID is returned when a stream id or URL cannot be parsed.
	ErrInvalidID = errors.New("invalid stream id")
)

// String returns the lowercase wire name ("s1", "s2", "s3").
func (s Slot) String() string {
	switch s {
	case S1:
		return "s1"
	case S2:
		return "s2"
	case S3:
		return "s3"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Valid reports whether s is one of S1, S2, S3.
func (s Slot) Valid() bool {
	return s >= S1 && s <= S3
}

// Index returns the zero-based array index of s.
func (s Slot) Index() int {
	return int(s) - 1
}

// ParseSlot parses "s1"/"S1"/"1" into a Slot.
func ParseSlot(name string) (Slot, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "s1", "1":
		return S1, nil
	case "s2", "2":
		return S2, nil
	case "s3", "3":
		return S3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ID is a validated video id understood by the embedded player.
type ID string

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseID accepts a bare 11 character video id or any of the common watch,
// short, live and embed URL forms, and returns the bare id.
func ParseID(input string) (ID, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if idPattern.MatchString(s) {
		return ID(s), nil
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstSegment(u.Path)
	case "youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "live", "embed", "shorts", "v":
				candidate = parts[1]
			}
		}
	}

	if !idPattern.MatchString(candidate) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, input)
	}
	return ID(candidate), nil
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// Metadata is the optional snapshot the render layer fetches for a stream.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	ViewerCount int64  `json:"viewerCount,omitempty"`
	LikeCount   int64  `json:"likeCount,omitempty"`
}
