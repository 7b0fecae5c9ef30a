package player

import (
	"errors"

	"multiview/internal/stream"
)

// State mirrors the embedded player's state enum.
type State int

const (
	Unstarted State = -1
	Ended     State = 0
	Playing   State = 1
	Paused    State = 2
	Buffering State = 3
	Cued      State = 5
)

var (
	// ErrNotReady is returned by a proxy that has not reported readiness yet.
	ErrNotReady = errors.New("player not ready")

	// ErrDestroyed is returned by a proxy after Destroy.
	ErrDestroyed = errors.New("player destroyed")
)

// Proxy is the embedded third-party player. Every call may fail or panic;
// callers are expected to go through Safe rather than use a Proxy directly.
// Seek is fire-and-forget.
type Proxy interface {
	Play() error
	Pause() error
	Seek(seconds float64, allowSeekAhead bool) error
	CurrentTime() (float64, error)
	SetVolume(volume int) error
	Mute() error
	UnMute() error
	SetPlaybackQuality(label string) error
	State() (State, error)
	Destroy() error
}

// Factory constructs the player for a slot. onReady is invoked at most once,
// when the player can start answering queries.
type Factory func(slot stream.Slot, id stream.ID, onReady func()) (Proxy, error)
