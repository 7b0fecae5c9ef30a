package player

import (
	"errors"
	"fmt"
	"math"
)

// FailureFunc observes proxy failures swallowed by Safe.
type FailureFunc func(op string, err error)

// Safe converts every Proxy failure, returned or panicked, into a false result.
// A nil *Safe, or one wrapping a nil Proxy, behaves as a player that is never ready.
type Safe struct {
	p         Proxy
	onFailure FailureFunc
}

// NewSafe wraps p. onFailure may be nil.
func NewSafe(p Proxy, onFailure FailureFunc) *Safe {
	return &Safe{p: p, onFailure: onFailure}
}

// Proxy returns the wrapped proxy.
func (s *Safe) Proxy() Proxy {
	if s == nil {
		return nil
	}
	return s.p
}

func (s *Safe) do(op string, fn func(p Proxy) error) (ok bool) {
	if s == nil || s.p == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			s.fail(op, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(s.p); err != nil {
		s.fail(op, err)
		return false
	}
	return true
}

func (s *Safe) fail(op string, err error) {
	// An unready player is expected, not a failure worth reporting.
	if s.onFailure == nil || errors.Is(err, ErrNotReady) {
		return
	}
	s.onFailure(op, err)
}

// CurrentTime returns the reported playback position. ok is false when the
// player is unready, failed, or reported a non-finite value.
func (s *Safe) CurrentTime() (t float64, ok bool) {
	ok = s.do("getCurrentTime", func(p Proxy) error {
		v, err := p.CurrentTime()
		if err != nil {
			return err
		}
		t = v
		return nil
	})
	if !ok || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, false
	}
	return t, true
}

// State returns the player state.
func (s *Safe) State() (st State, ok bool) {
	ok = s.do("getPlayerState", func(p Proxy) error {
		v, err := p.State()
		st = v
		return err
	})
	if !ok {
		return Unstarted, false
	}
	return st, true
}

func (s *Safe) Play() bool  { return s.do("play", func(p Proxy) error { return p.Play() }) }
func (s *Safe) Pause() bool { return s.do("pause", func(p Proxy) error { return p.Pause() }) }

// Seek requests a seek to seconds with seek-ahead allowed.
func (s *Safe) Seek(seconds float64) bool {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return false
	}
	if seconds < 0 {
		seconds = 0
	}
	return s.do("seekTo", func(p Proxy) error { return p.Seek(seconds, true) })
}

// SetVolume clamps volume to [0, 100].
func (s *Safe) SetVolume(volume int) bool {
	volume = max(0, min(100, volume))
	return s.do("setVolume", func(p Proxy) error { return p.SetVolume(volume) })
}

func (s *Safe) Mute() bool   { return s.do("mute", func(p Proxy) error { return p.Mute() }) }
func (s *Safe) UnMute() bool { return s.do("unMute", func(p Proxy) error { return p.UnMute() }) }

func (s *Safe) SetPlaybackQuality(label string) bool {
	return s.do("setPlaybackQuality", func(p Proxy) error { return p.SetPlaybackQuality(label) })
}

func (s *Safe) Destroy() bool { return s.do("destroy", func(p Proxy) error { return p.Destroy() }) }
