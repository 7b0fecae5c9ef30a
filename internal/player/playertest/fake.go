// Package playertest provides an in-memory player.Proxy for tests.
package playertest

import (
	"sync"

	"multiview/internal/player"
)

// Fake records every command it receives. A nil Time makes CurrentTime
// report player.ErrNotReady. Err is returned from every call when set;
// Panic makes every call panic with its value.
type Fake struct {
	mu sync.Mutex

	Time      *float64
	PlayState player.State
	Err       error
	Panic     any

	Seeks     []float64
	Volumes   []int
	Qualities []string
	Muted     bool
	Plays     int
	Pauses    int
	Destroyed bool
}

// New returns a Fake that is playing at t.
func New(t float64) *Fake {
	return &Fake{Time: &t, PlayState: player.Playing}
}

// SetTime changes the reported position.
func (f *Fake) SetTime(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Time = &t
}

// LastSeek returns the most recent seek target.
func (f *Fake) LastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Seeks) == 0 {
		return 0, false
	}
	return f.Seeks[len(f.Seeks)-1], true
}

// Inspect calls fn while holding f's lock, for reading fields that
// background goroutines may write.
func (f *Fake) Inspect(fn func(f *Fake)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *Fake) enter() error {
	if f.Panic != nil {
		panic(f.Panic)
	}
	return f.Err
}

func (f *Fake) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Plays++
	f.PlayState = player.Playing
	return nil
}

func (f *Fake) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Pauses++
	f.PlayState = player.Paused
	return nil
}

func (f *Fake) Seek(seconds float64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Seeks = append(f.Seeks, seconds)
	return nil
}

func (f *Fake) CurrentTime() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return 0, err
	}
	if f.Time == nil {
		return 0, player.ErrNotReady
	}
	return *f.Time, nil
}

func (f *Fake) SetVolume(volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Volumes = append(f.Volumes, volume)
	return nil
}

func (f *Fake) Mute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Muted = true
	return nil
}

func (f *Fake) UnMute() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Muted = false
	return nil
}

func (f *Fake) SetPlaybackQuality(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Qualities = append(f.Qualities, label)
	return nil
}

func (f *Fake) State() (player.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return player.Unstarted, err
	}
	return f.PlayState, nil
}

func (f *Fake) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	f.Destroyed = true
	return nil
}
