package player

import (
	"encoding/json"
	"sync"
	"time"

	"multiview/internal/stream"
)

// Sender delivers a command to the render layer hosting the embedded players.
type Sender interface {
	Send(msg []byte)
}

// Command is the wire shape of a player command sent to the render layer.
type Command struct {
	Type           string      `json:"type"`
	Slot           stream.Slot `json:"slot"`
	Op             string      `json:"op"`
	Stream         stream.ID   `json:"stream,omitempty"`
	Seconds        *float64    `json:"seconds,omitempty"`
	AllowSeekAhead bool        `json:"allowSeekAhead,omitempty"`
	Volume         *int        `json:"volume,omitempty"`
	Quality        string      `json:"quality,omitempty"`
}

// Report is what the render layer sends back about a player. Time is nil
// while the embedded player cannot answer yet.
type Report struct {
	Slot  stream.Slot `json:"slot"`
	Time  *float64    `json:"time"`
	State *State      `json:"state"`
}

// Remote is a Proxy for a player that lives in the render layer. Commands are
// forwarded through a Sender; queries are answered from the latest Report,
// extrapolated by wall-clock time while the player is playing.
type Remote struct {
	mu        sync.Mutex
	slot      stream.Slot
	id        stream.ID
	sender    Sender
	now       func() time.Time
	onReady   func()
	ready     bool
	destroyed bool

	reported bool
	lastTime float64
	lastAt   time.Time
	state    State
}

// NewRemote creates the remote player and asks the render layer to embed id in slot.
func NewRemote(slot stream.Slot, id stream.ID, sender Sender, onReady func()) *Remote {
	r := &Remote{
		slot:    slot,
		id:      id,
		sender:  sender,
		now:     time.Now,
		onReady: onReady,
		state:   Unstarted,
	}
	r.send(Command{Op: "create", Stream: id})
	return r
}

// RemoteFactory returns a Factory producing Remote players bound to sender.
func RemoteFactory(sender Sender) Factory {
	return func(slot stream.Slot, id stream.ID, onReady func()) (Proxy, error) {
		return NewRemote(slot, id, sender, onReady), nil
	}
}

// Report records a position/state report. The first report marks the player ready.
func (r *Remote) Report(rep Report) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	if rep.State != nil {
		r.state = *rep.State
	}
	if rep.Time != nil {
		r.lastTime = *rep.Time
		r.lastAt = r.now()
		r.reported = true
	}
	fire := !r.ready
	r.ready = true
	onReady := r.onReady
	r.mu.Unlock()

	if fire && onReady != nil {
		go onReady()
	}
}

func (r *Remote) send(cmd Command) {
	cmd.Type = "player"
	cmd.Slot = r.slot
	b, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	if r.sender != nil {
		r.sender.Send(b)
	}
}

func (r *Remote) command(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}
	r.send(cmd)
	return nil
}

func (r *Remote) Play() error  { return r.command(Command{Op: "play"}) }
func (r *Remote) Pause() error { return r.command(Command{Op: "pause"}) }

func (r *Remote) Seek(seconds float64, allowSeekAhead bool) error {
	return r.command(Command{Op: "seekTo", Seconds: &seconds, AllowSeekAhead: allowSeekAhead})
}

func (r *Remote) SetVolume(volume int) error {
	return r.command(Command{Op: "setVolume", Volume: &volume})
}

func (r *Remote) Mute() error   { return r.command(Command{Op: "mute"}) }
func (r *Remote) UnMute() error { return r.command(Command{Op: "unMute"}) }

func (r *Remote) SetPlaybackQuality(label string) error {
	return r.command(Command{Op: "setPlaybackQuality", Quality: label})
}

// CurrentTime implements Proxy.CurrentTime.
func (r *Remote) CurrentTime() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return 0, ErrDestroyed
	}
	if !r.reported {
		return 0, ErrNotReady
	}
	t := r.lastTime
	if r.state == Playing {
		t += r.now().Sub(r.lastAt).Seconds()
	}
	return t, nil
}

// State implements Proxy.State.
func (r *Remote) State() (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return Unstarted, ErrDestroyed
	}
	if !r.ready {
		return Unstarted, ErrNotReady
	}
	return r.state, nil
}

// Destroy tells the render layer to tear the player down.
func (r *Remote) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil
	}
	r.send(Command{Op: "destroy"})
	r.destroyed = true
	return nil
}
