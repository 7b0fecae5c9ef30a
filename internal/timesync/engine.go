package timesync

import (
	"errors"
	"fmt"
	"math"

	"multiview/internal/player"
	"multiview/internal/stream"
)

const (
	// MaxBehindLive caps the behind-live reading, in seconds.
	MaxBehindLive = 600.0
	// LiveSeekTarget is far enough ahead that the player clamps it to its live edge.
	LiveSeekTarget = 1e7
	// NudgeStep is the default manual nudge, in seconds.
	NudgeStep = 10.0
)

// ErrUnknownStrategy is returned for a move strategy other than auto, s1 or s2.
var ErrUnknownStrategy = errors.New("unknown move strategy")

// MoveStrategy selects which player SyncNow moves.
type MoveStrategy string

const (
	MoveAuto MoveStrategy = "auto"
	MoveS1   MoveStrategy = "s1"
	MoveS2   MoveStrategy = "s2"
)

// ParseMoveStrategy validates a strategy name.
func ParseMoveStrategy(s string) (MoveStrategy, error) {
	switch m := MoveStrategy(s); m {
	case MoveAuto, MoveS1, MoveS2:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Drift is the position difference t1 - t2.
func Drift(t1, t2 float64) float64 {
	return t1 - t2
}

// Behind returns how far t trails liveHead, clamped to [0, MaxBehindLive].
// Non-finite input reads as 0.
func Behind(liveHead, t float64) float64 {
	d := liveHead - t
	if math.IsNaN(d) {
		return 0
	}
	return max(0, min(MaxBehindLive, d))
}

// Correction is the seek SyncNow issued.
type Correction struct {
	Slot   stream.Slot `json:"slot"`
	Target float64     `json:"target"`
}

// Sample is one drift/behind-live reading.
type Sample struct {
	Drift  float64                 `json:"drift"`
	Behind map[stream.Slot]float64 `json:"behind"`
	Times  map[stream.Slot]float64 `json:"times,omitempty"`
}

type slotState struct {
	player   *player.Safe
	mark     *float64
	liveHead float64
	behind   float64
}

// Engine tracks marks, drift and live heads for every slot. It is not safe
// for concurrent use; the owner serialises access.
type Engine struct {
	slots    [3]slotState
	drift    float64
	target   float64
	strategy MoveStrategy
}

// New returns an engine with no players attached.
func New() *Engine {
	return &Engine{strategy: MoveAuto}
}

func (e *Engine) slot(s stream.Slot) *slotState {
	if !s.Valid() {
		return nil
	}
	return &e.slots[s.Index()]
}

// Attach gives slot a player and restarts its live tracking. A restored
// marker is kept.
func (e *Engine) Attach(s stream.Slot, p *player.Safe) {
	st := e.slot(s)
	if st == nil {
		return
	}
	*st = slotState{player: p, mark: st.mark}
}

// Detach drops slot's player, mark and live tracking, so its readings
// default to 0 from the next sample on.
func (e *Engine) Detach(s stream.Slot) {
	if st := e.slot(s); st != nil {
		*st = slotState{}
	}
}

// Player returns slot's player; nil when none is attached.
func (e *Engine) Player(s stream.Slot) *player.Safe {
	if st := e.slot(s); st != nil {
		return st.player
	}
	return nil
}

// SetMarker captures slot's current time. It is a no-op when the time is unavailable.
func (e *Engine) SetMarker(s stream.Slot) bool {
	st := e.slot(s)
	if st == nil {
		return false
	}
	t, ok := st.player.CurrentTime()
	if !ok {
		return false
	}
	st.mark = &t
	return true
}

// Mark returns slot's captured marker.
func (e *Engine) Mark(s stream.Slot) (float64, bool) {
	st := e.slot(s)
	if st == nil || st.mark == nil {
		return 0, false
	}
	return *st.mark, true
}

// ApplyMarker seeks to to from's marker. It is a no-op when from has no
// marker or to is not ready.
func (e *Engine) ApplyMarker(from, to stream.Slot) bool {
	src, dst := e.slot(from), e.slot(to)
	if src == nil || dst == nil || src.mark == nil {
		return false
	}
	if _, ready := dst.player.CurrentTime(); !ready {
		return false
	}
	return dst.player.Seek(*src.mark)
}

// SyncNow moves S1 or S2 so that t1 - t2 approaches the target drift. With
// MoveAuto, S2 is moved when the current drift is below the target and S1
// otherwise; MoveS1 and MoveS2 force the moved slot. It is a no-op unless
// both times are available.
func (e *Engine) SyncNow() (Correction, bool) {
	p1, p2 := e.slots[0].player, e.slots[1].player
	t1, ok1 := p1.CurrentTime()
	t2, ok2 := p2.CurrentTime()
	if !ok1 || !ok2 {
		return Correction{}, false
	}

	desired := e.target
	move := e.strategy
	if move == MoveAuto {
		if Drift(t1, t2) < desired {
			move = MoveS2
		} else {
			move = MoveS1
		}
	}

	var c Correction
	var ok bool
	switch move {
	case MoveS2:
		c = Correction{Slot: stream.S2, Target: t1 - desired}
		ok = p2.Seek(c.Target)
	default:
		c = Correction{Slot: stream.S1, Target: t2 + desired}
		ok = p1.Seek(c.Target)
	}
	return c, ok
}

// Sample reads every attached player, advances live heads and recomputes
// drift and behind-live. Unavailable readings are 0.
func (e *Engine) Sample() Sample {
	out := Sample{
		Behind: make(map[stream.Slot]float64, len(stream.Slots)),
		Times:  make(map[stream.Slot]float64, len(stream.Slots)),
	}
	var times [3]float64
	var ok [3]bool
	for i := range e.slots {
		st := &e.slots[i]
		slot := stream.Slots[i]
		t, has := st.player.CurrentTime()
		if !has {
			st.behind = 0
			out.Behind[slot] = 0
			continue
		}
		times[i], ok[i] = t, true
		st.liveHead = max(st.liveHead, t)
		st.behind = Behind(st.liveHead, t)
		out.Behind[slot] = st.behind
		out.Times[slot] = t
	}

	e.drift = 0
	if ok[0] && ok[1] {
		e.drift = Drift(times[0], times[1])
	}
	out.Drift = e.drift
	return out
}

// GoLive seeks slot to its live edge and restarts its live-head tracking.
func (e *Engine) GoLive(s stream.Slot) bool {
	st := e.slot(s)
	if st == nil || st.player == nil {
		return false
	}
	st.liveHead = 0
	st.behind = 0
	return st.player.Seek(LiveSeekTarget)
}

// Nudge seeks slot by delta seconds relative to its current time.
func (e *Engine) Nudge(s stream.Slot, delta float64) bool {
	st := e.slot(s)
	if st == nil {
		return false
	}
	t, ok := st.player.CurrentTime()
	if !ok {
		return false
	}
	return st.player.Seek(t + delta)
}

// Drift returns the last sampled t1 - t2.
func (e *Engine) Drift() float64 { return e.drift }

// LiveHead returns slot's running maximum observed time.
func (e *Engine) LiveHead(s stream.Slot) float64 {
	if st := e.slot(s); st != nil {
		return st.liveHead
	}
	return 0
}

// BehindLive returns slot's last behind-live reading.
func (e *Engine) BehindLive(s stream.Slot) float64 {
	if st := e.slot(s); st != nil {
		return st.behind
	}
	return 0
}

// TargetDrift returns the desired t1 - t2.
func (e *Engine) TargetDrift() float64 { return e.target }

// SetTargetDrift sets the desired t1 - t2. Non-finite values are ignored.
func (e *Engine) SetTargetDrift(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	e.target = seconds
}

// Strategy returns the move strategy.
func (e *Engine) Strategy() MoveStrategy { return e.strategy }

// SetStrategy changes the move strategy.
func (e *Engine) SetStrategy(m MoveStrategy) error {
	if _, err := ParseMoveStrategy(string(m)); err != nil {
		return err
	}
	e.strategy = m
	return nil
}
