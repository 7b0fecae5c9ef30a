package multiview

import (
	"fmt"

	"multiview/internal/geometry"
	"multiview/internal/keybind"
	"multiview/internal/settings"
	"multiview/internal/stream"
	"multiview/internal/timesync"
)

// BindingView describes one action for the shortcut editor.
type BindingView struct {
	Action      keybind.Action `json:"action"`
	Description string         `json:"description"`
	Triggers    []string       `json:"triggers"`
	Duplicate   bool           `json:"duplicate,omitempty"`
}

// Bindings is the shortcut editor's view of the binding table.
type Bindings struct {
	Enabled   bool                        `json:"enabled"`
	Actions   []BindingView               `json:"actions"`
	Conflicts map[string][]keybind.Action `json:"conflicts"`
}

// HandleKey resolves ev and performs the action it triggers, if any.
func (c *Controller) HandleKey(ev keybind.Event) (keybind.Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.keys.Resolve(ev)
	if !ok {
		return "", false
	}
	c.performLocked(a)
	return a, true
}

// Perform runs an action directly, bypassing key resolution.
func (c *Controller) Perform(a keybind.Action) error {
	if !a.Known() {
		return fmt.Errorf("%w: %q", keybind.ErrUnknownAction, a)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.performLocked(a)
	return nil
}

var layoutActions = map[keybind.Action]geometry.Mode{
	keybind.LayoutSolo:        geometry.ModeSolo,
	keybind.LayoutSideBySide:  geometry.ModeSideBySide,
	keybind.LayoutStacked:     geometry.ModeStacked,
	keybind.LayoutPip:         geometry.ModePip,
	keybind.LayoutHeroStack:   geometry.ModeHeroStack,
	keybind.LayoutThreeColumn: geometry.ModeThreeColumn,
}

func (c *Controller) performLocked(a keybind.Action) {
	c.log.Debug("action", "action", string(a))
	if c.metrics != nil {
		c.metrics.IncActions(string(a))
	}

	if m, ok := layoutActions[a]; ok {
		c.setModeLocked(m)
		return
	}

	switch a {
	case keybind.ToggleShortcuts:
		c.keys.SetEnabled(!c.keys.Enabled())
		c.publishLocked()
	case keybind.Swap:
		c.layout.Swap = !c.layout.Swap
		c.relayoutLocked()
	case keybind.FocusNext:
		c.cycleFocusLocked(1)
	case keybind.FocusPrev:
		c.cycleFocusLocked(-1)
	case keybind.MuteToggleS1:
		c.toggleMuteLocked(stream.S1)
	case keybind.MuteToggleS2:
		c.toggleMuteLocked(stream.S2)
	case keybind.MuteToggleS3:
		c.toggleMuteLocked(stream.S3)
	case keybind.MuteAll, keybind.UnmuteAll:
		for _, s := range stream.Slots {
			c.setMutedLocked(s, a == keybind.MuteAll)
		}
		c.commitLocked(settings.KeySlots)
	case keybind.NudgeBackS1:
		c.sync.Nudge(stream.S1, -timesync.NudgeStep)
	case keybind.NudgeForwardS1:
		c.sync.Nudge(stream.S1, timesync.NudgeStep)
	case keybind.NudgeBackS2:
		c.sync.Nudge(stream.S2, -timesync.NudgeStep)
	case keybind.NudgeForwardS2:
		c.sync.Nudge(stream.S2, timesync.NudgeStep)
	case keybind.MarkS1:
		c.setMarkerLocked(stream.S1)
	case keybind.MarkS2:
		c.setMarkerLocked(stream.S2)
	case keybind.ApplyMarkS1ToS2:
		c.sync.ApplyMarker(stream.S1, stream.S2)
	case keybind.ApplyMarkS2ToS1:
		c.sync.ApplyMarker(stream.S2, stream.S1)
	case keybind.SyncNow:
		c.syncNowLocked()
	case keybind.GoLiveS1:
		c.sync.GoLive(stream.S1)
	case keybind.GoLiveS2:
		c.sync.GoLive(stream.S2)
	case keybind.ToggleChat:
		c.togglePanelLocked(PanelChat)
	case keybind.ToggleInfo:
		c.togglePanelLocked(PanelInfo)
	case keybind.ToggleBorders:
		c.togglePanelLocked(PanelBorders)
	case keybind.SplitGrow:
		c.layout.Split = c.layout.Split.Grow()
		c.relayoutLocked()
	case keybind.SplitShrink:
		c.layout.Split = c.layout.Split.Shrink()
		c.relayoutLocked()
	case keybind.PlayPauseAll:
		c.playPauseAllLocked()
	}
}

func (c *Controller) toggleMuteLocked(s stream.Slot) {
	c.setMutedLocked(s, !c.slots[s.Index()].muted)
	c.commitLocked(settings.KeySlots)
}

// Bindings returns the binding table with duplicate triggers flagged.
func (c *Controller) Bindings() Bindings {
	c.mu.Lock()
	defer c.mu.Unlock()
	tbl := c.keys.Table()
	dup := make(map[keybind.Action]bool)
	for _, a := range tbl.Duplicates() {
		dup[a] = true
	}
	out := Bindings{
		Enabled:   c.keys.Enabled(),
		Actions:   make([]BindingView, 0, len(keybind.Actions)),
		Conflicts: tbl.Conflicts(),
	}
	for _, a := range keybind.Actions {
		out.Actions = append(out.Actions, BindingView{
			Action:      a,
			Description: a.Description(),
			Triggers:    tbl.Triggers(a),
			Duplicate:   dup[a],
		})
	}
	return out
}

// Bind sets trigger index of action.
func (c *Controller) Bind(a keybind.Action, index int, trigger string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.keys.Table().Bind(a, index, trigger); err != nil {
		return err
	}
	c.commitLocked(settings.KeyKeybindings)
	return nil
}

// Unbind clears trigger index of action.
func (c *Controller) Unbind(a keybind.Action, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.keys.Table().Unbind(a, index); err != nil {
		return err
	}
	c.commitLocked(settings.KeyKeybindings)
	return nil
}

// ResetBindings restores the factory binding table.
func (c *Controller) ResetBindings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys.Table().Reset()
	c.commitLocked(settings.KeyKeybindings)
}
