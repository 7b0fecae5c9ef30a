package keybind

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned for an action id outside the catalog.
var ErrUnknownAction = errors.New("unknown action")

// Action identifies something a key press can trigger.
type Action string

const (
	ToggleShortcuts   Action = "toggle_shortcuts"
	LayoutSolo        Action = "layout_solo"
	LayoutSideBySide  Action = "layout_side_by_side"
	LayoutStacked     Action = "layout_stacked"
	LayoutPip         Action = "layout_pip"
	LayoutHeroStack   Action = "layout_hero_stack"
	LayoutThreeColumn Action = "layout_three_column"
	Swap              Action = "swap"
	FocusNext         Action = "focus_next"
	FocusPrev         Action = "focus_prev"
	MuteToggleS1      Action = "mute_toggle_s1"
	MuteToggleS2      Action = "mute_toggle_s2"
	MuteToggleS3      Action = "mute_toggle_s3"
	MuteAll           Action = "mute_all"
	UnmuteAll         Action = "unmute_all"
	NudgeBackS1       Action = "nudge_back_s1"
	NudgeForwardS1    Action = "nudge_forward_s1"
	NudgeBackS2       Action = "nudge_back_s2"
	NudgeForwardS2    Action = "nudge_forward_s2"
	MarkS1            Action = "mark_s1"
	MarkS2            Action = "mark_s2"
	ApplyMarkS1ToS2   Action = "apply_mark_s1_to_s2"
	ApplyMarkS2ToS1   Action = "apply_mark_s2_to_s1"
	SyncNow           Action = "sync_now"
	GoLiveS1          Action = "go_live_s1"
	GoLiveS2          Action = "go_live_s2"
	ToggleChat        Action = "toggle_chat"
	ToggleInfo        Action = "toggle_info"
	ToggleBorders     Action = "toggle_borders"
	SplitGrow         Action = "split_grow"
	SplitShrink       Action = "split_shrink"
	PlayPauseAll      Action = "play_pause_all"
)

// Actions is the catalog in declaration order. When several actions share a
// trigger, the one declared first wins.
var Actions = []Action{
	ToggleShortcuts,
	LayoutSolo,
	LayoutSideBySide,
	LayoutStacked,
	LayoutPip,
	LayoutHeroStack,
	LayoutThreeColumn,
	Swap,
	FocusNext,
	FocusPrev,
	MuteToggleS1,
	MuteToggleS2,
	MuteToggleS3,
	MuteAll,
	UnmuteAll,
	NudgeBackS1,
	NudgeForwardS1,
	NudgeBackS2,
	NudgeForwardS2,
	MarkS1,
	MarkS2,
	ApplyMarkS1ToS2,
	ApplyMarkS2ToS1,
	SyncNow,
	GoLiveS1,
	GoLiveS2,
	ToggleChat,
	ToggleInfo,
	ToggleBorders,
	SplitGrow,
	SplitShrink,
	PlayPauseAll,
}

var descriptions = map[Action]string{
	ToggleShortcuts:   "Enable or disable keyboard shortcuts",
	LayoutSolo:        "Layout: single stream",
	LayoutSideBySide:  "Layout: side by side",
	LayoutStacked:     "Layout: stacked",
	LayoutPip:         "Layout: picture-in-picture",
	LayoutHeroStack:   "Layout: hero with two stacked",
	LayoutThreeColumn: "Layout: three columns",
	Swap:              "Swap primary and secondary",
	FocusNext:         "Focus next stream",
	FocusPrev:         "Focus previous stream",
	MuteToggleS1:      "Mute/unmute stream 1",
	MuteToggleS2:      "Mute/unmute stream 2",
	MuteToggleS3:      "Mute/unmute stream 3",
	MuteAll:           "Mute all",
	UnmuteAll:         "Unmute all",
	NudgeBackS1:       "Stream 1 back 10s",
	NudgeForwardS1:    "Stream 1 forward 10s",
	NudgeBackS2:       "Stream 2 back 10s",
	NudgeForwardS2:    "Stream 2 forward 10s",
	MarkS1:            "Set marker on stream 1",
	MarkS2:            "Set marker on stream 2",
	ApplyMarkS1ToS2:   "Seek stream 2 to stream 1's marker",
	ApplyMarkS2ToS1:   "Seek stream 1 to stream 2's marker",
	SyncNow:           "Sync now",
	GoLiveS1:          "Stream 1 to live",
	GoLiveS2:          "Stream 2 to live",
	ToggleChat:        "Show/hide chat",
	ToggleInfo:        "Show/hide stream info",
	ToggleBorders:     "Show/hide borders",
	SplitGrow:         "Grow primary split",
	SplitShrink:       "Shrink primary split",
	PlayPauseAll:      "Play/pause all",
}

// Description returns a human label for a.
func (a Action) Description() string {
	return descriptions[a]
}

// Known reports whether a is in the catalog.
func (a Action) Known() bool {
	_, ok := descriptions[a]
	return ok
}

// ParseAction validates an action id.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// DefaultBindings is the factory binding table.
func DefaultBindings() map[Action][]string {
	return map[Action][]string{
		ToggleShortcuts:   {"?", "F1"},
		LayoutSolo:        {"1", "Numpad1"},
		LayoutSideBySide:  {"2", "Numpad2"},
		LayoutStacked:     {"3", "Numpad3"},
		LayoutPip:         {"4", "Numpad4"},
		LayoutHeroStack:   {"5", "Numpad5"},
		LayoutThreeColumn: {"6", "Numpad6"},
		Swap:              {"x"},
		FocusNext:         {"]"},
		FocusPrev:         {"["},
		MuteToggleS1:      {"q"},
		MuteToggleS2:      {"w"},
		MuteToggleS3:      {"e"},
		MuteAll:           {"m"},
		UnmuteAll:         {"u"},
		NudgeBackS1:       {"ArrowLeft"},
		NudgeForwardS1:    {"ArrowRight"},
		NudgeBackS2:       {"j"},
		NudgeForwardS2:    {"l"},
		MarkS1:            {"b"},
		MarkS2:            {"n"},
		ApplyMarkS1ToS2:   {","},
		ApplyMarkS2ToS1:   {"."},
		SyncNow:           {"s"},
		GoLiveS1:          {"r"},
		GoLiveS2:          {"t"},
		ToggleChat:        {"c"},
		ToggleInfo:        {"i"},
		ToggleBorders:     {"o"},
		SplitGrow:         {"=", "NumpadAdd"},
		SplitShrink:       {"-", "NumpadSubtract"},
		PlayPauseAll:      {"Space", "k"},
	}
}
