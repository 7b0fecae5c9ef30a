package geometry

import "math"

const (
	MinPrimary       = 0.2
	MaxPrimary       = 0.8
	PrimaryStep      = 0.05
	MinChatWidth     = 240.0
	DefaultChatWidth = 340.0
)

// Split holds the user-adjustable split dimensions. Primary is the fraction
// of the stage given to the primary cell in side-by-side and stacked layouts;
// the render layer sizes its cells from it and reports them back as measurements.
type Split struct {
	Primary   float64 `json:"primary"`
	ChatWidth float64 `json:"chatWidth"`
}

// DefaultSplit is an even split with the default chat width.
var DefaultSplit = Split{Primary: 0.5, ChatWidth: DefaultChatWidth}

// Normalize clamps Primary to [MinPrimary, MaxPrimary] and ChatWidth to at
// least MinChatWidth. Zero values take the defaults.
func (s Split) Normalize() Split {
	if s.Primary == 0 {
		s.Primary = DefaultSplit.Primary
	}
	if s.ChatWidth == 0 {
		s.ChatWidth = DefaultSplit.ChatWidth
	}
	s.Primary = clamp(math.Round(s.Primary*100)/100, MinPrimary, MaxPrimary)
	s.ChatWidth = max(s.ChatWidth, MinChatWidth)
	return s
}

// Grow moves the split one step toward the primary cell.
func (s Split) Grow() Split {
	s.Primary += PrimaryStep
	return s.Normalize()
}

// Shrink moves the split one step away from the primary cell.
func (s Split) Shrink() Split {
	s.Primary -= PrimaryStep
	return s.Normalize()
}

// chatWidth returns the chat panel width for viewport, at most half of it.
func (s Split) chatWidth(viewport Size) float64 {
	return clamp(s.Normalize().ChatWidth, MinChatWidth, viewport.Width/2)
}
