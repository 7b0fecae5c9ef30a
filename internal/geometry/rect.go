package geometry

// NoiseFloor is the size in px at or below which a measured dimension is
// treated as unmeasured.
const NoiseFloor = 2.0

// Visibility of a rendered rectangle.
type Visibility string

const (
	Visible Visibility = "visible"
	Hidden  Visibility = "hidden"
)

// Rect is a rectangle relative to the stage origin.
type Rect struct {
	Left       float64    `json:"left"`
	Top        float64    `json:"top"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Visibility Visibility `json:"visibility"`
}

// Valid reports whether both dimensions exceed the noise floor.
func (r Rect) Valid() bool {
	return r.Width > NoiseFloor && r.Height > NoiseFloor
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.Left < o.Right() && o.Left < r.Right() && r.Top < o.Bottom() && o.Top < r.Bottom()
}

func (r Rect) visible() Rect {
	r.Visibility = Visible
	return r
}

// Offstage is where a slot that cannot be placed is parked. It keeps a
// non-zero size so the embedded player never sees a zero-sized container.
var Offstage = Rect{Left: -10000, Top: -10000, Width: 320, Height: 180, Visibility: Hidden}

// Size is a width/height pair such as the viewport.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions exceed the noise floor.
func (s Size) Valid() bool {
	return s.Width > NoiseFloor && s.Height > NoiseFloor
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return max(lo, min(hi, v))
}
