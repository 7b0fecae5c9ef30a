package geometry

const (
	// Padding is kept clear around the stage edge in analytic layouts.
	Padding = 8.0
	// Gap separates tiles in analytic layouts.
	Gap = 8.0
	// Aspect is the width/height ratio of every embedded player.
	Aspect = 16.0 / 9.0
)

// inner returns the stage minus Padding on every side.
func inner(stage Size) Rect {
	return Rect{
		Left:   Padding,
		Top:    Padding,
		Width:  stage.Width - 2*Padding,
		Height: stage.Height - 2*Padding,
	}
}

// threeColumn splits the inner area into three equal cells and centers a
// 16:9 tile of the largest fitting size in each.
func threeColumn(in Rect) []Rect {
	cellW := (in.Width - 2*Gap) / 3
	w := min(cellW, in.Height*Aspect)
	h := w / Aspect
	if w <= 0 || h <= 0 {
		return nil
	}

	out := make([]Rect, 3)
	for i := range out {
		cellLeft := in.Left + float64(i)*(cellW+Gap)
		out[i] = Rect{
			Left:   cellLeft + (cellW-w)/2,
			Top:    in.Top + (in.Height-h)/2,
			Width:  w,
			Height: h,
		}
	}
	return out
}

// heroStack places one hero tile beside two stacked tiles. All tiles are
// 16:9 and the hero is exactly as tall as the stack (two tiles plus the gap).
// Returns hero, upper, lower.
func heroStack(in Rect) []Rect {
	// hero width = 2*stack width + Gap*Aspect, so the row width is
	// 3*ws + Gap*Aspect + Gap.
	wsByWidth := (in.Width - Gap - Gap*Aspect) / 3
	wsByHeight := (in.Height - Gap) / 2 * Aspect
	ws := min(wsByWidth, wsByHeight)
	if ws <= 0 {
		return nil
	}
	hs := ws / Aspect
	hh := 2*hs + Gap
	wh := hh * Aspect

	groupW := wh + Gap + ws
	x := in.Left + (in.Width-groupW)/2
	y := in.Top + (in.Height-hh)/2
	stackX := x + wh + Gap

	return []Rect{
		{Left: x, Top: y, Width: wh, Height: hh},
		{Left: stackX, Top: y, Width: ws, Height: hs},
		{Left: stackX, Top: y + hs + Gap, Width: ws, Height: hs},
	}
}
