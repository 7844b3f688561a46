package compositor

// clipAgainstActive returns the pieces of rect not covered by any rect in
// active, by repeatedly subtracting each active rectangle from the
// working set.
func clipAgainstActive(rect Rect, active []Rect) []Rect {
	pieces := []Rect{rect}
	for _, a := range active {
		var next []Rect
		for _, p := range pieces {
			next = append(next, subtractRect(p, a)...)
		}
		pieces = next
		if len(pieces) == 0 {
			return nil
		}
	}
	return pieces
}

// subtractRect returns the parts of a that are not covered by b, as up to
// four non-overlapping rectangles (top, bottom, left, right bands around
// b's intersection with a).
func subtractRect(a, b Rect) []Rect {
	if !a.Intersects(b) {
		return []Rect{a}
	}

	ix0, iy0 := max32(a.X, b.X), max32(a.Y, b.Y)
	ix1, iy1 := min32(a.X+a.W, b.X+b.W), min32(a.Y+a.H, b.Y+b.H)

	var out []Rect
	if iy0 > a.Y {
		out = append(out, Rect{X: a.X, Y: a.Y, W: a.W, H: iy0 - a.Y})
	}
	if iy1 < a.Y+a.H {
		out = append(out, Rect{X: a.X, Y: iy1, W: a.W, H: a.Y + a.H - iy1})
	}
	if ix0 > a.X {
		out = append(out, Rect{X: a.X, Y: iy0, W: ix0 - a.X, H: iy1 - iy0})
	}
	if ix1 < a.X+a.W {
		out = append(out, Rect{X: ix1, Y: iy0, W: a.X + a.W - ix1, H: iy1 - iy0})
	}
	return out
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
