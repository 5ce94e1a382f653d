package gfx

import (
	"structs"

	"honnef.co/go/loom/lmath"
)

type GradientStop struct {
	_ structs.HostLayout

	Offset float32
	Color  ColorF
}

// ExtendMode controls how a gradient paints outside its defined range.
type ExtendMode uint32

const (
	ExtendClamp ExtendMode = iota
	ExtendRepeat
)

// CanonicalGradientLine orders a linear gradient's endpoints so that start is
// lexicographically not greater than end (x first, then y). When the points
// are swapped the caller must honor reverseStops, walking the stop list
// backwards with mirrored offsets, which reproduces the original gradient
// bit-for-bit.
func CanonicalGradientLine(start, end lmath.Point) (s, e lmath.Point, reverseStops bool) {
	if start.X > end.X || (start.X == end.X && start.Y > end.Y) {
		return end, start, true
	}
	return start, end, false
}

// StopsVisible reports whether any stop contributes color. A gradient whose
// stops are all fully transparent paints nothing and is skipped entirely.
func StopsVisible(stops []GradientStop) bool {
	for _, stop := range stops {
		if stop.Color.IsVisible() {
			return true
		}
	}
	return false
}
