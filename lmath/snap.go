package lmath

import (
	"structs"

	"github.com/chewxy/math32"
)

// RasterSpaceKind selects how a subtree is rasterized relative to the screen.
type RasterSpaceKind uint8

const (
	// RasterScreen rasters in device space; content is re-rastered when its
	// screen-space transform changes.
	RasterScreen RasterSpaceKind = iota
	// RasterLocal rasters in local space at a fixed scale, allowing the
	// result to be reused under animation.
	RasterLocal
)

type RasterSpace struct {
	_ structs.HostLayout

	Kind  RasterSpaceKind
	Scale float32
}

// Matches reports whether two raster spaces request the same rasterization.
// The scale only matters for local rasterization.
func (rs RasterSpace) Matches(o RasterSpace) bool {
	if rs.Kind != o.Kind {
		return false
	}
	return rs.Kind != RasterLocal || rs.Scale == o.Scale
}

// SpaceSnapper rounds layout geometry to device pixel boundaries. Snapping is
// only valid while the accumulated transform of the positioning node is
// axis-aligned; a snapper bound to a rotated or 3D-transformed node passes
// geometry through unchanged.
type SpaceSnapper struct {
	Scale   DevicePixelScale
	Enabled bool
}

func (sn SpaceSnapper) snap(v float32) float32 {
	s := float32(sn.Scale)
	return math32.Round(v*s) / s
}

func (sn SpaceSnapper) SnapPoint(p Point) Point {
	if !sn.Enabled {
		return p
	}
	return Point{X: sn.snap(p.X), Y: sn.snap(p.Y)}
}

// SnapRect snaps both corners of r independently. Width and height may grow
// or shrink by up to one device pixel; an empty rect stays empty.
func (sn SpaceSnapper) SnapRect(r Rect) Rect {
	if !sn.Enabled || r.IsEmpty() {
		return r
	}
	mn := sn.SnapPoint(r.Min())
	mx := sn.SnapPoint(r.Max())
	return NewRect(mn.X, mn.Y, mx.X-mn.X, mx.Y-mn.Y)
}
