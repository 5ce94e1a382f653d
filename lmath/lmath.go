// Package lmath provides the fixed-layout f32 geometry used throughout the
// scene builder. Layout coordinates are CSS pixels relative to the nearest
// reference frame; device coordinates are layout coordinates scaled by a
// DevicePixelScale. The wider f64 curve types only appear at package
// boundaries and are converted with TransformFromKurbo.
package lmath

import (
	"structs"

	"golang.org/x/exp/constraints"
	"honnef.co/go/curve"
)

type Point struct {
	_ structs.HostLayout

	X, Y float32
}

func Pt(x, y float32) Point { return Point{X: x, Y: y} }

func (p Point) Add(v Vector) Point { return Point{X: p.X + v.X, Y: p.Y + v.Y} }
func (p Point) Sub(o Point) Vector { return Vector{X: p.X - o.X, Y: p.Y - o.Y} }

type Vector struct {
	_ structs.HostLayout

	X, Y float32
}

func Vec(x, y float32) Vector { return Vector{X: x, Y: y} }

func (v Vector) Add(o Vector) Vector { return Vector{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vector) Neg() Vector         { return Vector{X: -v.X, Y: -v.Y} }
func (v Vector) IsZero() bool        { return v.X == 0 && v.Y == 0 }

type Size struct {
	_ structs.HostLayout

	W, H float32
}

func (s Size) IsEmpty() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle in origin+size form. A rect with
// non-positive width or height is empty; empty rects are preserved as-is by
// Translate and collapse to the zero rect under Intersection.
type Rect struct {
	_ structs.HostLayout

	Origin Point
	Size   Size
}

func NewRect(x, y, w, h float32) Rect {
	return Rect{Origin: Point{X: x, Y: y}, Size: Size{W: w, H: h}}
}

func (r Rect) IsEmpty() bool { return r.Size.IsEmpty() }

func (r Rect) Min() Point { return r.Origin }
func (r Rect) Max() Point {
	return Point{X: r.Origin.X + r.Size.W, Y: r.Origin.Y + r.Size.H}
}

func (r Rect) Translate(v Vector) Rect {
	r.Origin = r.Origin.Add(v)
	return r
}

func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	minX := min(r.Origin.X, o.Origin.X)
	minY := min(r.Origin.Y, o.Origin.Y)
	maxX := max(r.Max().X, o.Max().X)
	maxY := max(r.Max().Y, o.Max().Y)
	return NewRect(minX, minY, maxX-minX, maxY-minY)
}

func (r Rect) Intersection(o Rect) (Rect, bool) {
	minX := max(r.Origin.X, o.Origin.X)
	minY := max(r.Origin.Y, o.Origin.Y)
	maxX := min(r.Max().X, o.Max().X)
	maxY := min(r.Max().Y, o.Max().Y)
	if maxX <= minX || maxY <= minY {
		return Rect{}, false
	}
	return NewRect(minX, minY, maxX-minX, maxY-minY), true
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X < r.Max().X &&
		p.Y >= r.Origin.Y && p.Y < r.Max().Y
}

func (r Rect) ContainsRect(o Rect) bool {
	if o.IsEmpty() {
		return true
	}
	return o.Origin.X >= r.Origin.X && o.Max().X <= r.Max().X &&
		o.Origin.Y >= r.Origin.Y && o.Max().Y <= r.Max().Y
}

type SideOffsets struct {
	_ structs.HostLayout

	Top, Right, Bottom, Left float32
}

func (so SideOffsets) IsZero() bool {
	return so.Top == 0 && so.Right == 0 && so.Bottom == 0 && so.Left == 0
}

// DevicePixelScale is the ratio of device pixels per layout pixel, i.e. the
// hidpi factor of the output surface.
type DevicePixelScale float32

// Transform is a packed f32 2x3 affine matrix, column-major, matching the
// layout of the serialized display list. The zero value is NOT the identity.
type Transform struct {
	_ structs.HostLayout

	Matrix      [4]float32
	Translation [2]float32
}

var Identity = Transform{
	Matrix: [4]float32{1, 0, 0, 1},
}

func Translation(v Vector) Transform {
	return Transform{
		Matrix:      [4]float32{1, 0, 0, 1},
		Translation: [2]float32{v.X, v.Y},
	}
}

func (t Transform) Mul(other Transform) Transform {
	return Transform{
		Matrix: [4]float32{
			t.Matrix[0]*other.Matrix[0] + t.Matrix[2]*other.Matrix[1],
			t.Matrix[1]*other.Matrix[0] + t.Matrix[3]*other.Matrix[1],
			t.Matrix[0]*other.Matrix[2] + t.Matrix[2]*other.Matrix[3],
			t.Matrix[1]*other.Matrix[2] + t.Matrix[3]*other.Matrix[3],
		},
		Translation: [2]float32{
			t.Matrix[0]*other.Translation[0] +
				t.Matrix[2]*other.Translation[1] +
				t.Translation[0],
			t.Matrix[1]*other.Translation[0] +
				t.Matrix[3]*other.Translation[1] +
				t.Translation[1],
		},
	}
}

func (t Transform) Apply(p Point) Point {
	return Point{
		X: t.Matrix[0]*p.X + t.Matrix[2]*p.Y + t.Translation[0],
		Y: t.Matrix[1]*p.X + t.Matrix[3]*p.Y + t.Translation[1],
	}
}

// IsAxisAligned reports whether the transform maps axis-aligned rectangles to
// axis-aligned rectangles, i.e. has no rotation or shear component.
func (t Transform) IsAxisAligned() bool {
	return t.Matrix[1] == 0 && t.Matrix[2] == 0
}

func TransformFromKurbo(transform curve.Affine) Transform {
	c := transform.Coefficients()
	return Transform{
		Matrix:      [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])},
		Translation: [2]float32{float32(c[4]), float32(c[5])},
	}
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
