package gfx

import (
	"structs"

	"honnef.co/go/color"
)

// ColorF is a straight-alpha RGBA color with f32 components, the form colors
// take in the serialized display list and in interned primitive keys.
type ColorF struct {
	_ structs.HostLayout

	R, G, B, A float32
}

var (
	White       = ColorF{R: 1, G: 1, B: 1, A: 1}
	Black       = ColorF{A: 1}
	Transparent = ColorF{}
)

func (c ColorF) IsOpaque() bool { return c.A >= 1 }

// IsVisible reports whether painting this color can affect any pixel.
func (c ColorF) IsVisible() bool { return c.A > 0 }

func (c ColorF) ScaleAlpha(factor float32) ColorF {
	c.A *= factor
	return c
}

func (c ColorF) Premul() [4]float32 {
	return [4]float32{c.R * c.A, c.G * c.A, c.B * c.A, c.A}
}

// FromColor converts a color.Color into the packed form. Values outside
// [0, 1] are kept; clamping is the rasterizer's concern.
func FromColor(c *color.Color) ColorF {
	cc := c.Convert(color.LinearSRGB)
	return ColorF{
		R: float32(cc.Values[0]),
		G: float32(cc.Values[1]),
		B: float32(cc.Values[2]),
		A: float32(cc.Values[3]),
	}
}
