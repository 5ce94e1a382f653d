package gfx

import (
	"structs"

	"honnef.co/go/loom/lmath"
)

type BorderStyle uint32

const (
	BorderStyleNone BorderStyle = iota
	BorderStyleSolid
	BorderStyleDouble
	BorderStyleDotted
	BorderStyleDashed
	BorderStyleHidden
	BorderStyleGroove
	BorderStyleRidge
	BorderStyleInset
	BorderStyleOutset
)

type BorderSide struct {
	_ structs.HostLayout

	Color ColorF
	Style BorderStyle
}

// BorderRadius holds the corner radii of a rounded rectangle. All zero means
// a plain rectangle; such a clip is "simple" for blit-reason purposes.
type BorderRadius struct {
	_ structs.HostLayout

	TopLeft     lmath.Size
	TopRight    lmath.Size
	BottomLeft  lmath.Size
	BottomRight lmath.Size
}

func (br BorderRadius) IsZero() bool {
	return br == BorderRadius{}
}

type Border struct {
	_ structs.HostLayout

	Widths lmath.SideOffsets
	Top    BorderSide
	Right  BorderSide
	Bottom BorderSide
	Left   BorderSide
	Radius BorderRadius
}

// BoxShadowClipMode selects whether a box shadow paints outside the border
// box (outset) or inside it (inset).
type BoxShadowClipMode uint32

const (
	BoxShadowOutset BoxShadowClipMode = iota
	BoxShadowInset
)

type BoxShadow struct {
	_ structs.HostLayout

	Color        ColorF
	Offset       lmath.Vector
	BlurRadius   float32
	SpreadRadius float32
	BorderRadius float32
	ClipMode     BoxShadowClipMode
}

// LineOrientation is the axis of a line decoration (underline, overline,
// strike-through).
type LineOrientation uint32

const (
	LineHorizontal LineOrientation = iota
	LineVertical
)

type LineStyle uint32

const (
	LineSolid LineStyle = iota
	LineDotted
	LineDashed
	LineWavy
)

type ImageRendering uint32

const (
	ImageRenderingAuto ImageRendering = iota
	ImageRenderingCrispEdges
	ImageRenderingPixelated
)

type AlphaType uint32

const (
	AlphaPremultiplied AlphaType = iota
	AlphaStraight
)
