package gfx

import (
	"structs"

	"honnef.co/go/loom/lmath"
)

// FilterKind discriminates FilterOp. The set matches CSS filter functions
// plus the internal composite kinds produced by SVG filter chains.
type FilterKind uint32

const (
	FilterIdentity FilterKind = iota
	FilterBlur
	FilterBrightness
	FilterContrast
	FilterGrayscale
	FilterHueRotate
	FilterInvert
	FilterOpacity
	FilterSaturate
	FilterSepia
	FilterDropShadow
	FilterColorMatrix
	FilterComponentTransfer
	FilterFlood
)

// FilterOp is one stage of a CSS filter chain. It is a plain value so that it
// can be serialized in the display list and used in interned picture keys.
type FilterOp struct {
	_ structs.HostLayout

	Kind FilterKind
	// Amount is the scalar parameter of the single-valued filters
	// (brightness, contrast, grayscale, hue-rotate in degrees, invert,
	// opacity, saturate, sepia).
	Amount float32
	// Blur radii for FilterBlur, in layout pixels.
	BlurX, BlurY float32
	Shadow       Shadow
	// Color matrix for FilterColorMatrix, row major 4x5.
	Matrix [20]float32
	// Flood color for FilterFlood.
	Color ColorF
}

func Blur(x, y float32) FilterOp {
	return FilterOp{Kind: FilterBlur, BlurX: x, BlurY: y}
}

func Opacity(amount float32) FilterOp {
	return FilterOp{Kind: FilterOpacity, Amount: amount}
}

// IsNoop reports whether applying the filter leaves every pixel unchanged.
// Noop filters are elided at scene build time so that e.g. filter:
// brightness(1.0) does not force an intermediate surface.
func (op FilterOp) IsNoop() bool {
	switch op.Kind {
	case FilterIdentity:
		return true
	case FilterBlur:
		return op.BlurX == 0 && op.BlurY == 0
	case FilterBrightness, FilterContrast, FilterOpacity, FilterSaturate:
		return op.Amount == 1
	case FilterGrayscale, FilterHueRotate, FilterInvert, FilterSepia:
		return op.Amount == 0
	case FilterDropShadow:
		return op.Shadow.Offset.IsZero() && op.Shadow.BlurRadius == 0 && !op.Shadow.Color.IsVisible()
	case FilterColorMatrix:
		return op.Matrix == identityMatrix
	case FilterComponentTransfer, FilterFlood:
		// Component transfer identity is decided by the associated
		// FilterData, flood never by the op itself.
		return false
	default:
		return false
	}
}

var identityMatrix = [20]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
	0, 0, 0, 0,
}

// ComponentTransferFuncType is the type of one channel's transfer function in
// an SVG feComponentTransfer.
type ComponentTransferFuncType uint8

const (
	ComponentTransferIdentity ComponentTransferFuncType = iota
	ComponentTransferTable
	ComponentTransferDiscrete
	ComponentTransferLinear
	ComponentTransferGamma
)

// FilterData carries the per-channel transfer functions of a component
// transfer filter. The value tables live in the display list's side channel
// and are attached when the item is decoded.
type FilterData struct {
	RFunc, GFunc, BFunc, AFunc ComponentTransferFuncType
	RValues, GValues, BValues, AValues []float32
}

// IsIdentity reports whether every channel uses the identity function, in
// which case the whole filter stage is dropped at build time.
func (fd *FilterData) IsIdentity() bool {
	return fd.RFunc == ComponentTransferIdentity &&
		fd.GFunc == ComponentTransferIdentity &&
		fd.BFunc == ComponentTransferIdentity &&
		fd.AFunc == ComponentTransferIdentity
}

// FilterPrimitiveKind discriminates the nodes of an SVG filter graph.
type FilterPrimitiveKind uint32

const (
	FilterPrimitiveBlend FilterPrimitiveKind = iota
	FilterPrimitiveFlood
	FilterPrimitiveBlur
	FilterPrimitiveOpacity
	FilterPrimitiveColorMatrix
	FilterPrimitiveOffset
	FilterPrimitiveComposite
)

// FilterPrimitive is one node of an SVG filter graph, referencing its inputs
// by index into the graph's primitive list. A negative input selects the
// original source graphic.
type FilterPrimitive struct {
	_ structs.HostLayout

	Kind   FilterPrimitiveKind
	Input1 int32
	Input2 int32
	Amount float32
	Color  ColorF
	Offset lmath.Vector
}

// Shadow is a push-shadow payload: every primitive drawn until the matching
// pop-all-shadows is re-drawn offset, recolored, and blurred.
type Shadow struct {
	_ structs.HostLayout

	Offset     lmath.Vector
	Color      ColorF
	BlurRadius float32
}
