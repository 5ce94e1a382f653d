//go:generate stringer -type=MixBlendMode

package gfx

// MixBlendMode is the CSS mix-blend-mode of a stacking context, applied when
// compositing the context against its backdrop. The backdrop must live in an
// isolated container for any mode other than MixBlendNormal to be honored.
type MixBlendMode uint8

const (
	MixBlendNormal MixBlendMode = iota
	MixBlendMultiply
	MixBlendScreen
	MixBlendOverlay
	MixBlendDarken
	MixBlendLighten
	MixBlendColorDodge
	MixBlendColorBurn
	MixBlendHardLight
	MixBlendSoftLight
	MixBlendDifference
	MixBlendExclusion
	MixBlendHue
	MixBlendSaturation
	MixBlendColor
	MixBlendLuminosity
)
