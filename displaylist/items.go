// Package displaylist defines the serialized display list: a flat,
// little-endian stream of tagged drawing, clip and scroll commands, plus
// side-channel sections for variable-length payloads (gradient stops, glyph
// runs, filter descriptions, complex clip regions). The item stream is
// self-describing; a cursor over it yields one decoded item at a time without
// materializing the whole list.
package displaylist

import (
	"structs"

	"github.com/go-text/typesetting/font"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
)

type PipelineID struct {
	_ structs.HostLayout

	Namespace uint32
	ID        uint32
}

// SpatialID names a spatial node declared by the display list. IDs 0 and 1
// are reserved for the pipeline's root reference frame and root scroll node.
type SpatialID struct {
	_ structs.HostLayout

	ID       uint32
	Pipeline PipelineID
}

func RootReferenceFrameID(p PipelineID) SpatialID { return SpatialID{ID: 0, Pipeline: p} }
func RootScrollNodeID(p PipelineID) SpatialID     { return SpatialID{ID: 1, Pipeline: p} }

const firstSpatialID = 2

// ClipID names a clip declared by the display list. ID 0 is the root clip,
// meaning "unclipped".
type ClipID struct {
	_ structs.HostLayout

	ID       uint32
	Pipeline PipelineID
}

func RootClipID(p PipelineID) ClipID { return ClipID{ID: 0, Pipeline: p} }

func (c ClipID) IsRoot() bool { return c.ID == 0 }

const firstClipID = 1

// ItemTag is a hit-testing tag. The zero value means "no tag".
type ItemTag struct {
	_ structs.HostLayout

	ID   uint64
	Info uint32
	_pad uint32
}

func (t ItemTag) IsValid() bool { return t.ID != 0 || t.Info != 0 }

type PrimitiveFlags uint32

const (
	PrimFlagIsBackfaceVisible PrimitiveFlags = 1 << iota
	PrimFlagIsScrollbarContainer
	PrimFlagPreferCompositorSurface
)

// CommonItemProperties is carried by every leaf item: the positioning
// spatial node, the applied clip, the local clip rect, an optional hit tag
// and per-primitive flags.
type CommonItemProperties struct {
	_ structs.HostLayout

	ClipRect lmath.Rect
	Spatial  SpatialID
	Clip     ClipID
	Flags    PrimitiveFlags
	Tag      ItemTag
}

// Span references a contiguous run of elements in one of the side-channel
// sections. Start and Length count elements, not bytes.
type Span struct {
	_ structs.HostLayout

	Start  uint32
	Length uint32
}

func (s Span) IsEmpty() bool { return s.Length == 0 }

type ItemKind uint32

const (
	KindRectangle ItemKind = iota + 1
	KindClearRectangle
	KindHitTest
	KindLine
	KindImage
	KindText
	KindBorder
	KindBoxShadow
	KindGradient
	KindRadialGradient
	KindConicGradient
	KindPushStackingContext
	KindPopStackingContext
	KindPushReferenceFrame
	KindPopReferenceFrame
	KindIframe
	KindRectClip
	KindRoundedRectClip
	KindImageMaskClip
	KindClipChain
	KindScrollFrame
	KindStickyFrame
	KindPushShadow
	KindPopAllShadows
)

// DisplayItem is the closed set of decoded item types produced by Iterator.
type DisplayItem interface {
	isDisplayItem()
}

type Rectangle struct {
	_ structs.HostLayout

	Common CommonItemProperties
	Bounds lmath.Rect
	Color  gfx.ColorF
}

// ClearRectangle punches a hole: it writes transparent black over its bounds
// regardless of what was painted below.
type ClearRectangle struct {
	_ structs.HostLayout

	Common CommonItemProperties
	Bounds lmath.Rect
}

// HitTest contributes to the hit-testing scene without painting anything.
type HitTest struct {
	_ structs.HostLayout

	Common CommonItemProperties
}

type Line struct {
	_ structs.HostLayout

	Common            CommonItemProperties
	Area              lmath.Rect
	WavyLineThickness float32
	Orientation       gfx.LineOrientation
	Color             gfx.ColorF
	Style             gfx.LineStyle
}

type Image struct {
	_ structs.HostLayout

	Common    CommonItemProperties
	Bounds    lmath.Rect
	Key       uint64
	Rendering gfx.ImageRendering
	AlphaType gfx.AlphaType
	Color     gfx.ColorF
}

// GlyphInstance positions one pre-shaped glyph. Shaping happens in the text
// layout engine; the display list only carries glyph ids and positions.
type GlyphInstance struct {
	_ structs.HostLayout

	Index font.GID
	Point lmath.Point
}

type Text struct {
	_ structs.HostLayout

	Common  CommonItemProperties
	Bounds  lmath.Rect
	FontKey uint64
	Color   gfx.ColorF
	Glyphs  Span
}

type Border struct {
	_ structs.HostLayout

	Common CommonItemProperties
	Bounds lmath.Rect
	Border gfx.Border
}

type BoxShadow struct {
	_ structs.HostLayout

	Common    CommonItemProperties
	BoxBounds lmath.Rect
	Shadow    gfx.BoxShadow
}

type Gradient struct {
	_ structs.HostLayout

	Common CommonItemProperties
	Bounds lmath.Rect
	Start  lmath.Point
	End    lmath.Point
	Extend gfx.ExtendMode
	Stops  Span
}

type RadialGradient struct {
	_ structs.HostLayout

	Common      CommonItemProperties
	Bounds      lmath.Rect
	Center      lmath.Point
	Radius      lmath.Size
	StartOffset float32
	EndOffset   float32
	Extend      gfx.ExtendMode
	Stops       Span
}

type ConicGradient struct {
	_ structs.HostLayout

	Common      CommonItemProperties
	Bounds      lmath.Rect
	Center      lmath.Point
	Angle       float32
	StartOffset float32
	EndOffset   float32
	Extend      gfx.ExtendMode
	Stops       Span
}

type TransformStyle uint32

const (
	TransformFlat TransformStyle = iota
	TransformPreserve3D
)

type StackingContextFlags uint32

const (
	// SCFlagIsBlendContainer marks a context as an isolated backdrop for
	// mix-blend-mode children.
	SCFlagIsBlendContainer StackingContextFlags = 1 << iota
)

type PushStackingContext struct {
	_ structs.HostLayout

	Origin           lmath.Point
	Spatial          SpatialID
	Clip             ClipID
	HasClip          uint32
	TransformStyle   TransformStyle
	MixBlendMode     gfx.MixBlendMode
	_pad             [3]uint8
	PrimFlags        PrimitiveFlags
	Flags            StackingContextFlags
	RasterSpace      lmath.RasterSpace
	Filters          Span
	FilterDatas      Span
	FilterPrimitives Span
}

type PopStackingContext struct {
	_ structs.HostLayout
}

type ReferenceFrameKind uint32

const (
	ReferenceFrameTransform ReferenceFrameKind = iota
	ReferenceFramePerspective
)

type PushReferenceFrame struct {
	_ structs.HostLayout

	Origin         lmath.Point
	ParentSpatial  SpatialID
	TransformStyle TransformStyle
	Kind           ReferenceFrameKind
	Transform      lmath.Transform
	ID             SpatialID
}

type PopReferenceFrame struct {
	_ structs.HostLayout
}

type Iframe struct {
	_ structs.HostLayout

	Bounds   lmath.Rect
	ClipRect lmath.Rect
	Spatial  SpatialID
	Pipeline PipelineID
	// IgnoreMissingPipeline marks the iframe as an allowed race: the
	// producer knows the target pipeline may not have arrived yet.
	IgnoreMissingPipeline uint32
}

type ClipMode uint32

const (
	ClipModeClip ClipMode = iota
	ClipModeClipOut
)

// ComplexClipRegion is a rounded rectangle clip, the "complex" clip kind that
// forces isolation of the content it applies to.
type ComplexClipRegion struct {
	_ structs.HostLayout

	Rect  lmath.Rect
	Radii gfx.BorderRadius
	Mode  ClipMode
}

type RectClip struct {
	_ structs.HostLayout

	ID       ClipID
	Spatial  SpatialID
	ClipRect lmath.Rect
}

// RoundedRectClip defines a clip from one or more complex (rounded-rect)
// regions, stored in the complex-clip side channel.
type RoundedRectClip struct {
	_ structs.HostLayout

	ID      ClipID
	Spatial SpatialID
	Regions Span
}

type ImageMaskClip struct {
	_ structs.HostLayout

	ID      ClipID
	Spatial SpatialID
	Key     uint64
	Rect    lmath.Rect
}

// ClipChain composes previously defined clips into one chain, optionally
// extending a parent chain.
type ClipChain struct {
	_ structs.HostLayout

	ID        ClipID
	Parent    ClipID
	HasParent uint32
	Clips     Span
}

type ScrollFrame struct {
	_ structs.HostLayout

	ContentRect          lmath.Rect
	FrameRect            lmath.Rect
	ParentSpatial        SpatialID
	ExternalID           uint64
	ExternalScrollOffset lmath.Vector
	ScrollID             SpatialID
}

type StickyFrame struct {
	_ structs.HostLayout

	Bounds        lmath.Rect
	ParentSpatial SpatialID
	Margins       lmath.SideOffsets
	// MarginMask has one bit per edge (top, right, bottom, left) marking
	// which margins are active.
	MarginMask uint32
	ID         SpatialID
}

type PushShadow struct {
	_ structs.HostLayout

	Common CommonItemProperties
	Shadow gfx.Shadow
	// ShouldInflate is false for shadows whose bounds are already final,
	// e.g. box shadows that computed their own inflation.
	ShouldInflate uint32
}

type PopAllShadows struct {
	_ structs.HostLayout
}

func (Rectangle) isDisplayItem()           {}
func (ClearRectangle) isDisplayItem()      {}
func (HitTest) isDisplayItem()             {}
func (Line) isDisplayItem()                {}
func (Image) isDisplayItem()               {}
func (Text) isDisplayItem()                {}
func (Border) isDisplayItem()              {}
func (BoxShadow) isDisplayItem()           {}
func (Gradient) isDisplayItem()            {}
func (RadialGradient) isDisplayItem()      {}
func (ConicGradient) isDisplayItem()       {}
func (PushStackingContext) isDisplayItem() {}
func (PopStackingContext) isDisplayItem()  {}
func (PushReferenceFrame) isDisplayItem()  {}
func (PopReferenceFrame) isDisplayItem()   {}
func (Iframe) isDisplayItem()              {}
func (RectClip) isDisplayItem()            {}
func (RoundedRectClip) isDisplayItem()     {}
func (ImageMaskClip) isDisplayItem()       {}
func (ClipChain) isDisplayItem()           {}
func (ScrollFrame) isDisplayItem()         {}
func (StickyFrame) isDisplayItem()         {}
func (PushShadow) isDisplayItem()          {}
func (PopAllShadows) isDisplayItem()       {}
