package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/intern"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
	"honnef.co/go/safeish"
)

// PrimKind discriminates PrimitiveInstance. Leaf kinds reference interned
// payload data; PrimPicture references a picture in the picture store.
type PrimKind uint8

const (
	PrimRectangle PrimKind = iota
	PrimLine
	PrimImage
	PrimTextRun
	PrimBorder
	PrimBoxShadow
	PrimLinearGradient
	PrimRadialGradient
	PrimConicGradient
	PrimPicture
)

// PrimitiveInstance is the compiled, resolved form of a display item: snapped
// local geometry, the positioning spatial node, the resolved clip chain, and
// either an interned payload handle or a picture index. Instances are owned
// by exactly one primitive list at a time and moved, never copied, when lists
// are restructured.
type PrimitiveInstance struct {
	Kind      PrimKind
	DataIndex intern.Index
	Pic       PictureIndex

	LocalRect     lmath.Rect
	LocalClipRect lmath.Rect
	Spatial       spatial.NodeIndex
	ClipChain     clip.ChainID
	Flags         displaylist.PrimitiveFlags
}

// Interned payload keys. Variable-length payloads (glyph runs, gradient
// stops) are folded into the key as an FNV hash plus length and mirrored into
// a DataStore on first intern.

type RectangleKey struct {
	Color   gfx.ColorF
	IsClear bool
}

type LineKey struct {
	WavyLineThickness float32
	Orientation       gfx.LineOrientation
	Color             gfx.ColorF
	Style             gfx.LineStyle
}

type ImageKey struct {
	Key       uint64
	Rendering gfx.ImageRendering
	AlphaType gfx.AlphaType
	Color     gfx.ColorF
}

type TextRunKey struct {
	FontKey    FontInstanceKey
	Color      gfx.ColorF
	GlyphsHash uint64
	GlyphCount uint32
}

type BorderKey struct {
	Border gfx.Border
}

type BoxShadowKey struct {
	Shadow gfx.BoxShadow
}

type LinearGradientKey struct {
	Start        lmath.Point
	End          lmath.Point
	Extend       gfx.ExtendMode
	StopsHash    uint64
	StopCount    uint32
	ReverseStops bool
}

type RadialGradientKey struct {
	Center      lmath.Point
	Radius      lmath.Size
	StartOffset float32
	EndOffset   float32
	Extend      gfx.ExtendMode
	StopsHash   uint64
	StopCount   uint32
}

type ConicGradientKey struct {
	Center      lmath.Point
	Angle       float32
	StartOffset float32
	EndOffset   float32
	Extend      gfx.ExtendMode
	StopsHash   uint64
	StopCount   uint32
}

// FilterDataKey folds a component-transfer filter's function types and value
// tables into a comparable key; the decoded FilterData is mirrored in a
// DataStore.
type FilterDataKey struct {
	RFunc, GFunc, BFunc, AFunc gfx.ComponentTransferFuncType
	RHash, GHash, BHash, AHash uint64
}

func filterDataKey(fd gfx.FilterData) FilterDataKey {
	return FilterDataKey{
		RFunc: fd.RFunc, GFunc: fd.GFunc, BFunc: fd.BFunc, AFunc: fd.AFunc,
		RHash: intern.HashBytes(0, safeish.SliceCast[[]byte](fd.RValues)),
		GHash: intern.HashBytes(0, safeish.SliceCast[[]byte](fd.GValues)),
		BHash: intern.HashBytes(0, safeish.SliceCast[[]byte](fd.BValues)),
		AHash: intern.HashBytes(0, safeish.SliceCast[[]byte](fd.AValues)),
	}
}

// Interners is the family of content-addressed tables shared across builds.
// Two structurally identical primitives resolve to the same handle, which
// downstream consumers rely on for cheap frame diffing.
type Interners struct {
	Rectangles      *intern.Interner[RectangleKey]
	Lines           *intern.Interner[LineKey]
	Images          *intern.Interner[ImageKey]
	TextRuns        *intern.Interner[TextRunKey]
	Borders         *intern.Interner[BorderKey]
	BoxShadows      *intern.Interner[BoxShadowKey]
	LinearGradients *intern.Interner[LinearGradientKey]
	RadialGradients *intern.Interner[RadialGradientKey]
	ConicGradients  *intern.Interner[ConicGradientKey]
	ClipItems       *intern.Interner[clip.ItemKey]
	FilterDatas     *intern.Interner[FilterDataKey]

	TextRunData        intern.DataStore[[]displaylist.GlyphInstance]
	LinearGradientData intern.DataStore[[]gfx.GradientStop]
	RadialGradientData intern.DataStore[[]gfx.GradientStop]
	ConicGradientData  intern.DataStore[[]gfx.GradientStop]
	FilterDataData     intern.DataStore[gfx.FilterData]
}

func NewInterners() *Interners {
	return &Interners{
		Rectangles:      intern.New[RectangleKey](),
		Lines:           intern.New[LineKey](),
		Images:          intern.New[ImageKey](),
		TextRuns:        intern.New[TextRunKey](),
		Borders:         intern.New[BorderKey](),
		BoxShadows:      intern.New[BoxShadowKey](),
		LinearGradients: intern.New[LinearGradientKey](),
		RadialGradients: intern.New[RadialGradientKey](),
		ConicGradients:  intern.New[ConicGradientKey](),
		ClipItems:       intern.New[clip.ItemKey](),
		FilterDatas:     intern.New[FilterDataKey](),
	}
}

// Maintain marks the start of a new build on every table.
func (in *Interners) Maintain() {
	in.Rectangles.Maintain()
	in.Lines.Maintain()
	in.Images.Maintain()
	in.TextRuns.Maintain()
	in.Borders.Maintain()
	in.BoxShadows.Maintain()
	in.LinearGradients.Maintain()
	in.RadialGradients.Maintain()
	in.ConicGradients.Maintain()
	in.ClipItems.Maintain()
	in.FilterDatas.Maintain()
}

// primPayload is the kind-specific payload of a leaf item on its way into the
// interners. Shadowable payloads additionally know how to clone themselves
// recolored for a shadow pass.
type primPayload interface {
	intern(in *Interners) (PrimKind, intern.Index)
	shadowable() bool
	createShadow(shadow gfx.Shadow) primPayload
}

type rectanglePayload struct {
	color   gfx.ColorF
	isClear bool
}

func (p rectanglePayload) intern(in *Interners) (PrimKind, intern.Index) {
	h, _ := in.Rectangles.Intern(RectangleKey{Color: p.color, IsClear: p.isClear})
	return PrimRectangle, h.Index()
}

func (p rectanglePayload) shadowable() bool { return true }

func (p rectanglePayload) createShadow(shadow gfx.Shadow) primPayload {
	return rectanglePayload{color: shadow.Color}
}

type linePayload struct {
	wavyLineThickness float32
	orientation       gfx.LineOrientation
	color             gfx.ColorF
	style             gfx.LineStyle
}

func (p linePayload) intern(in *Interners) (PrimKind, intern.Index) {
	h, _ := in.Lines.Intern(LineKey{
		WavyLineThickness: p.wavyLineThickness,
		Orientation:       p.orientation,
		Color:             p.color,
		Style:             p.style,
	})
	return PrimLine, h.Index()
}

func (p linePayload) shadowable() bool { return true }

func (p linePayload) createShadow(shadow gfx.Shadow) primPayload {
	p.color = shadow.Color
	return p
}

type imagePayload struct {
	key       uint64
	rendering gfx.ImageRendering
	alphaType gfx.AlphaType
	color     gfx.ColorF
}

func (p imagePayload) intern(in *Interners) (PrimKind, intern.Index) {
	h, _ := in.Images.Intern(ImageKey{
		Key:       p.key,
		Rendering: p.rendering,
		AlphaType: p.alphaType,
		Color:     p.color,
	})
	return PrimImage, h.Index()
}

func (p imagePayload) shadowable() bool { return true }

func (p imagePayload) createShadow(shadow gfx.Shadow) primPayload {
	p.color = shadow.Color
	return p
}

type textPayload struct {
	fontKey FontInstanceKey
	color   gfx.ColorF
	glyphs  []displaylist.GlyphInstance
}

func (p textPayload) intern(in *Interners) (PrimKind, intern.Index) {
	key := TextRunKey{
		FontKey:    p.fontKey,
		Color:      p.color,
		GlyphsHash: intern.HashBytes(0, safeish.SliceCast[[]byte](p.glyphs)),
		GlyphCount: uint32(len(p.glyphs)),
	}
	h, added := in.TextRuns.Intern(key)
	if added {
		in.TextRunData.Set(h.Index(), p.glyphs)
	}
	return PrimTextRun, h.Index()
}

func (p textPayload) shadowable() bool { return true }

func (p textPayload) createShadow(shadow gfx.Shadow) primPayload {
	p.color = shadow.Color
	return p
}

type borderPayload struct {
	border gfx.Border
}

func (p borderPayload) intern(in *Interners) (PrimKind, intern.Index) {
	h, _ := in.Borders.Intern(BorderKey{Border: p.border})
	return PrimBorder, h.Index()
}

func (p borderPayload) shadowable() bool { return true }

func (p borderPayload) createShadow(shadow gfx.Shadow) primPayload {
	p.border.Top.Color = shadow.Color
	p.border.Right.Color = shadow.Color
	p.border.Bottom.Color = shadow.Color
	p.border.Left.Color = shadow.Color
	return p
}

type boxShadowPayload struct {
	shadow gfx.BoxShadow
}

func (p boxShadowPayload) intern(in *Interners) (PrimKind, intern.Index) {
	h, _ := in.BoxShadows.Intern(BoxShadowKey{Shadow: p.shadow})
	return PrimBoxShadow, h.Index()
}

func (p boxShadowPayload) shadowable() bool { return false }

func (p boxShadowPayload) createShadow(gfx.Shadow) primPayload {
	panic("loom: box shadows cannot participate in text shadows")
}

type linearGradientPayload struct {
	start        lmath.Point
	end          lmath.Point
	extend       gfx.ExtendMode
	stops        []gfx.GradientStop
	reverseStops bool
}

func (p linearGradientPayload) intern(in *Interners) (PrimKind, intern.Index) {
	key := LinearGradientKey{
		Start:        p.start,
		End:          p.end,
		Extend:       p.extend,
		StopsHash:    intern.HashBytes(0, safeish.SliceCast[[]byte](p.stops)),
		StopCount:    uint32(len(p.stops)),
		ReverseStops: p.reverseStops,
	}
	h, added := in.LinearGradients.Intern(key)
	if added {
		in.LinearGradientData.Set(h.Index(), p.stops)
	}
	return PrimLinearGradient, h.Index()
}

func (p linearGradientPayload) shadowable() bool { return false }

func (p linearGradientPayload) createShadow(gfx.Shadow) primPayload {
	panic("loom: gradients cannot participate in text shadows")
}

type radialGradientPayload struct {
	center      lmath.Point
	radius      lmath.Size
	startOffset float32
	endOffset   float32
	extend      gfx.ExtendMode
	stops       []gfx.GradientStop
}

func (p radialGradientPayload) intern(in *Interners) (PrimKind, intern.Index) {
	key := RadialGradientKey{
		Center:      p.center,
		Radius:      p.radius,
		StartOffset: p.startOffset,
		EndOffset:   p.endOffset,
		Extend:      p.extend,
		StopsHash:   intern.HashBytes(0, safeish.SliceCast[[]byte](p.stops)),
		StopCount:   uint32(len(p.stops)),
	}
	h, added := in.RadialGradients.Intern(key)
	if added {
		in.RadialGradientData.Set(h.Index(), p.stops)
	}
	return PrimRadialGradient, h.Index()
}

func (p radialGradientPayload) shadowable() bool { return false }

func (p radialGradientPayload) createShadow(gfx.Shadow) primPayload {
	panic("loom: gradients cannot participate in text shadows")
}

type conicGradientPayload struct {
	center      lmath.Point
	angle       float32
	startOffset float32
	endOffset   float32
	extend      gfx.ExtendMode
	stops       []gfx.GradientStop
}

func (p conicGradientPayload) intern(in *Interners) (PrimKind, intern.Index) {
	key := ConicGradientKey{
		Center:      p.center,
		Angle:       p.angle,
		StartOffset: p.startOffset,
		EndOffset:   p.endOffset,
		Extend:      p.extend,
		StopsHash:   intern.HashBytes(0, safeish.SliceCast[[]byte](p.stops)),
		StopCount:   uint32(len(p.stops)),
	}
	h, added := in.ConicGradients.Intern(key)
	if added {
		in.ConicGradientData.Set(h.Index(), p.stops)
	}
	return PrimConicGradient, h.Index()
}

func (p conicGradientPayload) shadowable() bool { return false }

func (p conicGradientPayload) createShadow(gfx.Shadow) primPayload {
	panic("loom: gradients cannot participate in text shadows")
}
