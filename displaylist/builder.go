package displaylist

import (
	"encoding/binary"
	"structs"
	"unsafe"

	"honnef.co/go/curve"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/safeish"
)

// filterDataHeader is the fixed-size part of a serialized FilterData; the
// variable-length value tables live in the filterValues section.
type filterDataHeader struct {
	_ structs.HostLayout

	RFunc, GFunc, BFunc, AFunc uint32
	RValues                    Span
	GValues                    Span
	BValues                    Span
	AValues                    Span
}

// DisplayListBuilder serializes display items in paint order. It also hands
// out the SpatialIDs and ClipIDs the items reference, so that id allocation
// and declaration cannot drift apart.
type DisplayListBuilder struct {
	pipeline PipelineID

	data         []byte
	stops        []byte
	glyphs       []byte
	clipIDs      []byte
	complexClips []byte
	filterOps    []byte
	filterHdrs   []byte
	filterValues []byte
	filterPrims  []byte

	nextSpatialID uint32
	nextClipID    uint32
	scDepth       int
	rfDepth       int
	shadowDepth   int
}

func NewDisplayListBuilder(pipeline PipelineID) *DisplayListBuilder {
	return &DisplayListBuilder{
		pipeline:      pipeline,
		nextSpatialID: firstSpatialID,
		nextClipID:    firstClipID,
	}
}

func (b *DisplayListBuilder) Pipeline() PipelineID { return b.pipeline }

func pushItem[T any](b *DisplayListBuilder, kind ItemKind, item *T) {
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(kind))
	b.data = append(b.data, safeish.AsBytes(item)...)
}

func appendSlice[E any](dst []byte, items []E) ([]byte, Span) {
	var e E
	sz := int(unsafe.Sizeof(e))
	span := Span{Start: uint32(len(dst) / sz), Length: uint32(len(items))}
	return append(dst, safeish.SliceCast[[]byte](items)...), span
}

func (b *DisplayListBuilder) PushRect(common CommonItemProperties, bounds lmath.Rect, color gfx.ColorF) {
	pushItem(b, KindRectangle, &Rectangle{Common: common, Bounds: bounds, Color: color})
}

func (b *DisplayListBuilder) PushClearRect(common CommonItemProperties, bounds lmath.Rect) {
	pushItem(b, KindClearRectangle, &ClearRectangle{Common: common, Bounds: bounds})
}

func (b *DisplayListBuilder) PushHitTest(common CommonItemProperties) {
	pushItem(b, KindHitTest, &HitTest{Common: common})
}

func (b *DisplayListBuilder) PushLine(common CommonItemProperties, area lmath.Rect, wavyThickness float32, orientation gfx.LineOrientation, color gfx.ColorF, style gfx.LineStyle) {
	pushItem(b, KindLine, &Line{
		Common:            common,
		Area:              area,
		WavyLineThickness: wavyThickness,
		Orientation:       orientation,
		Color:             color,
		Style:             style,
	})
}

func (b *DisplayListBuilder) PushImage(common CommonItemProperties, bounds lmath.Rect, key uint64, rendering gfx.ImageRendering, alphaType gfx.AlphaType, color gfx.ColorF) {
	pushItem(b, KindImage, &Image{
		Common:    common,
		Bounds:    bounds,
		Key:       key,
		Rendering: rendering,
		AlphaType: alphaType,
		Color:     color,
	})
}

func (b *DisplayListBuilder) PushText(common CommonItemProperties, bounds lmath.Rect, fontKey uint64, color gfx.ColorF, glyphs []GlyphInstance) {
	var span Span
	b.glyphs, span = appendSlice(b.glyphs, glyphs)
	pushItem(b, KindText, &Text{
		Common:  common,
		Bounds:  bounds,
		FontKey: fontKey,
		Color:   color,
		Glyphs:  span,
	})
}

func (b *DisplayListBuilder) PushBorder(common CommonItemProperties, bounds lmath.Rect, border gfx.Border) {
	pushItem(b, KindBorder, &Border{Common: common, Bounds: bounds, Border: border})
}

func (b *DisplayListBuilder) PushBoxShadow(common CommonItemProperties, boxBounds lmath.Rect, shadow gfx.BoxShadow) {
	pushItem(b, KindBoxShadow, &BoxShadow{Common: common, BoxBounds: boxBounds, Shadow: shadow})
}

func (b *DisplayListBuilder) PushGradient(common CommonItemProperties, bounds lmath.Rect, start, end lmath.Point, extend gfx.ExtendMode, stops []gfx.GradientStop) {
	var span Span
	b.stops, span = appendSlice(b.stops, stops)
	pushItem(b, KindGradient, &Gradient{
		Common: common,
		Bounds: bounds,
		Start:  start,
		End:    end,
		Extend: extend,
		Stops:  span,
	})
}

func (b *DisplayListBuilder) PushRadialGradient(common CommonItemProperties, bounds lmath.Rect, center lmath.Point, radius lmath.Size, startOffset, endOffset float32, extend gfx.ExtendMode, stops []gfx.GradientStop) {
	var span Span
	b.stops, span = appendSlice(b.stops, stops)
	pushItem(b, KindRadialGradient, &RadialGradient{
		Common:      common,
		Bounds:      bounds,
		Center:      center,
		Radius:      radius,
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Extend:      extend,
		Stops:       span,
	})
}

func (b *DisplayListBuilder) PushConicGradient(common CommonItemProperties, bounds lmath.Rect, center lmath.Point, angle, startOffset, endOffset float32, extend gfx.ExtendMode, stops []gfx.GradientStop) {
	var span Span
	b.stops, span = appendSlice(b.stops, stops)
	pushItem(b, KindConicGradient, &ConicGradient{
		Common:      common,
		Bounds:      bounds,
		Center:      center,
		Angle:       angle,
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Extend:      extend,
		Stops:       span,
	})
}

// StackingContextParams collects the many knobs of PushStackingContext.
type StackingContextParams struct {
	Spatial          SpatialID
	Clip             *ClipID
	TransformStyle   TransformStyle
	MixBlendMode     gfx.MixBlendMode
	PrimFlags        PrimitiveFlags
	Flags            StackingContextFlags
	RasterSpace      lmath.RasterSpace
	Filters          []gfx.FilterOp
	FilterDatas      []gfx.FilterData
	FilterPrimitives []gfx.FilterPrimitive
}

func (b *DisplayListBuilder) PushStackingContext(origin lmath.Point, params *StackingContextParams) {
	item := PushStackingContext{
		Origin:         origin,
		Spatial:        params.Spatial,
		TransformStyle: params.TransformStyle,
		MixBlendMode:   params.MixBlendMode,
		PrimFlags:      params.PrimFlags,
		Flags:          params.Flags,
		RasterSpace:    params.RasterSpace,
	}
	if params.Clip != nil {
		item.Clip = *params.Clip
		item.HasClip = 1
	}
	b.filterOps, item.Filters = appendSlice(b.filterOps, params.Filters)
	item.FilterDatas = b.appendFilterDatas(params.FilterDatas)
	b.filterPrims, item.FilterPrimitives = appendSlice(b.filterPrims, params.FilterPrimitives)
	pushItem(b, KindPushStackingContext, &item)
	b.scDepth++
}

func (b *DisplayListBuilder) appendFilterDatas(datas []gfx.FilterData) Span {
	span := Span{Start: uint32(len(b.filterHdrs) / int(unsafe.Sizeof(filterDataHeader{}))), Length: uint32(len(datas))}
	for i := range datas {
		fd := &datas[i]
		hdr := filterDataHeader{
			RFunc: uint32(fd.RFunc),
			GFunc: uint32(fd.GFunc),
			BFunc: uint32(fd.BFunc),
			AFunc: uint32(fd.AFunc),
		}
		b.filterValues, hdr.RValues = appendSlice(b.filterValues, fd.RValues)
		b.filterValues, hdr.GValues = appendSlice(b.filterValues, fd.GValues)
		b.filterValues, hdr.BValues = appendSlice(b.filterValues, fd.BValues)
		b.filterValues, hdr.AValues = appendSlice(b.filterValues, fd.AValues)
		b.filterHdrs = append(b.filterHdrs, safeish.AsBytes(&hdr)...)
	}
	return span
}

func (b *DisplayListBuilder) PopStackingContext() {
	if b.scDepth == 0 {
		panic("displaylist: PopStackingContext without matching push")
	}
	b.scDepth--
	pushItem(b, KindPopStackingContext, &PopStackingContext{})
}

// PushReferenceFrame opens a reference frame. The f64 affine is narrowed to
// the packed f32 wire form here; producers work in curve types throughout.
func (b *DisplayListBuilder) PushReferenceFrame(origin lmath.Point, parent SpatialID, style TransformStyle, transform curve.Affine, kind ReferenceFrameKind) SpatialID {
	id := b.allocSpatialID()
	pushItem(b, KindPushReferenceFrame, &PushReferenceFrame{
		Origin:         origin,
		ParentSpatial:  parent,
		TransformStyle: style,
		Kind:           kind,
		Transform:      lmath.TransformFromKurbo(transform),
		ID:             id,
	})
	b.rfDepth++
	return id
}

func (b *DisplayListBuilder) PopReferenceFrame() {
	if b.rfDepth == 0 {
		panic("displaylist: PopReferenceFrame without matching push")
	}
	b.rfDepth--
	pushItem(b, KindPopReferenceFrame, &PopReferenceFrame{})
}

func (b *DisplayListBuilder) PushIframe(bounds, clipRect lmath.Rect, spatial SpatialID, pipeline PipelineID, ignoreMissingPipeline bool) {
	item := Iframe{
		Bounds:   bounds,
		ClipRect: clipRect,
		Spatial:  spatial,
		Pipeline: pipeline,
	}
	if ignoreMissingPipeline {
		item.IgnoreMissingPipeline = 1
	}
	pushItem(b, KindIframe, &item)
}

func (b *DisplayListBuilder) DefineRectClip(spatial SpatialID, rect lmath.Rect) ClipID {
	id := b.allocClipID()
	pushItem(b, KindRectClip, &RectClip{ID: id, Spatial: spatial, ClipRect: rect})
	return id
}

func (b *DisplayListBuilder) DefineRoundedRectClip(spatial SpatialID, region ComplexClipRegion) ClipID {
	return b.DefineComplexClip(spatial, []ComplexClipRegion{region})
}

func (b *DisplayListBuilder) DefineComplexClip(spatial SpatialID, regions []ComplexClipRegion) ClipID {
	id := b.allocClipID()
	item := RoundedRectClip{ID: id, Spatial: spatial}
	b.complexClips, item.Regions = appendSlice(b.complexClips, regions)
	pushItem(b, KindRoundedRectClip, &item)
	return id
}

func (b *DisplayListBuilder) DefineImageMaskClip(spatial SpatialID, key uint64, rect lmath.Rect) ClipID {
	id := b.allocClipID()
	pushItem(b, KindImageMaskClip, &ImageMaskClip{ID: id, Spatial: spatial, Key: key, Rect: rect})
	return id
}

func (b *DisplayListBuilder) DefineClipChain(parent *ClipID, clips []ClipID) ClipID {
	id := b.allocClipID()
	item := ClipChain{ID: id}
	if parent != nil {
		item.Parent = *parent
		item.HasParent = 1
	}
	b.clipIDs, item.Clips = appendSlice(b.clipIDs, clips)
	pushItem(b, KindClipChain, &item)
	return id
}

func (b *DisplayListBuilder) DefineScrollFrame(parent SpatialID, externalID uint64, contentRect, frameRect lmath.Rect, externalScrollOffset lmath.Vector) SpatialID {
	id := b.allocSpatialID()
	pushItem(b, KindScrollFrame, &ScrollFrame{
		ContentRect:          contentRect,
		FrameRect:            frameRect,
		ParentSpatial:        parent,
		ExternalID:           externalID,
		ExternalScrollOffset: externalScrollOffset,
		ScrollID:             id,
	})
	return id
}

func (b *DisplayListBuilder) DefineStickyFrame(parent SpatialID, bounds lmath.Rect, margins lmath.SideOffsets, marginMask uint32) SpatialID {
	id := b.allocSpatialID()
	pushItem(b, KindStickyFrame, &StickyFrame{
		Bounds:        bounds,
		ParentSpatial: parent,
		Margins:       margins,
		MarginMask:    marginMask,
		ID:            id,
	})
	return id
}

func (b *DisplayListBuilder) PushShadow(common CommonItemProperties, shadow gfx.Shadow, shouldInflate bool) {
	item := PushShadow{Common: common, Shadow: shadow}
	if shouldInflate {
		item.ShouldInflate = 1
	}
	pushItem(b, KindPushShadow, &item)
	b.shadowDepth++
}

func (b *DisplayListBuilder) PopAllShadows() {
	if b.shadowDepth == 0 {
		panic("displaylist: PopAllShadows without any pushed shadow")
	}
	b.shadowDepth = 0
	pushItem(b, KindPopAllShadows, &PopAllShadows{})
}

func (b *DisplayListBuilder) allocSpatialID() SpatialID {
	id := SpatialID{ID: b.nextSpatialID, Pipeline: b.pipeline}
	b.nextSpatialID++
	return id
}

func (b *DisplayListBuilder) allocClipID() ClipID {
	id := ClipID{ID: b.nextClipID, Pipeline: b.pipeline}
	b.nextClipID++
	return id
}

// Finalize seals the builder into an immutable BuiltDisplayList. Unbalanced
// structural nesting is a producer bug and panics here rather than at build
// time, where the cause would be harder to attribute.
func (b *DisplayListBuilder) Finalize() *BuiltDisplayList {
	if b.scDepth != 0 {
		panic("displaylist: unbalanced stacking contexts at finalize")
	}
	if b.rfDepth != 0 {
		panic("displaylist: unbalanced reference frames at finalize")
	}
	if b.shadowDepth != 0 {
		panic("displaylist: dangling shadow at finalize")
	}
	return &BuiltDisplayList{
		pipeline:     b.pipeline,
		data:         b.data,
		stops:        b.stops,
		glyphs:       b.glyphs,
		clipIDs:      b.clipIDs,
		complexClips: b.complexClips,
		filterOps:    b.filterOps,
		filterHdrs:   b.filterHdrs,
		filterValues: b.filterValues,
		filterPrims:  b.filterPrims,
	}
}
