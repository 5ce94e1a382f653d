package displaylist

import (
	"encoding/binary"
	"unsafe"

	"honnef.co/go/loom/gfx"
	"honnef.co/go/safeish"
)

// BuiltDisplayList is the immutable, serialized form of a display list. It is
// cheap to copy around (all fields are slices of the builder's buffers) and
// safe to iterate from multiple cursors at once.
type BuiltDisplayList struct {
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
}

func (dl *BuiltDisplayList) Pipeline() PipelineID { return dl.pipeline }

func (dl *BuiltDisplayList) Iter() Iterator {
	return Iterator{list: dl}
}

func viewSlice[E any](data []byte, s Span) []E {
	if s.Length == 0 {
		return nil
	}
	var e E
	sz := int(unsafe.Sizeof(e))
	return safeish.SliceCast[[]E](data[int(s.Start)*sz : (int(s.Start)+int(s.Length))*sz])
}

func (dl *BuiltDisplayList) GradientStops(s Span) []gfx.GradientStop {
	return viewSlice[gfx.GradientStop](dl.stops, s)
}

func (dl *BuiltDisplayList) Glyphs(s Span) []GlyphInstance {
	return viewSlice[GlyphInstance](dl.glyphs, s)
}

func (dl *BuiltDisplayList) ClipIDs(s Span) []ClipID {
	return viewSlice[ClipID](dl.clipIDs, s)
}

func (dl *BuiltDisplayList) ComplexClips(s Span) []ComplexClipRegion {
	return viewSlice[ComplexClipRegion](dl.complexClips, s)
}

func (dl *BuiltDisplayList) FilterOps(s Span) []gfx.FilterOp {
	return viewSlice[gfx.FilterOp](dl.filterOps, s)
}

func (dl *BuiltDisplayList) FilterPrimitives(s Span) []gfx.FilterPrimitive {
	return viewSlice[gfx.FilterPrimitive](dl.filterPrims, s)
}

// FilterDatas decodes component-transfer filter data, re-slicing the value
// tables out of the shared section. The returned slices alias the list.
func (dl *BuiltDisplayList) FilterDatas(s Span) []gfx.FilterData {
	hdrs := viewSlice[filterDataHeader](dl.filterHdrs, s)
	out := make([]gfx.FilterData, len(hdrs))
	for i, hdr := range hdrs {
		out[i] = gfx.FilterData{
			RFunc:   gfx.ComponentTransferFuncType(hdr.RFunc),
			GFunc:   gfx.ComponentTransferFuncType(hdr.GFunc),
			BFunc:   gfx.ComponentTransferFuncType(hdr.BFunc),
			AFunc:   gfx.ComponentTransferFuncType(hdr.AFunc),
			RValues: viewSlice[float32](dl.filterValues, hdr.RValues),
			GValues: viewSlice[float32](dl.filterValues, hdr.GValues),
			BValues: viewSlice[float32](dl.filterValues, hdr.BValues),
			AValues: viewSlice[float32](dl.filterValues, hdr.AValues),
		}
	}
	return out
}

// Iterator is a cursor over the item stream. The zero value is not useful;
// obtain one from BuiltDisplayList.Iter.
type Iterator struct {
	list   *BuiltDisplayList
	offset int
}

func (it *Iterator) List() *BuiltDisplayList { return it.list }

// SubIter returns an independent cursor at the current position, used to
// walk a bracketed region without disturbing this cursor.
func (it *Iterator) SubIter() Iterator {
	return *it
}

func readItem[T any](it *Iterator) T {
	var v T
	sz := int(unsafe.Sizeof(v))
	if sz == 0 {
		return v
	}
	v = *safeish.Cast[*T](&it.list.data[it.offset])
	it.offset += sz
	return v
}

// Next decodes the item at the cursor. It returns false at the end of the
// list. Item payloads are copied out; side-channel spans stay valid for the
// lifetime of the BuiltDisplayList.
func (it *Iterator) Next() (DisplayItem, bool) {
	if it.offset >= len(it.list.data) {
		return nil, false
	}
	kind := ItemKind(binary.LittleEndian.Uint32(it.list.data[it.offset:]))
	it.offset += 4
	switch kind {
	case KindRectangle:
		return readItem[Rectangle](it), true
	case KindClearRectangle:
		return readItem[ClearRectangle](it), true
	case KindHitTest:
		return readItem[HitTest](it), true
	case KindLine:
		return readItem[Line](it), true
	case KindImage:
		return readItem[Image](it), true
	case KindText:
		return readItem[Text](it), true
	case KindBorder:
		return readItem[Border](it), true
	case KindBoxShadow:
		return readItem[BoxShadow](it), true
	case KindGradient:
		return readItem[Gradient](it), true
	case KindRadialGradient:
		return readItem[RadialGradient](it), true
	case KindConicGradient:
		return readItem[ConicGradient](it), true
	case KindPushStackingContext:
		return readItem[PushStackingContext](it), true
	case KindPopStackingContext:
		return readItem[PopStackingContext](it), true
	case KindPushReferenceFrame:
		return readItem[PushReferenceFrame](it), true
	case KindPopReferenceFrame:
		return readItem[PopReferenceFrame](it), true
	case KindIframe:
		return readItem[Iframe](it), true
	case KindRectClip:
		return readItem[RectClip](it), true
	case KindRoundedRectClip:
		return readItem[RoundedRectClip](it), true
	case KindImageMaskClip:
		return readItem[ImageMaskClip](it), true
	case KindClipChain:
		return readItem[ClipChain](it), true
	case KindScrollFrame:
		return readItem[ScrollFrame](it), true
	case KindStickyFrame:
		return readItem[StickyFrame](it), true
	case KindPushShadow:
		return readItem[PushShadow](it), true
	case KindPopAllShadows:
		return readItem[PopAllShadows](it), true
	default:
		panic("displaylist: corrupt item stream")
	}
}

// SkipCurrentStackingContext advances the cursor past the PopStackingContext
// matching the innermost open PushStackingContext, consuming it. Everything
// in between, including nested contexts, is skipped without decoding side
// channels.
func (it *Iterator) SkipCurrentStackingContext() {
	depth := 0
	for {
		item, ok := it.Next()
		if !ok {
			panic("displaylist: unbalanced stacking context while skipping")
		}
		switch item.(type) {
		case PushStackingContext:
			depth++
		case PopStackingContext:
			if depth == 0 {
				return
			}
			depth--
		}
	}
}
