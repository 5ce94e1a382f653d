package loom

import (
	"slices"

	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// SceneBuilder compiles display lists into built scenes. A builder may be
// reused across builds; the interners and font table it holds are retained so
// that unchanged primitives resolve to the same handles frame over frame.
// Builds must not run concurrently against the same builder.
type SceneBuilder struct {
	config    FrameBuilderConfig
	interners *Interners
	fonts     *FontInstanceMap

	// Per-build state, reset by Build.
	quality        QualitySettings
	deviceScale    lmath.DevicePixelScale
	pipelines      map[displaylist.PipelineID]*ScenePipeline
	spatialTree    *spatial.Tree
	clipStore      *clip.Store
	pictures       *PictureStore
	hitScene       *HitTestingScene
	rfMapper       referenceFrameMapper
	scrollMapper   scrollOffsetMapper
	scStack        []*flattenedStackingContext
	pendingShadows []pendingItem
	clipRoots      []clip.ChainID
	spatialNodes   map[displaylist.SpatialID]spatial.NodeIndex
	pipelineEpochs map[displaylist.PipelineID]Epoch
	cacheSpatial   map[spatial.NodeIndex]struct{}
}

func NewSceneBuilder(config FrameBuilderConfig, interners *Interners, fonts *FontInstanceMap) *SceneBuilder {
	if interners == nil {
		interners = NewInterners()
	}
	if fonts == nil {
		fonts = NewFontInstanceMap()
	}
	return &SceneBuilder{
		config:    config,
		interners: interners,
		fonts:     fonts,
	}
}

// Fonts returns the builder's font-instance table. The table may be mutated
// concurrently with builds.
func (sb *SceneBuilder) Fonts() *FontInstanceMap { return sb.fonts }

// Build runs one full scene build. It either returns a complete scene or
// panics on a producer-contract violation; there is no partial output.
func (sb *SceneBuilder) Build(req *SceneRequest) *BuiltScene {
	root := req.Pipelines[req.RootPipeline]
	if root == nil {
		panic("loom: scene request names an unknown root pipeline")
	}

	sb.interners.Maintain()
	sb.quality = req.Quality
	sb.deviceScale = req.DeviceScale
	sb.pipelines = req.Pipelines
	sb.spatialTree = spatial.NewTree()
	sb.clipStore = clip.NewStore(sb.interners.ClipItems)
	sb.pictures = &PictureStore{}
	sb.hitScene = &HitTestingScene{}
	sb.scrollMapper = scrollOffsetMapper{}
	sb.scStack = sb.scStack[:0]
	sb.pendingShadows = nil
	sb.clipRoots = sb.clipRoots[:0]
	sb.spatialNodes = make(map[displaylist.SpatialID]spatial.NodeIndex)
	sb.pipelineEpochs = make(map[displaylist.PipelineID]Epoch)
	sb.cacheSpatial = make(map[spatial.NodeIndex]struct{})

	rootRF := sb.spatialTree.RootReferenceFrameIndex()
	sb.spatialNodes[displaylist.RootReferenceFrameID(root.Pipeline)] = rootRF
	scroll := sb.spatialTree.AddScrollFrame(rootRF, 0,
		lmath.Rect{Size: root.ContentSize},
		lmath.Rect{Size: root.ViewportSize},
		lmath.Vector{})
	sb.spatialNodes[displaylist.RootScrollNodeID(root.Pipeline)] = scroll
	sb.pipelineEpochs[root.Pipeline] = root.Epoch

	// The implicit root frame stands in for the pipeline's top-level
	// stacking context; everything the root display list emits lands in its
	// primitive list, which the slicing pass consumes at the end.
	rootFrame := &flattenedStackingContext{
		pipeline:    root.Pipeline,
		spatial:     rootRF,
		clipChain:   clip.NoChain,
		rasterSpace: lmath.RasterSpace{Kind: lmath.RasterScreen, Scale: 1},
	}
	sb.scStack = append(sb.scStack, rootFrame)
	sb.rfMapper.pushScope()

	iter := root.DisplayList.Iter()
	if reason := sb.buildItems(&iter, root.Pipeline); reason != stopEndOfList {
		panic("loom: top-level display list ends with an unmatched pop")
	}

	sb.rfMapper.popScope()
	sb.rfMapper.assertBalanced()
	if len(sb.scStack) != 1 {
		panic("loom: unbalanced stacking contexts at end of build")
	}
	if len(sb.pendingShadows) != 0 {
		panic("loom: dangling shadow at end of display list")
	}
	if len(sb.clipRoots) != 0 {
		panic("loom: unbalanced clip roots at end of build")
	}
	sb.scStack = sb.scStack[:0]

	bg := root.BackgroundColor
	if sb.config.BackgroundColor != nil {
		c := gfx.FromColor(sb.config.BackgroundColor)
		bg = &c
	}

	rootList := rootFrame.primList
	sliceCount := 1
	if sb.config.EnablePictureCaching {
		sliceCount = sb.tagSlices(&rootList)
		rootList = sb.setupPictureCaching(&rootList, bg)
	}

	rootIdx := sb.pictures.Add(Picture{
		RasterSpace: rootFrame.rasterSpace,
		Spatial:     rootRF,
		Prims:       rootList,
	})

	return &BuiltScene{
		RootPictureIndex:         rootIdx,
		Pictures:                 sb.pictures,
		Interners:                sb.interners,
		ClipStore:                sb.clipStore,
		SpatialTree:              sb.spatialTree,
		HitTest:                  sb.hitScene,
		ContentSliceCount:        sliceCount,
		PictureCacheSpatialNodes: sb.cacheSpatial,
		OutputRect:               req.DeviceRect,
		BackgroundColor:          bg,
		PipelineEpochs:           sb.pipelineEpochs,
	}
}

// stopReason says why buildItems returned: the iterator ran out, or a pop
// item closed the bracketed region the caller opened.
type stopReason uint8

const (
	stopEndOfList stopReason = iota
	stopPoppedStackingContext
	stopPoppedReferenceFrame
)

func (sb *SceneBuilder) buildItems(it *displaylist.Iterator, pipeline displaylist.PipelineID) stopReason {
	for {
		item, ok := it.Next()
		if !ok {
			return stopEndOfList
		}
		switch item := item.(type) {
		case displaylist.PushStackingContext:
			sb.buildStackingContext(it, item, pipeline)
		case displaylist.PopStackingContext:
			return stopPoppedStackingContext
		case displaylist.PushReferenceFrame:
			sb.buildReferenceFrame(it, item, pipeline)
		case displaylist.PopReferenceFrame:
			return stopPoppedReferenceFrame
		case displaylist.Iframe:
			sb.buildIframe(item)
		default:
			sb.buildItem(it, item)
		}
	}
}

func (sb *SceneBuilder) buildStackingContext(it *displaylist.Iterator, item displaylist.PushStackingContext, pipeline displaylist.PipelineID) {
	sb.rfMapper.pushOffset(lmath.Vec(item.Origin.X, item.Origin.Y))
	sb.pushStackingContext(item, it.List(), pipeline)
	if reason := sb.buildItems(it, pipeline); reason != stopPoppedStackingContext {
		panic("loom: stacking context not closed by a matching pop")
	}
	sb.popStackingContext()
	sb.rfMapper.popOffset()
}

func (sb *SceneBuilder) buildReferenceFrame(it *displaylist.Iterator, item displaylist.PushReferenceFrame, pipeline displaylist.PipelineID) {
	parentIdx := sb.spatialNode(item.ParentSpatial)
	offset := sb.currentOffset(parentIdx)
	origin := item.Origin.Add(offset)
	transform := lmath.Translation(lmath.Vec(origin.X, origin.Y)).Mul(item.Transform)
	idx := sb.spatialTree.AddReferenceFrame(parentIdx, transform,
		spatialTransformStyle(item.TransformStyle),
		spatialReferenceFrameKind(item.Kind))
	sb.spatialNodes[item.ID] = idx

	sb.rfMapper.pushScope()
	if reason := sb.buildItems(it, pipeline); reason != stopPoppedReferenceFrame {
		panic("loom: reference frame not closed by a matching pop")
	}
	sb.rfMapper.popScope()
}

func (sb *SceneBuilder) buildIframe(item displaylist.Iframe) {
	pl, ok := sb.pipelines[item.Pipeline]
	if !ok {
		if item.IgnoreMissingPipeline != 0 {
			return
		}
		panic("loom: iframe references a pipeline missing from the scene request")
	}
	spatialIdx := sb.spatialNode(item.Spatial)
	offset := sb.currentOffset(spatialIdx)
	snapper := sb.snapperFor(spatialIdx)
	clipRect := snapper.SnapRect(item.ClipRect.Translate(offset))
	bounds := snapper.SnapRect(item.Bounds.Translate(offset))

	// The iframe viewport clips everything inside it; descendants' clip
	// chains parent onto this node.
	chain := sb.clipStore.AddNode(clip.ItemKey{Kind: clip.KindRect, Rect: clipRect}, spatialIdx, sb.currentClipRoot())
	sb.pushClipRoot(chain)
	sb.rfMapper.pushScope()

	refIdx := sb.spatialTree.AddReferenceFrame(spatialIdx,
		lmath.Translation(lmath.Vec(bounds.Origin.X, bounds.Origin.Y)),
		spatial.TransformFlat, spatial.ReferenceFrameTransform)
	sb.spatialNodes[displaylist.RootReferenceFrameID(item.Pipeline)] = refIdx
	scrollIdx := sb.spatialTree.AddScrollFrame(refIdx, 0,
		lmath.Rect{Size: pl.ContentSize},
		lmath.Rect{Size: bounds.Size},
		lmath.Vector{})
	sb.spatialNodes[displaylist.RootScrollNodeID(item.Pipeline)] = scrollIdx
	sb.pipelineEpochs[item.Pipeline] = pl.Epoch

	iter := pl.DisplayList.Iter()
	if reason := sb.buildItems(&iter, item.Pipeline); reason != stopEndOfList {
		panic("loom: iframe display list ends with an unmatched pop")
	}

	sb.rfMapper.popScope()
	sb.popClipRoot()
}

// buildItem compiles one leaf item: a primitive, a clip or frame definition,
// or a shadow marker. Pop items never reach this dispatcher.
func (sb *SceneBuilder) buildItem(it *displaylist.Iterator, item displaylist.DisplayItem) {
	list := it.List()
	switch item := item.(type) {
	case displaylist.Rectangle:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		sb.addPrimitive(info, rect, rectanglePayload{color: item.Color})
	case displaylist.ClearRectangle:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		sb.addPrimitive(info, rect, rectanglePayload{isClear: true})
	case displaylist.HitTest:
		info, rect := sb.processCommon(item.Common, nil)
		sb.recordHitTest(info, rect)
	case displaylist.Line:
		info, rect := sb.processCommon(item.Common, &item.Area)
		sb.recordHitTest(info, rect)
		sb.addPrimitive(info, rect, linePayload{
			wavyLineThickness: item.WavyLineThickness,
			orientation:       item.Orientation,
			color:             item.Color,
			style:             item.Style,
		})
	case displaylist.Image:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		sb.addPrimitive(info, rect, imagePayload{
			key:       item.Key,
			rendering: item.Rendering,
			alphaType: item.AlphaType,
			color:     item.Color,
		})
	case displaylist.Text:
		sb.buildText(list, item)
	case displaylist.Border:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		sb.addPrimitive(info, rect, borderPayload{border: item.Border})
	case displaylist.BoxShadow:
		info, rect := sb.processCommon(item.Common, &item.BoxBounds)
		sb.recordHitTest(info, rect)
		if !item.Shadow.Color.IsVisible() {
			return
		}
		sb.addPrimitive(info, rect, boxShadowPayload{shadow: item.Shadow})
	case displaylist.Gradient:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		stops := list.GradientStops(item.Stops)
		if !gfx.StopsVisible(stops) {
			return
		}
		start, end, reverse := gfx.CanonicalGradientLine(item.Start, item.End)
		sb.addPrimitive(info, rect, linearGradientPayload{
			start:        start,
			end:          end,
			extend:       item.Extend,
			stops:        slices.Clone(stops),
			reverseStops: reverse,
		})
	case displaylist.RadialGradient:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		stops := list.GradientStops(item.Stops)
		if !gfx.StopsVisible(stops) {
			return
		}
		sb.addPrimitive(info, rect, radialGradientPayload{
			center:      item.Center,
			radius:      item.Radius,
			startOffset: item.StartOffset,
			endOffset:   item.EndOffset,
			extend:      item.Extend,
			stops:       slices.Clone(stops),
		})
	case displaylist.ConicGradient:
		info, rect := sb.processCommon(item.Common, &item.Bounds)
		sb.recordHitTest(info, rect)
		stops := list.GradientStops(item.Stops)
		if !gfx.StopsVisible(stops) {
			return
		}
		sb.addPrimitive(info, rect, conicGradientPayload{
			center:      item.Center,
			angle:       item.Angle,
			startOffset: item.StartOffset,
			endOffset:   item.EndOffset,
			extend:      item.Extend,
			stops:       slices.Clone(stops),
		})
	case displaylist.RectClip:
		spatialIdx := sb.spatialNode(item.Spatial)
		offset := sb.currentOffset(spatialIdx)
		rect := sb.snapperFor(spatialIdx).SnapRect(item.ClipRect.Translate(offset))
		sb.clipStore.RegisterRect(item.ID, spatialIdx, rect)
	case displaylist.RoundedRectClip:
		spatialIdx := sb.spatialNode(item.Spatial)
		offset := sb.currentOffset(spatialIdx)
		regions := slices.Clone(list.ComplexClips(item.Regions))
		for i := range regions {
			regions[i].Rect = regions[i].Rect.Translate(offset)
		}
		sb.clipStore.RegisterComplex(item.ID, spatialIdx, regions)
	case displaylist.ImageMaskClip:
		spatialIdx := sb.spatialNode(item.Spatial)
		offset := sb.currentOffset(spatialIdx)
		sb.clipStore.RegisterImageMask(item.ID, spatialIdx, item.Key, item.Rect.Translate(offset))
	case displaylist.ClipChain:
		var parent *displaylist.ClipID
		if item.HasParent != 0 {
			p := item.Parent
			parent = &p
		}
		sb.clipStore.RegisterChain(item.ID, parent, slices.Clone(list.ClipIDs(item.Clips)))
	case displaylist.ScrollFrame:
		parentIdx := sb.spatialNode(item.ParentSpatial)
		offset := sb.currentOffset(parentIdx)
		idx := sb.spatialTree.AddScrollFrame(parentIdx, item.ExternalID,
			item.ContentRect.Translate(offset),
			item.FrameRect.Translate(offset),
			item.ExternalScrollOffset)
		sb.spatialNodes[item.ScrollID] = idx
	case displaylist.StickyFrame:
		parentIdx := sb.spatialNode(item.ParentSpatial)
		offset := sb.currentOffset(parentIdx)
		idx := sb.spatialTree.AddStickyFrame(parentIdx,
			item.Bounds.Translate(offset), item.Margins, item.MarginMask)
		sb.spatialNodes[item.ID] = idx
	case displaylist.PushShadow:
		sb.pushShadow(item)
	case displaylist.PopAllShadows:
		sb.popAllShadows()
	default:
		panic("loom: unexpected display item in leaf position")
	}
}

func (sb *SceneBuilder) buildText(list *displaylist.BuiltDisplayList, item displaylist.Text) {
	info, rect := sb.processCommon(item.Common, &item.Bounds)
	sb.recordHitTest(info, rect)
	inst, ok := sb.fonts.Get(FontInstanceKey(item.FontKey))
	if !ok {
		Logger().Warn("unknown font instance key, dropping text run", "key", item.FontKey)
		return
	}
	if inst.Size <= 0 {
		return
	}
	glyphs := list.Glyphs(item.Glyphs)
	if len(glyphs) == 0 {
		return
	}
	// Side-channel data aliases the display list; clone before shifting the
	// glyphs into reference-frame space.
	glyphs = slices.Clone(glyphs)
	for i := range glyphs {
		glyphs[i].Point = glyphs[i].Point.Add(info.offset)
	}
	sb.addPrimitive(info, rect, textPayload{
		fontKey: FontInstanceKey(item.FontKey),
		color:   item.Color,
		glyphs:  glyphs,
	})
}

// primInfo is the resolved, snapped form of an item's common properties.
type primInfo struct {
	spatial   spatial.NodeIndex
	clipChain clip.ChainID
	clipRect  lmath.Rect
	offset    lmath.Vector
	flags     displaylist.PrimitiveFlags
	tag       displaylist.ItemTag
}

// processCommon resolves spatial and clip references, applies the current
// reference-frame and scroll offsets, and snaps geometry to device pixels.
// Items without explicit bounds default to the snapped clip rect.
func (sb *SceneBuilder) processCommon(common displaylist.CommonItemProperties, bounds *lmath.Rect) (primInfo, lmath.Rect) {
	spatialIdx := sb.spatialNode(common.Spatial)
	chain := sb.clipStore.Resolve(common.Clip, sb.currentClipRoot())
	offset := sb.currentOffset(spatialIdx)
	// Snapping is re-targeted per item: different items in one stacking
	// context may be positioned by different spatial nodes.
	snapper := sb.snapperFor(spatialIdx)
	clipRect := snapper.SnapRect(common.ClipRect.Translate(offset))
	rect := clipRect
	if bounds != nil {
		rect = snapper.SnapRect(bounds.Translate(offset))
	}
	return primInfo{
		spatial:   spatialIdx,
		clipChain: chain,
		clipRect:  clipRect,
		offset:    offset,
		flags:     common.Flags,
		tag:       common.Tag,
	}, rect
}

func (sb *SceneBuilder) recordHitTest(info primInfo, rect lmath.Rect) {
	if !info.tag.IsValid() {
		return
	}
	sb.hitScene.Add(info.tag, rect, info.spatial, info.clipChain, sb.clipRoots)
}

// addPrimitive routes a compiled payload to its destination: the shadow
// deferral queue when a shadow region is open and the kind is shadowable,
// the current stacking context's primitive list otherwise.
func (sb *SceneBuilder) addPrimitive(info primInfo, rect lmath.Rect, payload primPayload) {
	if len(sb.pendingShadows) > 0 && payload.shadowable() {
		sb.pendingShadows = append(sb.pendingShadows, pendingItem{
			prim: &pendingPrimitive{
				payload:   payload,
				rect:      rect,
				clipRect:  info.clipRect,
				spatial:   info.spatial,
				clipChain: info.clipChain,
				flags:     info.flags,
			},
		})
		return
	}
	sb.addPaintPrimitive(info, rect, payload)
}

func (sb *SceneBuilder) addPaintPrimitive(info primInfo, rect lmath.Rect, payload primPayload) {
	// Fully transparent solid rects were already recorded for hit testing;
	// they contribute nothing to paint.
	if p, ok := payload.(rectanglePayload); ok && !p.isClear && !p.color.IsVisible() {
		return
	}
	kind, idx := payload.intern(sb.interners)
	inst := PrimitiveInstance{
		Kind:          kind,
		DataIndex:     idx,
		LocalRect:     rect,
		LocalClipRect: info.clipRect,
		Spatial:       info.spatial,
		ClipChain:     info.clipChain,
		Flags:         info.flags,
	}
	sb.chase(inst)
	sb.currentFrame().primList.Add(inst, info.flags)
}

func (sb *SceneBuilder) chase(inst PrimitiveInstance) {
	if sb.config.ChaseRect == nil {
		return
	}
	if _, ok := sb.config.ChaseRect.Intersection(inst.LocalRect); !ok {
		return
	}
	Logger().Debug("chased primitive",
		"kind", int(inst.Kind),
		"x", inst.LocalRect.Origin.X, "y", inst.LocalRect.Origin.Y,
		"w", inst.LocalRect.Size.W, "h", inst.LocalRect.Size.H,
		"spatial", uint32(inst.Spatial))
}

func (sb *SceneBuilder) spatialNode(id displaylist.SpatialID) spatial.NodeIndex {
	idx, ok := sb.spatialNodes[id]
	if !ok {
		panic("loom: display list references an undeclared spatial id")
	}
	return idx
}

// currentOffset is the translation from item coordinates to reference-frame
// coordinates: the stacking-context offsets plus the externally-applied
// scroll delta of the positioning node.
func (sb *SceneBuilder) currentOffset(spatialIdx spatial.NodeIndex) lmath.Vector {
	return sb.rfMapper.currentOffset().
		Add(sb.scrollMapper.externalScrollOffset(spatialIdx, sb.spatialTree))
}

func (sb *SceneBuilder) snapperFor(spatialIdx spatial.NodeIndex) lmath.SpaceSnapper {
	enabled := sb.spatialTree.IsAxisAligned(spatialIdx) &&
		sb.currentFrame().rasterSpace.Kind == lmath.RasterScreen
	return lmath.SpaceSnapper{Scale: sb.deviceScale, Enabled: enabled}
}

func (sb *SceneBuilder) currentClipRoot() clip.ChainID {
	if len(sb.clipRoots) == 0 {
		return clip.NoChain
	}
	return sb.clipRoots[len(sb.clipRoots)-1]
}

func (sb *SceneBuilder) pushClipRoot(chain clip.ChainID) {
	sb.clipRoots = append(sb.clipRoots, chain)
}

func (sb *SceneBuilder) popClipRoot() {
	if len(sb.clipRoots) == 0 {
		panic("loom: clip root underflow")
	}
	sb.clipRoots = sb.clipRoots[:len(sb.clipRoots)-1]
}

func spatialTransformStyle(s displaylist.TransformStyle) spatial.TransformStyle {
	if s == displaylist.TransformPreserve3D {
		return spatial.TransformPreserve3D
	}
	return spatial.TransformFlat
}

func spatialReferenceFrameKind(k displaylist.ReferenceFrameKind) spatial.ReferenceFrameKind {
	if k == displaylist.ReferenceFramePerspective {
		return spatial.ReferenceFramePerspective
	}
	return spatial.ReferenceFrameTransform
}
