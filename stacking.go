package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// compositeOps are the filter and blend operations attached to a stacking
// context, with no-op stages already elided.
type compositeOps struct {
	filters          []gfx.FilterOp
	filterDatas      []gfx.FilterData
	filterPrimitives []gfx.FilterPrimitive
	mixBlendMode     gfx.MixBlendMode
}

// isEmpty ignores the mix-blend mode: blending wraps the finished picture at
// pop time and does not force flattening on its own.
func (ops *compositeOps) isEmpty() bool {
	return len(ops.filters) == 0 &&
		len(ops.filterDatas) == 0 &&
		len(ops.filterPrimitives) == 0
}

// flattenedStackingContext is one frame of the builder's stack, alive from
// the push item to the matching pop. Its primitive list accumulates the
// context's direct content; at pop time the list folds into exactly one of
// the parent's list, a new picture, or a 3D root's pending plane list.
type flattenedStackingContext struct {
	primList PrimitiveList

	pipeline       displaylist.PipelineID
	spatial        spatial.NodeIndex
	clipChain      clip.ChainID
	ops            compositeOps
	blitReason     BlitReason
	rasterSpace    lmath.RasterSpace
	transformStyle displaylist.TransformStyle
	flags          displaylist.PrimitiveFlags

	context3D Picture3DContext
	// pending3D collects the context's planes in document order; only used
	// on the context root.
	pending3D []PrimitiveInstance

	isRedundant      bool
	isBlendContainer bool
	pushedClipRoot   bool
}

func (sb *SceneBuilder) currentFrame() *flattenedStackingContext {
	return sb.scStack[len(sb.scStack)-1]
}

// pushStackingContext resolves the push item against the spatial tree and
// clip store and opens a new stack frame. The caller is responsible for the
// matching popStackingContext once the bracketed items are consumed.
func (sb *SceneBuilder) pushStackingContext(item displaylist.PushStackingContext, list *displaylist.BuiltDisplayList, pipeline displaylist.PipelineID) {
	parent := sb.currentFrame()
	spatialIdx := sb.spatialNode(item.Spatial)

	var ops compositeOps
	for _, op := range list.FilterOps(item.Filters) {
		if op.Kind == gfx.FilterOpacity {
			// Opacity outside [0, 1] is meaningless; clamping here lets a
			// clamped-to-1 opacity elide as a no-op.
			op.Amount = lmath.Clamp(op.Amount, 0, 1)
		}
		if !op.IsNoop() {
			ops.filters = append(ops.filters, op)
		}
	}
	for _, fd := range list.FilterDatas(item.FilterDatas) {
		if !fd.IsIdentity() {
			ops.filterDatas = append(ops.filterDatas, fd)
		}
	}
	ops.filterPrimitives = list.FilterPrimitives(item.FilterPrimitives)
	ops.mixBlendMode = item.MixBlendMode

	chain := clip.NoChain
	pushedClipRoot := false
	if item.HasClip != 0 {
		chain = sb.clipStore.Resolve(item.Clip, sb.currentClipRoot())
		sb.pushClipRoot(chain)
		pushedClipRoot = true
	}

	var reason BlitReason
	if item.Flags&displaylist.SCFlagIsBlendContainer != 0 {
		reason |= BlitReasonIsolate
	}
	if chain != clip.NoChain && sb.clipStore.HasComplexClips(chain) {
		reason |= BlitReasonClip
	}

	// Filters force flattening: a context carrying composite ops never
	// participates in an ancestor's 3D rendering context.
	participates := ops.isEmpty() &&
		(item.TransformStyle == displaylist.TransformPreserve3D ||
			parent.transformStyle == displaylist.TransformPreserve3D)
	isRoot3D := participates && parent.transformStyle != displaylist.TransformPreserve3D
	var context3D Picture3DContext
	if participates {
		ancestor := spatialIdx
		if !isRoot3D {
			ancestor = parent.context3D.Ancestor
		}
		context3D = Picture3DContext{
			Participates: true,
			Root:         isRoot3D,
			Ancestor:     ancestor,
		}
	}

	// A flat child interrupting a 3D-preserving parent cuts the parent's
	// accumulated flat content into its own plane, so ordering relative to
	// the 3D-participating siblings survives.
	if !participates && (parent.context3D.Participates || parent.context3D.Root) {
		sb.cut3DSequence(parent, sb.nearest3DRoot())
	}

	frame := &flattenedStackingContext{
		pipeline:         pipeline,
		spatial:          spatialIdx,
		clipChain:        chain,
		ops:              ops,
		blitReason:       reason,
		rasterSpace:      item.RasterSpace,
		transformStyle:   item.TransformStyle,
		flags:            item.PrimFlags,
		context3D:        context3D,
		isBlendContainer: item.Flags&displaylist.SCFlagIsBlendContainer != 0,
		pushedClipRoot:   pushedClipRoot,
	}
	frame.isRedundant = frame.redundant(parent)
	sb.scStack = append(sb.scStack, frame)
}

// redundant reports whether the context can fold its content directly into
// parent without allocating a picture.
func (f *flattenedStackingContext) redundant(parent *flattenedStackingContext) bool {
	if f.context3D.Participates || f.context3D.Root {
		return false
	}
	if !f.ops.isEmpty() {
		return false
	}
	// A mix-blend on the parent's first content is a no-op: there is no
	// backdrop to blend against yet.
	if f.ops.mixBlendMode != gfx.MixBlendNormal && !parent.primList.IsEmpty() {
		return false
	}
	if f.flags&displaylist.PrimFlagIsBackfaceVisible == 0 {
		return false
	}
	if !f.rasterSpace.Matches(parent.rasterSpace) {
		return false
	}
	if f.blitReason != 0 {
		return false
	}
	// Scrollbars stay distinguishable for the slicing pass even when
	// otherwise a no-op.
	if f.flags&displaylist.PrimFlagIsScrollbarContainer != 0 {
		return false
	}
	return true
}

// popStackingContext closes the top frame and splices its result into the
// enclosing frame, the enclosing 3D root, or nothing at all (redundant fold).
func (sb *SceneBuilder) popStackingContext() {
	if len(sb.pendingShadows) != 0 {
		panic("loom: stacking context popped with dangling shadows")
	}
	n := len(sb.scStack)
	frame := sb.scStack[n-1]
	sb.scStack = sb.scStack[:n-1]
	parent := sb.scStack[len(sb.scStack)-1]

	if frame.pushedClipRoot {
		sb.popClipRoot()
	}

	if frame.isRedundant {
		parent.primList.Extend(&frame.primList)
		return
	}

	var composite CompositeMode
	if frame.context3D.Participates || frame.context3D.Root {
		composite = CompositeBlit{Reason: frame.blitReason | BlitReasonPreserve3D}
	} else if frame.blitReason != 0 {
		composite = CompositeBlit{Reason: frame.blitReason}
	}

	var cur PrimitiveInstance
	if frame.context3D.Root {
		// Assemble the planes collected for this 3D context, the remainder
		// of our own flat content included, into one container picture.
		sb.cut3DSequence(frame, frame)
		var planes PrimitiveList
		for _, inst := range frame.pending3D {
			planes.Add(inst, inst.Flags)
		}
		cur = sb.realizePicture(Picture{
			Composite:   composite,
			Context3D:   frame.context3D,
			RasterSpace: frame.rasterSpace,
			Spatial:     frame.spatial,
			Prims:       planes,
		}, frame.clipChain)
	} else {
		cur = sb.realizePicture(Picture{
			Composite:   composite,
			Context3D:   frame.context3D,
			RasterSpace: frame.rasterSpace,
			Spatial:     frame.spatial,
			Prims:       frame.primList,
		}, frame.clipChain)
	}

	cur = sb.wrapPrimWithFilters(cur, frame)

	if frame.ops.mixBlendMode != gfx.MixBlendNormal && !parent.primList.IsEmpty() {
		if parent.isBlendContainer {
			cur = sb.wrapInstance(cur, CompositeMixBlend{Mode: frame.ops.mixBlendMode}, frame)
		} else {
			Logger().Warn("mix-blend-mode outside an isolated blend container, dropping blend",
				"mode", int(frame.ops.mixBlendMode))
		}
	}

	// The context's primitive flags ride on the outermost instance; the
	// slicing pass reads scrollbar containers off the resulting cluster.
	cur.Flags = frame.flags

	if frame.context3D.Participates && !frame.context3D.Root {
		root := sb.nearest3DRoot()
		sb.cut3DSequence(parent, root)
		root.pending3D = append(root.pending3D, cur)
		return
	}
	parent.primList.Add(cur, cur.Flags)
}

// realizePicture stores pic and returns the instance referencing it. The
// instance's local rect is the union of the picture's content.
func (sb *SceneBuilder) realizePicture(pic Picture, chain clip.ChainID) PrimitiveInstance {
	rect := pic.Prims.BoundingRect()
	idx := sb.pictures.Add(pic)
	return PrimitiveInstance{
		Kind:          PrimPicture,
		Pic:           idx,
		LocalRect:     rect,
		LocalClipRect: rect,
		Spatial:       pic.Spatial,
		ClipChain:     chain,
		Flags:         displaylist.PrimFlagIsBackfaceVisible,
	}
}

// wrapInstance wraps a single instance in a new picture applying composite.
func (sb *SceneBuilder) wrapInstance(inst PrimitiveInstance, composite CompositeMode, frame *flattenedStackingContext) PrimitiveInstance {
	var list PrimitiveList
	list.Add(inst, inst.Flags)
	return sb.realizePicture(Picture{
		Composite:   composite,
		RasterSpace: frame.rasterSpace,
		Spatial:     frame.spatial,
		Prims:       list,
	}, inst.ClipChain)
}

// wrapPrimWithFilters folds the context's CSS filter chain and SVG filter
// graph into a sequence of single-input picture wrappers, innermost filter
// first. No-op stages were already elided at push time.
func (sb *SceneBuilder) wrapPrimWithFilters(inst PrimitiveInstance, frame *flattenedStackingContext) PrimitiveInstance {
	for _, op := range frame.ops.filters {
		inst = sb.wrapInstance(inst, CompositeFilter{Filter: op}, frame)
	}
	if len(frame.ops.filterPrimitives) > 0 {
		// An SVG filter graph consumes the component-transfer data itself;
		// the stages are not wrapped individually.
		inst = sb.wrapInstance(inst, CompositeSvgFilter{
			Primitives:  frame.ops.filterPrimitives,
			FilterDatas: frame.ops.filterDatas,
		}, frame)
		return inst
	}
	for _, fd := range frame.ops.filterDatas {
		h, added := sb.interners.FilterDatas.Intern(filterDataKey(fd))
		if added {
			sb.interners.FilterDataData.Set(h.Index(), fd)
		}
		inst = sb.wrapInstance(inst, CompositeComponentTransfer{Handle: h}, frame)
	}
	return inst
}

// nearest3DRoot finds the innermost open 3D context root. Panics if none is
// open; callers only ask while inside a 3D context.
func (sb *SceneBuilder) nearest3DRoot() *flattenedStackingContext {
	for i := len(sb.scStack) - 1; i >= 0; i-- {
		if sb.scStack[i].context3D.Root {
			return sb.scStack[i]
		}
	}
	panic("loom: no 3D rendering context on the stack")
}

// cut3DSequence moves frame's accumulated flat content into its own
// preserve-3D plane on root's pending list. No-op for an empty list.
func (sb *SceneBuilder) cut3DSequence(frame, root *flattenedStackingContext) {
	if frame.primList.IsEmpty() {
		return
	}
	list := frame.primList
	frame.primList = PrimitiveList{}
	inst := sb.realizePicture(Picture{
		Composite:   CompositeBlit{Reason: BlitReasonPreserve3D},
		Context3D:   Picture3DContext{Participates: true, Ancestor: root.context3D.Ancestor},
		RasterSpace: frame.rasterSpace,
		Spatial:     frame.spatial,
		Prims:       list,
	}, clip.NoChain)
	root.pending3D = append(root.pending3D, inst)
}
