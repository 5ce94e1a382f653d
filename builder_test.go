package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

var (
	testPipeline  = displaylist.PipelineID{Namespace: 2, ID: 1}
	childPipeline = displaylist.PipelineID{Namespace: 2, ID: 2}

	red  = gfx.ColorF{R: 1, A: 1}
	blue = gfx.ColorF{B: 1, A: 1}
)

func testCommon() displaylist.CommonItemProperties {
	return displaylist.CommonItemProperties{
		ClipRect: lmath.NewRect(0, 0, 800, 600),
		Spatial:  displaylist.RootScrollNodeID(testPipeline),
		Clip:     displaylist.RootClipID(testPipeline),
		Flags:    displaylist.PrimFlagIsBackfaceVisible,
	}
}

func scParams() *displaylist.StackingContextParams {
	return &displaylist.StackingContextParams{
		Spatial:   displaylist.RootScrollNodeID(testPipeline),
		PrimFlags: displaylist.PrimFlagIsBackfaceVisible,
	}
}

func pipelineFor(id displaylist.PipelineID, dl *displaylist.BuiltDisplayList) *ScenePipeline {
	return &ScenePipeline{
		Pipeline:     id,
		DisplayList:  dl,
		ViewportSize: lmath.Size{W: 800, H: 600},
		ContentSize:  lmath.Size{W: 800, H: 600},
	}
}

// sceneRequest builds a request rooted at the first pipeline.
func sceneRequest(pipelines ...*ScenePipeline) *SceneRequest {
	req := &SceneRequest{
		RootPipeline: pipelines[0].Pipeline,
		Pipelines:    make(map[displaylist.PipelineID]*ScenePipeline),
		DeviceRect:   lmath.NewRect(0, 0, 800, 600),
		DeviceScale:  1,
	}
	for _, pl := range pipelines {
		req.Pipelines[pl.Pipeline] = pl
	}
	return req
}

func buildScene(dl *displaylist.BuiltDisplayList, config FrameBuilderConfig) *BuiltScene {
	return NewSceneBuilder(config, nil, nil).Build(sceneRequest(pipelineFor(testPipeline, dl)))
}

func rootPrims(scene *BuiltScene) []PrimitiveInstance {
	return picPrims(scene, scene.RootPictureIndex)
}

func picPrims(scene *BuiltScene, idx PictureIndex) []PrimitiveInstance {
	var out []PrimitiveInstance
	for _, c := range scene.Pictures.Get(idx).Prims.Clusters {
		out = append(out, c.Prims...)
	}
	return out
}

func TestBuildPanicsOnUnknownRootPipeline(t *testing.T) {
	sb := NewSceneBuilder(FrameBuilderConfig{}, nil, nil)
	assert.Panics(t, func() {
		sb.Build(&SceneRequest{
			RootPipeline: testPipeline,
			Pipelines:    map[displaylist.PipelineID]*ScenePipeline{},
		})
	})
}

func TestRedundantStackingContextFolds(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(10, 10), scParams())
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	assert.Equal(t, 1, scene.Pictures.Len(), "a no-op context must not allocate a picture")
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	assert.Equal(t, PrimRectangle, prims[0].Kind)
	assert.Equal(t, lmath.NewRect(10, 10, 50, 50), prims[0].LocalRect, "context origin applies to content")
}

func TestRedundantFoldIsTransparent(t *testing.T) {
	wrapped := displaylist.NewDisplayListBuilder(testPipeline)
	wrapped.PushStackingContext(lmath.Pt(10, 10), scParams())
	wrapped.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	wrapped.PopStackingContext()

	bare := displaylist.NewDisplayListBuilder(testPipeline)
	bare.PushRect(testCommon(), lmath.NewRect(10, 10, 50, 50), red)

	sceneA := buildScene(wrapped.Finalize(), FrameBuilderConfig{})
	sceneB := buildScene(bare.Finalize(), FrameBuilderConfig{})
	assert.Equal(t, sceneB.RootPicture().Prims, sceneA.RootPicture().Prims)
}

func TestNoopFiltersElided(t *testing.T) {
	params := scParams()
	params.Filters = []gfx.FilterOp{{Kind: gfx.FilterIdentity}}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})
	assert.Equal(t, 1, scene.Pictures.Len(), "identity filters must not force isolation")
}

func TestFilterWrapsContext(t *testing.T) {
	params := scParams()
	params.Filters = []gfx.FilterOp{gfx.Blur(5, 5)}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	// Inner pass-through picture, the filter wrapper, the root.
	require.Equal(t, 3, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	require.Equal(t, PrimPicture, prims[0].Kind)

	filter := scene.Pictures.Get(prims[0].Pic)
	assert.Equal(t, CompositeFilter{Filter: gfx.Blur(5, 5)}, filter.Composite)

	inner := picPrims(scene, prims[0].Pic)
	require.Len(t, inner, 1)
	require.Equal(t, PrimPicture, inner[0].Kind)
	content := scene.Pictures.Get(inner[0].Pic)
	assert.Nil(t, content.Composite)
	assert.Equal(t, 1, content.Prims.PrimCount())
}

func TestOpacityFilterClamped(t *testing.T) {
	params := scParams()
	params.Filters = []gfx.FilterOp{gfx.Opacity(1.5)}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})
	assert.Equal(t, 1, scene.Pictures.Len(), "opacity above 1 clamps to a no-op")

	params = scParams()
	params.Filters = []gfx.FilterOp{gfx.Opacity(-0.5)}

	b = displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene = buildScene(b.Finalize(), FrameBuilderConfig{})
	require.Equal(t, 3, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	assert.Equal(t, CompositeFilter{Filter: gfx.Opacity(0)},
		scene.Pictures.Get(prims[0].Pic).Composite, "negative opacity clamps to zero")
}

func TestComplexClipForcesBlit(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	rounded := b.DefineRoundedRectClip(displaylist.RootScrollNodeID(testPipeline), displaylist.ComplexClipRegion{
		Rect:  lmath.NewRect(0, 0, 100, 100),
		Radii: gfx.BorderRadius{TopLeft: lmath.Size{W: 8, H: 8}},
	})
	params := scParams()
	params.Clip = &rounded
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	require.Equal(t, 2, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	pic := scene.Pictures.Get(prims[0].Pic)
	assert.Equal(t, CompositeBlit{Reason: BlitReasonClip}, pic.Composite)
	assert.NotEqual(t, clip.NoChain, prims[0].ClipChain)
}

func TestRectClipScopesDescendants(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	rc := b.DefineRectClip(displaylist.RootScrollNodeID(testPipeline), lmath.NewRect(0, 0, 100, 100))
	params := scParams()
	params.Clip = &rc
	b.PushStackingContext(lmath.Pt(0, 0), params)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	// A rectangle clip neither isolates nor blocks the redundancy fold, but
	// content inside still inherits the clip chain.
	assert.Equal(t, 1, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	require.NotEqual(t, clip.NoChain, prims[0].ClipChain)
	node := scene.ClipStore.Node(prims[0].ClipChain)
	assert.Equal(t, lmath.NewRect(0, 0, 100, 100), scene.ClipStore.ItemKey(node).Rect)
	assert.Equal(t, clip.NoChain, node.Parent)
}

func TestMixBlendInsideContainer(t *testing.T) {
	container := scParams()
	container.Flags = displaylist.SCFlagIsBlendContainer
	blend := scParams()
	blend.MixBlendMode = gfx.MixBlendMultiply

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), container)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 100, 100), gfx.White)
	b.PushStackingContext(lmath.Pt(0, 0), blend)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	require.Equal(t, 4, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	outer := scene.Pictures.Get(prims[0].Pic)
	assert.Equal(t, CompositeBlit{Reason: BlitReasonIsolate}, outer.Composite)

	inner := picPrims(scene, prims[0].Pic)
	require.Len(t, inner, 2)
	assert.Equal(t, PrimRectangle, inner[0].Kind)
	require.Equal(t, PrimPicture, inner[1].Kind)
	blended := scene.Pictures.Get(inner[1].Pic)
	assert.Equal(t, CompositeMixBlend{Mode: gfx.MixBlendMultiply}, blended.Composite)
}

func TestMixBlendWithoutContainerIsDropped(t *testing.T) {
	blend := scParams()
	blend.MixBlendMode = gfx.MixBlendMultiply

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 100, 100), gfx.White)
	b.PushStackingContext(lmath.Pt(0, 0), blend)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	require.Equal(t, 2, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 2)
	require.Equal(t, PrimPicture, prims[1].Kind)
	assert.Nil(t, scene.Pictures.Get(prims[1].Pic).Composite, "blend without isolated backdrop renders normally")
}

func TestMixBlendOnFirstContentFolds(t *testing.T) {
	blend := scParams()
	blend.MixBlendMode = gfx.MixBlendMultiply

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), blend)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 50, 50), red)
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	// With no backdrop the blend is a no-op and the context folds away.
	assert.Equal(t, 1, scene.Pictures.Len())
	assert.Len(t, rootPrims(scene), 1)
}

func TestTransparentRectHitTestsButDoesNotPaint(t *testing.T) {
	common := testCommon()
	common.Tag = displaylist.ItemTag{ID: 7}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(common, lmath.NewRect(10, 10, 50, 50), gfx.ColorF{})

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	assert.Empty(t, rootPrims(scene))
	require.Len(t, scene.HitTest.Items, 1)
	item := scene.HitTest.Items[0]
	assert.Equal(t, displaylist.ItemTag{ID: 7}, item.Tag)
	assert.Equal(t, lmath.NewRect(10, 10, 50, 50), item.Rect)
	assert.Equal(t, item.RootsStart, item.RootsEnd, "no clip scopes open at top level")
}

func TestHitTestItem(t *testing.T) {
	common := testCommon()
	common.Tag = displaylist.ItemTag{ID: 9, Info: 2}
	common.ClipRect = lmath.NewRect(5, 5, 20, 20)

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushHitTest(common)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	assert.Empty(t, rootPrims(scene))
	require.Len(t, scene.HitTest.Items, 1)
	// Hit-test items take their region from the clip rect.
	assert.Equal(t, lmath.NewRect(5, 5, 20, 20), scene.HitTest.Items[0].Rect)
}

func TestShadowFanOut(t *testing.T) {
	s1 := gfx.Shadow{Offset: lmath.Vec(2, 2), Color: gfx.Black, BlurRadius: 4}
	s2 := gfx.Shadow{Offset: lmath.Vec(0, 10), Color: gfx.Black}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushShadow(testCommon(), s1, true)
	b.PushShadow(testCommon(), s2, true)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 10, 10), red)
	b.PushRect(testCommon(), lmath.NewRect(20, 0, 10, 10), red)
	b.PopAllShadows()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	// One blurred picture per shadow, then the originals.
	require.Equal(t, 3, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 4)
	require.Equal(t, PrimPicture, prims[0].Kind)
	require.Equal(t, PrimPicture, prims[1].Kind)
	assert.Equal(t, PrimRectangle, prims[2].Kind)
	assert.Equal(t, PrimRectangle, prims[3].Kind)

	first := scene.Pictures.Get(prims[0].Pic)
	assert.Equal(t, CompositeFilter{Filter: gfx.Blur(2, 2)}, first.Composite, "inflated shadow blurs at half the radius")
	firstPrims := picPrims(scene, prims[0].Pic)
	require.Len(t, firstPrims, 2, "each shadow clones every primitive in the region")
	assert.Equal(t, lmath.NewRect(2, 2, 10, 10), firstPrims[0].LocalRect)
	assert.Equal(t, lmath.NewRect(22, 2, 10, 10), firstPrims[1].LocalRect)

	second := scene.Pictures.Get(prims[1].Pic)
	assert.Equal(t, CompositeFilter{Filter: gfx.Blur(0, 0)}, second.Composite)
	secondPrims := picPrims(scene, prims[1].Pic)
	require.Len(t, secondPrims, 2)
	assert.Equal(t, lmath.NewRect(0, 10, 10, 10), secondPrims[0].LocalRect)
}

func TestEmptyShadowAllocatesNothing(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushShadow(testCommon(), gfx.Shadow{Color: gfx.Black, BlurRadius: 4}, true)
	b.PopAllShadows()
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 10, 10), red)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})
	assert.Equal(t, 1, scene.Pictures.Len())
	assert.Len(t, rootPrims(scene), 1)
}

func Test3DContextAssembly(t *testing.T) {
	root3d := scParams()
	root3d.TransformStyle = displaylist.TransformPreserve3D
	member := scParams()

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(0, 0), root3d)
	b.PushStackingContext(lmath.Pt(0, 0), member)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 10, 10), red)
	b.PopStackingContext()
	b.PushRect(testCommon(), lmath.NewRect(20, 0, 10, 10), blue)
	b.PushStackingContext(lmath.Pt(0, 0), member)
	b.PushRect(testCommon(), lmath.NewRect(40, 0, 10, 10), red)
	b.PopStackingContext()
	b.PopStackingContext()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	// Member one, member two, the interleaved flat plane, the context root,
	// and the scene root.
	require.Equal(t, 5, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)

	ctx := scene.Pictures.Get(prims[0].Pic)
	assert.True(t, ctx.Context3D.Root)
	assert.Equal(t, CompositeBlit{Reason: BlitReasonPreserve3D}, ctx.Composite)

	planes := picPrims(scene, prims[0].Pic)
	require.Len(t, planes, 3)

	// Document order: first member, the flat rect's plane, second member.
	first := scene.Pictures.Get(planes[0].Pic)
	assert.True(t, first.Context3D.Participates)
	assert.False(t, first.Context3D.Root)
	assert.Equal(t, CompositeBlit{Reason: BlitReasonPreserve3D}, first.Composite)

	flat := scene.Pictures.Get(planes[1].Pic)
	flatPrims := picPrims(scene, planes[1].Pic)
	require.Len(t, flatPrims, 1)
	assert.Equal(t, PrimRectangle, flatPrims[0].Kind)
	assert.Equal(t, lmath.NewRect(20, 0, 10, 10), flatPrims[0].LocalRect)
	assert.True(t, flat.Context3D.Participates)

	second := picPrims(scene, planes[2].Pic)
	require.Len(t, second, 1)
	assert.Equal(t, lmath.NewRect(40, 0, 10, 10), second[0].LocalRect)
}

func TestReferenceFrameOffsets(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushStackingContext(lmath.Pt(5, 5), scParams())
	ref := b.PushReferenceFrame(lmath.Pt(100, 50), displaylist.RootScrollNodeID(testPipeline),
		displaylist.TransformFlat, curve.Identity, displaylist.ReferenceFrameTransform)
	inner := testCommon()
	inner.Spatial = ref
	b.PushRect(inner, lmath.NewRect(0, 0, 10, 10), red)
	b.PopReferenceFrame()
	b.PopStackingContext()
	b.PushRect(testCommon(), lmath.NewRect(20, 0, 10, 10), blue)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	require.Equal(t, 3, scene.SpatialTree.Len())
	node := scene.SpatialTree.Node(2)
	assert.Equal(t, spatial.KindReferenceFrame, node.Kind)
	// The enclosing context's origin folds into the frame's transform.
	assert.Equal(t, [2]float32{105, 55}, node.Transform.Translation)

	clusters := scene.RootPicture().Prims.Clusters
	require.Len(t, clusters, 2)
	assert.Equal(t, spatial.NodeIndex(2), clusters[0].Spatial)
	// Content inside the frame is frame-relative, not offset again.
	assert.Equal(t, lmath.NewRect(0, 0, 10, 10), clusters[0].Prims[0].LocalRect)
	assert.Equal(t, spatial.NodeIndex(1), clusters[1].Spatial)
	assert.Equal(t, lmath.NewRect(20, 0, 10, 10), clusters[1].Prims[0].LocalRect)
}

func TestReferenceFrameAffineNarrowing(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	ref := b.PushReferenceFrame(lmath.Pt(0, 0), displaylist.RootScrollNodeID(testPipeline),
		displaylist.TransformFlat, curve.Translate(curve.Vec2{X: 7, Y: 3}),
		displaylist.ReferenceFrameTransform)
	common := testCommon()
	common.Spatial = ref
	b.PushRect(common, lmath.NewRect(0, 0, 10, 10), red)
	b.PopReferenceFrame()

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	node := scene.SpatialTree.Node(2)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, node.Transform.Matrix)
	assert.Equal(t, [2]float32{7, 3}, node.Transform.Translation)
}

func TestScrollFrameExternalOffset(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	scroll := b.DefineScrollFrame(displaylist.RootScrollNodeID(testPipeline), 5,
		lmath.NewRect(0, 0, 500, 1000), lmath.NewRect(0, 0, 500, 500), lmath.Vec(0, 100))
	common := testCommon()
	common.Spatial = scroll
	b.PushRect(common, lmath.NewRect(0, 0, 10, 10), red)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	require.Equal(t, 3, scene.SpatialTree.Len())
	node := scene.SpatialTree.Node(2)
	assert.Equal(t, spatial.KindScrollFrame, node.Kind)
	assert.Equal(t, uint64(5), node.ExternalID)
	assert.Equal(t, lmath.NewRect(0, 0, 500, 1000), node.ContentRect)

	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	assert.Equal(t, spatial.NodeIndex(2), prims[0].Spatial)
	assert.Equal(t, lmath.NewRect(0, 100, 10, 10), prims[0].LocalRect, "external scroll offset shifts item geometry")
}

func TestIframe(t *testing.T) {
	cb := displaylist.NewDisplayListBuilder(childPipeline)
	childCommon := displaylist.CommonItemProperties{
		ClipRect: lmath.NewRect(0, 0, 200, 200),
		Spatial:  displaylist.RootScrollNodeID(childPipeline),
		Clip:     displaylist.RootClipID(childPipeline),
		Flags:    displaylist.PrimFlagIsBackfaceVisible,
		Tag:      displaylist.ItemTag{ID: 3},
	}
	cb.PushRect(childCommon, lmath.NewRect(0, 0, 50, 50), red)

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushIframe(lmath.NewRect(100, 100, 200, 200), lmath.NewRect(100, 100, 200, 200),
		displaylist.RootScrollNodeID(testPipeline), childPipeline, false)

	root := pipelineFor(testPipeline, b.Finalize())
	child := pipelineFor(childPipeline, cb.Finalize())
	child.Epoch = 4
	child.ViewportSize = lmath.Size{W: 200, H: 200}
	child.ContentSize = lmath.Size{W: 200, H: 200}

	scene := NewSceneBuilder(FrameBuilderConfig{}, nil, nil).Build(sceneRequest(root, child))

	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	assert.Equal(t, spatial.NodeIndex(3), prims[0].Spatial, "child content hangs off the iframe's scroll node")

	// The child's root clip resolves to the iframe viewport clip.
	require.NotEqual(t, clip.NoChain, prims[0].ClipChain)
	node := scene.ClipStore.Node(prims[0].ClipChain)
	assert.Equal(t, lmath.NewRect(100, 100, 200, 200), scene.ClipStore.ItemKey(node).Rect)
	assert.Equal(t, clip.NoChain, node.Parent)

	refNode := scene.SpatialTree.Node(2)
	assert.Equal(t, spatial.KindReferenceFrame, refNode.Kind)
	assert.Equal(t, [2]float32{100, 100}, refNode.Transform.Translation)

	require.Len(t, scene.HitTest.Items, 1)
	item := scene.HitTest.Items[0]
	assert.Equal(t, scene.HitTest.Roots[item.RootsStart:item.RootsEnd], []clip.ChainID{prims[0].ClipChain})

	assert.Equal(t, Epoch(4), scene.PipelineEpochs[childPipeline])
	assert.Contains(t, scene.PipelineEpochs, testPipeline)
}

func TestIframeMissingPipelineIgnored(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushIframe(lmath.NewRect(0, 0, 100, 100), lmath.NewRect(0, 0, 100, 100),
		displaylist.RootScrollNodeID(testPipeline), childPipeline, true)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})
	assert.Empty(t, rootPrims(scene))
}

func TestIframeMissingPipelinePanics(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushIframe(lmath.NewRect(0, 0, 100, 100), lmath.NewRect(0, 0, 100, 100),
		displaylist.RootScrollNodeID(testPipeline), childPipeline, false)
	dl := b.Finalize()

	assert.Panics(t, func() {
		buildScene(dl, FrameBuilderConfig{})
	})
}

func TestPictureCacheSlices(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 800, 20), gfx.White)
	for i := 0; i < 2; i++ {
		scroll := b.DefineScrollFrame(displaylist.RootScrollNodeID(testPipeline), uint64(i+1),
			lmath.NewRect(0, 0, 800, 2000), lmath.NewRect(0, 0, 800, 600), lmath.Vector{})
		common := testCommon()
		common.Spatial = scroll
		b.PushRect(common, lmath.NewRect(0, 0, 100, 100), red)
	}

	bg := gfx.White
	pl := pipelineFor(testPipeline, b.Finalize())
	pl.BackgroundColor = &bg
	scene := NewSceneBuilder(FrameBuilderConfig{EnablePictureCaching: true}, nil, nil).
		Build(sceneRequest(pl))

	assert.Equal(t, 3, scene.ContentSliceCount)
	require.Equal(t, 4, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 3)

	for i, p := range prims {
		require.Equal(t, PrimPicture, p.Kind)
		tc, ok := scene.Pictures.Get(p.Pic).Composite.(CompositeTileCache)
		require.True(t, ok)
		assert.Equal(t, i, tc.Params.Slice)
		if i == 0 {
			assert.Equal(t, &bg, tc.Params.BackgroundColor, "only the first slice paints the background")
			assert.Equal(t, scene.SpatialTree.RootReferenceFrameIndex(), tc.Params.ScrollRoot)
		} else {
			assert.Nil(t, tc.Params.BackgroundColor)
			assert.NotEqual(t, scene.SpatialTree.RootReferenceFrameIndex(), tc.Params.ScrollRoot)
		}
		assert.Contains(t, scene.PictureCacheSpatialNodes, tc.Params.ScrollRoot)
	}
}

func TestPictureCacheSliceCap(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	for i := 0; i < 10; i++ {
		scroll := b.DefineScrollFrame(displaylist.RootScrollNodeID(testPipeline), uint64(i+1),
			lmath.NewRect(0, 0, 800, 2000), lmath.NewRect(0, 0, 800, 600), lmath.Vector{})
		common := testCommon()
		common.Spatial = scroll
		b.PushRect(common, lmath.NewRect(0, 0, 100, 100), red)
	}

	scene := buildScene(b.Finalize(), FrameBuilderConfig{EnablePictureCaching: true})

	assert.Equal(t, 1, scene.ContentSliceCount, "too many slices collapse into one")
	require.Equal(t, 2, scene.Pictures.Len())
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	tc := scene.Pictures.Get(prims[0].Pic).Composite.(CompositeTileCache)
	assert.Equal(t, scene.SpatialTree.RootReferenceFrameIndex(), tc.Params.ScrollRoot)
	assert.Equal(t, 10, scene.Pictures.Get(prims[0].Pic).Prims.PrimCount())
}

func TestScrollbarContainerIsolatedIntoSlice(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 800, 20), gfx.White)
	scrollbar := testCommon()
	scrollbar.Flags |= displaylist.PrimFlagIsScrollbarContainer
	b.PushRect(scrollbar, lmath.NewRect(790, 0, 10, 600), red)
	b.PushRect(testCommon(), lmath.NewRect(0, 30, 100, 100), blue)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{EnablePictureCaching: true})
	assert.Equal(t, 3, scene.ContentSliceCount, "slice boundaries before and after the scrollbar")
}

func TestScrollbarStackingContextIsolatedIntoSlice(t *testing.T) {
	scrollbar := scParams()
	scrollbar.PrimFlags |= displaylist.PrimFlagIsScrollbarContainer

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 800, 20), gfx.White)
	b.PushStackingContext(lmath.Pt(0, 0), scrollbar)
	b.PushRect(testCommon(), lmath.NewRect(790, 0, 10, 600), red)
	b.PopStackingContext()
	b.PushRect(testCommon(), lmath.NewRect(0, 30, 100, 100), blue)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{EnablePictureCaching: true})

	// The context's flags must survive onto its picture instance, or the
	// scrollbar merges into the neighboring clusters.
	assert.Equal(t, 3, scene.ContentSliceCount, "a scrollbar stacking context gets its own slice")
	prims := rootPrims(scene)
	require.Len(t, prims, 3)
	middle := picPrims(scene, prims[1].Pic)
	require.Len(t, middle, 1)
	assert.Equal(t, PrimPicture, middle[0].Kind, "the middle slice holds the scrollbar's picture")
}

func TestScrolledToFixedTransitionCut(t *testing.T) {
	build := func() *displaylist.BuiltDisplayList {
		b := displaylist.NewDisplayListBuilder(testPipeline)
		scroll := b.DefineScrollFrame(displaylist.RootScrollNodeID(testPipeline), 1,
			lmath.NewRect(0, 0, 800, 2000), lmath.NewRect(0, 0, 800, 600), lmath.Vector{})
		scrolled := testCommon()
		scrolled.Spatial = scroll
		b.PushRect(scrolled, lmath.NewRect(0, 0, 100, 100), red)
		b.PushRect(testCommon(), lmath.NewRect(0, 500, 800, 100), blue)
		return b.Finalize()
	}
	cfg := FrameBuilderConfig{EnablePictureCaching: true}

	scene := NewSceneBuilder(cfg, nil, nil).
		Build(sceneRequest(pipelineFor(testPipeline, build())))
	assert.Equal(t, 2, scene.ContentSliceCount, "fixed content after scrolled content is cut into its own slice")

	req := sceneRequest(pipelineFor(testPipeline, build()))
	req.Quality.PreferSubpixelAA = true
	scene = NewSceneBuilder(cfg, nil, nil).Build(req)
	assert.Equal(t, 1, scene.ContentSliceCount, "subpixel AA keeps fixed content composited onto the scrolled slice")
}

func TestScrolledClipBlocksFixedSlice(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	scroll := b.DefineScrollFrame(displaylist.RootScrollNodeID(testPipeline), 1,
		lmath.NewRect(0, 0, 800, 2000), lmath.NewRect(0, 0, 800, 600), lmath.Vector{})
	scrolled := testCommon()
	scrolled.Spatial = scroll
	b.PushRect(scrolled, lmath.NewRect(0, 0, 100, 100), red)

	clipID := b.DefineRectClip(scroll, lmath.NewRect(0, 0, 800, 600))
	fixed := testCommon()
	fixed.Clip = clipID
	b.PushRect(fixed, lmath.NewRect(0, 500, 800, 100), blue)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{EnablePictureCaching: true})
	assert.Equal(t, 1, scene.ContentSliceCount, "fixed content clipped by scrolled content cannot be isolated")
}

func TestInterningStableWithinAndAcrossBuilds(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushRect(testCommon(), lmath.NewRect(0, 0, 10, 10), red)
	b.PushRect(testCommon(), lmath.NewRect(20, 0, 10, 10), red)
	b.PushRect(testCommon(), lmath.NewRect(40, 0, 10, 10), blue)
	dl := b.Finalize()

	sb := NewSceneBuilder(FrameBuilderConfig{}, nil, nil)
	req := sceneRequest(pipelineFor(testPipeline, dl))

	first := rootPrims(sb.Build(req))
	require.Len(t, first, 3)
	assert.Equal(t, first[0].DataIndex, first[1].DataIndex, "identical payloads share a handle")
	assert.NotEqual(t, first[0].DataIndex, first[2].DataIndex)

	second := rootPrims(sb.Build(req))
	require.Len(t, second, 3)
	assert.Equal(t, first[0].DataIndex, second[0].DataIndex, "handles are stable frame over frame")
	assert.Equal(t, first[2].DataIndex, second[2].DataIndex)
	assert.Equal(t, 2, sb.interners.Rectangles.Len())
}

func TestTextRuns(t *testing.T) {
	glyphs := []displaylist.GlyphInstance{
		{Index: 4, Point: lmath.Pt(0, 12)},
		{Index: 8, Point: lmath.Pt(9, 12)},
	}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushText(testCommon(), lmath.NewRect(0, 0, 100, 20), 7, gfx.Black, glyphs)
	b.PushText(testCommon(), lmath.NewRect(0, 30, 100, 20), 8, gfx.Black, glyphs)

	sb := NewSceneBuilder(FrameBuilderConfig{}, nil, nil)
	sb.Fonts().Add(7, FontInstance{Size: 12})
	scene := sb.Build(sceneRequest(pipelineFor(testPipeline, b.Finalize())))

	// The run against the unregistered key is dropped.
	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	require.Equal(t, PrimTextRun, prims[0].Kind)
	assert.Equal(t, glyphs, scene.Interners.TextRunData.Get(prims[0].DataIndex))

	key := scene.Interners.TextRuns.KeyAt(prims[0].DataIndex)
	assert.Equal(t, FontInstanceKey(7), key.FontKey)
	assert.Equal(t, uint32(2), key.GlyphCount)
}

func TestZeroSizeFontDropsTextRun(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushText(testCommon(), lmath.NewRect(0, 0, 100, 20), 7, gfx.Black,
		[]displaylist.GlyphInstance{{Index: 4, Point: lmath.Pt(0, 12)}})

	sb := NewSceneBuilder(FrameBuilderConfig{}, nil, nil)
	sb.Fonts().Add(7, FontInstance{Size: 0})
	scene := sb.Build(sceneRequest(pipelineFor(testPipeline, b.Finalize())))
	assert.Empty(t, rootPrims(scene))
}

func TestGradientCanonicalization(t *testing.T) {
	stops := []gfx.GradientStop{
		{Offset: 0, Color: red},
		{Offset: 1, Color: blue},
	}

	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushGradient(testCommon(), lmath.NewRect(0, 0, 100, 100),
		lmath.Pt(100, 0), lmath.Pt(0, 0), gfx.ExtendClamp, stops)

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})

	prims := rootPrims(scene)
	require.Len(t, prims, 1)
	require.Equal(t, PrimLinearGradient, prims[0].Kind)
	key := scene.Interners.LinearGradients.KeyAt(prims[0].DataIndex)
	assert.Equal(t, lmath.Pt(0, 0), key.Start)
	assert.Equal(t, lmath.Pt(100, 0), key.End)
	assert.True(t, key.ReverseStops)
	assert.Equal(t, stops, scene.Interners.LinearGradientData.Get(prims[0].DataIndex))
}

func TestInvisibleGradientDropped(t *testing.T) {
	b := displaylist.NewDisplayListBuilder(testPipeline)
	b.PushGradient(testCommon(), lmath.NewRect(0, 0, 100, 100),
		lmath.Pt(0, 0), lmath.Pt(100, 0), gfx.ExtendClamp,
		[]gfx.GradientStop{{Offset: 0}, {Offset: 1}})

	scene := buildScene(b.Finalize(), FrameBuilderConfig{})
	assert.Empty(t, rootPrims(scene))
}
