// Package loom compiles serialized display lists into a retained scene graph
// of pictures, primitives, clips and spatial nodes. The scene builder walks
// the display-list item stream depth-first, maintaining a stack of open
// stacking contexts, and emits an immutable BuiltScene suitable for
// visibility culling, tiling and rasterization by a downstream backend.
package loom

import (
	"honnef.co/go/color"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
)

// Epoch is a per-pipeline generation counter, bumped by the producer whenever
// it submits a new display list for that pipeline.
type Epoch uint32

type FontRenderMode uint8

const (
	FontRenderModeMono FontRenderMode = iota
	FontRenderModeAlpha
	FontRenderModeSubpixel
)

// FrameBuilderConfig carries build options that hold for the lifetime of the
// builder. It is read-only during a build.
type FrameBuilderConfig struct {
	// EnablePictureCaching turns on the slicing pass over the top-level
	// primitive list. When disabled the whole scene is a single slice with
	// no tile-cache pictures.
	EnablePictureCaching bool

	DefaultFontRenderMode FontRenderMode

	// ChaseRect, when set, logs every primitive whose local rect intersects
	// it at debug level. Debugging aid only.
	ChaseRect *lmath.Rect

	// BackgroundColor overrides the root pipeline's background color. It is
	// converted to the packed linear form once per build.
	BackgroundColor *color.Color
}

// QualitySettings are per-request quality knobs.
type QualitySettings struct {
	// PreferSubpixelAA keeps fixed-position content in the same slice as the
	// scrolled content below it, trading caching granularity for subpixel
	// text rendering on top of it.
	PreferSubpixelAA bool
}

// ScenePipeline is one content pipeline's contribution to a scene: its
// display list plus the viewport metadata the builder needs to establish the
// pipeline's root spatial nodes.
type ScenePipeline struct {
	Pipeline        displaylist.PipelineID
	DisplayList     *displaylist.BuiltDisplayList
	BackgroundColor *gfx.ColorF
	ViewportSize    lmath.Size
	ContentSize     lmath.Size
	Epoch           Epoch
}

// SceneRequest is the input to one scene build: the root pipeline, every
// pipeline reachable through iframes, and the output device parameters.
type SceneRequest struct {
	RootPipeline displaylist.PipelineID
	Pipelines    map[displaylist.PipelineID]*ScenePipeline
	DeviceRect   lmath.Rect
	DeviceScale  lmath.DevicePixelScale
	Quality      QualitySettings
}
