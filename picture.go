package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/intern"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// PictureIndex is a stable handle into the PictureStore. Pictures reference
// each other only through indices; a picture's primitive list is stored by
// value inside it, so ownership stays tree shaped even though references form
// a DAG.
type PictureIndex uint32

const InvalidPictureIndex = PictureIndex(^uint32(0))

// BlitReason is a bitmask of reasons a stacking context must render into its
// own surface instead of folding into the parent.
type BlitReason uint32

const (
	// BlitReasonIsolate marks a blend container's isolated backdrop.
	BlitReasonIsolate BlitReason = 1 << iota
	// BlitReasonClip is set when the resolved clip chain holds at least one
	// non-rectangle clip.
	BlitReasonClip
	// BlitReasonPreserve3D marks flat content rendered as one atomic unit
	// between 3D-participating siblings.
	BlitReasonPreserve3D
)

// CompositeMode is the closed set of compositing operations a picture applies
// to its content. A nil CompositeMode is a pass-through.
type CompositeMode interface {
	isCompositeMode()
}

type CompositeBlit struct {
	Reason BlitReason
}

type CompositeFilter struct {
	Filter gfx.FilterOp
}

type CompositeComponentTransfer struct {
	Handle intern.Handle[FilterDataKey]
}

type CompositeMixBlend struct {
	Mode gfx.MixBlendMode
}

// CompositeSvgFilter applies an SVG filter graph. Primitives reference each
// other by index; FilterDatas carries the component-transfer tables the graph
// nodes refer to.
type CompositeSvgFilter struct {
	Primitives  []gfx.FilterPrimitive
	FilterDatas []gfx.FilterData
}

type CompositeTileCache struct {
	Params TileCacheParams
}

func (CompositeBlit) isCompositeMode()              {}
func (CompositeFilter) isCompositeMode()            {}
func (CompositeComponentTransfer) isCompositeMode() {}
func (CompositeMixBlend) isCompositeMode()          {}
func (CompositeSvgFilter) isCompositeMode()         {}
func (CompositeTileCache) isCompositeMode()         {}

// TileCacheParams configures one picture-cache slice.
type TileCacheParams struct {
	Slice      int
	ScrollRoot spatial.NodeIndex
	// SharedClips are the rectangle-only clip nodes common to every
	// primitive in the slice; they can be applied once per tile instead of
	// per primitive.
	SharedClips     []clip.ChainID
	BackgroundColor *gfx.ColorF
}

// Picture3DContext records a picture's membership in a 3D rendering context.
type Picture3DContext struct {
	Participates bool
	// Root marks the context establisher, the picture whose primitive list
	// holds every plane of the context in document order.
	Root bool
	// Ancestor is the spatial node of the context establisher, shared by all
	// participating pictures.
	Ancestor spatial.NodeIndex
}

// Picture groups a primitive list under a single compositing operation.
type Picture struct {
	Composite   CompositeMode
	Context3D   Picture3DContext
	RasterSpace lmath.RasterSpace
	Spatial     spatial.NodeIndex
	Prims       PrimitiveList
}

type PictureStore struct {
	pictures []Picture
}

func (s *PictureStore) Add(p Picture) PictureIndex {
	idx := PictureIndex(len(s.pictures))
	s.pictures = append(s.pictures, p)
	return idx
}

func (s *PictureStore) Get(idx PictureIndex) *Picture {
	return &s.pictures[idx]
}

func (s *PictureStore) Len() int { return len(s.pictures) }
