// Package spatial owns the tree of transform and scroll nodes referenced by
// compiled primitives. The tree is built incrementally during a scene build
// and handed off, by value, inside the built scene.
//
// Nodes accumulate state root-to-leaf at insertion time: the coordinate
// system id, axis-alignment of the accumulated transform, and the snapping
// offset. This keeps per-item queries during the build O(1).
package spatial

import (
	"honnef.co/go/loom/lmath"
)

// NodeIndex is a stable handle into the tree. The root reference frame is
// always index 0.
type NodeIndex uint32

const InvalidNodeIndex = NodeIndex(^uint32(0))

// CoordinateSystemID groups nodes whose accumulated transforms differ only by
// axis-aligned scale and translation. Snapping is only meaningful within one
// coordinate system.
type CoordinateSystemID uint32

type TransformStyle uint8

const (
	TransformFlat TransformStyle = iota
	TransformPreserve3D
)

type NodeKind uint8

const (
	KindRootReferenceFrame NodeKind = iota
	KindReferenceFrame
	KindScrollFrame
	KindStickyFrame
)

type ReferenceFrameKind uint8

const (
	ReferenceFrameTransform ReferenceFrameKind = iota
	ReferenceFramePerspective
)

type Node struct {
	Kind   NodeKind
	Parent NodeIndex

	// Reference frame state.
	Transform      lmath.Transform
	TransformStyle TransformStyle
	RefKind        ReferenceFrameKind

	// Scroll frame state.
	ContentRect          lmath.Rect
	FrameRect            lmath.Rect
	ExternalID           uint64
	ExternalScrollOffset lmath.Vector

	// Sticky frame state.
	StickyBounds  lmath.Rect
	StickyMargins lmath.SideOffsets
	MarginMask    uint32

	// Accumulated at insertion.
	CoordSystem CoordinateSystemID
	AxisAligned bool
}

// Scrolls reports whether a scroll frame has any overflow to scroll.
func (n *Node) Scrolls() bool {
	return n.Kind == KindScrollFrame &&
		(n.ContentRect.Size.W > n.FrameRect.Size.W ||
			n.ContentRect.Size.H > n.FrameRect.Size.H)
}

type Tree struct {
	nodes           []Node
	nextCoordSystem CoordinateSystemID
}

func NewTree() *Tree {
	t := &Tree{nextCoordSystem: 1}
	t.nodes = append(t.nodes, Node{
		Kind:        KindRootReferenceFrame,
		Parent:      InvalidNodeIndex,
		Transform:   lmath.Identity,
		CoordSystem: 0,
		AxisAligned: true,
	})
	return t
}

func (t *Tree) RootReferenceFrameIndex() NodeIndex { return 0 }

func (t *Tree) Node(idx NodeIndex) *Node {
	return &t.nodes[idx]
}

func (t *Tree) Len() int { return len(t.nodes) }

// AddReferenceFrame inserts a reference frame under parent. The transform is
// the frame's own transform relative to its parent, already including the
// frame origin.
func (t *Tree) AddReferenceFrame(parent NodeIndex, transform lmath.Transform, style TransformStyle, kind ReferenceFrameKind) NodeIndex {
	p := t.Node(parent)
	aligned := p.AxisAligned && transform.IsAxisAligned()
	coord := p.CoordSystem
	if !aligned {
		coord = t.nextCoordSystem
		t.nextCoordSystem++
	}
	return t.push(Node{
		Kind:           KindReferenceFrame,
		Parent:         parent,
		Transform:      transform,
		TransformStyle: style,
		RefKind:        kind,
		CoordSystem:    coord,
		AxisAligned:    aligned,
	})
}

func (t *Tree) AddScrollFrame(parent NodeIndex, externalID uint64, contentRect, frameRect lmath.Rect, externalScrollOffset lmath.Vector) NodeIndex {
	p := t.Node(parent)
	return t.push(Node{
		Kind:                 KindScrollFrame,
		Parent:               parent,
		Transform:            lmath.Identity,
		ContentRect:          contentRect,
		FrameRect:            frameRect,
		ExternalID:           externalID,
		ExternalScrollOffset: externalScrollOffset,
		CoordSystem:          p.CoordSystem,
		AxisAligned:          p.AxisAligned,
	})
}

func (t *Tree) AddStickyFrame(parent NodeIndex, bounds lmath.Rect, margins lmath.SideOffsets, marginMask uint32) NodeIndex {
	p := t.Node(parent)
	return t.push(Node{
		Kind:          KindStickyFrame,
		Parent:        parent,
		Transform:     lmath.Identity,
		StickyBounds:  bounds,
		StickyMargins: margins,
		MarginMask:    marginMask,
		CoordSystem:   p.CoordSystem,
		AxisAligned:   p.AxisAligned,
	})
}

func (t *Tree) push(n Node) NodeIndex {
	idx := NodeIndex(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return idx
}

// ExternalScrollOffset returns the externally-applied scroll delta of the
// given node. Non-scroll nodes have no delta of their own.
func (t *Tree) ExternalScrollOffset(idx NodeIndex) lmath.Vector {
	n := t.Node(idx)
	if n.Kind != KindScrollFrame {
		return lmath.Vector{}
	}
	return n.ExternalScrollOffset
}

// IsAxisAligned reports whether geometry positioned by this node can be
// snapped to device pixels.
func (t *Tree) IsAxisAligned(idx NodeIndex) bool {
	return t.Node(idx).AxisAligned
}

// ScrollRoot walks up from idx to the nearest enclosing scroll frame that
// actually scrolls. It returns the root reference frame index for content
// that is fixed with respect to the pipeline viewport.
func (t *Tree) ScrollRoot(idx NodeIndex) NodeIndex {
	for idx != InvalidNodeIndex {
		n := t.Node(idx)
		if n.Scrolls() {
			return idx
		}
		// A non-axis-aligned reference frame breaks the scroll root
		// search: content inside it cannot be cached against an outer
		// scroll frame.
		if n.Kind == KindReferenceFrame && !n.Transform.IsAxisAligned() {
			return t.RootReferenceFrameIndex()
		}
		idx = n.Parent
	}
	return t.RootReferenceFrameIndex()
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (t *Tree) IsAncestor(a, b NodeIndex) bool {
	for b != InvalidNodeIndex {
		if a == b {
			return true
		}
		b = t.Node(b).Parent
	}
	return false
}

// AccumulatedOffset returns the translation from the node's local space to
// the root, valid only while every node on the path is axis-aligned. The
// second return value reports that validity.
func (t *Tree) AccumulatedOffset(idx NodeIndex) (lmath.Vector, bool) {
	var off lmath.Vector
	for idx != InvalidNodeIndex {
		n := t.Node(idx)
		if !n.Transform.IsAxisAligned() {
			return lmath.Vector{}, false
		}
		off = off.Add(lmath.Vec(n.Transform.Translation[0], n.Transform.Translation[1]))
		if n.Kind == KindScrollFrame {
			off = off.Add(n.ExternalScrollOffset.Neg())
		}
		idx = n.Parent
	}
	return off, true
}
