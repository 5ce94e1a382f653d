package loom

import (
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// referenceFrameMapper converts stacking-context-local coordinates to
// reference-frame-relative coordinates. Reference frames and iframes bracket
// a scope, resetting the accumulator to zero; stacking contexts bracket an
// offset. Unbalanced push/pop is a builder bug and panics.
type referenceFrameMapper struct {
	// scopes holds, per open scope, the offsets length at scope entry.
	scopes  []int
	offsets []lmath.Vector
}

func (m *referenceFrameMapper) pushScope() {
	m.scopes = append(m.scopes, len(m.offsets))
}

func (m *referenceFrameMapper) popScope() {
	if len(m.scopes) == 0 {
		panic("loom: reference frame scope underflow")
	}
	base := m.scopes[len(m.scopes)-1]
	if len(m.offsets) != base {
		panic("loom: reference frame scope popped with unbalanced offsets")
	}
	m.scopes = m.scopes[:len(m.scopes)-1]
}

func (m *referenceFrameMapper) scopeBase() int {
	if len(m.scopes) == 0 {
		return 0
	}
	return m.scopes[len(m.scopes)-1]
}

func (m *referenceFrameMapper) pushOffset(v lmath.Vector) {
	m.offsets = append(m.offsets, m.currentOffset().Add(v))
}

func (m *referenceFrameMapper) popOffset() {
	if len(m.offsets) == m.scopeBase() {
		panic("loom: reference frame offset underflow")
	}
	m.offsets = m.offsets[:len(m.offsets)-1]
}

// currentOffset is the sum of all offsets pushed since the last scope reset.
func (m *referenceFrameMapper) currentOffset() lmath.Vector {
	if len(m.offsets) == m.scopeBase() {
		return lmath.Vector{}
	}
	return m.offsets[len(m.offsets)-1]
}

func (m *referenceFrameMapper) assertBalanced() {
	if len(m.scopes) != 0 || len(m.offsets) != 0 {
		panic("loom: reference frame mapper unbalanced at end of build")
	}
}

// scrollOffsetMapper caches the externally-applied scroll delta of the most
// recently queried spatial node. Scroll offsets are fixed for the duration of
// one build, so the cache never needs invalidation within a pass.
type scrollOffsetMapper struct {
	node   spatial.NodeIndex
	offset lmath.Vector
	valid  bool
}

func (m *scrollOffsetMapper) externalScrollOffset(node spatial.NodeIndex, tree *spatial.Tree) lmath.Vector {
	if m.valid && m.node == node {
		return m.offset
	}
	var off lmath.Vector
	for idx := node; idx != spatial.InvalidNodeIndex; idx = tree.Node(idx).Parent {
		off = off.Add(tree.ExternalScrollOffset(idx))
		// Offsets beyond the nearest reference frame are part of that
		// frame's transform, not of item coordinates.
		if k := tree.Node(idx).Kind; k == spatial.KindReferenceFrame || k == spatial.KindRootReferenceFrame {
			break
		}
	}
	m.node = node
	m.offset = off
	m.valid = true
	return off
}
