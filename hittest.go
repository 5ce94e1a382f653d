package loom

import (
	"slices"

	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// HitTestItem is one tagged region of the hit-testing scene. RootsStart and
// RootsEnd delimit, in HitTestingScene.Roots, the clip-chain roots of every
// stacking context and iframe enclosing the item at build time, so a later
// point query can replay exactly the clip checks that applied.
type HitTestItem struct {
	Tag       displaylist.ItemTag
	Rect      lmath.Rect
	Spatial   spatial.NodeIndex
	ClipChain clip.ChainID

	RootsStart uint32
	RootsEnd   uint32
}

// HitTestingScene is built in parallel with the paint scene. Items are
// recorded independently of paint visibility: a fully transparent rectangle
// with a tag still hit-tests.
type HitTestingScene struct {
	Items []HitTestItem
	Roots []clip.ChainID

	lastStart uint32
	lastEnd   uint32
}

func (s *HitTestingScene) Add(tag displaylist.ItemTag, rect lmath.Rect, spatialNode spatial.NodeIndex, chain clip.ChainID, roots []clip.ChainID) {
	start, end := s.lastStart, s.lastEnd
	if !slices.Equal(roots, s.Roots[start:end]) {
		start = uint32(len(s.Roots))
		s.Roots = append(s.Roots, roots...)
		end = uint32(len(s.Roots))
		s.lastStart, s.lastEnd = start, end
	}
	s.Items = append(s.Items, HitTestItem{
		Tag:        tag,
		Rect:       rect,
		Spatial:    spatialNode,
		ClipChain:  chain,
		RootsStart: start,
		RootsEnd:   end,
	})
}
