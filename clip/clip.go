// Package clip owns clip templates and clip chains. Display lists declare
// clips by id; the scene builder resolves each id to a chain of clip-chain
// nodes, deduplicating the underlying clip items through an interner so that
// identical clips across the scene (and across builds) share one descriptor.
package clip

import (
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/intern"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// ChainID references a node in the chain arena; each node links to its
// parent, forming a singly linked list terminated by NoChain.
type ChainID uint32

const NoChain = ChainID(^uint32(0))

type ItemKind uint32

const (
	KindRect ItemKind = iota
	KindRoundedRect
	KindImageMask
)

// ItemKey is the interned descriptor of a single clip item. Rect clips are
// "simple"; everything else is complex and forces isolation of the content
// it applies to.
type ItemKey struct {
	Kind     ItemKind
	Rect     lmath.Rect
	Radii    gfx.BorderRadius
	Mode     displaylist.ClipMode
	ImageKey uint64
}

func (k ItemKey) IsComplex() bool { return k.Kind != KindRect }

type ChainNode struct {
	Item    intern.Handle[ItemKey]
	Spatial spatial.NodeIndex
	Parent  ChainID
}

type template struct {
	// Leaf templates expand to one node per key; chain templates compose
	// other templates.
	keys    []ItemKey
	spatial spatial.NodeIndex

	isChain   bool
	parent    displaylist.ClipID
	hasParent bool
	clips     []displaylist.ClipID
}

type resolveKey struct {
	id   displaylist.ClipID
	root ChainID
}

type Store struct {
	interner  *intern.Interner[ItemKey]
	nodes     []ChainNode
	templates map[displaylist.ClipID]*template
	resolved  map[resolveKey]ChainID
}

func NewStore(interner *intern.Interner[ItemKey]) *Store {
	return &Store{
		interner:  interner,
		templates: make(map[displaylist.ClipID]*template),
		resolved:  make(map[resolveKey]ChainID),
	}
}

func (s *Store) RegisterRect(id displaylist.ClipID, spatialNode spatial.NodeIndex, rect lmath.Rect) {
	s.register(id, &template{
		keys:    []ItemKey{{Kind: KindRect, Rect: rect}},
		spatial: spatialNode,
	})
}

func (s *Store) RegisterComplex(id displaylist.ClipID, spatialNode spatial.NodeIndex, regions []displaylist.ComplexClipRegion) {
	keys := make([]ItemKey, len(regions))
	for i, r := range regions {
		keys[i] = ItemKey{
			Kind:  KindRoundedRect,
			Rect:  r.Rect,
			Radii: r.Radii,
			Mode:  r.Mode,
		}
	}
	s.register(id, &template{keys: keys, spatial: spatialNode})
}

func (s *Store) RegisterImageMask(id displaylist.ClipID, spatialNode spatial.NodeIndex, imageKey uint64, rect lmath.Rect) {
	s.register(id, &template{
		keys:    []ItemKey{{Kind: KindImageMask, Rect: rect, ImageKey: imageKey}},
		spatial: spatialNode,
	})
}

func (s *Store) RegisterChain(id displaylist.ClipID, parent *displaylist.ClipID, clips []displaylist.ClipID) {
	t := &template{isChain: true, clips: clips}
	if parent != nil {
		t.parent = *parent
		t.hasParent = true
	}
	s.register(id, t)
}

func (s *Store) register(id displaylist.ClipID, t *template) {
	if _, ok := s.templates[id]; ok {
		panic("clip: clip id declared twice")
	}
	s.templates[id] = t
}

// AddNode prepends one clip item to parent and returns the id of the new
// chain head. Chains are never mutated in place; extending is the only way
// to grow one, so resolved ids stay valid forever.
func (s *Store) AddNode(key ItemKey, spatialNode spatial.NodeIndex, parent ChainID) ChainID {
	handle, _ := s.interner.Intern(key)
	id := ChainID(len(s.nodes))
	s.nodes = append(s.nodes, ChainNode{
		Item:    handle,
		Spatial: spatialNode,
		Parent:  parent,
	})
	return id
}

func (s *Store) Node(id ChainID) *ChainNode {
	return &s.nodes[id]
}

func (s *Store) ItemKey(n *ChainNode) ItemKey {
	return s.interner.Get(n.Item)
}

// Resolve maps a display-list clip id to its chain, terminating at root.
// Root is the chain of the nearest enclosing clip scope (an iframe viewport
// or a clipped stacking context), NoChain at the top level. The root clip id
// resolves to the scope chain itself; an id never declared by the display
// list is a producer bug.
func (s *Store) Resolve(id displaylist.ClipID, root ChainID) ChainID {
	if id.IsRoot() {
		return root
	}
	key := resolveKey{id: id, root: root}
	if chain, ok := s.resolved[key]; ok {
		return chain
	}
	t, ok := s.templates[id]
	if !ok {
		panic("clip: reference to undeclared clip id")
	}
	var chain ChainID
	if t.isChain {
		chain = root
		if t.hasParent {
			chain = s.Resolve(t.parent, root)
		}
		for _, cid := range t.clips {
			chain = s.appendTemplate(cid, chain)
		}
	} else {
		chain = s.instantiate(t, root)
	}
	s.resolved[key] = chain
	return chain
}

func (s *Store) appendTemplate(id displaylist.ClipID, parent ChainID) ChainID {
	if id.IsRoot() {
		return parent
	}
	t, ok := s.templates[id]
	if !ok {
		panic("clip: reference to undeclared clip id")
	}
	if t.isChain {
		panic("clip: clip chains may not nest other chains as members")
	}
	return s.instantiate(t, parent)
}

func (s *Store) instantiate(t *template, parent ChainID) ChainID {
	chain := parent
	for _, key := range t.keys {
		chain = s.AddNode(key, t.spatial, chain)
	}
	return chain
}

// WalkChain visits the chain from its head to the root. The walk stops early
// if fn returns false.
func (s *Store) WalkChain(id ChainID, fn func(node *ChainNode) bool) {
	for id != NoChain {
		n := s.Node(id)
		if !fn(n) {
			return
		}
		id = n.Parent
	}
}

// HasComplexClips reports whether any node in the chain is not a plain
// rectangle. The walk stops at the first complex node.
func (s *Store) HasComplexClips(id ChainID) bool {
	complex := false
	s.WalkChain(id, func(n *ChainNode) bool {
		if s.ItemKey(n).IsComplex() {
			complex = true
			return false
		}
		return true
	})
	return complex
}
