package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// maxCacheSlices caps the number of picture-cache slices; beyond it the
// whole scene collapses into one slice to bound compositing overhead.
const maxCacheSlices = 8

// tagSlices runs once, on the fully assembled top-level primitive list. It
// walks clusters in order, determines each cluster's scroll root, and marks
// slice boundaries:
//
//   - always before and after a scrollbar-container cluster
//   - always when fixed content transitions to scrolled content
//   - from scrolled to fixed content only when subpixel AA is not preferred
//     and every clip of the fixed cluster is itself fixed
//   - always between two different non-root scroll roots
//
// It returns the slice count, 1 if the count would exceed the cap.
func (sb *SceneBuilder) tagSlices(list *PrimitiveList) int {
	if list.IsEmpty() {
		return 0
	}
	tree := sb.spatialTree
	root := tree.RootReferenceFrameIndex()

	count := 0
	prevRoot := spatial.InvalidNodeIndex
	prevScrollbar := false
	for i := range list.Clusters {
		c := &list.Clusters[i]
		scrollRoot := tree.ScrollRoot(c.Spatial)
		scrollbar := c.Flags&ClusterIsScrollbarContainer != 0

		cut := false
		switch {
		case i == 0:
			cut = true
		case scrollbar || prevScrollbar:
			cut = true
		case prevRoot == root && scrollRoot != root:
			cut = true
		case prevRoot != root && scrollRoot == root:
			cut = !sb.quality.PreferSubpixelAA && sb.clusterClipsFixed(c, root)
		case prevRoot != scrollRoot:
			cut = true
		}
		if cut {
			c.Flags |= ClusterCreateSliceBefore
			count++
		}
		c.CacheScrollRoot = scrollRoot
		prevRoot = scrollRoot
		prevScrollbar = scrollbar
	}

	if count > maxCacheSlices {
		for i := range list.Clusters {
			c := &list.Clusters[i]
			if i > 0 {
				c.Flags &^= ClusterCreateSliceBefore
			}
			c.CacheScrollRoot = root
		}
		return 1
	}
	return count
}

// clusterClipsFixed reports whether every clip node reachable from every
// primitive of the cluster is positioned by fixed content. A fixed cluster
// clipped by a scrolled clip cannot be isolated into its own slice.
func (sb *SceneBuilder) clusterClipsFixed(c *Cluster, root spatial.NodeIndex) bool {
	for i := range c.Prims {
		fixed := true
		sb.clipStore.WalkChain(c.Prims[i].ClipChain, func(n *clip.ChainNode) bool {
			if sb.spatialTree.ScrollRoot(n.Spatial) != root {
				fixed = false
				return false
			}
			return true
		})
		if !fixed {
			return false
		}
	}
	return true
}

// setupPictureCaching consumes the boundary tags, partitions the clusters
// into slices, and wraps each slice's primitive list in a tile-cache picture.
// The returned list holds one picture instance per slice, in slice order.
func (sb *SceneBuilder) setupPictureCaching(list *PrimitiveList, bg *gfx.ColorF) PrimitiveList {
	var out PrimitiveList
	if list.IsEmpty() {
		return out
	}

	var start int
	slice := 0
	flush := func(end int) {
		clusters := list.Clusters[start:end]
		scrollRoot := clusters[0].CacheScrollRoot
		params := TileCacheParams{
			Slice:       slice,
			ScrollRoot:  scrollRoot,
			SharedClips: sb.sharedRectClips(clusters),
		}
		if slice == 0 {
			params.BackgroundColor = bg
		}
		inst := sb.realizePicture(Picture{
			Composite:   CompositeTileCache{Params: params},
			RasterSpace: lmath.RasterSpace{Kind: lmath.RasterScreen, Scale: 1},
			Spatial:     scrollRoot,
			Prims:       PrimitiveList{Clusters: clusters},
		}, clip.NoChain)
		out.Add(inst, displaylist.PrimFlagIsBackfaceVisible)
		sb.cacheSpatial[scrollRoot] = struct{}{}
		slice++
		start = end
	}

	for i := 1; i < len(list.Clusters); i++ {
		if list.Clusters[i].Flags&ClusterCreateSliceBefore != 0 {
			flush(i)
		}
	}
	flush(len(list.Clusters))
	list.Clusters = nil
	return out
}

// sharedRectClips computes the rectangle-only clip nodes common to every
// primitive in the slice. Complex clips are never shareable.
func (sb *SceneBuilder) sharedRectClips(clusters []Cluster) []clip.ChainID {
	var shared []clip.ChainID
	first := true
	for ci := range clusters {
		for pi := range clusters[ci].Prims {
			var nodes []clip.ChainID
			for id := clusters[ci].Prims[pi].ClipChain; id != clip.NoChain; {
				n := sb.clipStore.Node(id)
				if !sb.clipStore.ItemKey(n).IsComplex() {
					nodes = append(nodes, id)
				}
				id = n.Parent
			}
			if first {
				shared = nodes
				first = false
			} else {
				shared = intersectChainIDs(shared, nodes)
			}
			if len(shared) == 0 {
				return nil
			}
		}
	}
	return shared
}

func intersectChainIDs(a, b []clip.ChainID) []clip.ChainID {
	var out []clip.ChainID
	for _, id := range a {
		for _, other := range b {
			if id == other {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
