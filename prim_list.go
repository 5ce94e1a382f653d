package loom

import (
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

type ClusterFlags uint8

const (
	// ClusterIsScrollbarContainer isolates the cluster into its own slice so
	// scrollbar invalidation cannot touch sibling content.
	ClusterIsScrollbarContainer ClusterFlags = 1 << iota
	// ClusterCreateSliceBefore is set by the slicing pass; the cluster
	// starts a new picture-cache slice.
	ClusterCreateSliceBefore
)

// Cluster groups consecutive primitive instances sharing a spatial node and
// flag characteristics, so the slicing pass can work per cluster instead of
// re-scanning every instance.
type Cluster struct {
	Spatial spatial.NodeIndex
	Flags   ClusterFlags
	// CacheScrollRoot is filled in by the slicing pass.
	CacheScrollRoot spatial.NodeIndex
	Prims           []PrimitiveInstance
}

// PrimitiveList is an ordered sequence of primitive instances, maintained in
// document order and grouped into clusters.
type PrimitiveList struct {
	Clusters []Cluster
}

func (l *PrimitiveList) IsEmpty() bool {
	return len(l.Clusters) == 0
}

func (l *PrimitiveList) PrimCount() int {
	n := 0
	for i := range l.Clusters {
		n += len(l.Clusters[i].Prims)
	}
	return n
}

// Add appends one instance, extending the last cluster when the spatial node
// and scrollbar flag match, starting a new one otherwise.
func (l *PrimitiveList) Add(inst PrimitiveInstance, flags displaylist.PrimitiveFlags) {
	var cf ClusterFlags
	if flags&displaylist.PrimFlagIsScrollbarContainer != 0 {
		cf |= ClusterIsScrollbarContainer
	}
	if n := len(l.Clusters); n > 0 {
		last := &l.Clusters[n-1]
		if last.Spatial == inst.Spatial && last.Flags == cf {
			last.Prims = append(last.Prims, inst)
			return
		}
	}
	l.Clusters = append(l.Clusters, Cluster{
		Spatial:         inst.Spatial,
		Flags:           cf,
		CacheScrollRoot: spatial.InvalidNodeIndex,
		Prims:           []PrimitiveInstance{inst},
	})
}

// Extend moves every cluster of other onto the end of l. Other is drained;
// instances are moved, not copied.
func (l *PrimitiveList) Extend(other *PrimitiveList) {
	if l.IsEmpty() {
		l.Clusters = other.Clusters
	} else {
		l.Clusters = append(l.Clusters, other.Clusters...)
	}
	other.Clusters = nil
}

// BoundingRect is the union of every instance's local rect. Used as the local
// rect of picture instances wrapping this list.
func (l *PrimitiveList) BoundingRect() lmath.Rect {
	var r lmath.Rect
	for i := range l.Clusters {
		for j := range l.Clusters[i].Prims {
			r = r.Union(l.Clusters[i].Prims[j].LocalRect)
		}
	}
	return r
}
