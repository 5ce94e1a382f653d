package loom

import (
	"honnef.co/go/loom/clip"
	"honnef.co/go/loom/displaylist"
	"honnef.co/go/loom/gfx"
	"honnef.co/go/loom/lmath"
	"honnef.co/go/loom/spatial"
)

// BuiltScene is the immutable result of one scene build, handed read-only to
// the rasterization backend. It is superseded wholesale by the next build;
// nothing mutates it after handoff.
type BuiltScene struct {
	RootPictureIndex PictureIndex
	Pictures         *PictureStore
	Interners        *Interners
	ClipStore        *clip.Store
	SpatialTree      *spatial.Tree
	HitTest          *HitTestingScene

	// ContentSliceCount is the number of picture-cache slices, 1 when the
	// slicer bailed out or caching is disabled.
	ContentSliceCount int
	// PictureCacheSpatialNodes holds the scroll roots that ended up driving
	// a tile-cache picture.
	PictureCacheSpatialNodes map[spatial.NodeIndex]struct{}

	OutputRect      lmath.Rect
	BackgroundColor *gfx.ColorF
	PipelineEpochs  map[displaylist.PipelineID]Epoch
}

// RootPicture is a convenience accessor for the root of the picture DAG.
func (s *BuiltScene) RootPicture() *Picture {
	return s.Pictures.Get(s.RootPictureIndex)
}
