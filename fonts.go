package loom

import (
	"sync"

	"github.com/go-text/typesetting/font"
)

// FontInstanceKey names a registered font instance. Keys are assigned by the
// embedding application; the builder only looks them up.
type FontInstanceKey uint64

// FontInstance pairs a parsed face with the size and render mode text runs
// are rasterized at. Glyph ids in the display list index into Face.
type FontInstance struct {
	Face       *font.Face
	Size       float32
	RenderMode FontRenderMode
}

// FontInstanceMap is the shared font-instance table. It is the one resource
// accessed by the builder that other threads may mutate concurrently, so
// lookups take a read lock for the duration of the single map access.
type FontInstanceMap struct {
	mu        sync.RWMutex
	instances map[FontInstanceKey]FontInstance
}

func NewFontInstanceMap() *FontInstanceMap {
	return &FontInstanceMap{
		instances: make(map[FontInstanceKey]FontInstance),
	}
}

func (m *FontInstanceMap) Add(key FontInstanceKey, inst FontInstance) {
	m.mu.Lock()
	m.instances[key] = inst
	m.mu.Unlock()
}

func (m *FontInstanceMap) Get(key FontInstanceKey) (FontInstance, bool) {
	m.mu.RLock()
	inst, ok := m.instances[key]
	m.mu.RUnlock()
	return inst, ok
}
