// Package intern provides content-addressed interning tables: identical keys
// submitted to the same Interner resolve to the same stable handle. Interners
// are retained across scene builds so that unchanged primitives keep their
// handles, which downstream consumers rely on for cheap frame diffing.
package intern

type Index uint32

// Handle is a stable reference to an interned key. Handles are only
// meaningful together with the Interner that produced them.
type Handle[K comparable] struct {
	index Index
}

func (h Handle[K]) Index() Index { return h.index }

type entry struct {
	index Index
	epoch uint64
}

type Interner[K comparable] struct {
	mapping map[K]*entry
	keys    []K
	epoch   uint64
}

func New[K comparable]() *Interner[K] {
	return &Interner[K]{
		mapping: make(map[K]*entry),
	}
}

// Intern returns the handle for key, allocating a new index if the key has
// not been seen before. The second return value reports whether the key was
// newly added; callers use it to populate side tables exactly once per index.
func (in *Interner[K]) Intern(key K) (Handle[K], bool) {
	if e, ok := in.mapping[key]; ok {
		e.epoch = in.epoch
		return Handle[K]{index: e.index}, false
	}
	idx := Index(len(in.keys))
	in.keys = append(in.keys, key)
	in.mapping[key] = &entry{index: idx, epoch: in.epoch}
	return Handle[K]{index: idx}, true
}

func (in *Interner[K]) Get(h Handle[K]) K {
	return in.keys[h.index]
}

// KeyAt returns the key stored at an index, for consumers that carry raw
// indices instead of handles.
func (in *Interner[K]) KeyAt(idx Index) K {
	return in.keys[idx]
}

func (in *Interner[K]) Len() int { return len(in.keys) }

// Maintain marks the start of a new build. Entries are never evicted, only
// aged; the epoch exists so that future consumers can tell which handles were
// touched by the most recent build.
func (in *Interner[K]) Maintain() {
	in.epoch++
}

// DataStore mirrors interned indices into a dense slice of values, for
// payloads that are too large or not comparable enough to live in the key
// itself (glyph runs, gradient stop lists).
type DataStore[V any] struct {
	values []V
}

func (ds *DataStore[V]) Set(idx Index, v V) {
	for int(idx) >= len(ds.values) {
		ds.values = append(ds.values, *new(V))
	}
	ds.values[idx] = v
}

func (ds *DataStore[V]) Get(idx Index) V {
	return ds.values[idx]
}

// HashBytes is 64-bit FNV-1a, used to fold variable-length payloads into the
// comparable keys handed to an Interner.
func HashBytes(seed uint64, data []byte) uint64 {
	const prime = 1099511628211
	h := seed
	if h == 0 {
		h = 14695981039346656037
	}
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
