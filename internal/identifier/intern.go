package identifier

import (
	"strings"
	"sync"
)

// Interner assigns an ordinal (for chunk-graph bitmasks) to each distinct
// ModuleIdentifier the first time it's observed. The identifiers themselves
// are not minted here: factorization derives them with Identifier below.
//
// Ordinals are monotonic and never reused within a compilation, mirroring
// the teacher's cache.SourceIndexCache (internal/cache/cache.go in the
// teacher tree, since deleted): a mutex-protected map handing out the next
// integer on first sight.
type Interner struct {
	mu       sync.Mutex
	ordinals map[ModuleIdentifier]uint32
	byOrdinal []ModuleIdentifier
	next     uint32
}

func NewInterner() *Interner {
	return &Interner{ordinals: make(map[ModuleIdentifier]uint32)}
}

// Identifier deterministically derives a ModuleIdentifier the way the
// factorize pipeline does: loader identifiers joined by "!" followed by the
// resource, exactly the scheme spec.md §4.1 step 8 specifies.
func Identifier(loaderIdentifiers []string, resource string) ModuleIdentifier {
	if len(loaderIdentifiers) == 0 {
		return ModuleIdentifier(resource)
	}
	return ModuleIdentifier(strings.Join(loaderIdentifiers, "!") + "!" + resource)
}

// Ordinal returns the stable ordinal for id, assigning a fresh one on first
// sight. Ordinals back the chunk-graph's per-chunk bigint bitmasks (spec.md
// §3: "ChunkGraph stores ... its module set as a bigint bitmask").
func (in *Interner) Ordinal(id ModuleIdentifier) uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if ord, ok := in.ordinals[id]; ok {
		return ord
	}
	ord := in.next
	in.next++
	in.ordinals[id] = ord
	in.byOrdinal = append(in.byOrdinal, id)
	return ord
}

// ModuleForOrdinal reverses Ordinal, needed wherever a chunk's bigint
// bitmask of ordinals must be walked back to the ModuleIdentifiers it
// represents (internal/splitchunks enumerating a chunk's modules).
func (in *Interner) ModuleForOrdinal(ordinal uint32) (ModuleIdentifier, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if int(ordinal) >= len(in.byOrdinal) {
		return "", false
	}
	return in.byOrdinal[ordinal], true
}

// Len returns an upper bound on the number of ordinals assigned so far, used
// to size chunk bitmasks with a little slack for concurrent assignment.
func (in *Interner) Len() uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.next
}
