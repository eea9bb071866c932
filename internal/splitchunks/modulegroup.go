package splitchunks

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
)

// moduleGroup is spec.md §4.3.2's "ModuleGroup": a candidate aggregation of
// modules targeted at a single extracted chunk, keyed by
// (cache_group.key, chunk-name-or-hash).
type moduleGroup struct {
	key        string
	cacheGroup *CacheGroup

	moduleOrder []identifier.ModuleIdentifier
	modules     map[identifier.ModuleIdentifier]bool
	chunks      map[chunkgraph.ChunkId]bool

	size float64
}

func newModuleGroup(key string, cg *CacheGroup) *moduleGroup {
	return &moduleGroup{
		key:        key,
		cacheGroup: cg,
		modules:    make(map[identifier.ModuleIdentifier]bool),
		chunks:     make(map[chunkgraph.ChunkId]bool),
	}
}

func (mg *moduleGroup) addModule(id identifier.ModuleIdentifier, size float64, chunks []chunkgraph.ChunkId) {
	if !mg.modules[id] {
		mg.modules[id] = true
		mg.moduleOrder = append(mg.moduleOrder, id)
		mg.size += size
	}
	for _, c := range chunks {
		mg.chunks[c] = true
	}
}

func (mg *moduleGroup) removeModule(id identifier.ModuleIdentifier, size float64) {
	if !mg.modules[id] {
		return
	}
	delete(mg.modules, id)
	mg.size -= size
	for i, m := range mg.moduleOrder {
		if m == id {
			mg.moduleOrder = append(mg.moduleOrder[:i], mg.moduleOrder[i+1:]...)
			break
		}
	}
}

// pruneEmptyChunks drops chunks from the group's selected set that no
// longer contain any of its modules, per spec.md §4.3.2's backpressure
// step.
func (mg *moduleGroup) pruneEmptyChunks(cg *chunkgraph.ChunkGraph) {
	for chunkId := range mg.chunks {
		found := false
		for _, m := range mg.moduleOrder {
			ordinal := cg.Intern().Ordinal(m)
			if cg.Chunk(chunkId).HasModule(ordinal) {
				found = true
				break
			}
		}
		if !found {
			delete(mg.chunks, chunkId)
		}
	}
}

func (mg *moduleGroup) sizeReduction() float64 {
	n := len(mg.chunks)
	if n <= 1 {
		return 0
	}
	return mg.size * float64(n-1)
}

func (mg *moduleGroup) satisfiesConstraints() bool {
	if len(mg.chunks) < mg.cacheGroup.MinChunks {
		return false
	}
	if mg.size < mg.cacheGroup.MinSize {
		return false
	}
	if mg.sizeReduction() < mg.cacheGroup.MinSizeReduction {
		return false
	}
	return len(mg.moduleOrder) > 0
}

func (mg *moduleGroup) sortedModules() []identifier.ModuleIdentifier {
	out := append([]identifier.ModuleIdentifier(nil), mg.moduleOrder...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (mg *moduleGroup) sortedChunks() []chunkgraph.ChunkId {
	out := make([]chunkgraph.ChunkId, 0, len(mg.chunks))
	for c := range mg.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// betterThan implements spec.md §4.3.2's selection-phase ordering: higher
// priority, then higher size-reduction, then more modules, then more
// chunks, then lexicographically-smaller key, stable across runs.
func (mg *moduleGroup) betterThan(other *moduleGroup) bool {
	if mg.cacheGroup.Priority != other.cacheGroup.Priority {
		return mg.cacheGroup.Priority > other.cacheGroup.Priority
	}
	if r1, r2 := mg.sizeReduction(), other.sizeReduction(); r1 != r2 {
		return r1 > r2
	}
	if len(mg.moduleOrder) != len(other.moduleOrder) {
		return len(mg.moduleOrder) > len(other.moduleOrder)
	}
	if len(mg.chunks) != len(other.chunks) {
		return len(mg.chunks) > len(other.chunks)
	}
	return mg.key < other.key
}
