package chunkgraph

import (
	"math/big"
	"sync"

	"github.com/bundlecore/bundlecore/internal/identifier"
)

// ChunkGraph is the mutable store spec.md §3/§4.3 describes: chunks and
// chunk groups in arenas, named lookup tables for dedup, and the
// monotonic pre/post-order counters construction assigns per module.
type ChunkGraph struct {
	mu sync.Mutex

	chunks identifier.Arena[chunkFamily, Chunk]
	groups identifier.Arena[groupFamily, ChunkGroup]

	namedChunks           map[string]ChunkId
	namedChunkGroups      map[string]GroupId
	namedAsyncEntrypoints map[string]GroupId

	entrypoints []GroupId // in declaration order (spec.md §4.3.1 step 8)

	preOrder  map[identifier.ModuleIdentifier]int
	postOrder map[identifier.ModuleIdentifier]int
	nextPre   int
	nextPost  int

	intern *identifier.Interner
}

func NewChunkGraph(intern *identifier.Interner) *ChunkGraph {
	return &ChunkGraph{
		namedChunks:           make(map[string]ChunkId),
		namedChunkGroups:      make(map[string]GroupId),
		namedAsyncEntrypoints: make(map[string]GroupId),
		preOrder:              make(map[identifier.ModuleIdentifier]int),
		postOrder:             make(map[identifier.ModuleIdentifier]int),
		intern:                intern,
	}
}

func (g *ChunkGraph) Chunk(id ChunkId) *Chunk      { return g.chunks.Get(id) }
func (g *ChunkGraph) Group(id GroupId) *ChunkGroup { return g.groups.Get(id) }
func (g *ChunkGraph) Entrypoints() []GroupId       { return append([]GroupId(nil), g.entrypoints...) }

func (g *ChunkGraph) PreOrder(m identifier.ModuleIdentifier) (int, bool) {
	v, ok := g.preOrder[m]
	return v, ok
}

func (g *ChunkGraph) PostOrder(m identifier.ModuleIdentifier) (int, bool) {
	v, ok := g.postOrder[m]
	return v, ok
}

// Intern exposes the ordinal interner shared with construction, needed by
// internal/splitchunks to walk a chunk's bitmask back to ModuleIdentifiers.
func (g *ChunkGraph) Intern() *identifier.Interner { return g.intern }

// ModulesOf returns every module in a chunk, in ordinal order.
func (g *ChunkGraph) ModulesOf(chunkId ChunkId) []identifier.ModuleIdentifier {
	chunk := g.Chunk(chunkId)
	out := make([]identifier.ModuleIdentifier, 0, chunk.ModuleCount())
	for i := 0; i < chunk.Modules.BitLen(); i++ {
		if chunk.Modules.Bit(i) != 1 {
			continue
		}
		if m, ok := g.intern.ModuleForOrdinal(uint32(i)); ok {
			out = append(out, m)
		}
	}
	return out
}

// AllChunks returns every chunk still attached to at least one chunk-group.
// A chunk an incremental rebuild (or split-chunks backpressure) has detached
// from all of its groups has no rendering target left and is skipped rather
// than left to surface as an empty asset. The arena has no delete
// operation, so this filter is the only way such a chunk stops being seen.
func (g *ChunkGraph) AllChunks() []ChunkId {
	out := make([]ChunkId, 0, g.chunks.Len())
	g.chunks.All(func(id ChunkId, c *Chunk) bool {
		if len(c.Groups) == 0 {
			return true
		}
		out = append(out, id)
		return true
	})
	return out
}

// NewChunk creates a fresh, unattached chunk, exported for
// internal/splitchunks to extract shared modules into a new chunk outside
// the construction worklist.
func (g *ChunkGraph) NewChunk(name string) ChunkId { return g.newChunk(name) }

func (g *ChunkGraph) newChunk(name string) ChunkId {
	id := g.chunks.Add(Chunk{})
	*g.chunks.Get(id) = *newChunk(id, name)
	if name != "" {
		g.namedChunks[name] = id
	}
	return id
}

func (g *ChunkGraph) newGroup(kind ChunkGroupKind, name string) GroupId {
	id := g.groups.Add(ChunkGroup{})
	*g.groups.Get(id) = *newChunkGroup(id, kind, name)
	return id
}

// AddChunkToGroup links a chunk into a chunk-group on both sides: the
// group's ordered Chunks list and the chunk's own back-reference, which
// internal/splitchunks needs to reconnect an extracted chunk into every
// chunk-group its source modules came from.
func (g *ChunkGraph) AddChunkToGroup(chunkId ChunkId, groupId GroupId) {
	group := g.Group(groupId)
	group.Chunks = append(group.Chunks, chunkId)
	chunk := g.Chunk(chunkId)
	chunk.Groups = append(chunk.Groups, groupId)
}

// RemoveChunkFromGroup drops a chunk from a group's Chunks list and the group from
// the chunk's Groups back-reference (split-chunks backpressure needs to
// detach a now-empty donor chunk from a group it no longer belongs to).
func (g *ChunkGraph) RemoveChunkFromGroup(chunkId ChunkId, groupId GroupId) {
	group := g.Group(groupId)
	group.Chunks = removeChunkId(group.Chunks, chunkId)
	chunk := g.Chunk(chunkId)
	chunk.Groups = removeGroupId(chunk.Groups, groupId)
}

func removeChunkId(list []ChunkId, target ChunkId) []ChunkId {
	out := list[:0]
	for _, id := range list {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func removeGroupId(list []GroupId, target GroupId) []GroupId {
	out := list[:0]
	for _, id := range list {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// connect links a child chunk-group under a parent, propagating
// MinAvailableModules incrementally (the online accounting SPEC_FULL.md §3
// restores: updated as the edge is made, not swept afterward).
func (g *ChunkGraph) connect(parent, child GroupId) {
	p := g.Group(parent)
	c := g.Group(child)
	p.Children = append(p.Children, child)
	c.Parents = append(c.Parents, parent)
	g.recomputeMinAvailable(child)
}

// recomputeMinAvailable intersects every parent chunk-group's module
// availability (its own chunks' modules plus its own min-available set)
// into child's min-available mask.
func (g *ChunkGraph) recomputeMinAvailable(groupId GroupId) {
	group := g.Group(groupId)
	if len(group.Parents) == 0 {
		return
	}

	var result *big.Int
	for _, parentId := range group.Parents {
		avail := g.parentAvailability(g.Group(parentId))
		if result == nil {
			result = avail
			continue
		}
		result.And(result, avail)
	}
	group.MinAvailableModules.Set(result)
}

// parentAvailability unions a parent group's own min-available set with
// every module already present in all of its chunks.
func (g *ChunkGraph) parentAvailability(parent *ChunkGroup) *big.Int {
	avail := new(big.Int).Set(parent.MinAvailableModules)
	for _, chunkId := range parent.Chunks {
		chunk := g.Chunk(chunkId)
		avail.Or(avail, chunk.Modules)
	}
	return avail
}

// RemoveAvailableModules implements spec.md §4.3's "Remove-parent-modules
// optimization": once construction has drained, subtract from every chunk
// the modules already guaranteed present in all of its chunk-group's parent
// chunks, using the MinAvailableModules masks recomputeMinAvailable already
// maintains incrementally. A root entrypoint group has no parents and is
// left untouched (invariant §8.5: min_available_modules(g) never removes a
// module a descendant lacking that parent still needs).
func (g *ChunkGraph) RemoveAvailableModules() {
	g.groups.All(func(_ GroupId, group *ChunkGroup) bool {
		if len(group.Parents) == 0 || group.MinAvailableModules.Sign() == 0 {
			return true
		}
		for _, chunkId := range group.Chunks {
			chunk := g.Chunk(chunkId)
			chunk.Modules.AndNot(chunk.Modules, group.MinAvailableModules)
		}
		return true
	})
}

func (g *ChunkGraph) nextPreOrder(m identifier.ModuleIdentifier) int {
	if v, ok := g.preOrder[m]; ok {
		return v
	}
	v := g.nextPre
	g.nextPre++
	g.preOrder[m] = v
	return v
}

func (g *ChunkGraph) nextPostOrder(m identifier.ModuleIdentifier) int {
	if v, ok := g.postOrder[m]; ok {
		return v
	}
	v := g.nextPost
	g.nextPost++
	g.postOrder[m] = v
	return v
}
