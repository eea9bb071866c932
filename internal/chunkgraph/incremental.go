package chunkgraph

import (
	"math/big"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// recreationKind distinguishes the two origins a ChunkReCreation record can
// have (spec.md §4.3.1 step 4: "either an entry name to re-run, or a
// (block, parent_cgi, parent_chunk) to redo").
type recreationKind uint8

const (
	recreateEntry recreationKind = iota
	recreateBlock
)

type chunkRecreation struct {
	kind        recreationKind
	entry       string
	block       *modulegraph.AsyncDependenciesBlock
	parentGroup GroupId
	parentChunk ChunkId
}

// blockOrigin is the context a block was routed from, captured the moment
// routeBlock dispatches it, so a later invalidation knows where to redo the
// creation from (spec.md §4.3.1 step 4's "(block, parent_cgi, parent_chunk)").
type blockOrigin struct {
	parentGroup GroupId
	parentChunk ChunkId
}

// blockCacheEntry is spec.md §4.3.1 step 6's per-block cache: enough of a
// previously-successful chunk-group build to replay it without redoing the
// BFS, if the predicate in cacheHit still holds.
type blockCacheEntry struct {
	singleParent bool
	runtime      string
	groupName    string
	minAvailable *big.Int
	ordinals     []uint32
}

// entrySetup records what Initialize did for one entry, so Rebuild can redo
// just that entry's creation after an invalidation (step 5's "rerun the
// appropriate creation path" for an entry ChunkReCreation).
type entrySetup struct {
	spec  EntrySpec
	order int
}

// enableIncremental allocates the bookkeeping tables Rebuild needs. Initialize
// calls it before recording any entry; later calls are no-ops.
func (b *Builder) enableIncremental() {
	if b.entrySetups != nil {
		return
	}
	b.entrySetups = make(map[string]*entrySetup)
	b.groupBlock = make(map[GroupId]*modulegraph.AsyncDependenciesBlock)
	b.blockOrigin = make(map[*modulegraph.AsyncDependenciesBlock]blockOrigin)
	b.blockCache = make(map[*modulegraph.AsyncDependenciesBlock]*blockCacheEntry)
}

// recordEntry captures one entry's EntrySpec and declaration order, called
// from Initialize.
func (b *Builder) recordEntry(entry EntrySpec, order int) {
	if b.entrySetups == nil {
		return
	}
	b.entrySetups[entry.Name] = &entrySetup{spec: entry, order: order}
}

// snapshotBlockCaches captures, for every block this Builder has routed into
// its own chunk-group so far, a reusable cache entry from the group's
// current post-drain state. This is spec.md §4.3.1 step 6's cache,
// populated after a successful build rather than incrementally during it.
func (b *Builder) snapshotBlockCaches() {
	if b.groupBlock == nil {
		return
	}
	for groupId, block := range b.groupBlock {
		group := b.CG.Group(groupId)
		var ordinals []uint32
		for _, chunkId := range group.Chunks {
			chunk := b.CG.Chunk(chunkId)
			for i := 0; i < chunk.Modules.BitLen(); i++ {
				if chunk.Modules.Bit(i) == 1 {
					ordinals = append(ordinals, uint32(i))
				}
			}
		}
		b.blockCache[block] = &blockCacheEntry{
			singleParent: len(group.Parents) == 1,
			runtime:      group.Runtime,
			groupName:    group.Name,
			minAvailable: new(big.Int).Set(group.MinAvailableModules),
			ordinals:     ordinals,
		}
	}
}

// Rebuild implements spec.md §4.3.1's incremental chunk-graph update: given
// the modules a factorization re-run reports as removed and affected, it
// invalidates only the chunk-groups that reached them, then redoes just
// those groups' creation (replaying a cache hit where one applies instead of
// rerunning the full BFS), rather than a full Initialize+Run from scratch.
func (b *Builder) Rebuild(removed, affected []identifier.ModuleIdentifier) {
	b.enableIncremental()
	b.recreations = nil

	for _, m := range removed {
		b.invalidateFromModule(m)
	}
	for _, m := range affected {
		b.invalidateFromModule(m)
	}

	for _, rec := range b.recreations {
		switch rec.kind {
		case recreateEntry:
			if setup, ok := b.entrySetups[rec.entry]; ok {
				b.recreateEntry(setup.spec)
			}
		case recreateBlock:
			b.recreateBlock(rec.block, rec.parentChunk, rec.parentGroup)
		}
	}

	b.Run()
	b.snapshotBlockCaches()
	b.reorderEntrypoints()
}

// invalidateFromModule locates every chunk-group a module belongs to
// (step 3: "for each, call invalidate_chunk_group") by scanning chunks for
// the module's ordinal bit.
func (b *Builder) invalidateFromModule(module identifier.ModuleIdentifier) {
	ordinal := b.CG.intern.Ordinal(module)
	seen := make(map[GroupId]bool)
	for _, chunkId := range b.CG.AllChunks() {
		chunk := b.CG.Chunk(chunkId)
		if !chunk.HasModule(ordinal) {
			continue
		}
		for _, groupId := range chunk.Groups {
			if seen[groupId] {
				continue
			}
			seen[groupId] = true
			b.invalidateChunkGroup(groupId)
		}
	}
}

// invalidateChunkGroup implements step 4: detach the group's chunks
// (dropping any chunk left with no remaining group), rewire its
// parent/child links, recursively invalidate any child left orphaned (the
// step 7 "orphan sweep" folded into this same walk), and emit a
// ChunkReCreation record describing how to redo it.
func (b *Builder) invalidateChunkGroup(groupId GroupId) {
	group := b.CG.Group(groupId)
	if group.State == GroupInvalidated {
		return
	}

	for _, chunkId := range append([]ChunkId(nil), group.Chunks...) {
		b.CG.RemoveChunkFromGroup(chunkId, groupId)
	}

	for _, parentId := range group.Parents {
		parent := b.CG.Group(parentId)
		parent.Children = removeGroupId(parent.Children, groupId)
	}

	children := append([]GroupId(nil), group.Children...)
	group.Parents = nil
	group.Children = nil
	group.State = GroupInvalidated
	b.CG.entrypoints = removeGroupId(b.CG.entrypoints, groupId)
	delete(b.CG.namedChunkGroups, group.Name)
	delete(b.CG.namedAsyncEntrypoints, group.Name)

	for _, childId := range children {
		child := b.CG.Group(childId)
		child.Parents = removeGroupId(child.Parents, groupId)
		if len(child.Parents) == 0 {
			b.invalidateChunkGroup(childId)
		}
	}

	if block, ok := b.groupBlock[groupId]; ok {
		origin := b.blockOrigin[block]
		b.recreations = append(b.recreations, chunkRecreation{
			kind: recreateBlock, block: block,
			parentGroup: origin.parentGroup, parentChunk: origin.parentChunk,
		})
		delete(b.groupBlock, groupId)
		return
	}
	for name, setup := range b.entrySetups {
		if setup.spec.Name == group.Name && group.Kind == GroupEntrypoint {
			b.recreations = append(b.recreations, chunkRecreation{kind: recreateEntry, entry: name})
			return
		}
	}
}

// recreateEntry redoes one entry's Initialize step (a new root chunk plus
// Entrypoint group, entry dependencies enqueued), identical to the
// from-scratch path.
func (b *Builder) recreateEntry(entry EntrySpec) {
	chunkId := b.CG.newChunk(entry.Name)
	b.CG.Chunk(chunkId).IsRoot = true

	runtime := entry.Options.Runtime
	if runtime == "" {
		runtime = entry.Name
	}

	groupId := b.CG.newGroup(GroupEntrypoint, entry.Name)
	b.CG.AddChunkToGroup(chunkId, groupId)
	group := b.CG.Group(groupId)
	group.Runtime = runtime
	group.ChunkLoading = entry.Options.ChunkLoading != config.ChunkLoadingDisable
	b.CG.Chunk(chunkId).Runtime = runtime
	b.CG.entrypoints = append(b.CG.entrypoints, groupId)

	for _, depId := range entry.Dependencies {
		dep := b.Graph.Dependency(depId)
		if !dep.Resolved {
			continue
		}
		b.push(action{kind: actAddAndEnterEntryModule, module: dep.ResolvedModule, chunk: chunkId, group: groupId})
	}
}

// recreateBlock redoes a block's chunk-group creation: a cache hit (step 6)
// replays its previously-known module set directly into a fresh chunk
// without a BFS, then still walks nested blocks; a miss falls back to the
// ordinary routeBlock path (the full rebuild step 5 describes).
func (b *Builder) recreateBlock(block *modulegraph.AsyncDependenciesBlock, parentChunk ChunkId, parentGroup GroupId) {
	if cached, ok := b.cacheHit(block, parentGroup); ok {
		b.replayFromCache(block, cached, parentChunk, parentGroup)
		return
	}
	b.routeBlock(block, parentChunk, parentGroup)
}

// cacheHit implements step 6's predicate: the parent chunk-group must be the
// block's sole parent, and the cached runtime/group-name/min-available-
// modules must still match (min-available compared by subset, tolerating
// ordinal growth from newly interned modules elsewhere in the graph, per the
// spec's §9 design note that a subset predicate is sound and desirable).
func (b *Builder) cacheHit(block *modulegraph.AsyncDependenciesBlock, parentGroup GroupId) (*blockCacheEntry, bool) {
	cached, ok := b.blockCache[block]
	if !ok || !cached.singleParent {
		return nil, false
	}
	name := ""
	runtime := ""
	if block.GroupOptions != nil {
		name = block.GroupOptions.Name
		if block.GroupOptions.EntryOptions != nil {
			runtime = block.GroupOptions.EntryOptions.Runtime
		}
	}
	if name != cached.groupName || runtime != cached.runtime {
		return nil, false
	}
	parentAvail := b.CG.parentAvailability(b.CG.Group(parentGroup))
	if new(big.Int).AndNot(cached.minAvailable, parentAvail).Sign() != 0 {
		return nil, false
	}
	return cached, true
}

// replayFromCache rebuilds a block's chunk-group from a cache hit: a fresh
// chunk/group pair, the cached module ordinals added directly (no BFS, no
// per-module enterModule/pre-post-order walk, since they were already
// recorded on the original build), reconnected to its parent, then nested
// blocks still routed normally so any of their own changes are picked up.
func (b *Builder) replayFromCache(block *modulegraph.AsyncDependenciesBlock, cached *blockCacheEntry, parentChunk ChunkId, parentGroup GroupId) {
	kind := GroupAsync
	if block.GroupOptions != nil && block.GroupOptions.EntryOptions != nil {
		kind = GroupEntrypoint
	}
	chunkId := b.CG.newChunk(cached.groupName)
	groupId := b.CG.newGroup(kind, cached.groupName)
	b.CG.AddChunkToGroup(chunkId, groupId)
	group := b.CG.Group(groupId)
	group.Runtime = cached.runtime
	group.ChunkLoading = b.CG.Group(parentGroup).ChunkLoading
	b.CG.Chunk(chunkId).Runtime = cached.runtime
	b.CG.connect(parentGroup, groupId)

	chunk := b.CG.Chunk(chunkId)
	for _, ordinal := range cached.ordinals {
		chunk.AddModule(ordinal)
	}

	b.groupBlock[groupId] = block
	b.blockOrigin[block] = blockOrigin{parentGroup: parentGroup, parentChunk: parentChunk}

	for _, nested := range block.NestedBlocks {
		b.routeBlock(nested, chunkId, groupId)
	}
}

// reorderEntrypoints implements step 8: entrypoint order in the final map
// mirrors declaration order, even after a rebuild re-appended a recreated
// entry at the end of the slice.
func (b *Builder) reorderEntrypoints() {
	if b.entrySetups == nil {
		return
	}
	order := make(map[GroupId]int, len(b.CG.entrypoints))
	for _, groupId := range b.CG.entrypoints {
		if setup, ok := b.entrySetups[b.CG.Group(groupId).Name]; ok {
			order[groupId] = setup.order
		}
	}
	sorted := append([]GroupId(nil), b.CG.entrypoints...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && order[sorted[j-1]] > order[sorted[j]]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	b.CG.entrypoints = sorted
}
