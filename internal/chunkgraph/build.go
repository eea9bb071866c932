package chunkgraph

import (
	"fmt"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// EntrySpec is one named entry's initialization input (spec.md §4.3
// "Initialization"): the entry's own dependencies (usually one) plus its
// options.
type EntrySpec struct {
	Name         string
	Dependencies []modulegraph.DependencyId
	Options      config.EntryOptions
}

type actionKind uint8

const (
	actAddAndEnterEntryModule actionKind = iota
	actAddAndEnterModule
	actEnterModule
	actProcessBlock
	actProcessEntryBlock
	actLeaveModule
)

type action struct {
	kind   actionKind
	module identifier.ModuleIdentifier
	chunk  ChunkId
	group  GroupId
	block  *modulegraph.AsyncDependenciesBlock
}

type stateKey struct {
	module identifier.ModuleIdentifier
	group  GroupId
}

// Builder runs the worklist state machine over one ModuleGraph snapshot,
// per spec.md §4.3's action queue.
type Builder struct {
	Graph *modulegraph.ModuleGraph
	CG    *ChunkGraph

	// Exports and SideEffectsAware enable spec.md §4.3's ConnectionState
	// evaluation in ProcessBlock: when nil/false, the side-effects check is
	// skipped and every resolved dependency that is neither weak nor a
	// reexport is treated as Active(true), so callers that never set them
	// (tests, split-chunks fixtures) are unaffected.
	Exports          *exportsinfo.Store
	SideEffectsAware bool

	queue    []action
	deferred []action

	moduleState map[stateKey]ModuleEntryState

	// The following are allocated by enableIncremental, which Initialize
	// calls so that the first build already records each entry's setup and
	// each block's origin for a later Rebuild to recreate from.
	entrySetups map[string]*entrySetup
	groupBlock  map[GroupId]*modulegraph.AsyncDependenciesBlock
	blockOrigin map[*modulegraph.AsyncDependenciesBlock]blockOrigin
	blockCache  map[*modulegraph.AsyncDependenciesBlock]*blockCacheEntry
	recreations []chunkRecreation
}

func NewBuilder(graph *modulegraph.ModuleGraph, cg *ChunkGraph) *Builder {
	return &Builder{
		Graph:       graph,
		CG:          cg,
		moduleState: make(map[stateKey]ModuleEntryState),
	}
}

// Initialize sets up one root chunk + Entrypoint chunk-group per entry and
// seeds the queue (spec.md §4.3 "Initialization").
func (b *Builder) Initialize(entries []EntrySpec) error {
	b.enableIncremental()
	runtimeChunks := make(map[string]GroupId)

	for order, entry := range entries {
		b.recordEntry(entry, order)

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

		if existing, ok := runtimeChunks[runtime]; ok && existing != groupId {
			return fmt.Errorf("entry %q names runtime %q already owned by another entrypoint", entry.Name, runtime)
		}
		runtimeChunks[runtime] = groupId

		for _, depId := range entry.Dependencies {
			dep := b.Graph.Dependency(depId)
			if !dep.Resolved {
				continue
			}
			b.push(action{kind: actAddAndEnterEntryModule, module: dep.ResolvedModule, chunk: chunkId, group: groupId})
		}
	}
	return nil
}

func (b *Builder) push(a action)     { b.queue = append(b.queue, a) }
func (b *Builder) defer_(a action)   { b.deferred = append(b.deferred, a) }

// Run drains the action queue to completion, processing deferred actions
// only once the main queue empties (spec.md §4.3 "Five action variants
// consumed FIFO with deferred variants processed last"). Deferred actions
// are taken newest first, so a module entered through another one is left
// (and gets its post-order index) before that one.
func (b *Builder) Run() {
	for len(b.queue) > 0 || len(b.deferred) > 0 {
		for len(b.queue) > 0 {
			a := b.queue[0]
			b.queue = b.queue[1:]
			b.process(a)
		}
		if n := len(b.deferred); n > 0 {
			a := b.deferred[n-1]
			b.deferred = b.deferred[:n-1]
			b.process(a)
		}
	}
}

func (b *Builder) process(a action) {
	switch a.kind {
	case actAddAndEnterEntryModule, actAddAndEnterModule:
		b.addAndEnterModule(a.module, a.chunk, a.group)
	case actEnterModule:
		b.enterModule(a.module, a.group)
	case actProcessBlock:
		b.processBlock(a.block, a.chunk, a.group)
	case actProcessEntryBlock:
		b.processBlock(a.block, a.chunk, a.group)
		b.CG.Group(a.group).State = GroupFinalized
	case actLeaveModule:
		b.leaveModule(a.module, a.group)
	}
}

// addAndEnterModule implements spec.md §4.3's "AddAndEnterModule": if the
// module is already in the chunk, return; else add to chunk, connect
// chunk<->module, and enter.
func (b *Builder) addAndEnterModule(module identifier.ModuleIdentifier, chunkId ChunkId, groupId GroupId) {
	ordinal := b.CG.intern.Ordinal(module)
	chunk := b.CG.Chunk(chunkId)
	if chunk.HasModule(ordinal) {
		return
	}
	chunk.AddModule(ordinal)
	b.enterModule(module, groupId)
}

func (b *Builder) enterModule(module identifier.ModuleIdentifier, groupId GroupId) {
	key := stateKey{module: module, group: groupId}
	if b.moduleState[key] == Entered || b.moduleState[key] == Left {
		return
	}
	b.moduleState[key] = Entered
	b.CG.nextPreOrder(module)

	chunkId := b.currentChunkFor(groupId)
	b.defer_(action{kind: actLeaveModule, module: module, group: groupId})

	for _, blockId := range b.Graph.BlocksOf(module) {
		b.routeBlock(b.Graph.Block(blockId), chunkId, groupId)
	}
}

func (b *Builder) leaveModule(module identifier.ModuleIdentifier, groupId GroupId) {
	key := stateKey{module: module, group: groupId}
	b.moduleState[key] = Left
	b.CG.nextPostOrder(module)
}

// currentChunkFor returns the chunk a group's modules are currently
// entering into: the last chunk in its Chunks list (its own chunk, for a
// freshly created group this is the one just made).
func (b *Builder) currentChunkFor(groupId GroupId) ChunkId {
	group := b.CG.Group(groupId)
	return group.Chunks[len(group.Chunks)-1]
}

// routeBlock decides what a block (whether owned directly by a module or
// nested inside another block) does to the chunk graph: become a new
// entrypoint, become a new async chunk-group, or fold directly into the
// current chunk/group — the same three-way split spec.md §4.3's ProcessBlock
// applies at every nesting level, so both enterModule and processBlock call
// this instead of duplicating the switch.
func (b *Builder) routeBlock(block *modulegraph.AsyncDependenciesBlock, chunkId ChunkId, groupId GroupId) {
	if block == nil {
		return
	}
	if b.blockOrigin != nil {
		b.blockOrigin[block] = blockOrigin{parentGroup: groupId, parentChunk: chunkId}
	}
	switch {
	case block.GroupOptions != nil && block.GroupOptions.EntryOptions != nil:
		b.processEntryBlockBoundary(block, groupId)
	case block.GroupOptions != nil && b.CG.Group(groupId).ChunkLoading:
		b.processAsyncBoundary(block, chunkId, groupId)
	default:
		// No group options (an ordinary synchronous dependency list), or
		// chunk_loading disabled on the parent group: fold into the current
		// chunk-group, no new chunk.
		b.push(action{kind: actProcessBlock, chunk: chunkId, group: groupId, block: block})
	}
}

// processBlock implements spec.md §4.3's "ProcessBlock": evaluate each
// dependency's connection, enqueue AddAndEnterModule for active ones, then
// route any nested blocks the same way.
func (b *Builder) processBlock(block *modulegraph.AsyncDependenciesBlock, chunkId ChunkId, groupId GroupId) {
	if block == nil {
		return
	}
	runtime := exportsinfo.RuntimeKey(b.CG.Group(groupId).Runtime)
	for _, depId := range block.Dependencies {
		b.processBlockDependency(depId, chunkId, groupId, runtime, nil)
	}

	for _, nested := range block.NestedBlocks {
		b.routeBlock(nested, chunkId, groupId)
	}
}

// processBlockDependency evaluates one dependency's connection state and
// acts on it per spec.md §4.3: skip Active(false), inline-walk TransitiveOnly
// by extracting the target module's own block dependencies instead of
// entering the target itself (a re-export never executes on its own, but
// what it re-exports still needs to land in the chunk), else
// AddAndEnterModule. visiting guards against CircularConnection among
// chained reexports.
func (b *Builder) processBlockDependency(depId modulegraph.DependencyId, chunkId ChunkId, groupId GroupId, runtime exportsinfo.RuntimeKey, visiting map[modulegraph.DependencyId]bool) {
	dep := b.Graph.Dependency(depId)
	if !dep.Resolved {
		return
	}
	if visiting[depId] {
		return
	}

	switch b.connectionState(dep, runtime) {
	case modulegraph.ActiveFalse:
		return
	case modulegraph.TransitiveOnly:
		if visiting == nil {
			visiting = make(map[modulegraph.DependencyId]bool, 1)
		}
		visiting[depId] = true
		for _, blockId := range b.Graph.BlocksOf(dep.ResolvedModule) {
			nested := b.Graph.Block(blockId)
			for _, nestedDepId := range nested.Dependencies {
				b.processBlockDependency(nestedDepId, chunkId, groupId, runtime, visiting)
			}
		}
		delete(visiting, depId)
	default: // ActiveTrue, CircularConnection
		b.push(action{kind: actAddAndEnterModule, module: dep.ResolvedModule, chunk: chunkId, group: groupId})
	}
}

// connectionState decides spec.md §4.3's ConnectionState for one dependency
// under a chunk-group's runtime: a weak edge (e.g. HMR accept) never pulls
// its target in; a reexport is never itself "active", it only forwards to
// whatever it names; otherwise, when side-effects optimization is on and the
// target is declared side-effect-free, the edge is Active(false) unless the
// target is actually referenced (used export or side-effect-only use) under
// this runtime.
func (b *Builder) connectionState(dep *modulegraph.Dependency, runtime exportsinfo.RuntimeKey) modulegraph.ConnectionState {
	if dep.Weak {
		return modulegraph.ActiveFalse
	}
	if dep.Type == modulegraph.DepESMReexport {
		return modulegraph.TransitiveOnly
	}
	if b.Exports == nil || !b.SideEffectsAware {
		return modulegraph.ActiveTrue
	}
	mod, ok := b.Graph.Module(dep.ResolvedModule)
	if !ok || mod.SideEffects() == modulegraph.HasSideEffects {
		return modulegraph.ActiveTrue
	}
	if b.isReferenced(dep.ResolvedModule, runtime) {
		return modulegraph.ActiveTrue
	}
	return modulegraph.ActiveFalse
}

// isReferenced reports whether a side-effect-free module has any used
// export, side-effect-only use, or namespace reference recorded under
// runtime by the used-exports propagation that already ran (spec.md §4.2.2)
// over this graph snapshot.
func (b *Builder) isReferenced(module identifier.ModuleIdentifier, runtime exportsinfo.RuntimeKey) bool {
	info, ok := b.Exports.Peek(module)
	if !ok {
		return true
	}
	if info.SideEffectsOnlyUsed[runtime] || info.ExportsObjectReferenced[runtime] {
		return true
	}
	for _, name := range info.Names() {
		if info.ExportInfo(name).UsedUnder(runtime) != exportsinfo.Unused {
			return true
		}
	}
	return false
}

func (b *Builder) processEntryBlockBoundary(block *modulegraph.AsyncDependenciesBlock, parentGroupId GroupId) {
	opts := block.GroupOptions.EntryOptions
	name := opts.Name
	if name == "" {
		name = opts.Runtime
	}

	if existing, ok := b.CG.namedAsyncEntrypoints[name]; ok {
		b.deferProcessEntryBlock(block, existing)
		return
	}

	chunkId := b.CG.newChunk(name)
	groupId := b.CG.newGroup(GroupEntrypoint, name)
	b.CG.AddChunkToGroup(chunkId, groupId)
	group := b.CG.Group(groupId)
	group.Runtime = opts.Runtime
	group.ChunkLoading = opts.ChunkLoading != "disable"
	b.CG.Chunk(chunkId).Runtime = opts.Runtime
	b.CG.namedAsyncEntrypoints[name] = groupId
	b.CG.connect(parentGroupId, groupId)
	if b.groupBlock != nil {
		b.groupBlock[groupId] = block
	}

	for _, depId := range block.Dependencies {
		dep := b.Graph.Dependency(depId)
		if dep.Resolved {
			b.push(action{kind: actAddAndEnterEntryModule, module: dep.ResolvedModule, chunk: chunkId, group: groupId})
		}
	}
	b.deferProcessEntryBlock(block, groupId)
}

func (b *Builder) deferProcessEntryBlock(block *modulegraph.AsyncDependenciesBlock, groupId GroupId) {
	chunkId := b.currentChunkFor(groupId)
	b.defer_(action{kind: actProcessEntryBlock, chunk: chunkId, group: groupId, block: block})
}

func (b *Builder) processAsyncBoundary(block *modulegraph.AsyncDependenciesBlock, parentChunkId ChunkId, parentGroupId GroupId) {
	name := ""
	if block.GroupOptions != nil {
		name = block.GroupOptions.Name
	}

	var groupId GroupId
	if name != "" {
		if existing, ok := b.CG.namedChunkGroups[name]; ok {
			groupId = existing
		}
	}
	if !groupId.IsValid() {
		chunkId := b.CG.newChunk(name)
		groupId = b.CG.newGroup(GroupAsync, name)
		b.CG.AddChunkToGroup(chunkId, groupId)
		group := b.CG.Group(groupId)
		group.ChunkLoading = b.CG.Group(parentGroupId).ChunkLoading
		if name != "" {
			b.CG.namedChunkGroups[name] = groupId
		}
		if b.groupBlock != nil {
			b.groupBlock[groupId] = block
		}
	}
	b.CG.connect(parentGroupId, groupId)

	chunkId := b.currentChunkFor(groupId)
	b.defer_(action{kind: actProcessBlock, chunk: chunkId, group: groupId, block: block})
}
