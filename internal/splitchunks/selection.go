package splitchunks

import (
	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
)

// selectionPhase implements spec.md §4.3.2's "Selection phase": repeatedly
// pick the best remaining satisfying ModuleGroup, extract it into a chunk,
// then apply backpressure to every other group before picking again.
func (o *Optimizer) selectionPhase(groups map[string]*moduleGroup, order []string) {
	for {
		best := pickBest(groups, order)
		if best == nil {
			return
		}
		o.extract(best)
		delete(groups, best.key)
		o.backpressure(groups, best)
	}
}

func pickBest(groups map[string]*moduleGroup, order []string) *moduleGroup {
	var best *moduleGroup
	for _, key := range order {
		mg, ok := groups[key]
		if !ok || !mg.satisfiesConstraints() {
			continue
		}
		if best == nil || mg.betterThan(best) {
			best = mg
		}
	}
	return best
}

// extract moves a ModuleGroup's modules into a fresh (or reused) chunk and
// reconnects it into every chunk-group the donor chunks belonged to
// (spec.md §4.3.2 selection-phase steps 1-3).
func (o *Optimizer) extract(mg *moduleGroup) {
	modules := mg.sortedModules()
	target, reused := o.findReuseTarget(mg, modules)
	if !reused {
		name := mg.cacheGroup.NameTemplate
		if name == "" {
			name = mg.key
		}
		target = o.CG.NewChunk(name)
	}

	seenGroups := make(map[chunkgraph.GroupId]bool)
	for _, groupId := range o.CG.Chunk(target).Groups {
		seenGroups[groupId] = true
	}

	for _, chunkId := range mg.sortedChunks() {
		if chunkId == target {
			continue
		}
		donor := o.CG.Chunk(chunkId)
		for _, groupId := range donor.Groups {
			if !seenGroups[groupId] {
				seenGroups[groupId] = true
				o.CG.AddChunkToGroup(target, groupId)
			}
		}
	}

	if !reused {
		for _, m := range modules {
			ordinal := o.CG.Intern().Ordinal(m)
			o.CG.Chunk(target).AddModule(ordinal)
		}
	}

	for _, chunkId := range mg.sortedChunks() {
		if chunkId == target {
			continue
		}
		donor := o.CG.Chunk(chunkId)
		for _, m := range modules {
			ordinal := o.CG.Intern().Ordinal(m)
			donor.RemoveModule(ordinal)
		}
	}
}

// findReuseTarget implements "reuse if reuse_existing_chunk matches an
// existing chunk whose module set equals the group's module set".
func (o *Optimizer) findReuseTarget(mg *moduleGroup, modules []identifier.ModuleIdentifier) (chunkgraph.ChunkId, bool) {
	if !mg.cacheGroup.ReuseExistingChunk {
		return chunkgraph.ChunkId{}, false
	}
	for chunkId := range mg.chunks {
		existing := o.CG.ModulesOf(chunkId)
		if sameModuleSet(existing, modules) {
			return chunkId, true
		}
	}
	return chunkgraph.ChunkId{}, false
}

func sameModuleSet(a, b []identifier.ModuleIdentifier) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[identifier.ModuleIdentifier]bool, len(a))
	for _, m := range a {
		set[m] = true
	}
	for _, m := range b {
		if !set[m] {
			return false
		}
	}
	return true
}

// backpressure implements spec.md §4.3.2 step 4: remove the just-claimed
// modules from every other group, drop empty/unsatisfying groups, and
// prune chunks no longer containing any of a group's modules.
func (o *Optimizer) backpressure(groups map[string]*moduleGroup, claimed *moduleGroup) {
	for key, mg := range groups {
		changed := false
		for _, m := range claimed.moduleOrder {
			if !mg.modules[m] {
				continue
			}
			module, ok := o.Graph.Module(m)
			if !ok {
				continue
			}
			mg.removeModule(m, o.moduleSize(module, mg.cacheGroup))
			changed = true
		}
		if !changed {
			continue
		}
		mg.pruneEmptyChunks(o.CG)
		if len(mg.moduleOrder) == 0 || !mg.satisfiesConstraints() {
			delete(groups, key)
		}
	}
}
