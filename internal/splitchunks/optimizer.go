package splitchunks

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// Optimizer runs spec.md §4.3.2's matching/selection/max-size passes over
// an already-built chunk graph.
type Optimizer struct {
	Graph   *modulegraph.ModuleGraph
	CG      *chunkgraph.ChunkGraph
	Exports *exportsinfo.Store // nil disables UsedExportsAware cache groups
	Groups  []CacheGroup
}

func NewOptimizer(graph *modulegraph.ModuleGraph, cg *chunkgraph.ChunkGraph, exports *exportsinfo.Store, groups []CacheGroup) *Optimizer {
	return &Optimizer{Graph: graph, CG: cg, Exports: exports, Groups: groups}
}

// Run executes the full optimizer: match, select with backpressure until
// no candidate remains, then split oversized chunks.
func (o *Optimizer) Run() {
	moduleChunks := o.reverseModuleChunkIndex()
	groups, order := o.matchingPhase(moduleChunks)
	o.selectionPhase(groups, order)
	o.maxSizePass()
}

// reverseModuleChunkIndex inverts chunkgraph's chunk->modules bitmask into
// module->chunks, the candidate-chunk-set every module's matching starts
// from.
func (o *Optimizer) reverseModuleChunkIndex() map[identifier.ModuleIdentifier][]chunkgraph.ChunkId {
	out := make(map[identifier.ModuleIdentifier][]chunkgraph.ChunkId)
	for _, chunkId := range o.CG.AllChunks() {
		for _, m := range o.CG.ModulesOf(chunkId) {
			out[m] = append(out[m], chunkId)
		}
	}
	return out
}

// matchingPhase implements spec.md §4.3.2's "Matching phase": for every
// module and eligible cache-group, builds chunk combinations (partitioned
// by UsageKey when used_exports_aware) and accumulates ModuleGroups.
func (o *Optimizer) matchingPhase(moduleChunks map[identifier.ModuleIdentifier][]chunkgraph.ChunkId) (map[string]*moduleGroup, []string) {
	groups := make(map[string]*moduleGroup)
	var order []string

	moduleIds := make([]identifier.ModuleIdentifier, 0, len(moduleChunks))
	for m := range moduleChunks {
		moduleIds = append(moduleIds, m)
	}
	sort.Slice(moduleIds, func(i, j int) bool { return moduleIds[i] < moduleIds[j] })

	for _, moduleId := range moduleIds {
		module, ok := o.Graph.Module(moduleId)
		if !ok {
			continue
		}
		chunks := moduleChunks[moduleId]

		for gi := range o.Groups {
			cg := &o.Groups[gi]
			if !cg.matches(module) {
				continue
			}

			filtered := filterChunks(o.CG, chunks, cg.filter())
			combos := o.buildCombos(module, filtered, cg)

			size := o.moduleSize(module, cg)
			for _, combo := range combos {
				if len(combo) < cg.MinChunks {
					continue
				}
				name := cg.NameTemplate
				if name == "" {
					name = stableChunkHash(combo)
				}
				key := cg.Key + "|" + name
				mg, ok := groups[key]
				if !ok {
					mg = newModuleGroup(key, cg)
					groups[key] = mg
					order = append(order, key)
				}
				mg.addModule(moduleId, size, combo)
			}
		}
	}
	return groups, order
}

func (o *Optimizer) moduleSize(m modulegraph.Module, cg *CacheGroup) float64 {
	if cg.HasType {
		return m.Size(cg.Type)
	}
	types := m.SourceTypes()
	if len(types) == 0 {
		return 0
	}
	return m.Size(types[0])
}

func filterChunks(cg *chunkgraph.ChunkGraph, chunks []chunkgraph.ChunkId, filter ChunkFilter) []chunkgraph.ChunkId {
	out := make([]chunkgraph.ChunkId, 0, len(chunks))
	for _, c := range chunks {
		chunk := cg.Chunk(c)
		if filter(chunk.Name, chunk.IsRoot) {
			out = append(out, c)
		}
	}
	return out
}

// buildCombos partitions the filtered chunk set by UsageKey when the
// cache-group is used_exports_aware (spec.md §4.3.2), else returns the
// whole set as one combo.
func (o *Optimizer) buildCombos(module modulegraph.Module, chunks []chunkgraph.ChunkId, cg *CacheGroup) [][]chunkgraph.ChunkId {
	if !cg.UsedExportsAware || o.Exports == nil {
		if len(chunks) == 0 {
			return nil
		}
		return [][]chunkgraph.ChunkId{chunks}
	}

	buckets := make(map[string][]chunkgraph.ChunkId)
	var bucketOrder []string
	for _, c := range chunks {
		runtime := o.CG.Chunk(c).Runtime
		key := usageKey(o.Exports, module.Identifier(), exportsinfo.RuntimeKey(runtime))
		if _, ok := buckets[key]; !ok {
			bucketOrder = append(bucketOrder, key)
		}
		buckets[key] = append(buckets[key], c)
	}
	combos := make([][]chunkgraph.ChunkId, 0, len(buckets))
	for _, k := range bucketOrder {
		combos = append(combos, buckets[k])
	}
	return combos
}

// usageKey is the vector of per-export UsageStates for a module under one
// runtime, serialized to a comparable string (spec.md §4.3.2 "the vector
// of per-export UsageStates in that runtime").
func usageKey(store *exportsinfo.Store, module identifier.ModuleIdentifier, runtime exportsinfo.RuntimeKey) string {
	info, ok := store.Peek(module)
	if !ok {
		return "?"
	}
	names := append([]string(nil), info.Names()...)
	sort.Strings(names)

	key := make([]byte, 0, len(names)*2)
	for _, name := range names {
		state := info.ExportInfo(name).UsedUnder(runtime)
		key = append(key, byte(state), ':')
	}
	return string(key)
}

func stableChunkHash(chunks []chunkgraph.ChunkId) string {
	ids := make([]uint32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Index()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	h := sha1.New()
	for _, id := range ids {
		h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)})
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
