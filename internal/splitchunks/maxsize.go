package splitchunks

import (
	"fmt"
	"sort"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
)

// maxSizePass implements spec.md §4.3.2's "Max-size pass": split any chunk
// exceeding its cache-group's max_size/max_initial_size/max_async_size into
// deterministically-named shards by a stable module-path partitioning.
//
// Limits are resolved per chunk from every cache-group that sets a max size
// and whose chunk filter accepts the chunk (initial chunks consult
// max_initial_size, async chunks max_async_size, falling back to max_size),
// and the smallest of them applies. This covers chunks no cache-group
// produced, entry chunks included; a chunk no such cache-group accepts is
// left alone.
func (o *Optimizer) maxSizePass() {
	for _, chunkId := range o.CG.AllChunks() {
		limit := o.resolveLimit(chunkId)
		if limit <= 0 {
			continue
		}
		o.splitIfOversized(chunkId, limit)
	}
}

func (o *Optimizer) resolveLimit(chunkId chunkgraph.ChunkId) float64 {
	chunk := o.CG.Chunk(chunkId)
	var limit float64
	for i := range o.Groups {
		cg := &o.Groups[i]
		if cg.MaxSize <= 0 && cg.MaxInitialSize <= 0 && cg.MaxAsyncSize <= 0 {
			continue
		}
		if !cg.filter()(chunk.Name, chunk.IsRoot) {
			continue
		}
		candidate := cg.MaxSize
		if chunk.IsRoot && cg.MaxInitialSize > 0 {
			candidate = cg.MaxInitialSize
		} else if !chunk.IsRoot && cg.MaxAsyncSize > 0 {
			candidate = cg.MaxAsyncSize
		}
		if candidate > 0 && (limit == 0 || candidate < limit) {
			limit = candidate
		}
	}
	return limit
}

func (o *Optimizer) splitIfOversized(chunkId chunkgraph.ChunkId, limit float64) {
	chunk := o.CG.Chunk(chunkId)
	modules := o.CG.ModulesOf(chunkId)
	if len(modules) <= 1 {
		return
	}

	totalSize := 0.0
	sizes := make(map[identifier.ModuleIdentifier]float64, len(modules))
	for _, m := range modules {
		module, ok := o.Graph.Module(m)
		size := 0.0
		if ok {
			types := module.SourceTypes()
			if len(types) > 0 {
				size = module.Size(types[0])
			}
		}
		sizes[m] = size
		totalSize += size
	}
	if totalSize <= limit {
		return
	}

	// Stable module-path partitioning: sort modules lexicographically by
	// identifier, then greedily bin-pack into shards at most `limit` large.
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })

	var shards [][]identifier.ModuleIdentifier
	var current []identifier.ModuleIdentifier
	currentSize := 0.0
	for _, m := range modules {
		if len(current) > 0 && currentSize+sizes[m] > limit {
			shards = append(shards, current)
			current = nil
			currentSize = 0
		}
		current = append(current, m)
		currentSize += sizes[m]
	}
	if len(current) > 0 {
		shards = append(shards, current)
	}
	if len(shards) <= 1 {
		return
	}

	groups := append([]chunkgraph.GroupId(nil), chunk.Groups...)

	// First shard keeps the original chunk identity; later shards get new,
	// deterministically-named chunks connected into the same groups.
	keep := make(map[identifier.ModuleIdentifier]bool, len(shards[0]))
	for _, m := range shards[0] {
		keep[m] = true
	}
	for _, m := range modules {
		if !keep[m] {
			chunk.RemoveModule(o.CG.Intern().Ordinal(m))
		}
	}

	for i := 1; i < len(shards); i++ {
		shardName := fmt.Sprintf("%s~shard%d", chunk.Name, i)
		shardId := o.CG.NewChunk(shardName)
		shard := o.CG.Chunk(shardId)
		for _, m := range shards[i] {
			shard.AddModule(o.CG.Intern().Ordinal(m))
		}
		for _, groupId := range groups {
			o.CG.AddChunkToGroup(shardId, groupId)
		}
	}
}
