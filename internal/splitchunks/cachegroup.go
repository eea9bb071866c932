// Package splitchunks implements the post-construction split-chunks
// optimizer from spec.md §4.3.2: a set of CacheGroups matched against every
// module in the freshly built chunk graph, accumulated into ModuleGroups,
// then greedily selected (with backpressure re-checks) into fresh shared
// chunks, finished by a max-size shard split.
package splitchunks

import "github.com/bundlecore/bundlecore/internal/modulegraph"

// ChunkFilter decides whether a candidate chunk is eligible for a
// CacheGroup's extraction (spec.md §4.3.2 "chunk_filter").
type ChunkFilter func(chunkName string, isRoot bool) bool

// AllChunks accepts every chunk, the default filter.
func AllChunks(string, bool) bool { return true }

// InitialChunksOnly matches only root (entrypoint) chunks.
func InitialChunksOnly(_ string, isRoot bool) bool { return isRoot }

// AsyncChunksOnly matches only non-root (async) chunks.
func AsyncChunksOnly(_ string, isRoot bool) bool { return !isRoot }

// CacheGroup is one extraction rule (spec.md §4.3.2).
type CacheGroup struct {
	Key     string
	Test    func(m modulegraph.Module) bool
	Type    modulegraph.SourceType
	HasType bool // false means "any source type" (Type field unused)
	Layer   string

	ChunkFilter ChunkFilter

	MinChunks        int
	MinSize          float64
	MinSizeReduction float64
	MaxSize          float64
	MaxInitialSize   float64
	MaxAsyncSize     float64

	Priority           int
	ReuseExistingChunk bool
	Enforce            bool
	UsedExportsAware   bool

	FilenameTemplate string
	NameTemplate     string
}

func (cg *CacheGroup) matches(m modulegraph.Module) bool {
	if cg.HasType {
		matched := false
		for _, t := range m.SourceTypes() {
			if t == cg.Type {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if cg.Test != nil && !cg.Test(m) {
		return false
	}
	return true
}

func (cg *CacheGroup) filter() ChunkFilter {
	if cg.ChunkFilter != nil {
		return cg.ChunkFilter
	}
	return AllChunks
}
