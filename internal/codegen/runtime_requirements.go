package codegen

import (
	"context"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/hooks"
	"github.com/bundlecore/bundlecore/internal/tracelog"
)

// Requirement is one runtime capability a module's generated code depends
// on (spec.md §4.4's "runtime-requirements").
type Requirement uint32

const (
	RequireFn Requirement = 1 << iota
	ModuleFn
	ExportsFn
	ModuleCache
	ModuleFactories
	PublicPath
	EnsureChunk
	ChunkLoading
	HMRRuntime
	GlobalObject
)

// RequirementSet is a bitset of Requirements, small and cheap to copy
// per-module.
type RequirementSet uint32

func (s RequirementSet) Has(r Requirement) bool { return uint32(s)&uint32(r) != 0 }
func (s *RequirementSet) Add(r Requirement)      { *s |= RequirementSet(r) }
func (s RequirementSet) Union(other RequirementSet) RequirementSet {
	return RequirementSet(uint32(s) | uint32(other))
}

// impliedBy is the static "a requirement may imply others" table spec.md
// §4.4 names REQUIRE -> chunk-loading runtime modules as an example of.
var impliedBy = map[Requirement][]Requirement{
	RequireFn:   {ModuleFactories, ModuleCache, EnsureChunk},
	EnsureChunk: {ChunkLoading, PublicPath},
}

// RequirementContext is passed to the additional_tree_runtime_requirements
// and runtime_requirement_in_tree hook families (spec.md §4.5); taps mutate
// Set in place, the same pattern the original's hook of the same name uses.
type RequirementContext struct {
	Chunk chunkgraph.ChunkId
	Set   *RequirementSet
}

// RuntimeRequirementHooks groups the two hook points spec.md §4.4's
// expansion pass runs, each a SyncHook so every tap's mutation is visible to
// the next (spec.md §5 "taps observe state produced by all prior taps at
// the same stage").
type RuntimeRequirementHooks struct {
	AdditionalTreeRuntimeRequirements hooks.SyncHook[*RequirementContext]
	RuntimeRequirementInTree          hooks.SyncHook[*RequirementContext]
}

// Propagator runs spec.md §4.4's three-pass runtime-requirement scan over
// one chunk.
type Propagator struct {
	CG     *chunkgraph.ChunkGraph
	Cache  *Cache
	Hooks  *RuntimeRequirementHooks
	tracer *tracelog.Tracer
}

func NewPropagator(cg *chunkgraph.ChunkGraph, cache *Cache, h *RuntimeRequirementHooks) *Propagator {
	return &Propagator{
		CG:     cg,
		Cache:  cache,
		Hooks:  h,
		tracer: tracelog.New(nil).WithPhase("runtime-requirements"),
	}
}

// Propagate runs the three passes for one chunk and returns the final
// requirement set, also registering it as the chunk's runtime-chunk
// requirements via the caller (RenderChunk consumes the return value).
func (p *Propagator) Propagate(ctx context.Context, chunkId chunkgraph.ChunkId, moduleResults []*Result) (RequirementSet, error) {
	tracer := p.tracer.WithFields(map[string]interface{}{"chunk": chunkId.String()})

	// Pass 1: collect per-module requirements from codegen.
	var set RequirementSet
	for _, r := range moduleResults {
		set = set.Union(r.RuntimeRequirements)
	}
	tracer.Debugf("pass 1 collected module requirements: %032b", set)

	// Pass 2: expand transitively via runtime_requirements_in_tree hooks,
	// plus the static implication table, to a fixed point.
	rc := &RequirementContext{Chunk: chunkId, Set: &set}
	rounds := 0
	for {
		before := set
		for req, implies := range impliedBy {
			if set.Has(req) {
				for _, i := range implies {
					set.Add(i)
				}
			}
		}
		if p.Hooks != nil {
			if err := p.Hooks.AdditionalTreeRuntimeRequirements.Call(ctx, rc); err != nil {
				return 0, err
			}
			if err := p.Hooks.RuntimeRequirementInTree.Call(ctx, rc); err != nil {
				return 0, err
			}
		}
		rounds++
		if set == before {
			break
		}
	}
	tracer.Debugf("pass 2 reached fixed point after %d rounds: %032b", rounds, set)

	// Pass 3: registering runtime modules on the chunk's runtime-chunk is
	// RenderChunk's job once it knows which chunk in the group owns the
	// runtime (spec.md §4.4 step 3); Propagate only returns the final set.
	return set, nil
}
