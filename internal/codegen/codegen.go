// Package codegen implements spec.md §4.4: per-module code generation
// (cached by module+runtime), three-pass runtime-requirement propagation,
// chunk rendering (hash, filename, concatenation, source map), and the
// greedy CSS order reconciliation scheduler.
package codegen

import (
	"sync"

	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/sourcemap"
)

// GenerateContext is the per-invocation input a GeneratePlugin receives
// (spec.md §6 "Generation consumes (source, module, generate_context{...})").
type GenerateContext struct {
	RequestedSourceType modulegraph.SourceType
	Runtime             exportsinfo.RuntimeKey
	RuntimeRequirements RequirementSet
	InitFragments       []string
	Data                map[string]any
}

// Result is one module's codegen output for one (module, runtime) key
// (spec.md §4.4 "{sources per source-type, runtime-requirements,
// chunk-init-fragments, data, hash}").
type Result struct {
	Sources             map[modulegraph.SourceType][]byte
	RuntimeRequirements RequirementSet
	InitFragments       []string
	Data                map[string]any
	Hash                string
	// SourceMap is the module's own precomputed mapping chunk, set by a
	// GeneratePlugin that tracked original positions while emitting Sources.
	// nil when the plugin didn't produce one (e.g. synthetic runtime
	// modules) — render.go skips chunks with no mapping.
	SourceMap *sourcemap.Chunk
}

// GeneratePlugin is the external collaborator producing a module's source
// for a requested source type, mirroring internal/parseplugin's contract
// shape (spec.md §6 parser-and-generator contract, generation half).
type GeneratePlugin interface {
	CanGenerate(module modulegraph.Module, sourceType modulegraph.SourceType) bool
	Generate(module modulegraph.Module, ctx GenerateContext) ([]byte, error)
}

// SourceMapGeneratePlugin is the optional extension a GeneratePlugin
// implements when it tracked original positions while emitting source (the
// common case: a plugin wrapping the teacher's sourcemap.ChunkBuilder around
// its own printer). Generator checks for it after every Generate call.
type SourceMapGeneratePlugin interface {
	GeneratePlugin
	GenerateSourceMap(module modulegraph.Module, ctx GenerateContext) (*sourcemap.Chunk, error)
}

// Registry dispatches to the first plugin that claims a module+source-type
// pair, the same bail-first shape as internal/parseplugin.Registry.
type Registry struct {
	plugins []GeneratePlugin
}

func NewRegistry(plugins ...GeneratePlugin) *Registry {
	return &Registry{plugins: plugins}
}

func (r *Registry) For(module modulegraph.Module, sourceType modulegraph.SourceType) GeneratePlugin {
	for _, p := range r.plugins {
		if p.CanGenerate(module, sourceType) {
			return p
		}
	}
	return nil
}

type cacheKey struct {
	module  identifier.ModuleIdentifier
	runtime exportsinfo.RuntimeKey
}

// Cache is codegen's insert-only (module, runtime) keyed store (spec.md §5
// "Codegen results: insert-only map keyed by (module, runtime); writers
// never collide; readers proceed without locking").
type Cache struct {
	mu   sync.RWMutex
	byId map[cacheKey]*Result
}

func NewCache() *Cache {
	return &Cache{byId: make(map[cacheKey]*Result)}
}

func (c *Cache) Get(module identifier.ModuleIdentifier, runtime exportsinfo.RuntimeKey) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byId[cacheKey{module, runtime}]
	return r, ok
}

func (c *Cache) Put(module identifier.ModuleIdentifier, runtime exportsinfo.RuntimeKey, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byId[cacheKey{module, runtime}] = result
}

// Generator runs a module through its claimed GeneratePlugin for every
// source type the module declares, populating Cache. Invalidation is the
// caller's responsibility: dropping an entry from Cache before calling
// Generate again forces a fresh run (spec.md §4.4 "invalidated on any input
// change to the module or any dependency it reads during codegen").
type Generator struct {
	Graph    *modulegraph.ModuleGraph
	Registry *Registry
	Cache    *Cache
}

func NewGenerator(graph *modulegraph.ModuleGraph, registry *Registry, cache *Cache) *Generator {
	return &Generator{Graph: graph, Registry: registry, Cache: cache}
}

// Generate produces (or returns the cached) Result for one module under one
// runtime. Pure given the graph snapshot: safe to call concurrently across
// distinct modules (spec.md §5 "each invocation is pure given the graph
// snapshot").
func (g *Generator) Generate(module identifier.ModuleIdentifier, runtime exportsinfo.RuntimeKey, reqs RequirementSet) (*Result, error) {
	if cached, ok := g.Cache.Get(module, runtime); ok {
		return cached, nil
	}

	mod, ok := g.Graph.Module(module)
	if !ok {
		return nil, errModuleNotFound(module)
	}

	sources := make(map[modulegraph.SourceType][]byte)
	var moduleSourceMap *sourcemap.Chunk
	for _, sourceType := range mod.SourceTypes() {
		plugin := g.Registry.For(mod, sourceType)
		if plugin == nil {
			continue
		}
		genCtx := GenerateContext{
			RequestedSourceType: sourceType,
			Runtime:             runtime,
			RuntimeRequirements: reqs,
		}
		out, err := plugin.Generate(mod, genCtx)
		if err != nil {
			return nil, err
		}
		sources[sourceType] = out

		if sourceType == modulegraph.SourceTypeJavaScript {
			if smPlugin, ok := plugin.(SourceMapGeneratePlugin); ok {
				chunk, err := smPlugin.GenerateSourceMap(mod, genCtx)
				if err != nil {
					return nil, err
				}
				moduleSourceMap = chunk
			}
		}
	}

	result := &Result{
		Sources:             sources,
		RuntimeRequirements: reqs,
		Hash:                hashSources(sources),
		SourceMap:           moduleSourceMap,
	}
	g.Cache.Put(module, runtime, result)
	return result, nil
}
