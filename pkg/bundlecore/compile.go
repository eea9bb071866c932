// Package bundlecore wires the bundler's internal packages into the single
// Compile entry point the rest of spec.md's pipeline describes end to end:
// factorize the module graph from each entry, propagate provided/used
// exports, build the chunk graph, optionally split shared chunks out, run
// codegen per (module, runtime), render each chunk, and hand the result to
// the asset-emit hooks.
//
// Resolver, loader and parser/generator plugins are all external
// collaborators a caller supplies (spec.md §1 scopes all three out of the
// bundler core); Compile only depends on the interfaces those packages
// already define.
package bundlecore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/codegen"
	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/factorize"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
	"github.com/bundlecore/bundlecore/internal/resolve"
	"github.com/bundlecore/bundlecore/internal/splitchunks"
	"github.com/bundlecore/bundlecore/internal/workpool"
)

// rootIssuer is the synthetic module every configured entry's own
// dependency hangs off, standing in for "the CLI invocation" as an issuer
// (mirroring the "__entry__" convention internal/chunkgraph's and
// internal/codegen's own tests use for the same purpose). It is never a
// real module: the graph only carries it so AddDependency has a source.
const rootIssuer identifier.ModuleIdentifier = "\x00entries\x00"

// Inputs gathers every external collaborator and option Compile needs.
type Inputs struct {
	Options    config.CompilerOptions
	Resolver   resolve.Resolver
	Load       factorize.LoaderRunner
	Parsers    *parseplugin.Registry
	Generators *codegen.Registry

	// Pool bounds fan-out across factorize and codegen; nil defaults to
	// workpool.New(0) (runtime.NumCPU()).
	Pool *workpool.Pool
	// Cache holds codegen.Result by (module, runtime) across Compile calls;
	// nil means each Compile call gets its own, cold, Cache.
	Cache *codegen.Cache
	// ChunkCache, if set, is consulted/populated around chunk rendering
	// (internal/cachestore-backed, survives process restarts).
	ChunkCache *codegen.PersistedChunkCache
	// ProcessAssets, if set, replaces the default hook chain (which only
	// taps codegen.EmitSourceMaps at StagePreProcess).
	ProcessAssets *codegen.ProcessAssetsHooks
}

// Stats is what a caller (cmd/bundlecore's build/stats subcommands) needs
// to report a finished compilation.
type Stats struct {
	Assets   []codegen.Asset
	Chunks   int
	Modules  int
	Runtimes []string
}

// Compile runs one full build: factorize from every configured entry,
// propagate exports information, construct the chunk graph, optionally
// split shared chunks out, generate and render every chunk, and run the
// asset-emit hook chain over the result.
func Compile(ctx context.Context, inputs Inputs) (*Stats, error) {
	pool := inputs.Pool
	if pool == nil {
		pool = workpool.New(0)
	}
	intern := identifier.NewInterner()
	graph := modulegraph.NewModuleGraph()
	graph.AddModule(&modulegraph.RawModule{Id: rootIssuer})

	entryDeps := make([]modulegraph.DependencyId, len(inputs.Options.Entries))
	entrySpecs := make([]chunkgraph.EntrySpec, len(inputs.Options.Entries))
	for i, entry := range inputs.Options.Entries {
		depId := graph.AddDependency(rootIssuer, modulegraph.Dependency{
			Type:    modulegraph.DepESMImport,
			Request: entry.Import,
		})
		entryDeps[i] = depId
		entrySpecs[i] = chunkgraph.EntrySpec{
			Name:         entry.Name,
			Dependencies: []modulegraph.DependencyId{depId},
			Options:      entry,
		}
	}

	factorizer := &factorize.Factorizer{
		Graph:    graph,
		Resolver: inputs.Resolver,
		Rules:    inputs.Options.ModuleRules,
		Parsers:  inputs.Parsers,
		Load:     inputs.Load,
		Intern:   intern,
	}

	exportsStore := exportsinfo.NewStore()
	provided := exportsinfo.NewProvidedExportsPropagator(graph, exportsStore)

	if err := factorizer.FactorizeAll(ctx, pool, entryDeps, rootIssuer, provided.SetSpec); err != nil {
		return nil, fmt.Errorf("factorize: %w", err)
	}

	if inputs.Options.Optimization.ProvidedExports {
		provided.Run(graph.AllModuleIds())
	}

	runtimeKeys := make(map[string]bool, len(inputs.Options.Entries))
	used := exportsinfo.NewUsedExportsPropagator(graph, exportsStore, inputs.Options.Optimization.UsedExports == config.UsedExportsGlobal)
	for i, entry := range inputs.Options.Entries {
		runtime := entry.Runtime
		if runtime == "" {
			runtime = entry.Name
		}
		runtimeKeys[runtime] = true
		used.AddEntrySeed(entryDeps[i], exportsinfo.RuntimeKey(runtime))
	}
	if inputs.Options.Optimization.UsedExports != config.UsedExportsFalse {
		used.Run()
		for runtime := range runtimeKeys {
			exportsinfo.UnionSharedConsumers(graph, exportsStore, exportsinfo.RuntimeKey(runtime))
		}
	}

	cg := chunkgraph.NewChunkGraph(intern)
	builder := chunkgraph.NewBuilder(graph, cg)
	builder.Exports = exportsStore
	builder.SideEffectsAware = inputs.Options.Optimization.SideEffects
	if err := builder.Initialize(entrySpecs); err != nil {
		return nil, fmt.Errorf("initialize chunk graph: %w", err)
	}
	builder.Run()

	if inputs.Options.Optimization.RemoveAvailableModules {
		cg.RemoveAvailableModules()
	}

	if groups := inputs.Options.Optimization.SplitChunks.CacheGroups; len(groups) > 0 {
		splitchunks.NewOptimizer(graph, cg, exportsStore, convertCacheGroups(groups)).Run()
	}

	cache := inputs.Cache
	if cache == nil {
		cache = codegen.NewCache()
	}
	generator := codegen.NewGenerator(graph, inputs.Generators, cache)
	propagator := codegen.NewPropagator(cg, cache, nil)
	chunkTemplate := renderFilenameTemplateString(inputs.Options.ChunkFilenameTemplate)
	runtimeOf := chunkRuntimes(cg)

	var normalChunks, runtimeChunks []chunkgraph.ChunkId
	for _, id := range cg.AllChunks() {
		if cg.Chunk(id).Runtime != "" {
			runtimeChunks = append(runtimeChunks, id)
		} else {
			normalChunks = append(normalChunks, id)
		}
	}

	hashes := make(map[chunkgraph.ChunkId]string, len(normalChunks)+len(runtimeChunks))
	requirements := make(map[chunkgraph.ChunkId]codegen.RequirementSet, len(normalChunks)+len(runtimeChunks))
	var rendered []codegen.RenderedChunk

	renderOne := func(chunkId chunkgraph.ChunkId, extraRuntimeModules []*codegen.Result) error {
		runtime := exportsinfo.RuntimeKey(runtimeOf[chunkId])
		moduleIds := cg.ModulesOf(chunkId)

		results, err := workpool.Map(ctx, pool, moduleIds, func(ctx context.Context, m identifier.ModuleIdentifier) (*codegen.Result, error) {
			return generator.Generate(m, runtime, moduleStaticRequirements(graph, m))
		})
		if err != nil {
			return fmt.Errorf("generate chunk %s: %w", chunkId, err)
		}

		moduleResults := make(map[identifier.ModuleIdentifier]*codegen.Result, len(moduleIds))
		for i, m := range moduleIds {
			moduleResults[m] = results[i]
		}

		reqs, err := propagator.Propagate(ctx, chunkId, results)
		if err != nil {
			return fmt.Errorf("propagate runtime requirements for chunk %s: %w", chunkId, err)
		}
		requirements[chunkId] = reqs

		in := codegen.ChunkRenderInput{
			Chunk:            chunkId,
			Runtime:          runtime,
			ModuleResults:    moduleResults,
			RuntimeModules:   extraRuntimeModules,
			FilenameTemplate: chunkTemplate,
		}
		out := codegen.RenderChunkCached(cg, in, inputs.ChunkCache)
		hashes[chunkId] = out.ChunkHash
		rendered = append(rendered, codegen.RenderedChunk{
			ChunkId:        chunkId,
			Filename:       out.Filename,
			Source:         out.Source,
			OrderedModules: out.OrderedModules,
			ModuleOffsets:  out.ModuleOffsets,
			ModuleResults:  moduleResults,
		})
		return nil
	}

	for _, chunkId := range normalChunks {
		if err := renderOne(chunkId, nil); err != nil {
			return nil, err
		}
	}

	// Runtime chunks render last: chunk_filename_runtime_module.go's lookup
	// table needs every sibling chunk's hash, which only exists once those
	// chunks have themselves been rendered.
	for _, chunkId := range runtimeChunks {
		var extra []*codegen.Result
		if runtimeNeedsChunkLoading(runtimeOf, requirements, runtimeOf[chunkId]) {
			extra = append(extra, codegen.ChunkFilenameRuntimeModule(cg, hashes, chunkTemplate))
		}
		if err := renderOne(chunkId, extra); err != nil {
			return nil, err
		}
	}

	hooks := inputs.ProcessAssets
	if hooks == nil {
		hooks = codegen.NewProcessAssetsHooks()
		hooks.Hook.Tap("emit-source-maps", codegen.StagePreProcess, codegen.EmitSourceMaps)
	}
	assetsCtx, err := hooks.Run(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("process assets: %w", err)
	}

	return &Stats{
		Assets:   sortedAssets(assetsCtx),
		Chunks:   len(normalChunks) + len(runtimeChunks),
		Modules:  int(intern.Len()),
		Runtimes: sortedRuntimeKeys(runtimeKeys),
	}, nil
}

// runtimeNeedsChunkLoading reports whether any chunk sharing runtime's key
// required chunk-loading support, meaning the runtime chunk needs a
// chunk-id-to-filename lookup table to resolve async imports at load time.
func runtimeNeedsChunkLoading(runtimeOf map[chunkgraph.ChunkId]string, requirements map[chunkgraph.ChunkId]codegen.RequirementSet, runtime string) bool {
	for chunkId, r := range runtimeOf {
		if r != runtime {
			continue
		}
		if reqs, ok := requirements[chunkId]; ok && (reqs.Has(codegen.EnsureChunk) || reqs.Has(codegen.ChunkLoading)) {
			return true
		}
	}
	return false
}

// chunkRuntimes maps every chunk to the runtime key of whichever
// entrypoint reaches it: only entrypoint chunk-groups carry a non-empty
// ChunkGroup.Runtime (internal/chunkgraph.Builder.Initialize sets it once,
// at entry creation), so an async group's descendants inherit their
// nearest entrypoint ancestor's key by walking down from each root.
func chunkRuntimes(cg *chunkgraph.ChunkGraph) map[chunkgraph.ChunkId]string {
	out := make(map[chunkgraph.ChunkId]string)
	seen := make(map[chunkgraph.GroupId]bool)

	var visit func(groupId chunkgraph.GroupId, runtime string)
	visit = func(groupId chunkgraph.GroupId, runtime string) {
		if seen[groupId] {
			return
		}
		seen[groupId] = true

		group := cg.Group(groupId)
		if group.Runtime != "" {
			runtime = group.Runtime
		}
		for _, chunkId := range group.Chunks {
			if _, ok := out[chunkId]; !ok {
				out[chunkId] = runtime
			}
		}
		for _, child := range group.Children {
			visit(child, runtime)
		}
	}

	for _, entry := range cg.Entrypoints() {
		visit(entry, "")
	}
	return out
}

// moduleStaticRequirements derives the runtime capabilities a module's own
// dependency edges imply (spec.md §4.4's per-module requirement
// contribution), ahead of the transitive expansion internal/codegen's
// Propagator runs over the whole chunk.
func moduleStaticRequirements(graph *modulegraph.ModuleGraph, m identifier.ModuleIdentifier) codegen.RequirementSet {
	var set codegen.RequirementSet
	for _, depId := range graph.OutgoingConnections(m) {
		switch graph.Dependency(depId).Type {
		case modulegraph.DepCommonJSRequire:
			set.Add(codegen.RequireFn)
		case modulegraph.DepDynamicImport, modulegraph.DepWorker:
			set.Add(codegen.EnsureChunk)
		case modulegraph.DepHMRAccept:
			set.Add(codegen.HMRRuntime)
		}
	}
	return set
}

// convertCacheGroups adapts internal/config's CLI-facing CacheGroup (a
// regex tested against the resource path) into internal/splitchunks's
// module-predicate form.
func convertCacheGroups(groups []config.CacheGroup) []splitchunks.CacheGroup {
	out := make([]splitchunks.CacheGroup, 0, len(groups))
	for _, g := range groups {
		test := g.Test
		filter := splitchunks.ChunkFilter(g.ChunkFilter)
		if filter == nil {
			filter = splitchunks.AllChunks
		}
		sourceType, hasType := cacheGroupSourceType(g.Type)
		out = append(out, splitchunks.CacheGroup{
			Key:                g.Key,
			Test:               func(m modulegraph.Module) bool { return test == nil || test.MatchString(string(m.Identifier())) },
			Type:               sourceType,
			HasType:            hasType,
			Layer:              g.Layer,
			ChunkFilter:        filter,
			MinChunks:          g.MinChunks,
			MinSize:            float64(g.MinSize),
			MinSizeReduction:   float64(g.MinSizeReduction),
			MaxSize:            float64(g.MaxSize),
			MaxInitialSize:     float64(g.MaxInitialSize),
			MaxAsyncSize:       float64(g.MaxAsyncSize),
			Priority:           g.Priority,
			ReuseExistingChunk: g.ReuseExistingChunk,
			Enforce:            g.Enforce,
			UsedExportsAware:   g.UsedExportsAware,
			FilenameTemplate:   g.FilenameTemplate,
			NameTemplate:       g.NameTemplate,
		})
	}
	return out
}

// cacheGroupSourceType maps a CacheGroup's CLI-facing type name to the
// internal SourceType enum splitchunks matches modules against; an unknown
// or empty name means "any source type" (HasType false).
func cacheGroupSourceType(name string) (modulegraph.SourceType, bool) {
	switch name {
	case "javascript":
		return modulegraph.SourceTypeJavaScript, true
	case "css":
		return modulegraph.SourceTypeCSS, true
	case "css-import":
		return modulegraph.SourceTypeCSSImport, true
	case "asset":
		return modulegraph.SourceTypeAsset, true
	case "wasm":
		return modulegraph.SourceTypeWasm, true
	default:
		return 0, false
	}
}

var placeholderTokens = map[config.PathPlaceholder]string{
	config.NamePlaceholder:        "name",
	config.IdPlaceholder:          "id",
	config.HashPlaceholder:        "hash",
	config.FullHashPlaceholder:    "fullhash",
	config.ChunkHashPlaceholder:   "chunkhash",
	config.ContentHashPlaceholder: "contenthash",
	config.ExtPlaceholder:         "ext",
	config.QueryPlaceholder:       "query",
	config.FilePlaceholder:       "file",
	config.PathPlaceholderTok:     "path",
	config.BasePlaceholder:        "base",
}

// renderFilenameTemplateString bridges internal/config's parsed
// []PathTemplate (the CLI/file-config representation) back into the raw
// bracket-token string internal/codegen.RenderFilename expects: both sides
// use the same token vocabulary, so this is a plain re-serialization, not a
// lossy conversion.
func renderFilenameTemplateString(template []config.PathTemplate) string {
	var b strings.Builder
	for _, piece := range template {
		if piece.Placeholder == config.NoPlaceholder {
			b.WriteString(piece.Data)
			continue
		}
		token := placeholderTokens[piece.Placeholder]
		if piece.HashLen > 0 {
			fmt.Fprintf(&b, "[%s:%d]", token, piece.HashLen)
		} else {
			fmt.Fprintf(&b, "[%s]", token)
		}
	}
	return b.String()
}

func sortedAssets(ac *codegen.AssetsContext) []codegen.Asset {
	names := make([]string, 0, len(ac.Assets))
	for name := range ac.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]codegen.Asset, 0, len(names))
	for _, name := range names {
		out = append(out, *ac.Assets[name])
	}
	return out
}

func sortedRuntimeKeys(keys map[string]bool) []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
