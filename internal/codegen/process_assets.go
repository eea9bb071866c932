package codegen

import (
	"context"
	"fmt"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/helpers"
	"github.com/bundlecore/bundlecore/internal/hooks"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/sourcemap"
)

// Canonical process_assets stages (spec.md §4.5's generic Stage ordering,
// given the specific names the asset-emit pipeline needs): taps register at
// one of these instead of inventing their own numbering, so two independent
// plugins land in a predictable relative order without coordinating.
const (
	StageAdditional            hooks.Stage = -2000
	StagePreProcess            hooks.Stage = -1000
	StageDerived               hooks.Stage = -200
	StageAdditions             hooks.Stage = -100
	StageOptimize              hooks.Stage = 100
	StageOptimizeCount         hooks.Stage = 200
	StageOptimizeCompatibility hooks.Stage = 300
	StageOptimizeSize          hooks.Stage = 400
	StageDevTooling            hooks.Stage = 500
	StageOptimizeInline        hooks.Stage = 700
	StageSummarize             hooks.Stage = 1000
	StageOptimizeHash          hooks.Stage = 2500
	StageOptimizeTransfer      hooks.Stage = 3000
	StageAnalyse               hooks.Stage = 4000
	StageReport                hooks.Stage = 5000
)

// Asset is one named output the compilation emits.
type Asset struct {
	Filename string
	Source   []byte
}

// RenderedChunk is what chunk render hands process_assets: the asset plus
// enough of its own bookkeeping for a tap to rebuild a source map without
// re-deriving chunk-graph state.
type RenderedChunk struct {
	ChunkId        chunkgraph.ChunkId
	Filename       string
	Source         []byte
	OrderedModules []identifier.ModuleIdentifier
	ModuleOffsets  map[identifier.ModuleIdentifier]sourcemap.LineColumnOffset
	ModuleResults  map[identifier.ModuleIdentifier]*Result
}

// AssetsContext is the mutable value every process_assets tap receives and
// edits in place (spec.md §4.5 "SyncHook taps mutate shared state directly,
// each seeing what every earlier tap at an earlier or equal stage did").
type AssetsContext struct {
	Assets map[string]*Asset
	Chunks []RenderedChunk
}

// ProcessAssetsHooks is the one named hook point codegen exposes for
// post-render asset transforms (spec.md §4.5, SPEC_FULL.md's
// source_map_dev_tool_plugin.rs supplement: "process_assets at stage
// PRE_PROCESS").
type ProcessAssetsHooks struct {
	Hook hooks.SyncHook[*AssetsContext]
}

func NewProcessAssetsHooks() *ProcessAssetsHooks {
	return &ProcessAssetsHooks{}
}

// Run seeds Assets from each RenderedChunk's own filename/source and then
// calls the tap chain.
func (h *ProcessAssetsHooks) Run(ctx context.Context, chunks []RenderedChunk) (*AssetsContext, error) {
	ac := &AssetsContext{Assets: make(map[string]*Asset, len(chunks)), Chunks: chunks}
	for _, c := range chunks {
		ac.Assets[c.Filename] = &Asset{Filename: c.Filename, Source: c.Source}
	}
	if err := h.Hook.Call(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// EmitSourceMaps is the devtool tap: for each rendered chunk it splices the
// per-module mapping chunks produced during codegen into one source map,
// appends the companion `.map` asset, and rewrites the JS asset's source to
// carry a sourceMappingURL comment (SPEC_FULL.md's source_map_dev_tool_plugin.rs
// supplement, grounded on the teacher linker's per-file source map join:
// internal/linker.go's sourcesIndex/prevEndState splicing loop, but against
// one chunk's ordered modules instead of the whole bundle).
func EmitSourceMaps(_ context.Context, ac *AssetsContext) error {
	for _, chunk := range ac.Chunks {
		mapBytes, ok := buildChunkSourceMap(chunk)
		if !ok {
			continue
		}
		mapFilename := chunk.Filename + ".map"
		ac.Assets[mapFilename] = &Asset{Filename: mapFilename, Source: mapBytes}

		if asset, ok := ac.Assets[chunk.Filename]; ok {
			asset.Source = append(asset.Source, []byte(fmt.Sprintf("\n//# sourceMappingURL=%s\n", mapFilename))...)
		}
	}
	return nil
}

// buildChunkSourceMap splices each module's precomputed SourceMap chunk at
// the generated position render.go recorded for it, the same algorithm the
// teacher's linker uses to join per-file chunks into one bundle map.
func buildChunkSourceMap(chunk RenderedChunk) ([]byte, bool) {
	var j helpers.Joiner
	j.AddString("{\n  \"version\": 3")

	j.AddString(",\n  \"sources\": [")
	for i, m := range chunk.OrderedModules {
		if i != 0 {
			j.AddString(", ")
		}
		j.AddBytes(helpers.QuoteForJSON(string(m), false))
	}
	j.AddString("]")

	j.AddString(",\n  \"mappings\": \"")
	prevEndState := sourcemap.SourceMapState{}
	wroteAny := false
	for _, m := range chunk.OrderedModules {
		result, ok := chunk.ModuleResults[m]
		if !ok || result.SourceMap == nil {
			continue
		}
		offset, ok := chunk.ModuleOffsets[m]
		if !ok {
			continue
		}
		startState := sourcemap.SourceMapState{
			GeneratedLine:   offset.Lines,
			GeneratedColumn: offset.Columns,
		}
		sourcemap.AppendSourceMapChunk(&j, prevEndState, startState, result.SourceMap.Buffer)
		prevEndState = result.SourceMap.EndState
		wroteAny = true
	}
	j.AddString("\"")
	j.AddString(",\n  \"names\": []\n}")

	if !wroteAny {
		return nil, false
	}
	return j.Done(), true
}
