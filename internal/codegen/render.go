package codegen

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/sourcemap"
)

// PathData is the substitution source for filename templates (spec.md §6
// "Values are substituted from PathData{name, id, hash, content_hash,
// chunk, runtime, filename, url}").
type PathData struct {
	Name        string
	Id          string
	Hash        string
	ContentHash string
	FullHash    string
	ChunkHash   string
	Chunk       string
	Runtime     string
	Ext         string
	Query       string
	File        string
	Path        string
	Base        string
}

var filenameToken = regexp.MustCompile(`\[(name|id|hash|fullhash|chunkhash|contenthash|ext|query|file|path|base)(?::(\d+))?\]`)

// RenderFilename substitutes a filename template's tokens from data,
// truncating any `[xxx:N]` hash token to N characters (spec.md §6 "Hash
// truncation uses `:N` suffix").
func RenderFilename(template string, data PathData) string {
	return filenameToken.ReplaceAllStringFunc(template, func(match string) string {
		sub := filenameToken.FindStringSubmatch(match)
		token, nStr := sub[1], sub[2]
		n := 0
		if nStr != "" {
			n, _ = strconv.Atoi(nStr)
		}
		switch token {
		case "name":
			return data.Name
		case "id":
			return data.Id
		case "hash":
			return truncate(data.Hash, n)
		case "fullhash":
			return truncate(data.FullHash, n)
		case "chunkhash":
			return truncate(data.ChunkHash, n)
		case "contenthash":
			return truncate(data.ContentHash, n)
		case "ext":
			return data.Ext
		case "query":
			return data.Query
		case "file":
			return data.File
		case "path":
			return data.Path
		case "base":
			return data.Base
		}
		return match
	})
}

// ChunkRenderInput gathers what RenderChunk needs beyond the chunk graph
// itself: every module's codegen Result, keyed so render can look each up
// in post-order.
type ChunkRenderInput struct {
	Chunk            chunkgraph.ChunkId
	Runtime          exportsinfo.RuntimeKey
	ModuleResults    map[identifier.ModuleIdentifier]*Result
	RuntimeModules   []*Result // registered by Propagator.Propagate's callers
	FilenameTemplate string
}

// ChunkRenderOutput is spec.md §4.4's chunk render result.
type ChunkRenderOutput struct {
	Filename       string
	Source         []byte
	ChunkHash      string
	OrderedModules []identifier.ModuleIdentifier
	ModuleOffsets  map[identifier.ModuleIdentifier]sourcemap.LineColumnOffset
}

// RenderChunk implements spec.md §4.4's "Chunk render": hash, filename,
// post-order concatenation, optional bootstrap wrap for the runtime chunk.
// The returned ModuleOffsets records where each module's own source begins
// in Source (just inside its factory wrapper), in generated line/column terms — process_assets's
// source-map-emit tap needs this to splice per-module mapping chunks
// together without re-walking Source itself.
func RenderChunk(cg *chunkgraph.ChunkGraph, in ChunkRenderInput) ChunkRenderOutput {
	modules := orderedModules(cg, in.Chunk)

	chunkHash := computeChunkHash(cg, in.Chunk, in.Runtime, modules, in.ModuleResults, in.RuntimeModules)

	chunk := cg.Chunk(in.Chunk)
	data := PathData{
		Name:        chunk.Name,
		Id:          fmt.Sprintf("%d", in.Chunk.Index()),
		ChunkHash:   chunkHash,
		ContentHash: chunkHash,
		FullHash:    chunkHash,
		Chunk:       chunk.Name,
		Runtime:     string(in.Runtime),
		Ext:         ".js",
	}
	template := in.FilenameTemplate
	if template == "" {
		template = "[name].[contenthash:8].js"
	}
	filename := RenderFilename(template, data)

	source, offsets := concatenate(modules, in.ModuleResults, in.RuntimeModules, chunk.IsRoot && chunk.Runtime != "")

	return ChunkRenderOutput{Filename: filename, Source: source, ChunkHash: chunkHash, ModuleOffsets: offsets, OrderedModules: modules}
}

// orderedModules returns a chunk's modules sorted by global post-order
// index (spec.md §4.4 step 3 "post-order index order").
func orderedModules(cg *chunkgraph.ChunkGraph, chunkId chunkgraph.ChunkId) []identifier.ModuleIdentifier {
	modules := cg.ModulesOf(chunkId)
	sort.Slice(modules, func(i, j int) bool {
		pi, _ := cg.PostOrder(modules[i])
		pj, _ := cg.PostOrder(modules[j])
		return pi < pj
	})
	return modules
}

func computeChunkHash(cg *chunkgraph.ChunkGraph, chunkId chunkgraph.ChunkId, runtime exportsinfo.RuntimeKey, modules []identifier.ModuleIdentifier, results map[identifier.ModuleIdentifier]*Result, runtimeModules []*Result) string {
	h := sha1.New()
	fmt.Fprintf(h, "chunk:%d:runtime:%s", chunkId.Index(), runtime)
	for _, m := range modules {
		h.Write([]byte(m))
		if r, ok := results[m]; ok {
			h.Write([]byte(r.Hash))
		}
	}
	for _, r := range runtimeModules {
		h.Write([]byte(r.Hash))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// concatenate joins each module's JS source in post-order, wrapping with a
// bootstrap preamble only for the runtime chunk (spec.md §4.4 step 3).
func concatenate(modules []identifier.ModuleIdentifier, results map[identifier.ModuleIdentifier]*Result, runtimeModules []*Result, isRuntimeChunk bool) ([]byte, map[identifier.ModuleIdentifier]sourcemap.LineColumnOffset) {
	var out []byte
	var pos sourcemap.LineColumnOffset
	offsets := make(map[identifier.ModuleIdentifier]sourcemap.LineColumnOffset, len(modules))

	advance := func(b []byte) {
		pos.AdvanceBytes(b)
		out = append(out, b...)
	}

	if isRuntimeChunk {
		advance(bootstrapHead())
		for _, r := range runtimeModules {
			if src, ok := r.Sources[modulegraph.SourceTypeJavaScript]; ok {
				advance(src)
				advance([]byte{'\n'})
			}
		}
		advance(bootstrapModuleMapOpen())
	}
	for _, m := range modules {
		r, ok := results[m]
		if !ok {
			continue
		}
		src, ok := r.Sources[modulegraph.SourceTypeJavaScript]
		if !ok {
			continue
		}
		advance(moduleWrapperOpen(m))
		offsets[m] = pos
		advance(src)
		advance(moduleWrapperClose())
	}
	if isRuntimeChunk {
		advance(bootstrapEpilogue())
	}
	return out, offsets
}
