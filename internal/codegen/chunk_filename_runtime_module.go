package codegen

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// ChunkFilenameRuntimeModule generates the runtime fragment async chunk
// loading needs to turn a chunk id into a URL at load time, rather than only
// at build time: the filename template is compiled into a small lookup
// table plus the same token-substitution RenderFilename already does for
// build-time names, so `[name]`/`[id]`/`[contenthash:N]` resolve consistently
// whichever time they run (SPEC_FULL.md's get_chunk_filename.rs supplement).
// hashes must already hold every chunk's rendered ChunkHash, so callers
// render the runtime chunk last.
func ChunkFilenameRuntimeModule(cg *chunkgraph.ChunkGraph, hashes map[chunkgraph.ChunkId]string, template string) *Result {
	var b strings.Builder
	b.WriteString("var __chunk_filenames = {\n")
	for _, id := range cg.AllChunks() {
		chunk := cg.Chunk(id)
		hash := hashes[id]
		filename := RenderFilename(template, PathData{
			Name:        chunk.Name,
			Id:          fmt.Sprintf("%d", id.Index()),
			ChunkHash:   hash,
			ContentHash: hash,
			FullHash:    hash,
			Chunk:       chunk.Name,
			Ext:         ".js",
		})
		fmt.Fprintf(&b, "  %d: %q,\n", id.Index(), filename)
	}
	b.WriteString("};\n")
	b.WriteString("function __chunk_filename(id) { return __chunk_filenames[id]; }\n")

	src := []byte(b.String())
	sum := sha1.Sum(src)
	return &Result{
		Sources:             map[modulegraph.SourceType][]byte{modulegraph.SourceTypeJavaScript: src},
		RuntimeRequirements: RequirementSet(0),
		Hash:                hex.EncodeToString(sum[:])[:16],
	}
}
