// Package parseplugin defines the parser-and-generator hook contract from
// spec.md §4.5 (ParserPlugin/GeneratorPlugin): the seam between a module's
// raw source and the Dependency/ExportsSpec records internal/factorize and
// internal/exportsinfo consume. Real grammar (full ESM/CJS/CSS parsing) is
// deliberately out of scope (spec.md §1, "the parser/printer implementation
// ... treated as external collaborators") — this package only carries the
// contract plus two illustrative reference scanners.
package parseplugin

import (
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// ParseResult is what a ParserPlugin produces from one module's source: the
// dependencies it discovered plus each one's export spec, keyed by position
// in Dependencies (spec.md §4.2.1 "GetExports is asked once per dependency
// during the build phase").
type ParseResult struct {
	Dependencies []modulegraph.Dependency
	ExportsSpecs []modulegraph.ExportsSpec // parallel to Dependencies
	Blocks       []BlockSpec
}

// BlockSpec describes one async-dependencies-block a parser discovered
// (e.g. a dynamic import), named by index into the dependencies it owns
// rather than by pointer, so ParserPlugin stays serializable-cache-friendly
// (spec.md §4.3).
type BlockSpec struct {
	DependencyIdx []int
	GroupOptions  *modulegraph.GroupOptions
}

// ParserPlugin turns module source bytes into a ParseResult. A real
// implementation would run an actual JS/CSS grammar; bundlecore ships only
// toy reference scanners (ESMScanner, CSSImportScanner below) that
// recognize a handful of literal forms, enough to exercise the rest of the
// pipeline end to end.
type ParserPlugin interface {
	// CanParse reports whether this plugin handles the given source type.
	CanParse(sourceType modulegraph.SourceType) bool
	Parse(resource string, source []byte) (ParseResult, error)
}

// Registry dispatches to the first ParserPlugin that claims a source type,
// mirroring the bail-hook dispatch spec.md §4.5 describes for module
// factorization's parser selection.
type Registry struct {
	plugins []ParserPlugin
}

func NewRegistry(plugins ...ParserPlugin) *Registry {
	return &Registry{plugins: plugins}
}

func (r *Registry) For(sourceType modulegraph.SourceType) ParserPlugin {
	for _, p := range r.plugins {
		if p.CanParse(sourceType) {
			return p
		}
	}
	return nil
}
