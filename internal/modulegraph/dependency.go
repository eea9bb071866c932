package modulegraph

import (
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/logger"
)

// DependencyType is the closed enum of every import/require/export/url/
// worker/context/hmr/federation form a dependency can take (spec.md §3).
type DependencyType uint8

const (
	DepESMImport DependencyType = iota
	DepESMExport
	DepESMReexport
	DepCommonJSRequire
	DepDynamicImport
	DepCSSImport
	DepCSSURL
	DepWorker
	DepContext
	DepHMRAccept
	DepFederationShare
	DepFederationConsume
	DepFederationProvide
)

// RefExport names the export path a dependency causes to be used
// (spec.md §6 "Dependency <-> module contract"): an empty slice means the
// namespace object itself ("[[]]" in the spec's shorthand).
type RefExport struct {
	Names      []string
	CanMangle  bool
	CanInline  bool
}

func NamespaceRef() RefExport { return RefExport{Names: nil, CanMangle: true, CanInline: true} }

// ExportNameOrSpec is one entry of an ExportsSpec's Names list (spec.md
// §4.2.1).
type ExportNameOrSpec struct {
	Name           string
	CanMangle      *bool // nil means unset
	TerminalBinding bool
	From           *identifier.ModuleIdentifier // "from" connection, if this is a reexport
	FromDepId      DependencyId
	Export         []string // the chain in the source module
	Priority       int
	Hidden         bool
	Inlinable      bool
	Nested         []ExportNameOrSpec
}

// ExportsSpecKind is what a dependency's GetExports returns (spec.md §4.2.1).
type ExportsSpecKind uint8

const (
	ExportsSpecNone ExportsSpecKind = iota
	ExportsSpecUnknown
	ExportsSpecNoExports
	ExportsSpecNames
)

type ExportsSpec struct {
	Kind  ExportsSpecKind
	Names []ExportNameOrSpec
}

// ConnectionState mirrors the glossary's ConnectionState.
type ConnectionState uint8

const (
	ActiveTrue ConnectionState = iota
	ActiveFalse
	TransitiveOnly
	CircularConnection
)

// DependencyId indexes the ModuleGraph.dependencies arena.
type depFamily struct{}

type DependencyId = identifier.Ukey[depFamily]

// Dependency is a directed edge request from a source position in one
// module to another module-to-be (spec.md §3).
type Dependency struct {
	Type             DependencyType
	Request          string
	Range            logger.Range
	Attributes       map[string]string
	ReferencedExportsHint []RefExport // optional, a dependency-supplied hint
	Weak             bool
	OptionalDep      bool
	SideEffectFree   bool // explicit "this edge has no side effects" flag

	// Set after factorization resolves this dependency to a module.
	ResolvedModule identifier.ModuleIdentifier
	Resolved       bool
}

// AsyncDependenciesBlock is an ordered collection of dependencies plus
// optional group-options, representing one dynamic-import/code-split
// boundary (spec.md §3).
type AsyncDependenciesBlock struct {
	Dependencies []DependencyId
	NestedBlocks []*AsyncDependenciesBlock
	GroupOptions *GroupOptions
}

type GroupOptions struct {
	Name          string
	PrefetchOrder int
	PreloadOrder  int
	FetchPriority string
	EntryOptions  *EntryBlockOptions // non-nil marks this block as an entry boundary
}

// EntryBlockOptions is the "entry_options" an async block can carry to
// become a separate entrypoint (spec.md §4.3 ProcessBlock).
type EntryBlockOptions struct {
	Name         string
	Runtime      string
	ChunkLoading string
}
