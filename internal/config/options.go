// Package config holds the bundler's options struct and the small derived
// helpers (filename templates, rule filters) that several layers need.
// Structurally this follows the teacher's internal/config package: one
// large options struct plus small value types with "ApplyXxx"-style merge
// methods, generalized from esbuild's JS/TS-specific knobs to this spec's
// module-rule / optimization / split-chunks knobs.
package config

import "regexp"

// UsedExportsMode is the --optimization.usedExports CLI flag (spec §6).
type UsedExportsMode uint8

const (
	UsedExportsFalse UsedExportsMode = iota
	UsedExportsTrue
	UsedExportsGlobal
)

// Optimization bundles the optimization.* CLI/config surface (spec §6, §4.3).
type Optimization struct {
	UsedExports           UsedExportsMode
	ProvidedExports       bool
	SideEffects           bool
	RemoveAvailableModules bool
	SplitChunks           SplitChunksOptions
}

// SplitChunksOptions configures the split-chunks optimizer (spec §4.3.1).
type SplitChunksOptions struct {
	CacheGroups []CacheGroup
}

// CacheGroup is one entry of optimization.splitChunks.cacheGroups (spec §4.3.1).
type CacheGroup struct {
	Key         string
	Test        *regexp.Regexp
	Type        string
	Layer       string
	MinChunks   int
	MinSize     int64
	MinSizeReduction int64
	MaxSize     int64
	MaxInitialSize int64
	MaxAsyncSize   int64
	Priority    int
	ReuseExistingChunk bool
	Enforce     bool
	UsedExportsAware bool
	FilenameTemplate string
	NameTemplate     string

	// ChunkFilter decides which of a module's candidate chunks participate
	// in this cache group's combinations (spec: "Filter chunks via the
	// cache-group's chunk_filter").
	ChunkFilter func(chunkName string, isInitial bool) bool
}

// ModuleRule is one entry of the ordered module.rules list matched during
// factorization (spec §4.1 step 5).
type ModuleRule struct {
	Test      *regexp.Regexp
	Include   *regexp.Regexp
	Exclude   *regexp.Regexp
	Resource  *regexp.Regexp
	Issuer    *regexp.Regexp
	Scheme    string
	MimeType  string
	Layer     string

	Loaders       []string
	ParserOptions map[string]any
	GeneratorOptions map[string]any
	ModuleType    string
}

// Matches reports whether this rule applies to a factorized request. An
// empty Test/Include/Exclude/Resource/Issuer/Scheme/MimeType is treated as
// "don't care", matching the teacher's CompileFilterForPlugin convention of
// nil meaning "always matches".
func (r ModuleRule) Matches(resource, issuer, scheme, mimeType string) bool {
	if r.Test != nil && !r.Test.MatchString(resource) {
		return false
	}
	if r.Include != nil && !r.Include.MatchString(resource) {
		return false
	}
	if r.Exclude != nil && r.Exclude.MatchString(resource) {
		return false
	}
	if r.Resource != nil && !r.Resource.MatchString(resource) {
		return false
	}
	if r.Issuer != nil && !r.Issuer.MatchString(issuer) {
		return false
	}
	if r.Scheme != "" && r.Scheme != scheme {
		return false
	}
	if r.MimeType != "" && r.MimeType != mimeType {
		return false
	}
	return true
}

// EntryOptions mirrors an entry's "options" (spec §4.3 Initialization):
// the runtime name, split-point group options inherited by its own async
// children, and chunk-loading behavior.
type EntryOptions struct {
	Name         string
	Import       string // request resolved against internal/resolve, e.g. "./src/index.js"
	Runtime      string // empty means "use the entry name"
	ChunkLoading ChunkLoading
	AsyncChunks  bool
	DependOn     []string
}

type ChunkLoading uint8

const (
	ChunkLoadingEnabled ChunkLoading = iota
	ChunkLoadingDisable
)

// CompilerOptions is the top-level options struct, analogous to the
// teacher's config.Options. Loaded by internal/config.Load (viper+yaml) or
// constructed directly by tests/library callers.
type CompilerOptions struct {
	Entries      []EntryOptions
	ModuleRules  []ModuleRule
	Optimization Optimization

	OutputFilename      []PathTemplate
	ChunkFilenameTemplate []PathTemplate
	HashDigestLength    int

	IgnoreOrder bool // suppress CssOrderConflict as an error, emit a warning instead

	// There is no separate runtime field: when Optimization.UsedExports ==
	// UsedExportsGlobal, used-exports propagation collapses every runtime key
	// to exportsinfo.GlobalRuntime.
}
