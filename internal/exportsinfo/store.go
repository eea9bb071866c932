// Package exportsinfo implements the two-pass exports dataflow analysis
// from spec.md §4.2: provided-exports propagation (what a module actually
// exports, discovered from its dependencies' ExportsSpec records) and
// used-exports propagation (what downstream consumers actually reference),
// plus the five-mode prefetch snapshot codegen reads from.
package exportsinfo

import (
	"sync"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// ProvidedState mirrors the provided-exports lattice from spec.md §4.2.1:
// NotProvided < Unknown < Provided. Transitions only move up.
type ProvidedState uint8

const (
	NotProvided ProvidedState = iota
	ProvidedUnknown
	Provided
)

func (s ProvidedState) merge(other ProvidedState) ProvidedState {
	if other > s {
		return other
	}
	return s
}

// UsageState mirrors spec.md §4.2.2's used-exports states.
type UsageState uint8

const (
	Unused UsageState = iota
	OnlyPropertiesUsed
	UsedState
	UsedInUnknownWay
)

func (s UsageState) merge(other UsageState) UsageState {
	if other > s {
		return other
	}
	return s
}

// RuntimeKey names one runtime bucket used-exports are tracked per (spec.md
// §4.2.2: "Cross-chunk-group runtime ... Global collapses all runtimes to
// one key").
type RuntimeKey string

const GlobalRuntime RuntimeKey = "*"

// ExportTarget is the "(dep_id, from_dep_id, chain, priority)" a reexport
// resolves to (spec.md §4.2.1 step 5).
type ExportTarget struct {
	DepId     modulegraph.DependencyId
	FromDepId modulegraph.DependencyId
	Module    identifier.ModuleIdentifier
	Chain     []string
	Priority  int
}

// ExportInfo is one named export's accumulated state (spec.md §4.2.1/4.2.2).
type ExportInfo struct {
	Name            string
	Provided        ProvidedState
	CanMangleProvide *bool
	CanMangleUse     *bool
	TerminalBinding  bool
	Inlinable        bool
	Hidden           bool
	Target           *ExportTarget
	Nested           *ExportsInfo

	UsedInRuntime map[RuntimeKey]UsageState
}

func newExportInfo(name string) *ExportInfo {
	return &ExportInfo{Name: name, UsedInRuntime: make(map[RuntimeKey]UsageState)}
}

func (e *ExportInfo) usedUnder(runtime RuntimeKey) UsageState {
	if v, ok := e.UsedInRuntime[runtime]; ok {
		return v
	}
	return Unused
}

// UsedUnder reports this export's usage state under runtime.
func (e *ExportInfo) UsedUnder(runtime RuntimeKey) UsageState {
	return e.usedUnder(runtime)
}

// MarkUsedForTest raises this export's usage under runtime, exported only
// so tests can seed state directly without driving a full propagation pass.
func (e *ExportInfo) MarkUsedForTest(runtime RuntimeKey, state UsageState) {
	e.markUsed(runtime, state)
}

// markUsed raises this export's usage under runtime to at least state,
// reporting whether anything changed.
func (e *ExportInfo) markUsed(runtime RuntimeKey, state UsageState) bool {
	cur := e.usedUnder(runtime)
	merged := cur.merge(state)
	if merged == cur {
		return false
	}
	e.UsedInRuntime[runtime] = merged
	return true
}

// ExportsInfo is the per-module exports record (spec.md §3/§4.2): the named
// exports discovered so far plus a catch-all "other exports" entry for
// `UnknownExports` specs.
type ExportsInfo struct {
	OwnerModule identifier.ModuleIdentifier

	order   []string
	exports map[string]*ExportInfo

	// OtherExports models exports not individually named: Unknown after an
	// UnknownExports spec, NotProvided otherwise.
	OtherExports ProvidedState

	// SideEffectsOnlyUsed records modules referenced with no named export
	// (spec.md §4.2.2: "mark the target's exports-info 'used for side
	// effects only' under runtime").
	SideEffectsOnlyUsed map[RuntimeKey]bool

	// ExportsObjectReferenced records a root "[]" (namespace) reference,
	// which dominates any subsequent named reference (spec.md §4.2.2).
	ExportsObjectReferenced map[RuntimeKey]bool
}

func newExportsInfo(owner identifier.ModuleIdentifier) *ExportsInfo {
	return &ExportsInfo{
		OwnerModule:             owner,
		exports:                 make(map[string]*ExportInfo),
		SideEffectsOnlyUsed:     make(map[RuntimeKey]bool),
		ExportsObjectReferenced: make(map[RuntimeKey]bool),
	}
}

// ExportInfo returns (creating if needed) the named export record, in
// first-seen order for deterministic iteration (spec.md's "deterministic
// output" requirement).
func (info *ExportsInfo) ExportInfo(name string) *ExportInfo {
	if e, ok := info.exports[name]; ok {
		return e
	}
	e := newExportInfo(name)
	info.exports[name] = e
	info.order = append(info.order, name)
	return e
}

// Names returns every named export in first-seen order.
func (info *ExportsInfo) Names() []string {
	out := make([]string, len(info.order))
	copy(out, info.order)
	return out
}

// Store is the process-wide table of per-module ExportsInfo records,
// mutex-guarded per spec.md §5's "writes are serialized" policy.
type Store struct {
	mu   sync.RWMutex
	byId map[identifier.ModuleIdentifier]*ExportsInfo
}

func NewStore() *Store {
	return &Store{byId: make(map[identifier.ModuleIdentifier]*ExportsInfo)}
}

func (s *Store) Get(module identifier.ModuleIdentifier) *ExportsInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.byId[module]; ok {
		return info
	}
	info := newExportsInfo(module)
	s.byId[module] = info
	return info
}

func (s *Store) Peek(module identifier.ModuleIdentifier) (*ExportsInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.byId[module]
	return info, ok
}
