package exportsinfo

import (
	"strings"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// mergedRefs is the per-target accumulator spec.md §4.2.2 describes:
// a dominant namespace flag plus a set of named reference chains, each with
// AND-intersected can_mangle/can_inline flags.
type mergedRefs struct {
	namespace bool
	named     map[string]*namedRef
}

type namedRef struct {
	chain     []string
	canMangle bool
	canInline bool
}

func newMergedRefs() *mergedRefs {
	return &mergedRefs{named: make(map[string]*namedRef)}
}

func (m *mergedRefs) add(ref modulegraph.RefExport) {
	if len(ref.Names) == 0 {
		m.namespace = true
		return
	}
	key := strings.Join(ref.Names, ".")
	if existing, ok := m.named[key]; ok {
		existing.canMangle = existing.canMangle && ref.CanMangle
		existing.canInline = existing.canInline && ref.CanInline
		return
	}
	m.named[key] = &namedRef{chain: ref.Names, canMangle: ref.CanMangle, canInline: ref.CanInline}
}

func (m *mergedRefs) empty() bool {
	return m == nil || (!m.namespace && len(m.named) == 0)
}

type workItem struct {
	module identifier.ModuleIdentifier
	runtime RuntimeKey
	refs    *mergedRefs
}

// UsedExportsPropagator runs spec.md §4.2.2's used-exports pass: seeded by
// entry dependencies, it walks outgoing connections transitively, merging
// each dependency's ReferencedExportsHint into a per-target reference set
// and marking the corresponding ExportsInfo entries used.
type UsedExportsPropagator struct {
	graph  *modulegraph.ModuleGraph
	store  *Store
	global bool // optimization.usedExports == global: collapse every runtime key

	queue []workItem
	// seenSignature de-duplicates work items whose merged reference set is
	// identical to one already processed for (module, runtime), the
	// termination condition for the monotonic fixed point.
	seenSignature map[identifier.ModuleIdentifier]map[RuntimeKey]string
}

func NewUsedExportsPropagator(graph *modulegraph.ModuleGraph, store *Store, global bool) *UsedExportsPropagator {
	return &UsedExportsPropagator{
		graph:         graph,
		store:         store,
		global:        global,
		seenSignature: make(map[identifier.ModuleIdentifier]map[RuntimeKey]string),
	}
}

// AddEntrySeed seeds the pass from one entry (or global-entry) dependency,
// per spec.md §4.2.2's "Seed: every entry dependency, plus global-entry
// deps."
func (p *UsedExportsPropagator) AddEntrySeed(depId modulegraph.DependencyId, runtime RuntimeKey) {
	dep := p.graph.Dependency(depId)
	if !dep.Resolved {
		return
	}
	refs := newMergedRefs()
	for _, hint := range dep.ReferencedExportsHint {
		refs.add(hint)
	}
	p.enqueue(dep.ResolvedModule, p.runtimeKey(runtime), refs)
}

func (p *UsedExportsPropagator) runtimeKey(runtime RuntimeKey) RuntimeKey {
	if p.global {
		return GlobalRuntime
	}
	return runtime
}

func (p *UsedExportsPropagator) enqueue(module identifier.ModuleIdentifier, runtime RuntimeKey, refs *mergedRefs) {
	sig := signature(refs)
	byRuntime, ok := p.seenSignature[module]
	if !ok {
		byRuntime = make(map[RuntimeKey]string)
		p.seenSignature[module] = byRuntime
	}
	if prev, seen := byRuntime[runtime]; seen && prev == sig {
		return
	}
	byRuntime[runtime] = sig
	p.queue = append(p.queue, workItem{module: module, runtime: runtime, refs: refs})
}

func signature(refs *mergedRefs) string {
	if refs.empty() {
		return ""
	}
	var b strings.Builder
	if refs.namespace {
		b.WriteString("*")
	}
	for _, name := range sortedKeys(refs.named) {
		b.WriteByte(';')
		b.WriteString(name)
	}
	return b.String()
}

func sortedKeys(m map[string]*namedRef) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Simple insertion sort: reference sets per work item are small, and
	// determinism (not asymptotic speed) is what the signature needs.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Run drains the seeded work queue to completion (spec.md §4.2.2).
func (p *UsedExportsPropagator) Run() {
	for len(p.queue) > 0 {
		item := p.queue[0]
		p.queue = p.queue[1:]
		p.processOne(item)
	}
}

func (p *UsedExportsPropagator) processOne(item workItem) {
	info := p.store.Get(item.module)
	p.applyReferences(info, item.runtime, item.refs)

	for _, depId := range p.graph.OutgoingConnections(item.module) {
		dep := p.graph.Dependency(depId)
		conn := p.graph.Connection(depId)
		if dep.OptionalDep && len(dep.ReferencedExportsHint) == 0 {
			continue
		}

		childRefs := newMergedRefs()
		if len(dep.ReferencedExportsHint) == 0 {
			// No hint: conservatively treat as a full namespace reference
			// rather than silently dropping the edge.
			childRefs.add(modulegraph.NamespaceRef())
		} else {
			for _, hint := range dep.ReferencedExportsHint {
				childRefs.add(hint)
			}
		}

		childRuntime := p.runtimeForDependency(item.module, depId, item.runtime)
		p.enqueue(conn.Target, childRuntime, childRefs)
	}
}

// runtimeForDependency derives the runtime a dependency's target should be
// evaluated under: a dependency inside an async block carrying
// entry_options gets that block's own runtime; otherwise it inherits the
// parent's (spec.md §4.2.2 "Cross-chunk-group runtime").
func (p *UsedExportsPropagator) runtimeForDependency(owner identifier.ModuleIdentifier, depId modulegraph.DependencyId, parent RuntimeKey) RuntimeKey {
	if p.global {
		return GlobalRuntime
	}
	for _, blockId := range p.graph.BlocksOf(owner) {
		block := p.graph.Block(blockId)
		if block.GroupOptions == nil || block.GroupOptions.EntryOptions == nil {
			continue
		}
		for _, d := range block.Dependencies {
			if d == depId {
				return RuntimeKey(block.GroupOptions.EntryOptions.Runtime)
			}
		}
	}
	return parent
}

func (p *UsedExportsPropagator) applyReferences(info *ExportsInfo, runtime RuntimeKey, refs *mergedRefs) {
	if refs.empty() {
		info.SideEffectsOnlyUsed[runtime] = true
		return
	}
	if refs.namespace {
		info.ExportsObjectReferenced[runtime] = true
		for _, name := range info.Names() {
			info.ExportInfo(name).markUsed(runtime, UsedState)
		}
		return
	}
	for _, name := range sortedKeys(refs.named) {
		nr := refs.named[name]
		p.markChain(info, runtime, nr.chain, nr.canMangle, nr.canInline)
	}
}

// markChain walks a dotted reference chain, marking every intermediate
// export OnlyPropertiesUsed and the terminal one Used, clamping
// can_mangle/inlinable along the way (spec.md §4.2.2).
func (p *UsedExportsPropagator) markChain(info *ExportsInfo, runtime RuntimeKey, chain []string, canMangle, canInline bool) {
	cur := info
	for i, name := range chain {
		e := cur.ExportInfo(name)
		terminal := i == len(chain)-1

		state := OnlyPropertiesUsed
		if terminal {
			state = UsedState
		}
		e.markUsed(runtime, state)

		if !canMangle {
			f := false
			e.CanMangleUse = &f
		}
		if terminal {
			if !canInline {
				e.Inlinable = false
			}
			return
		}
		if e.Nested == nil {
			e.Nested = newExportsInfo(info.OwnerModule)
		}
		cur = e.Nested
	}
}
