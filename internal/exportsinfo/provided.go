package exportsinfo

import (
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// ProvidedExportsPropagator runs spec.md §4.2.1's provided-exports pass: for
// each module, its own outgoing dependencies' ExportsSpec records are
// folded into its ExportsInfo; a dependency with a "from" redirect also
// registers a feedback edge so that a later change to the redirect target's
// own exports re-triggers this module.
type ProvidedExportsPropagator struct {
	graph *modulegraph.ModuleGraph
	store *Store

	specs    map[modulegraph.DependencyId]modulegraph.ExportsSpec
	feedback map[identifier.ModuleIdentifier][]identifier.ModuleIdentifier
}

func NewProvidedExportsPropagator(graph *modulegraph.ModuleGraph, store *Store) *ProvidedExportsPropagator {
	return &ProvidedExportsPropagator{
		graph:    graph,
		store:    store,
		specs:    make(map[modulegraph.DependencyId]modulegraph.ExportsSpec),
		feedback: make(map[identifier.ModuleIdentifier][]identifier.ModuleIdentifier),
	}
}

// SetSpec records the ExportsSpec a parser-and-generator plugin produced
// for one dependency (internal/parseplugin.ParseResult.ExportsSpecs).
func (p *ProvidedExportsPropagator) SetSpec(depId modulegraph.DependencyId, spec modulegraph.ExportsSpec) {
	p.specs[depId] = spec
}

// Run processes workset to a local fixed point, per spec.md §4.2.1's
// "continue until the queue empties."
func (p *ProvidedExportsPropagator) Run(workset []identifier.ModuleIdentifier) {
	queue := append([]identifier.ModuleIdentifier(nil), workset...)
	inQueue := make(map[identifier.ModuleIdentifier]bool, len(workset))
	for _, m := range workset {
		inQueue[m] = true
	}

	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		inQueue[m] = false

		if p.runOne(m) {
			for _, origin := range p.feedback[m] {
				if !inQueue[origin] {
					inQueue[origin] = true
					queue = append(queue, origin)
				}
			}
		}
	}
}

func (p *ProvidedExportsPropagator) runOne(m identifier.ModuleIdentifier) bool {
	info := p.store.Get(m)
	changed := false
	for _, depId := range p.graph.OutgoingConnections(m) {
		spec, ok := p.specs[depId]
		if !ok {
			continue
		}
		if p.applySpec(info, depId, spec) {
			changed = true
		}
	}
	return changed
}

func (p *ProvidedExportsPropagator) applySpec(info *ExportsInfo, depId modulegraph.DependencyId, spec modulegraph.ExportsSpec) bool {
	changed := false
	switch spec.Kind {
	case modulegraph.ExportsSpecUnknown:
		if info.OtherExports < ProvidedUnknown {
			info.OtherExports = ProvidedUnknown
			changed = true
		}
	case modulegraph.ExportsSpecNoExports:
		// Nothing to record; leaves OtherExports at its current state.
	case modulegraph.ExportsSpecNames:
		for _, nameSpec := range spec.Names {
			if p.applyNameSpec(info, depId, nameSpec) {
				changed = true
			}
		}
	}
	return changed
}

func (p *ProvidedExportsPropagator) applyNameSpec(info *ExportsInfo, depId modulegraph.DependencyId, nameSpec modulegraph.ExportNameOrSpec) bool {
	e := info.ExportInfo(nameSpec.Name)
	changed := false

	if e.Provided != Provided {
		e.Provided = Provided
		changed = true
	}

	if nameSpec.CanMangle != nil && !*nameSpec.CanMangle {
		if e.CanMangleProvide == nil || *e.CanMangleProvide {
			f := false
			e.CanMangleProvide = &f
			changed = true
		}
	}

	if nameSpec.TerminalBinding && !e.TerminalBinding {
		e.TerminalBinding = true
		changed = true
	}

	if e.Hidden != nameSpec.Hidden {
		e.Hidden = nameSpec.Hidden
		changed = true
	}
	if e.Inlinable != nameSpec.Inlinable {
		e.Inlinable = nameSpec.Inlinable
		changed = true
	}

	switch {
	case nameSpec.Hidden:
		if e.Target != nil {
			e.Target = nil
			changed = true
		}
	case nameSpec.From != nil:
		target := &ExportTarget{
			DepId:     depId,
			FromDepId: nameSpec.FromDepId,
			Module:    *nameSpec.From,
			Chain:     append([]string(nil), nameSpec.Export...),
			Priority:  nameSpec.Priority,
		}
		if !targetEquals(e.Target, target) {
			e.Target = target
			changed = true
		}
		p.feedback[*nameSpec.From] = appendUnique(p.feedback[*nameSpec.From], info.OwnerModule)
	}

	if len(nameSpec.Nested) > 0 {
		if e.Nested == nil {
			e.Nested = newExportsInfo(info.OwnerModule)
			changed = true
		}
		for _, nested := range nameSpec.Nested {
			if p.applyNameSpec(e.Nested, depId, nested) {
				changed = true
			}
		}
	}

	return changed
}

func targetEquals(a, b *ExportTarget) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.DepId != b.DepId || a.FromDepId != b.FromDepId || a.Module != b.Module || a.Priority != b.Priority {
		return false
	}
	if len(a.Chain) != len(b.Chain) {
		return false
	}
	for i := range a.Chain {
		if a.Chain[i] != b.Chain[i] {
			return false
		}
	}
	return true
}

func appendUnique(list []identifier.ModuleIdentifier, m identifier.ModuleIdentifier) []identifier.ModuleIdentifier {
	for _, existing := range list {
		if existing == m {
			return list
		}
	}
	return append(list, m)
}
