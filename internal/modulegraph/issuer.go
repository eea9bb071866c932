package modulegraph

import (
	"github.com/bundlecore/bundlecore/internal/identifier"
)

// IssuerHelper answers "does a proposed issuer eventually reach an entry
// point without looping back through the module being repaired" (spec.md
// §4.1 step 3), memoizing both proven-reachable and proven-cyclic results
// per candidate so the repair loop is linear rather than quadratic in the
// number of affected modules — the detail SPEC_FULL.md §3 restores from
// rspack's fix_issuers.rs.
type IssuerHelper struct {
	graph *ModuleGraph
	// reachable[m] == true means m is known to reach an entry without
	// looping back through whatever module is currently being fixed.
	reachable map[identifier.ModuleIdentifier]bool
	cyclic    map[identifier.ModuleIdentifier]bool
}

func NewIssuerHelper(graph *ModuleGraph) *IssuerHelper {
	return &IssuerHelper{
		graph:     graph,
		reachable: make(map[identifier.ModuleIdentifier]bool),
		cyclic:    make(map[identifier.ModuleIdentifier]bool),
	}
}

// CanReachEntryWithoutLooping walks candidate's issuer chain looking for an
// entry (Issuer.Present == false). If it encounters avoid (the module being
// repaired) first, the candidate is cyclic with respect to avoid.
func (h *IssuerHelper) CanReachEntryWithoutLooping(candidate, avoid identifier.ModuleIdentifier) bool {
	if v, ok := h.reachable[candidate]; ok {
		return v
	}
	if h.cyclic[candidate] {
		return false
	}

	visited := map[identifier.ModuleIdentifier]bool{avoid: true}
	cur := candidate
	for {
		if visited[cur] {
			h.cyclic[candidate] = true
			return false
		}
		visited[cur] = true

		if _, ok := h.graph.Module(cur); !ok {
			// A dangling reference to a module that no longer exists never
			// counts as "reached an entry" — only a real, still-present
			// module with no issuer does.
			h.cyclic[candidate] = true
			return false
		}

		issuer := h.graph.Issuer(cur)
		if !issuer.Present {
			h.reachable[candidate] = true
			return true
		}
		cur = issuer.Module
	}
}

// FixIssuers runs the four-step repair described in spec.md §4.1 over the
// given set of modules whose issuer may no longer be valid (because they
// were rebuilt, or because an incoming connection was revoked). It returns
// the set of modules that were revoked as unreachable orphans during the
// repair, so callers (internal/chunkgraph) can drop them from the chunk
// graph too.
func FixIssuers(graph *ModuleGraph, needsUpdate []identifier.ModuleIdentifier) (revoked []identifier.ModuleIdentifier) {
	helper := NewIssuerHelper(graph)
	pending := append([]identifier.ModuleIdentifier(nil), needsUpdate...)
	seenRevoked := make(map[identifier.ModuleIdentifier]bool)

	for len(pending) > 0 {
		module := pending[0]
		pending = pending[1:]
		if seenRevoked[module] {
			continue
		}
		if _, ok := graph.Module(module); !ok {
			continue
		}

		// Step 1: is the current issuer still among the incoming connections?
		if err := graph.CheckIssuerInvariant(module); err == nil {
			continue
		}

		incoming := graph.IncomingConnections(module)
		if len(incoming) == 0 {
			// No incoming edges after revocations: revoke and recurse onto
			// whatever this module pointed at (step 2, "revoke it and
			// recurse").
			seenRevoked[module] = true
			revoked = append(revoked, module)
			for _, depId := range graph.OutgoingConnections(module) {
				target := graph.Connection(depId).Target
				pending = append(pending, target)
			}
			graph.RemoveModule(module)
			continue
		}

		// Step 2/3: try each incoming connection's origin as the candidate
		// issuer, in order, using the cycle-detecting helper.
		fixed := false
		var cyclicCandidates []identifier.ModuleIdentifier
		for _, depId := range incoming {
			candidate := graph.Connection(depId).Source
			if helper.CanReachEntryWithoutLooping(candidate, module) {
				graph.SetIssuer(module, Issuer{Present: true, Module: candidate})
				fixed = true
				break
			}
			cyclicCandidates = append(cyclicCandidates, candidate)
		}

		if fixed {
			continue
		}

		// Step 4: every candidate is cycle-only. Revoke this module and its
		// transitively orphaned descendants; if cleaning makes a cyclic
		// candidate valid, re-fix starting from it.
		seenRevoked[module] = true
		revoked = append(revoked, module)
		for _, depId := range graph.OutgoingConnections(module) {
			target := graph.Connection(depId).Target
			pending = append(pending, target)
		}
		graph.RemoveModule(module)
		pending = append(pending, cyclicCandidates...)
	}

	return revoked
}
