package exportsinfo

import (
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// UnionSharedConsumers restores module-federation tree-shaking (spec.md
// §4.2.2 "ConsumeShared modules participate exactly like normal modules"):
// every ConsumeModule resolving to the same ShareKey, and each one's
// Fallback module, receives the union of every consumer's used-exports,
// not just whichever consumer happened to be visited first.
func UnionSharedConsumers(graph *modulegraph.ModuleGraph, store *Store, runtime RuntimeKey) {
	byShareKey := make(map[string][]identifier.ModuleIdentifier)
	for _, id := range graph.AllModuleIds() {
		m, ok := graph.Module(id)
		if !ok {
			continue
		}
		if consume, ok := modulegraph.AsConsumeShared(m); ok {
			byShareKey[consume.ShareKey] = append(byShareKey[consume.ShareKey], id)
		}
	}

	for _, consumers := range byShareKey {
		if len(consumers) < 2 {
			continue
		}
		union := unionUsage(store, consumers, runtime)
		for _, id := range consumers {
			applyUnion(store.Get(id), runtime, union)
		}

		for _, id := range consumers {
			m, _ := graph.Module(id)
			consume, _ := modulegraph.AsConsumeShared(m)
			if consume.Fallback != "" {
				applyUnion(store.Get(consume.Fallback), runtime, union)
			}
		}
	}
}

func unionUsage(store *Store, modules []identifier.ModuleIdentifier, runtime RuntimeKey) map[string]UsageState {
	union := make(map[string]UsageState)
	for _, id := range modules {
		info, ok := store.Peek(id)
		if !ok {
			continue
		}
		for _, name := range info.Names() {
			e := info.ExportInfo(name)
			state := e.usedUnder(runtime)
			if state > union[name] {
				union[name] = state
			}
		}
	}
	return union
}

func applyUnion(info *ExportsInfo, runtime RuntimeKey, union map[string]UsageState) {
	for name, state := range union {
		info.ExportInfo(name).markUsed(runtime, state)
	}
}
