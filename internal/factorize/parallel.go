package factorize

import (
	"context"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/workpool"
)

// work is one queued factorize call: a dependency discovered either as an
// entry point or as another module's own dependency.
type work struct {
	issuer identifier.ModuleIdentifier
	depId  modulegraph.DependencyId
}

// FactorizeAll drains a worklist of dependencies to a fixed point, running
// up to pool's concurrency limit of Factorize calls at once and enqueuing
// each Outcome's newly discovered dependencies for a further round: the
// parallel form of spec.md §4.1 step 4's "queue each of the new module's
// own dependencies", fanned out across pool instead of processed one at a
// time. ModuleGraph's own locking (see internal/modulegraph) makes this
// safe, since concurrent Factorize calls only ever contend on graph
// mutation, not on Factorizer state.
//
// onSpec, if non-nil, is called once per newly added dependency with
// whatever modulegraph.ExportsSpec the parser reported for it (the zero
// value if none) and the DependencyId FactorizeAll just minted, so a
// caller can feed exportsinfo.ProvidedExportsPropagator.SetSpec without
// FactorizeAll needing to know that package exists.
func (f *Factorizer) FactorizeAll(ctx context.Context, pool *workpool.Pool, entries []modulegraph.DependencyId, issuer identifier.ModuleIdentifier, onSpec func(modulegraph.DependencyId, modulegraph.ExportsSpec)) error {
	queue := make([]work, 0, len(entries))
	for _, depId := range entries {
		queue = append(queue, work{issuer: issuer, depId: depId})
	}

	for len(queue) > 0 {
		batch := queue
		queue = nil

		outcomes, err := workpool.Map(ctx, pool, batch, func(ctx context.Context, w work) (Outcome, error) {
			return f.Factorize(ctx, w.issuer, w.depId)
		})
		if err != nil {
			return err
		}

		for _, outcome := range outcomes {
			for i, dep := range outcome.Dependencies {
				depId := f.Graph.AddDependency(outcome.ModuleId, dep)
				if onSpec != nil && i < len(outcome.ExportsSpecs) {
					onSpec(depId, outcome.ExportsSpecs[i])
				}
				queue = append(queue, work{issuer: outcome.ModuleId, depId: depId})
			}
		}
	}
	return nil
}
