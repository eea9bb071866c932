package modulegraph

import (
	"fmt"
	"sync"

	"github.com/bundlecore/bundlecore/internal/identifier"
)

type blockFamily struct{}

// BlockId indexes the ModuleGraph.blocks arena.
type BlockId = identifier.Ukey[blockFamily]

// Connection is a Dependency after factorization resolves it to a target
// module (spec.md §3 "A dependency becomes a ModuleGraphConnection").
type Connection struct {
	Dep    DependencyId
	Source identifier.ModuleIdentifier
	Target identifier.ModuleIdentifier
}

// Issuer is the per-module "who imported me first" pointer (spec.md §3).
// The zero value (Present == false) models "None" (entry-like).
type Issuer struct {
	Present bool
	Module  identifier.ModuleIdentifier
}

// ModuleGraph is the single mutable store described in spec.md §3. It is
// exclusive-owned by one coordinator task during construction (spec.md §5);
// callers needing concurrent reads during propagation should work from a
// snapshot (internal/exportsinfo.Prefetch) instead of this store directly.
type ModuleGraph struct {
	mu sync.RWMutex

	modules map[identifier.ModuleIdentifier]Module

	deps        identifier.Arena[depFamily, Dependency]
	connections identifier.Arena[depFamily, Connection] // indexed 1:1 with deps once resolved

	bySource map[identifier.ModuleIdentifier][]DependencyId
	byTarget map[identifier.ModuleIdentifier][]DependencyId

	blocks identifier.Arena[blockFamily, AsyncDependenciesBlock]
	blocksOf map[identifier.ModuleIdentifier][]BlockId

	issuers map[identifier.ModuleIdentifier]Issuer
}

func NewModuleGraph() *ModuleGraph {
	return &ModuleGraph{
		modules:  make(map[identifier.ModuleIdentifier]Module),
		bySource: make(map[identifier.ModuleIdentifier][]DependencyId),
		byTarget: make(map[identifier.ModuleIdentifier][]DependencyId),
		blocksOf: make(map[identifier.ModuleIdentifier][]BlockId),
		issuers:  make(map[identifier.ModuleIdentifier]Issuer),
	}
}

func (g *ModuleGraph) AddModule(m Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modules[m.Identifier()] = m
}

func (g *ModuleGraph) Module(id identifier.ModuleIdentifier) (Module, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.modules[id]
	return m, ok
}

func (g *ModuleGraph) RemoveModule(id identifier.ModuleIdentifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.modules, id)
	delete(g.issuers, id)
}

func (g *ModuleGraph) AllModuleIds() []identifier.ModuleIdentifier {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]identifier.ModuleIdentifier, 0, len(g.modules))
	for id := range g.modules {
		out = append(out, id)
	}
	return out
}

// AddDependency registers a not-yet-resolved dependency originating at
// source and returns its id.
func (g *ModuleGraph) AddDependency(source identifier.ModuleIdentifier, dep Dependency) DependencyId {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.deps.Add(dep)
	g.bySource[source] = append(g.bySource[source], id)
	return id
}

// Resolve attaches a target module to a previously added dependency,
// creating its ModuleGraphConnection.
func (g *ModuleGraph) Resolve(depId DependencyId, source, target identifier.ModuleIdentifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	dep := g.deps.Get(depId)
	dep.ResolvedModule = target
	dep.Resolved = true
	conn := Connection{Dep: depId, Source: source, Target: target}
	// Connections share the dependency arena's indices 1:1 (every dep gets
	// exactly one connection slot, resolved or not) so DependencyId doubles
	// as ConnectionId.
	for g.connections.Len() <= int(depId.Index()) {
		g.connections.Add(Connection{})
	}
	*g.connections.Get(depId) = conn
	g.byTarget[target] = append(g.byTarget[target], depId)
}

func (g *ModuleGraph) Dependency(id DependencyId) *Dependency {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.deps.Get(id)
}

func (g *ModuleGraph) Connection(id DependencyId) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections.Get(id)
}

// OutgoingConnections returns every connection whose source is module.
func (g *ModuleGraph) OutgoingConnections(module identifier.ModuleIdentifier) []DependencyId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]DependencyId, 0, len(g.bySource[module]))
	for _, id := range g.bySource[module] {
		if g.deps.Get(id).Resolved {
			out = append(out, id)
		}
	}
	return out
}

// IncomingConnections returns every connection whose target is module.
func (g *ModuleGraph) IncomingConnections(module identifier.ModuleIdentifier) []DependencyId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]DependencyId, len(g.byTarget[module]))
	copy(out, g.byTarget[module])
	return out
}

func (g *ModuleGraph) AddBlock(owner identifier.ModuleIdentifier, block AsyncDependenciesBlock) BlockId {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.blocks.Add(block)
	g.blocksOf[owner] = append(g.blocksOf[owner], id)
	return id
}

func (g *ModuleGraph) Block(id BlockId) *AsyncDependenciesBlock {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.blocks.Get(id)
}

func (g *ModuleGraph) BlocksOf(module identifier.ModuleIdentifier) []BlockId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]BlockId, len(g.blocksOf[module]))
	copy(out, g.blocksOf[module])
	return out
}

func (g *ModuleGraph) Issuer(module identifier.ModuleIdentifier) Issuer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.issuers[module]
}

func (g *ModuleGraph) SetIssuer(module identifier.ModuleIdentifier, issuer Issuer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issuers[module] = issuer
}

// CheckIssuerInvariant validates spec.md §8 invariant 1: every non-entry
// module's issuer is either None or the origin of some incoming connection.
func (g *ModuleGraph) CheckIssuerInvariant(module identifier.ModuleIdentifier) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	issuer, ok := g.issuers[module]
	if !ok || !issuer.Present {
		return nil
	}
	for _, depId := range g.byTarget[module] {
		if g.connections.Get(depId).Source == issuer.Module {
			return nil
		}
	}
	return fmt.Errorf("issuer invariant violated for %q: claimed issuer %q is not an incoming connection origin", module, issuer.Module)
}
