package exportsinfo

import "github.com/bundlecore/bundlecore/internal/identifier"

// PrefetchMode selects how much of a module's exports-info to snapshot
// before codegen reads it, per spec.md §4.2.3's five modes.
type PrefetchMode uint8

const (
	PrefetchDefault PrefetchMode = iota
	PrefetchNamedExports
	PrefetchAllExports
	PrefetchNamedNestedExports
	PrefetchNamedNestedAllExports
)

// PrefetchRequest carries the mode plus whatever extra addressing it needs
// (a flat name list, or a nested chain).
type PrefetchRequest struct {
	Mode  PrefetchMode
	Names []string // for NamedExports
	Chain []string // for NamedNestedExports / NamedNestedAllExports
}

// Snapshot is the read-only, graph-lock-free view codegen consumes (spec.md
// §4.2.3: "to avoid re-locking the graph during codegen").
type Snapshot struct {
	module identifier.ModuleIdentifier
	byName map[string]exportSnapshot
	other  ProvidedState
}

type exportSnapshot struct {
	name            string
	provided        ProvidedState
	usedInRuntime   map[RuntimeKey]UsageState
	canMangleUse    *bool
	terminalBinding bool
	nested          *Snapshot
}

// Prefetch builds a Snapshot for module under req, reading the live
// ExportsInfo exactly once.
func Prefetch(store *Store, module identifier.ModuleIdentifier, req PrefetchRequest) *Snapshot {
	info, ok := store.Peek(module)
	if !ok {
		return &Snapshot{module: module, byName: map[string]exportSnapshot{}}
	}

	switch req.Mode {
	case PrefetchNamedExports:
		return snapshotNames(info, req.Names, false)
	case PrefetchAllExports:
		return snapshotNames(info, info.Names(), false)
	case PrefetchNamedNestedExports:
		return snapshotChain(info, req.Chain, false)
	case PrefetchNamedNestedAllExports:
		return snapshotChain(info, req.Chain, true)
	default: // PrefetchDefault
		return &Snapshot{module: module, byName: map[string]exportSnapshot{}, other: info.OtherExports}
	}
}

func snapshotNames(info *ExportsInfo, names []string, fanOut bool) *Snapshot {
	snap := &Snapshot{module: info.OwnerModule, byName: make(map[string]exportSnapshot, len(names)), other: info.OtherExports}
	for _, name := range names {
		e := info.ExportInfo(name)
		es := exportSnapshot{
			name:            e.Name,
			provided:        e.Provided,
			usedInRuntime:   cloneUsage(e.UsedInRuntime),
			canMangleUse:    e.CanMangleUse,
			terminalBinding: e.TerminalBinding,
		}
		if fanOut && e.Nested != nil {
			es.nested = snapshotNames(e.Nested, e.Nested.Names(), true)
		}
		snap.byName[name] = es
	}
	return snap
}

// snapshotChain follows one named chain deep (NamedNestedExports), or fans
// out at each level of the chain (NamedNestedAllExports).
func snapshotChain(info *ExportsInfo, chain []string, fanOut bool) *Snapshot {
	if len(chain) == 0 {
		return snapshotNames(info, info.Names(), fanOut)
	}
	head := chain[0]
	e := info.ExportInfo(head)
	snap := &Snapshot{module: info.OwnerModule, byName: make(map[string]exportSnapshot, 1), other: info.OtherExports}
	es := exportSnapshot{
		name:            e.Name,
		provided:        e.Provided,
		usedInRuntime:   cloneUsage(e.UsedInRuntime),
		canMangleUse:    e.CanMangleUse,
		terminalBinding: e.TerminalBinding,
	}
	if e.Nested != nil {
		if fanOut {
			es.nested = snapshotNames(e.Nested, e.Nested.Names(), true)
		} else {
			es.nested = snapshotChain(e.Nested, chain[1:], false)
		}
	}
	snap.byName[head] = es
	return snap
}

func cloneUsage(m map[RuntimeKey]UsageState) map[RuntimeKey]UsageState {
	out := make(map[RuntimeKey]UsageState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GetProvidedExports reports the provided state of every named export in
// the snapshot.
func (s *Snapshot) GetProvidedExports() map[string]ProvidedState {
	out := make(map[string]ProvidedState, len(s.byName))
	for name, e := range s.byName {
		out[name] = e.provided
	}
	return out
}

func (s *Snapshot) IsExportProvided(name string) ProvidedState {
	if e, ok := s.byName[name]; ok {
		return e.provided
	}
	return s.other
}

func (s *Snapshot) GetUsed(name string, runtime RuntimeKey) UsageState {
	e, ok := s.byName[name]
	if !ok {
		return Unused
	}
	if v, ok := e.usedInRuntime[runtime]; ok {
		return v
	}
	return Unused
}

func (s *Snapshot) GetUsedName(name string, runtime RuntimeKey) string {
	if s.GetUsed(name, runtime) == Unused {
		return ""
	}
	if e, ok := s.byName[name]; ok && e.canMangleUse != nil && !*e.canMangleUse {
		return name
	}
	return name
}

// GetUsedExports returns every export with non-Unused usage under runtime.
func (s *Snapshot) GetUsedExports(runtime RuntimeKey) []string {
	var out []string
	for name, e := range s.byName {
		if e.usedInRuntime[runtime] != Unused {
			out = append(out, name)
		}
	}
	return out
}

// IsEquallyUsed reports whether every snapshotted export has the same
// UsageState under both runtimes (spec.md §4.2.3).
func (s *Snapshot) IsEquallyUsed(a, b RuntimeKey) bool {
	for _, e := range s.byName {
		if e.usedInRuntime[a] != e.usedInRuntime[b] {
			return false
		}
	}
	return true
}
