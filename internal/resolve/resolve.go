// Package resolve defines the external-collaborator contract for the
// resolver (spec.md §1: "Deliberately out of scope ... the resolver
// implementation"; §4.1 step 3 "resolve against the configured resolver").
// Only the interface the factorize pipeline depends on lives here, plus a
// minimal in-memory implementation for tests — never a real Node-style
// resolution algorithm (package.json main fields, tsconfig paths, ...).
package resolve

import "context"

type Kind uint8

const (
	KindImport Kind = iota
	KindRequire
	KindContext
)

type Request struct {
	Context string
	Request string
	Kind    Kind
	Issuer  string
}

// SideEffectsData optionally explains why a resolved module is known to
// lack side effects, for use in diagnostics: factorization marks every
// module whose Result carries one as side-effect-free.
type SideEffectsData struct {
	Source string
	Reason string
}

type Result struct {
	AbsPath      string
	IsExternal   bool
	Ignored      bool
	SideEffects  *SideEffectsData
	MimeType     string
}

// Resolver is the contract the factorize pipeline calls (spec.md §4.1 step
// 3). A real implementation walks the filesystem; bundlecore only depends
// on this interface.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Result, error)
}

// ErrNotFound is returned by implementations (including InMemoryResolver)
// when a request cannot be resolved — factorize turns this into a Missing
// module rather than a fatal error (spec.md §4.1 step 4, §7).
type ErrNotFound struct {
	Request string
}

func (e *ErrNotFound) Error() string { return "could not resolve \"" + e.Request + "\"" }

// InMemoryResolver resolves requests from a fixed path->Result table. It
// exists purely to exercise internal/factorize and internal/modulegraph in
// tests without a real filesystem/resolver, matching the scope boundary in
// spec.md §1 ("the loader runner, on-disk filesystem abstraction, resolver
// implementation ... treated as external collaborators").
type InMemoryResolver struct {
	Files map[string]Result
}

func NewInMemoryResolver() *InMemoryResolver {
	return &InMemoryResolver{Files: make(map[string]Result)}
}

func (r *InMemoryResolver) Add(request string, result Result) *InMemoryResolver {
	r.Files[request] = result
	return r
}

func (r *InMemoryResolver) Resolve(_ context.Context, req Request) (Result, error) {
	if result, ok := r.Files[req.Request]; ok {
		return result, nil
	}
	return Result{}, &ErrNotFound{Request: req.Request}
}
