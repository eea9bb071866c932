// Package factorize turns one Dependency into a resolved, parsed Module
// plus its own outgoing dependencies (spec.md §4.1, the "factorize"
// pipeline): parse inline loader syntax, match module.rules, resolve
// against the configured resolver, run a parser-and-generator plugin over
// the loaded source, and mint a deterministic module identifier.
package factorize

import (
	"context"
	"fmt"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/hooks"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/logger"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
	"github.com/bundlecore/bundlecore/internal/resolve"
)

// LoaderRunner loads the bytes for a resolved resource, applying whatever
// loader stack factorization composed. The real pipeline (transpilers,
// asset loaders reading the filesystem) is an external collaborator per
// spec.md §1; Factorizer only depends on this function type.
type LoaderRunner func(ctx context.Context, resource string, loaders []string) ([]byte, modulegraph.SourceType, error)

// Factorizer implements spec.md §4.1's factorize pipeline over one
// ModuleGraph. BeforeResolve/AfterResolve are bail hooks a plugin can use to
// short-circuit resolution (spec.md §4.5).
type Factorizer struct {
	Graph    *modulegraph.ModuleGraph
	Resolver resolve.Resolver
	Rules    []config.ModuleRule
	Parsers  *parseplugin.Registry
	Load     LoaderRunner
	Intern   *identifier.Interner

	BeforeResolve hooks.BailHook[ResolveData, resolve.Result]
	AfterResolve  hooks.BailHook[ResolveData, resolve.Result]
}

// ResolveData is what BeforeResolve/AfterResolve taps see: enough context to
// veto or rewrite a resolution without the full Dependency record.
type ResolveData struct {
	Context  string
	Request  string
	Issuer   identifier.ModuleIdentifier
	Dep      modulegraph.Dependency
}

// Outcome is one completed factorize call: the module that was added to the
// graph (Missing on failure) plus whatever new dependencies its own parse
// discovered, ready for the caller to enqueue as further factorize work
// (spec.md §4.1 step 4 "queue each of the new module's own dependencies").
type Outcome struct {
	ModuleId     identifier.ModuleIdentifier
	Missing      bool
	Dependencies []modulegraph.Dependency
	// ExportsSpecs is parallel to Dependencies: ExportsSpecs[i] is what the
	// plugin reported re-exports through Dependencies[i], if any (spec.md
	// §4.2.1's GetExports). A caller driving exportsinfo.ProvidedExportsPropagator
	// calls SetSpec with these once each dependency is added to the graph
	// and has a DependencyId.
	ExportsSpecs []modulegraph.ExportsSpec
}

// Factorize resolves and (if resolution succeeds) parses depId, which must
// already be registered on the graph via AddDependency with source ==
// issuer. It adds the resulting module to the graph, connects depId to it,
// and returns the module's own freshly discovered dependencies.
func (f *Factorizer) Factorize(ctx context.Context, issuer identifier.ModuleIdentifier, depId modulegraph.DependencyId) (Outcome, error) {
	dep := *f.Graph.Dependency(depId)
	inline := ParseInlineRequest(dep.Request)

	rd := ResolveData{Context: string(issuer), Request: inline.Resource, Issuer: issuer, Dep: dep}

	result, err := f.resolve(ctx, rd)
	if err != nil {
		if _, ok := err.(*resolve.ErrNotFound); ok {
			id := identifier.Identifier(nil, dep.Request+"#missing")
			f.Graph.AddModule(&modulegraph.MissingModule{Id: id, Error: err})
			f.Graph.Resolve(depId, issuer, id)
			f.Graph.SetIssuer(id, modulegraph.Issuer{Present: true, Module: issuer})
			return Outcome{ModuleId: id, Missing: true}, nil
		}
		return Outcome{}, fmt.Errorf("factorize %q: %w", dep.Request, err)
	}

	if result.Ignored {
		id := identifier.Identifier(nil, result.AbsPath+"#ignored")
		f.Graph.AddModule(&modulegraph.RawModule{Id: id, Code: nil})
		f.Graph.Resolve(depId, issuer, id)
		f.Graph.SetIssuer(id, modulegraph.Issuer{Present: true, Module: issuer})
		return Outcome{ModuleId: id}, nil
	}

	if result.IsExternal {
		id := identifier.Identifier(nil, result.AbsPath)
		f.Graph.AddModule(&modulegraph.ExternalModule{Id: id, Request: dep.Request})
		f.Graph.Resolve(depId, issuer, id)
		f.Graph.SetIssuer(id, modulegraph.Issuer{Present: true, Module: issuer})
		return Outcome{ModuleId: id}, nil
	}

	loaders := composeLoaders(inline, f.matchRules(result.AbsPath, string(issuer), "", result.MimeType))
	id := identifier.Identifier(loaders, result.AbsPath)
	f.Intern.Ordinal(id)

	var source []byte
	var sourceType modulegraph.SourceType
	if f.Load != nil {
		source, sourceType, err = f.Load(ctx, result.AbsPath, loaders)
		if err != nil {
			f.Graph.AddModule(&modulegraph.MissingModule{Id: id, Error: err})
			f.Graph.Resolve(depId, issuer, id)
			f.Graph.SetIssuer(id, modulegraph.Issuer{Present: true, Module: issuer})
			return Outcome{ModuleId: id, Missing: true}, nil
		}
	}

	normal := &modulegraph.NormalModule{
		Id:      id,
		Source:  logger.Source{Contents: string(source), PrettyPath: result.AbsPath},
		Types:   []modulegraph.SourceType{sourceType},
		Effects: modulegraph.HasSideEffects,
	}
	if result.SideEffects != nil {
		normal.Effects = modulegraph.NoSideEffects_PackageJSON
	}

	var newDeps []modulegraph.Dependency
	var exportsSpecs []modulegraph.ExportsSpec
	if plugin := f.Parsers.For(sourceType); plugin != nil {
		parsed, parseErr := plugin.Parse(result.AbsPath, source)
		if parseErr != nil {
			return Outcome{}, fmt.Errorf("parse %q: %w", result.AbsPath, parseErr)
		}
		newDeps = parsed.Dependencies
		exportsSpecs = parsed.ExportsSpecs
		normal.Info.FileDependencies = append(normal.Info.FileDependencies, result.AbsPath)
	}

	f.Graph.AddModule(normal)
	f.Graph.Resolve(depId, issuer, id)
	f.Graph.SetIssuer(id, modulegraph.Issuer{Present: true, Module: issuer})

	return Outcome{ModuleId: id, Dependencies: newDeps, ExportsSpecs: exportsSpecs}, nil
}

func (f *Factorizer) resolve(ctx context.Context, rd ResolveData) (resolve.Result, error) {
	if r, err := f.BeforeResolve.Call(ctx, rd); err != nil {
		return resolve.Result{}, err
	} else if r != nil {
		return *r, nil
	}

	result, err := f.Resolver.Resolve(ctx, resolve.Request{
		Context: rd.Context,
		Request: rd.Request,
		Issuer:  rd.Issuer,
	})
	if err != nil {
		return resolve.Result{}, err
	}

	if r, err := f.AfterResolve.Call(ctx, rd); err != nil {
		return resolve.Result{}, err
	} else if r != nil {
		return *r, nil
	}
	return result, nil
}

// matchRules returns the ordered list of loader requests every matching
// rule in f.Rules contributes, in configuration order (spec.md §4.1 step 5).
func (f *Factorizer) matchRules(resource, issuer, scheme, mimeType string) []string {
	var loaders []string
	for _, rule := range f.Rules {
		if rule.Matches(resource, issuer, scheme, mimeType) {
			loaders = append(loaders, rule.Loaders...)
		}
	}
	return loaders
}

// composeLoaders merges an inline request's explicit loader stack with the
// rule-matched ones, honoring "!!" (disable configured loaders entirely).
func composeLoaders(inline InlineRequest, ruleLoaders []string) []string {
	if inline.DisableConfiguredLoaders {
		return inline.Loaders
	}
	out := make([]string, 0, len(ruleLoaders)+len(inline.Loaders))
	out = append(out, ruleLoaders...)
	out = append(out, inline.Loaders...)
	return out
}
