package main

import (
	"github.com/bundlecore/bundlecore/internal/codegen"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// passthroughGenerator emits a module's own source unchanged. Real transform
// plugins (JS printing, CSS printing, minification) are exactly the
// "generator plugin" seam spec.md §1 keeps out of the bundler core; this is
// the CLI's stand-in so `bundlecore build` produces runnable output without
// one.
type passthroughGenerator struct{}

func (passthroughGenerator) CanGenerate(modulegraph.Module, modulegraph.SourceType) bool {
	return true
}

func (passthroughGenerator) Generate(m modulegraph.Module, _ codegen.GenerateContext) ([]byte, error) {
	normal, ok := modulegraph.AsNormal(m)
	if !ok {
		return nil, nil
	}
	return []byte(normal.Source.Contents), nil
}
