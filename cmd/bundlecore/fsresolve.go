package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/resolve"
)

// defaultExtensions is the probe order a bare extensionless request tries,
// standing in for the real extension-resolution algorithm spec.md §1 keeps
// out of the core ("the resolver algorithm").
var defaultExtensions = []string{".js", ".mjs", ".jsx", ".ts", ".tsx", ".css"}

// fsResolver is the CLI's own minimal Resolver: relative/absolute requests
// probe the filesystem directly, everything else (a bare package name) is
// treated as external. internal/factorize only depends on the
// resolve.Resolver interface, so this never needs to live under internal/.
type fsResolver struct{}

func (fsResolver) Resolve(_ context.Context, req resolve.Request) (resolve.Result, error) {
	if !strings.HasPrefix(req.Request, ".") && !strings.HasPrefix(req.Request, "/") {
		return resolve.Result{AbsPath: req.Request, IsExternal: true}, nil
	}

	base := req.Context
	if base == "" || strings.HasPrefix(base, "\x00") {
		if cwd, err := os.Getwd(); err == nil {
			base = cwd
		}
	} else {
		base = filepath.Dir(base)
	}

	candidate := filepath.Join(base, req.Request)
	path, ok := probeFile(candidate)
	if !ok {
		return resolve.Result{}, &resolve.ErrNotFound{Request: req.Request}
	}
	return resolve.Result{AbsPath: path, MimeType: mimeForPath(path)}, nil
}

func probeFile(candidate string) (string, bool) {
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	for _, ext := range defaultExtensions {
		withExt := candidate + ext
		if info, err := os.Stat(withExt); err == nil && !info.IsDir() {
			return withExt, true
		}
	}
	return "", false
}

func mimeForPath(path string) string {
	if filepath.Ext(path) == ".css" {
		return "text/css"
	}
	return "text/javascript"
}

// loadFromDisk is the CLI's LoaderRunner: no transform stack runs, it just
// reads bytes (spec.md §1 "how loaders transform bytes" is out of scope).
func loadFromDisk(_ context.Context, resource string, _ []string) ([]byte, modulegraph.SourceType, error) {
	data, err := os.ReadFile(resource)
	if err != nil {
		return nil, 0, err
	}
	return data, sourceTypeForPath(resource), nil
}

func sourceTypeForPath(path string) modulegraph.SourceType {
	if filepath.Ext(path) == ".css" {
		return modulegraph.SourceTypeCSS
	}
	return modulegraph.SourceTypeJavaScript
}
