package codegen

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

type moduleNotFoundError struct {
	module identifier.ModuleIdentifier
}

func (e *moduleNotFoundError) Error() string {
	return fmt.Sprintf("codegen: module %q not found in graph", e.module)
}

func errModuleNotFound(module identifier.ModuleIdentifier) error {
	return &moduleNotFoundError{module: module}
}

func hashSources(sources map[modulegraph.SourceType][]byte) string {
	types := make([]int, 0, len(sources))
	for t := range sources {
		types = append(types, int(t))
	}
	sort.Ints(types)

	h := sha1.New()
	for _, t := range types {
		h.Write(sources[modulegraph.SourceType(t)])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func truncate(hash string, n int) string {
	if n <= 0 || n >= len(hash) {
		return hash
	}
	return hash[:n]
}
