package codegen

import (
	"fmt"

	"github.com/bundlecore/bundlecore/internal/identifier"
)

// moduleWrapperOpen/moduleWrapperClose wrap one module's generated source in
// the factory-function shape every runtime module (require_fn, module_fn,
// module_cache) expects to find registered under the module's id (spec.md
// §4.4 "concatenation ... each module wrapped as a keyed factory entry").
func moduleWrapperOpen(m identifier.ModuleIdentifier) []byte {
	return []byte(fmt.Sprintf("%q: (function(module, exports, __require) {\n", string(m)))
}

func moduleWrapperClose() []byte {
	return []byte("\n}),\n")
}

// bootstrapHead/bootstrapModuleMapOpen/bootstrapEpilogue frame the runtime
// chunk in three fragments so runtime-module source (ordinary top-level
// statements, e.g. chunk-loading helpers) can sit between the loader and the
// module factory map (spec.md §4.4 step 3 "the runtime chunk gets a
// bootstrap wrapper around the concatenated module factories").
func bootstrapHead() []byte {
	return []byte("(function() {\nvar __module_cache = {};\nvar __modules = {};\n" +
		"function __require(id) {\n" +
		"  if (__module_cache[id]) { return __module_cache[id].exports; }\n" +
		"  var module = __module_cache[id] = { exports: {} };\n" +
		"  __modules[id].call(module.exports, module, module.exports, __require);\n" +
		"  return module.exports;\n" +
		"}\n__require.cache = __module_cache;\n")
}

func bootstrapModuleMapOpen() []byte {
	return []byte("Object.assign(__modules, {\n")
}

func bootstrapEpilogue() []byte {
	return []byte("});\n})();\n")
}
