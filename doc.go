// Package odigen generates dependency injection wiring from source
// annotations.
//
// Types opt in with odigen directives in their doc comments and inject
// struct tags on their fields. The analysis resolves interface contracts,
// struct-embedding inheritance chains and generic instantiations,
// validates lifetimes and dependency cycles, and emits one generated file
// per package: constructors plus a RegisterServices entry point for the
// runtime in the di subpackage.
//
// Wiring stays explicit in the composition root: the generated code only
// issues container calls, it never hides resolution behind reflection.
//
// See subpackages:
//   - di: the runtime registry and scopes generated code targets
//   - load, extract, model: declaration discovery and descriptor extraction
//   - graph, validate, plan: resolution, cycle and lifetime analysis,
//     registration planning
//   - emit, gen: code rendering and the end-to-end pipeline
//   - cmd/odigen: the command line interface
//   - examples/*: annotated sample applications
package odigen
