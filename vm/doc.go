// Package vm implements the garnet execution engine: Ruby call, closure
// and dispatch semantics hosted in Go.
//
// This package contains:
//   - Tagged value representation and the core collections
//   - Classes, modules, singleton classes and ancestor linearization
//   - Method resolution with a serial-invalidated method cache
//   - Argument binding for methods, lambdas and blocks
//   - Closures over shared environments, with non-local return and break
//   - The exception hierarchy and raise/rescue/ensure propagation
//   - Primitive class implementations
//
// Method and block bodies are Go functions. Control that leaves a body
// other than by normal return travels as a *Signal error and is consumed
// by the frame it targets.
package vm
