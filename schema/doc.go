// Package schema holds the type graph describing the layout of telemetry
// state.
//
// A schema is a closed set of node kinds:
//
//   - Scalar: a typed leaf (bool, sized integers, floats, string)
//   - Struct: ordered, uniquely named fields
//   - Union: exactly one decoded and one packed view of the same datum
//   - Array: a fixed length sequence of one element type
//
// Schemas are read from a YAML (or JSON) document with [Load] or
// [LoadFile], or imported from a legacy bindings dump with [LoadBindings].
// Loading validates the whole graph up front; a [Registry] that loads is
// well formed, so consumers never see unknown references, recursive
// types or ambiguous union pairings at decode time.
//
// A loaded Registry is immutable and safe for concurrent readers.
package schema
