// Package kpath provides stable paths into telemetry state trees.
//
// A path names one node of a schema-shaped tree by its ordered field names
// and array indices:
//   - .field - struct field (or union) access
//   - [index] - fixed array element
//
// # Usage
//
//	kp, err := kpath.Parse("power.modules[3].voltage")
//
//	parent := kp.Parent()          // power.modules[3]
//	child := parent.Append(kpath.Field("current"))
//
//	cmp := kp.Compare(child) // -1, 0, or 1
//
// Paths never change shape across snapshots of one schema version, so a
// path's string form is usable as a map key for UI state such as which
// nodes are expanded.
//
// # Related Packages
//
//   - github.com/jettison/panopticon/ir - value tree addressed by paths
//   - github.com/jettison/panopticon/schema - type graph addressed by paths
package kpath
