// Package libdiff computes and applies patches between value trees of one
// schema version.
//
// Trees decoded against the same schema have identical shape, so Diff
// walks both trees in lockstep instead of searching for an edit script.
// Composite nodes recurse into their children in schema order and leaves
// compare display strings, so raw jitter that formats identically produces
// no patch.  Only two operations exist: Build, which creates a node and is
// only produced for a full rebuild, and SetValue, which updates a leaf.
// Structural inserts and removals cannot occur; trees of differing shape
// are reported with ErrShape.
package libdiff
