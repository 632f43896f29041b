// Package ir provides the value tree of decoded telemetry state.
//
// A value tree mirrors a [schema.Node] graph exactly: every struct field,
// every array element and every union is present, whether or not the
// snapshot carried it.  Absent data is represented by nodes marked
// Missing, never by absent nodes, so two trees decoded against the same
// schema always have the same shape and can be compared in lockstep.
//
// # Node Types
//
//   - ScalarType: Raw holds the exact value, Display its formatted form
//   - StructType: Fields holds names and Values children, in schema order
//   - UnionType: Values[0] is the selected view, Packed the packed raw
//   - ArrayType: Values holds exactly the schema length of elements
//
// Unions whose decoded view is a scalar are leaves: Raw, Display, Missing
// and Unrecognized are mirrored onto the union node itself.  Unions whose
// decoded view is a struct are transparent in paths: the path of
// lrf.target's view field "distance" is "lrf.target.distance".
//
// # Usage
//
//	n, err := root.Get(kpath.MustParse("power.modules[3].voltage"))
//	fmt.Println(n.Path(), n.Display)
package ir
