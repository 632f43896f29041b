// Package fieldfmt turns raw leaf values into display strings.
//
// Display rules are data: a [Formatter] maps semantic type names (and,
// optionally, individual paths) to compiled [Rule] values.  Path rules take
// precedence over semantic rules and leaves without any rule are shown
// verbatim.  The same rule instance serves every occurrence of its
// semantic type anywhere in the tree, however deeply nested.
//
// Formatting is pure: the same raw value always yields the same string.
// The only recoverable failure is an enum value outside its table, for
// which Format returns the fallback "<raw> (unrecognized)" along with an
// [*EnumError].
package fieldfmt
