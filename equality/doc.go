// Package equality decides whether two argument lists describe "the same call".
//
// A Comparator receives the argument list stored with the previous invocation and the
// argument list of the current one. Three strategies are built in:
//
//   - ByReference: the two lists are literally the same slice.
//   - Shallow: position by position, the values are identical (see Identical).
//   - Deep: position by position, the values are identical or structurally equal.
//
// Any func(prev, next []any) bool can be used as a Comparator through Func.
package equality
