package equality

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// Comparator reports whether next describes the same call as prev.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Purity: Equal must not retain or mutate either argument list.
type Comparator interface {
	Equal(prev, next []any) bool
}

// Func adapts an ordinary function to the Comparator interface.
type Func func(prev, next []any) bool

// Equal calls f(prev, next).
func (f Func) Equal(prev, next []any) bool {
	return f(prev, next)
}

// Strategy enumerates the built-in comparators.
type Strategy uint8

const (
	// ByReference treats two argument lists as equal only when they are the same slice.
	ByReference Strategy = iota

	// Shallow compares argument lists position by position with Identical.
	Shallow

	// Deep compares argument lists position by position: identical values match,
	// otherwise reflect.DeepEqual decides.
	Deep
)

// ParseStrategy parses the name of a built-in strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reference", "ref", "byref", "":
		return ByReference, nil
	case "shallow":
		return Shallow, nil
	case "deep":
		return Deep, nil
	default:
		return ByReference, fmt.Errorf("equality: unknown strategy %q", s)
	}
}

func (s Strategy) String() string {
	switch s {
	case ByReference:
		return "reference"
	case Shallow:
		return "shallow"
	case Deep:
		return "deep"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// Equal applies the strategy to prev and next.
func (s Strategy) Equal(prev, next []any) bool {
	switch s {
	case ByReference:
		return SameSlice(prev, next)
	case Shallow:
		return elementwise(prev, next, Identical)
	case Deep:
		return elementwise(prev, next, deepEqual)
	default:
		panic(fmt.Sprintf("exhaustive match fallback, strategy: %d", uint8(s)))
	}
}

// SameSlice reports whether a and b share the same backing array and length.
// Two empty lists are always the same.
func SameSlice(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || unsafe.SliceData(a) == unsafe.SliceData(b)
}

func deepEqual(a, b any) bool {
	return Identical(a, b) || reflect.DeepEqual(a, b)
}

func elementwise(prev, next []any, eq func(a, b any) bool) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		if !eq(prev[i], next[i]) {
			return false
		}
	}
	return true
}

var (
	_ Comparator = Func(nil)
	_ Comparator = ByReference
)
