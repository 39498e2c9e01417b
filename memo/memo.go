package memo

import (
	"sync/atomic"

	"github.com/on-the-ground/memo_ive_go/equality"
	"github.com/on-the-ground/memo_ive_go/shared/helper"
)

var std atomic.Pointer[Cache]

func init() {
	std.Store(MustNew(DefaultConfig()))
}

// Default returns the process-wide cache used by the package-level functions.
func Default() *Cache {
	return std.Load()
}

// ReplaceDefault installs c as the process-wide cache and returns a function
// restoring the previous one.
func ReplaceDefault(c *Cache) func() {
	if c == nil {
		panic(ErrNilCache)
	}
	prev := std.Swap(c)
	return func() { ReplaceDefault(prev) }
}

func target(opts []Option) *Cache {
	if c := collect(opts).cache; c != nil {
		return c
	}
	return Default()
}

// Memo invokes fn with args through the cache selected by WithCache, or Default().
// The comparator defaults to the one configured on that cache.
func Memo[R any](fn *Callable[R], args Args, opts ...Option) (R, error) {
	return Invoke(target(opts), fn, args, opts...)
}

// ByRef is Memo with equality.ByReference: only the very same Args slice hits.
func ByRef[R any](fn *Callable[R], args Args, opts ...Option) (R, error) {
	return Memo(fn, args, withLast(opts, WithComparator(equality.ByReference))...)
}

// Shallow is Memo with equality.Shallow: position-wise identical arguments hit.
func Shallow[R any](fn *Callable[R], args Args, opts ...Option) (R, error) {
	return Memo(fn, args, withLast(opts, WithComparator(equality.Shallow))...)
}

// Deep is Memo with equality.Deep: structurally equal arguments hit.
func Deep[R any](fn *Callable[R], args Args, opts ...Option) (R, error) {
	return Memo(fn, args, withLast(opts, WithComparator(equality.Deep))...)
}

// Wrapped is a memoized form of a Callable.
// Options given per call are applied after the ones given to Wrap.
type Wrapped[R any] func(args Args, opts ...Option) (R, error)

// Wrap returns fn memoized with opts.
func Wrap[R any](fn *Callable[R], opts ...Option) Wrapped[R] {
	return wrap(fn, nil, opts)
}

// WrapByRef returns fn memoized with equality.ByReference.
func WrapByRef[R any](fn *Callable[R], opts ...Option) Wrapped[R] {
	return wrap(fn, equality.ByReference, opts)
}

// WrapShallow returns fn memoized with equality.Shallow.
func WrapShallow[R any](fn *Callable[R], opts ...Option) Wrapped[R] {
	return wrap(fn, equality.Shallow, opts)
}

// WrapDeep returns fn memoized with equality.Deep.
func WrapDeep[R any](fn *Callable[R], opts ...Option) Wrapped[R] {
	return wrap(fn, equality.Deep, opts)
}

// wrap pins cmp, when set, after every other option so calls cannot override it.
func wrap[R any](fn *Callable[R], cmp equality.Comparator, opts []Option) Wrapped[R] {
	base := append([]Option(nil), opts...)
	return func(args Args, callOpts ...Option) (R, error) {
		all := withLast(base, callOpts...)
		if cmp != nil {
			all = append(all, WithComparator(cmp))
		}
		return Memo(fn, args, all...)
	}
}

// HasCache reports whether the default cache holds a record for fn.
func HasCache(fn Key) bool {
	return Default().Has(fn)
}

// Peek returns the result the default cache holds for fn without invoking it.
func Peek[R any](fn *Callable[R]) (R, bool) {
	return helper.GetTypedValueOf2[R](func() (any, bool) {
		return Default().Peek(fn)
	})
}

// Result returns the result c holds for fn without invoking it.
// It fails with ErrNotCached when there is none.
func Result[R any](c *Cache, fn *Callable[R]) (R, error) {
	return helper.GetTypedValueOf[R](cached(c, fn))
}

// MustPeek is Peek for callers that know the default cache holds fn.
// It panics with ErrNotCached otherwise.
func MustPeek[R any](fn *Callable[R]) R {
	return helper.MustGetTypedValue[R](cached(Default(), fn))
}

func cached(c *Cache, fn Key) func() (any, error) {
	return func() (any, error) {
		if v, ok := c.Peek(fn); ok {
			return v, nil
		}
		return nil, ErrNotCached
	}
}

// ClearOne removes the record the default cache holds for fn.
func ClearOne(fn Key) {
	Default().Clear(fn)
}

// ClearAll empties the default cache.
func ClearAll() {
	Default().ClearAll()
}
