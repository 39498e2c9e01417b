// Package memo remembers the last invocation of a callable.
//
// A Cache keeps exactly one record per callable: the result, the argument list and
// the bound context of its latest successful call. The next call of the same
// callable is a hit when
//
//	→ its arguments match the stored ones under the comparator of the call site, and
//	→ its bound context is identical to the stored one.
//
// A hit returns the stored result and never runs the callable, so a memoized call
// with side effects performs them once per distinct invocation. A miss runs the
// callable and, if it succeeds, replaces the record. Failures are returned unchanged
// and never touch the record.
//
// Callables are built with the typed constructors (Func0 to Func3, Pure0 to Pure2,
// Method0 to Method2, Variadic). The returned *Callable is the cache key: it is held
// weakly, and its record disappears once the callable is garbage collected. A
// record whose result, arguments or bound context reference the callable keeps it
// reachable, so that record stays until it is cleared.
//
// Entry points:
//   - Invoke: the engine, on an explicit *Cache.
//   - Memo, ByRef, Shallow, Deep: the default cache (or WithCache) with the configured
//     comparator, or a fixed one.
//   - Wrap, WrapByRef, WrapShallow, WrapDeep: memoized function values.
//   - HasCache, Peek, MustPeek, ClearOne, ClearAll: inspection and eviction on the default cache;
//     Result reads a given cache.
//
// Every call site shares the single record of a callable, whatever comparator it
// uses. A Deep call site with other arguments therefore invalidates what a Shallow
// call site stored just before.
//
// Example:
//
//	area := memo.Pure2(func(w, h int) int { return w * h })
//	a, _ := memo.Shallow(area, memo.Args{3, 4}) // runs
//	b, _ := memo.Shallow(area, memo.Args{3, 4}) // hit
//
// There is no expiration and no history: memo is not a general purpose cache.
package memo
