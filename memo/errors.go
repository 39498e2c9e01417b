package memo

import "errors"

// Sentinel errors for memo operations.
// Errors returned by a memoized callable are passed through unchanged and never wrapped.
var (
	// ErrMalformedInvocation indicates an argument list or receiver that does not fit the callable.
	ErrMalformedInvocation = errors.New("memo: malformed invocation")

	// ErrNilCallable indicates a nil *Callable was invoked.
	ErrNilCallable = errors.New("memo: callable is nil")

	// ErrNilCache indicates a nil *Cache was used.
	ErrNilCache = errors.New("memo: cache is nil")

	// ErrNotCached indicates that a cache holds no record for a callable.
	ErrNotCached = errors.New("memo: no cached result")

	// ErrInvalidConfig indicates a Config that failed validation.
	ErrInvalidConfig = errors.New("memo: invalid config")
)
