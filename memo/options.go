package memo

import (
	"slices"

	"github.com/on-the-ground/memo_ive_go/equality"
)

// Option configures one memoized invocation.
type Option func(*options)

type options struct {
	this       any
	hasThis    bool
	thisArg    any
	hasThisArg bool
	comparator equality.Comparator
	cache      *Cache
}

// WithThis binds the callable to v. It takes precedence over WithThisArg.
// An explicit nil is a binding like any other.
func WithThis(v any) Option {
	return func(o *options) {
		o.this = v
		o.hasThis = true
	}
}

// WithThisArg is an alias binding, used only when WithThis is absent.
func WithThisArg(v any) Option {
	return func(o *options) {
		o.thisArg = v
		o.hasThisArg = true
	}
}

// WithComparator selects how the argument list is compared with the cached one.
func WithComparator(cmp equality.Comparator) Option {
	return func(o *options) {
		o.comparator = cmp
	}
}

// WithCache routes the package-level entry points to c instead of Default().
// Invoke ignores it.
func WithCache(c *Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// boundThis resolves the bound context: WithThis, then WithThisArg, then fallback.
func (o options) boundThis(fallback any) any {
	switch {
	case o.hasThis:
		return o.this
	case o.hasThisArg:
		return o.thisArg
	default:
		return fallback
	}
}

// withLast returns opts followed by last without touching the backing array of opts.
func withLast(opts []Option, last ...Option) []Option {
	return append(slices.Clip(opts), last...)
}
