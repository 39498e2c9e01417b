package memo

import (
	"sync/atomic"
	"time"

	"github.com/rickb777/date/v2/timespan"
)

// record is the single stored invocation of one callable. Only hits changes in
// place; a call with other arguments or context replaces the pointer.
type record struct {
	result any
	args   Args
	this   any
	span   timespan.TimeSpan
	hits   atomic.Uint64
}

// refreshed returns the record that replaces r after a hit with args and this.
func (r *record) refreshed(args Args, this any) *record {
	next := &record{
		result: r.result,
		args:   args,
		this:   this,
		span:   r.span,
	}
	next.hits.Store(r.hits.Load() + 1)
	return next
}

// Info describes the cached invocation of a callable.
type Info struct {
	// ID and Name identify the callable.
	ID   string
	Name string

	// Span is the interval the producing call ran in.
	Span timespan.TimeSpan

	// Hits counts the hits served since the producing call.
	Hits uint64

	// Args and This are the argument list and bound context of the latest call.
	Args Args
	This any
}

// ComputedAt returns when the producing call started.
func (i Info) ComputedAt() time.Time {
	return i.Span.Start()
}

// Took returns how long the producing call ran.
func (i Info) Took() time.Duration {
	return i.Span.Duration()
}

func newInfo(key *identity, r *record) Info {
	return Info{
		ID:   key.id,
		Name: key.label(),
		Span: r.span,
		Hits: r.hits.Load(),
		Args: r.args,
		This: r.this,
	}
}
