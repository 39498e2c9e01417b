package memo

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
	"weak"

	"github.com/on-the-ground/memo_ive_go/equality"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/zap"
)

// Cache holds at most one invocation record per callable.
//
// Contract:
// - Concurrency: safe for concurrent use. Callables run without any cache lock held.
// - Lifetime: a record never keeps its callable alive, and memoized callables never keep the cache alive.
// - Errors: only successful calls produce records.
type Cache struct {
	cfg     Config
	self    weak.Pointer[Cache]
	table   atomic.Pointer[table]
	logger  *zap.Logger
	metrics *metrics
	stats   counters
}

// New creates a Cache from cfg. Zero fields take their defaults.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	m, err := newMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("memo: failed to create metrics: %w", err)
	}

	c := &Cache{
		cfg:     cfg,
		logger:  cfg.Logger.Named("memo"),
		metrics: m,
	}
	c.self = weak.Make(c)
	c.table.Store(newTable(cfg.Shards))
	return c, nil
}

// MustNew is the panic-on-failure variant of New.
func MustNew(cfg Config) *Cache {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Invoke calls fn with args through c.
//
// The call is a hit when c holds a record for fn whose argument list matches args
// under the resolved comparator and whose bound context is identical to the
// resolved one. A hit returns the stored result without running fn. Otherwise fn
// runs; a successful result replaces the record, a failure is returned unchanged
// and leaves the record untouched.
func Invoke[R any](c *Cache, fn *Callable[R], args Args, opts ...Option) (R, error) {
	var zero R
	if c == nil {
		return zero, ErrNilCache
	}
	if fn == nil {
		return zero, ErrNilCallable
	}

	o := collect(opts)
	this := o.boundThis(c.cfg.DefaultThis)
	cmp := o.comparator
	if cmp == nil {
		cmp = c.cfg.DefaultComparator
	}

	thunk, err := fn.prepare(this, args)
	if err != nil {
		return zero, err
	}

	key := weak.Make(fn.key)
	s := c.table.Load().shardOf(fn.key.id)
	if rec := s.lookup(key); rec != nil && cmp.Equal(rec.args, args) && equality.Identical(rec.this, this) {
		var hits uint64
		if equality.SameSlice(rec.args, args) {
			hits = rec.hits.Add(1)
		} else {
			next := rec.refreshed(args, this)
			hits = next.hits.Load()
			s.swap(key, rec, next)
		}
		c.stats.hits.Add(1)
		c.metrics.hit()
		if ce := c.logger.Check(zap.DebugLevel, "memo hit"); ce != nil {
			ce.Write(zap.String("callable", fn.key.label()), zap.Uint64("hits", hits))
		}
		res, _ := rec.result.(R)
		return res, nil
	}

	start := time.Now()
	res, err := thunk()
	end := time.Now()

	c.stats.misses.Add(1)
	c.metrics.miss(end.Sub(start), err)
	if err != nil {
		c.stats.failures.Add(1)
		if ce := c.logger.Check(zap.DebugLevel, "memo call failed"); ce != nil {
			ce.Write(zap.String("callable", fn.key.label()), zap.Error(err))
		}
		return res, err
	}

	stored := c.put(c.table.Load(), fn.key, key, &record{
		result: res,
		args:   args,
		this:   this,
		span:   timespan.BetweenTimes(start, end),
	})
	if ce := c.logger.Check(zap.DebugLevel, "memo miss"); ce != nil {
		ce.Write(zap.String("callable", fn.key.label()), zap.Duration("took", end.Sub(start)), zap.Bool("stored", stored))
	}
	return res, nil
}

// put stores rec for id in t, registering reclamation on first insert. When
// ClearAll replaced t meanwhile, the record is dropped with the cleared table, the
// new hook is stopped, and put reports false.
func (c *Cache) put(t *table, id *identity, key weak.Pointer[identity], rec *record) bool {
	rk := reclaimKey{cache: c.self, ptr: key, id: id.id}
	cleanup, inserted := t.shardOf(id.id).store(key, rec, func() runtime.Cleanup {
		return runtime.AddCleanup(id, reclaim, rk)
	})
	if c.table.Load() == t {
		return true
	}
	if inserted {
		cleanup.Stop()
	}
	return false
}

// reclaim runs once the identity behind rk is collected. The cache itself is held
// weakly, so a dropped cache is not kept alive by the callables it memoized.
func reclaim(rk reclaimKey) {
	if c := rk.cache.Value(); c != nil {
		c.drop(rk)
	}
}

// drop removes the entry of a collected callable.
func (c *Cache) drop(rk reclaimKey) {
	if !c.table.Load().shardOf(rk.id).delete(rk.ptr, false) {
		return
	}
	c.stats.reclaimed.Add(1)
	c.metrics.evicted(reasonReclaim, 1)
	c.logger.Debug("memo entry reclaimed", zap.String("id", rk.id))
}

func (c *Cache) lookup(fn Key) (*identity, *record) {
	if c == nil || fn == nil {
		return nil, nil
	}
	id := fn.identity()
	if id == nil {
		return nil, nil
	}
	return id, c.table.Load().shardOf(id.id).lookup(weak.Make(id))
}

// Has reports whether c holds a record for fn.
func (c *Cache) Has(fn Key) bool {
	_, rec := c.lookup(fn)
	return rec != nil
}

// Peek returns the cached result of fn without invoking it.
func (c *Cache) Peek(fn Key) (any, bool) {
	_, rec := c.lookup(fn)
	if rec == nil {
		return nil, false
	}
	return rec.result, true
}

// Inspect describes the cached invocation of fn.
func (c *Cache) Inspect(fn Key) (Info, bool) {
	id, rec := c.lookup(fn)
	if rec == nil {
		return Info{}, false
	}
	return newInfo(id, rec), true
}

// Clear removes the record of fn. It is a no-op when there is none.
func (c *Cache) Clear(fn Key) {
	if c == nil || fn == nil {
		return
	}
	id := fn.identity()
	if id == nil {
		return
	}
	if !c.table.Load().shardOf(id.id).delete(weak.Make(id), true) {
		return
	}
	c.stats.evictions.Add(1)
	c.metrics.evicted(reasonExplicit, 1)
	c.logger.Debug("memo entry cleared", zap.String("callable", id.label()))
}

// ClearAll drops every record at once by swapping in an empty table.
func (c *Cache) ClearAll() {
	if c == nil {
		return
	}
	old := c.table.Swap(newTable(c.cfg.Shards))
	n := old.stopAll()
	c.stats.evictions.Add(uint64(n))
	c.metrics.evicted(reasonClear, n)
	c.logger.Debug("memo cleared", zap.Int("entries", n))
}

// Len returns the number of records held.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.table.Load().len()
}

// Stats returns a snapshot of the counters of c.
// Misses include failed calls; Evictions counts Clear and ClearAll removals.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:      c.stats.hits.Load(),
		Misses:    c.stats.misses.Load(),
		Failures:  c.stats.failures.Load(),
		Evictions: c.stats.evictions.Load(),
		Reclaimed: c.stats.reclaimed.Load(),
		Entries:   c.Len(),
	}
}
