package memo_test

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
	"weak"

	"github.com/on-the-ground/memo_ive_go/equality"
	"github.com/on-the-ground/memo_ive_go/memo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"
)

func TestCache_ReclaimsCollectedCallables(t *testing.T) {
	c := newTestCache(t)

	func() {
		fn := memo.Pure1(func(n int) int { return n * 2 })
		_, err := memo.Invoke(c, fn, memo.Args{1})
		require.NoError(t, err)
		require.True(t, c.Has(fn))
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return c.Len() == 0 && c.Stats().Reclaimed == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, c.Stats().Evictions)
}

func TestCache_CallablesDoNotKeepCacheAlive(t *testing.T) {
	fn := memo.Pure0(func() int { return 1 })

	ref := func() weak.Pointer[memo.Cache] {
		c := memo.MustNew(memo.DefaultConfig())
		_, err := memo.Invoke(c, fn, nil)
		require.NoError(t, err)
		return weak.Make(c)
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return ref.Value() == nil
	}, 5*time.Second, 10*time.Millisecond)
	runtime.KeepAlive(fn)
}

func TestCache_ClearedEntryIsNotReclaimedTwice(t *testing.T) {
	c := newTestCache(t)

	func() {
		fn := memo.Pure0(func() string { return "x" })
		_, _ = memo.Invoke(c, fn, nil)
		c.Clear(fn)
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	assert.Zero(t, c.Stats().Reclaimed)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCache_ConcurrentInvocations(t *testing.T) {
	c := memo.MustNew(memo.DefaultConfig())

	const workers = 32
	const rounds = 200
	fns := make([]*memo.Callable[int], 4)
	var calls atomic.Int64
	for i := range fns {
		offset := i * 1000
		fns[i] = memo.Pure1(func(n int) int {
			calls.Add(1)
			return offset + n
		})
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for r := 0; r < rounds; r++ {
				i := (w + r) % len(fns)
				n := r % 3
				v, err := memo.Shallow(fns[i], memo.Args{n}, memo.WithCache(c))
				if err != nil {
					return err
				}
				if want := i*1000 + n; v != want {
					return fmt.Errorf("callable %d with %d: got %d, want %d", i, n, v, want)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for r := 0; r < 20; r++ {
			c.ClearAll()
			runtime.Gosched()
		}
		return nil
	})
	require.NoError(t, g.Wait())

	stats := c.Stats()
	assert.EqualValues(t, workers*rounds, stats.Hits+stats.Misses)
	assert.EqualValues(t, calls.Load(), stats.Misses)
	assert.LessOrEqual(t, c.Len(), len(fns))
}

func TestCache_ConcurrentMissesAreNotCoalesced(t *testing.T) {
	c := memo.MustNew(memo.DefaultConfig())
	release := make(chan struct{})
	var running atomic.Int32
	fn := memo.Pure1(func(n int) int {
		running.Add(1)
		<-release
		return n
	})

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := memo.Invoke(c, fn, memo.Args{i}, memo.WithComparator(equality.Shallow))
			return err
		})
	}
	assert.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 2, c.Stats().Misses)
	assert.True(t, c.Has(fn))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumFor totals the points of an int64 counter carrying key=value, or all points when key is empty.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, key, value string) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		if key != "" {
			v, ok := dp.Attributes.Value(attribute.Key(key))
			if !ok || v.AsString() != value {
				continue
			}
		}
		total += dp.Value
	}
	return total
}

func TestCache_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c, err := memo.New(memo.Config{Meter: provider.Meter("memo-test")})
	require.NoError(t, err)

	fail := false
	fn := memo.Func1(func(n int) (int, error) {
		if fail {
			return 0, fmt.Errorf("failed on %d", n)
		}
		return n, nil
	})
	args := memo.Args{1}
	_, _ = memo.Invoke(c, fn, args)
	_, _ = memo.Invoke(c, fn, args)
	_, _ = memo.Invoke(c, fn, args)
	fail = true
	_, _ = memo.Invoke(c, fn, memo.Args{2})
	c.Clear(fn)

	other := memo.Pure0(func() int { return 0 })
	_, _ = memo.Invoke(c, other, nil)
	c.ClearAll()

	rm := collect(t, reader)
	assert.EqualValues(t, 2, sumFor(t, rm, "memo.invocations", "outcome", "hit"))
	assert.EqualValues(t, 3, sumFor(t, rm, "memo.invocations", "outcome", "miss"))
	assert.EqualValues(t, 1, sumFor(t, rm, "memo.failures", "", ""))
	assert.EqualValues(t, 1, sumFor(t, rm, "memo.evictions", "reason", "explicit"))
	assert.EqualValues(t, 1, sumFor(t, rm, "memo.evictions", "reason", "clear"))

	m, ok := findMetric(rm, "memo.call.duration_ms")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 3, hist.DataPoints[0].Count)
}

func TestWrap(t *testing.T) {
	c := newTestCache(t)
	fn, calls := counted()

	w := memo.WrapShallow(fn, memo.WithCache(c))
	v1, err := w(memo.Args{1, 2})
	require.NoError(t, err)
	v2, err := w(memo.Args{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, *calls)

	// the fixed comparator cannot be overridden per call
	_, _ = w(memo.Args{[]int{1}}, memo.WithComparator(equality.Deep))
	_, _ = w(memo.Args{[]int{1}}, memo.WithComparator(equality.Deep))
	assert.Equal(t, 3, *calls)
}

func TestWrap_UsesCacheDefaultComparator(t *testing.T) {
	c, err := memo.New(memo.Config{DefaultComparator: equality.Deep})
	require.NoError(t, err)
	fn, calls := counted()

	w := memo.Wrap(fn, memo.WithCache(c))
	_, _ = w(memo.Args{[]int{1}})
	_, _ = w(memo.Args{[]int{1}})
	assert.Equal(t, 1, *calls)

	// per-call options apply on top of Wrap's
	_, _ = w(memo.Args{[]int{1}}, memo.WithComparator(equality.ByReference))
	assert.Equal(t, 2, *calls)
}

func TestWrapByRefAndDeep(t *testing.T) {
	c := newTestCache(t)

	byRef, refCalls := counted()
	wr := memo.WrapByRef(byRef, memo.WithCache(c))
	args := memo.Args{1}
	_, _ = wr(args)
	_, _ = wr(args)
	_, _ = wr(memo.Args{1})
	assert.Equal(t, 2, *refCalls)

	deep, deepCalls := counted()
	wd := memo.WrapDeep(deep, memo.WithCache(c))
	_, _ = wd(memo.Args{map[string]int{"a": 1}})
	_, _ = wd(memo.Args{map[string]int{"a": 1}})
	assert.Equal(t, 1, *deepCalls)
}

func TestDefaultCache(t *testing.T) {
	c := newTestCache(t)
	restore := memo.ReplaceDefault(c)
	t.Cleanup(restore)
	assert.Same(t, c, memo.Default())

	fn := memo.Pure1(func(s string) int { return len(s) })
	assert.False(t, memo.HasCache(fn))

	v, err := memo.Memo(fn, memo.Args{"four"})
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.True(t, memo.HasCache(fn))
	assert.True(t, c.Has(fn))

	peeked, ok := memo.Peek(fn)
	require.True(t, ok)
	assert.Equal(t, 4, peeked)

	memo.ClearOne(fn)
	assert.False(t, memo.HasCache(fn))
	_, ok = memo.Peek(fn)
	assert.False(t, ok)

	_, _ = memo.Memo(fn, memo.Args{"x"})
	memo.ClearAll()
	assert.Zero(t, c.Len())

	assert.Panics(t, func() { memo.ReplaceDefault(nil) })
}

func TestReplaceDefault_Restore(t *testing.T) {
	prev := memo.Default()
	restore := memo.ReplaceDefault(newTestCache(t))
	assert.NotSame(t, prev, memo.Default())
	restore()
	assert.Same(t, prev, memo.Default())
}

func TestWithCache_DoesNotTouchDefault(t *testing.T) {
	c := newTestCache(t)
	fn := memo.Pure0(func() int { return 1 })

	_, err := memo.Deep(fn, nil, memo.WithCache(c))
	require.NoError(t, err)
	assert.True(t, c.Has(fn))
	assert.False(t, memo.HasCache(fn))
}
