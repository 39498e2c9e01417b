package memo

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Eviction reasons reported on the memo.evictions instrument.
const (
	reasonExplicit = "explicit"
	reasonClear    = "clear"
	reasonReclaim  = "reclaim"
)

var (
	outcomeHit  = metric.WithAttributes(attribute.String("outcome", "hit"))
	outcomeMiss = metric.WithAttributes(attribute.String("outcome", "miss"))
)

// metrics holds the OpenTelemetry instruments of a Cache.
type metrics struct {
	invocations metric.Int64Counter
	failures    metric.Int64Counter
	evictions   metric.Int64Counter
	duration    metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	invocations, err := meter.Int64Counter(
		"memo.invocations",
		metric.WithDescription("Memoized invocations by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"memo.failures",
		metric.WithDescription("Memoized invocations whose callable failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"memo.evictions",
		metric.WithDescription("Cache entries removed, by reason"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"memo.call.duration_ms",
		metric.WithDescription("Duration of callable executions on cache misses in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		invocations: invocations,
		failures:    failures,
		evictions:   evictions,
		duration:    duration,
	}, nil
}

func (m *metrics) hit() {
	m.invocations.Add(context.Background(), 1, outcomeHit)
}

func (m *metrics) miss(took time.Duration, err error) {
	ctx := context.Background()
	m.invocations.Add(ctx, 1, outcomeMiss)
	if err != nil {
		m.failures.Add(ctx, 1)
	}
	m.duration.Record(ctx, float64(took)/float64(time.Millisecond))
}

func (m *metrics) evicted(reason string, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(context.Background(), int64(n),
		metric.WithAttributes(attribute.String("reason", reason)))
}

// Stats is a snapshot of the counters of a Cache.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Failures  uint64
	Evictions uint64
	Reclaimed uint64
	Entries   int
}

// HitRate returns hits over all invocations, or 0 before the first invocation.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
	reclaimed atomic.Uint64
}
