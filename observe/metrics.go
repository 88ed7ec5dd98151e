package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache engine operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one cache lookup with its outcome and duration.
	RecordLookup(ctx context.Context, mode string, hit bool, duration time.Duration)

	// RecordStore records one store dispatch with its duration and error status.
	RecordStore(ctx context.Context, mode string, duration time.Duration, err error)

	// RecordPersist records one archive persist with entry count and duration.
	RecordPersist(ctx context.Context, entries int, duration time.Duration, err error)

	// RecordEviction records entries removed by a garbage collection pass.
	RecordEviction(ctx context.Context, evicted int)

	// RecordQuarantine records an identifier quarantined after a
	// serialization failure.
	RecordQuarantine(ctx context.Context)

	// RecordDrainSlice records one idle drain slice with the number of
	// actions it ran.
	RecordDrainSlice(ctx context.Context, actions int, duration time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookupCount      metric.Int64Counter
	storeCount       metric.Int64Counter
	storeErrors      metric.Int64Counter
	persistDuration  metric.Float64Histogram
	persistEntries   metric.Int64Counter
	evictionCount    metric.Int64Counter
	quarantineCount  metric.Int64Counter
	drainSliceCount  metric.Int64Counter
	lookupDuration   metric.Float64Histogram
	storeDuration    metric.Float64Histogram
	drainSliceLength metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.lookupCount, err = meter.Int64Counter(
		"cache.lookup.total",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.lookupDuration, err = meter.Float64Histogram(
		"cache.lookup.duration_ms",
		metric.WithDescription("Cache lookup duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.storeCount, err = meter.Int64Counter(
		"cache.store.total",
		metric.WithDescription("Total number of store dispatches"),
		metric.WithUnit("{store}"),
	); err != nil {
		return nil, err
	}

	if m.storeErrors, err = meter.Int64Counter(
		"cache.store.errors",
		metric.WithDescription("Total number of failed store dispatches"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.storeDuration, err = meter.Float64Histogram(
		"cache.store.duration_ms",
		metric.WithDescription("Store dispatch duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.persistDuration, err = meter.Float64Histogram(
		"cache.persist.duration_ms",
		metric.WithDescription("Archive persist duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.persistEntries, err = meter.Int64Counter(
		"cache.persist.entries",
		metric.WithDescription("Total number of entries written to archives"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.evictionCount, err = meter.Int64Counter(
		"cache.gc.evictions",
		metric.WithDescription("Total number of entries removed by garbage collection"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	if m.quarantineCount, err = meter.Int64Counter(
		"cache.quarantine.total",
		metric.WithDescription("Total number of identifiers quarantined after serialization failure"),
		metric.WithUnit("{identifier}"),
	); err != nil {
		return nil, err
	}

	if m.drainSliceCount, err = meter.Int64Counter(
		"cache.drain.slices",
		metric.WithDescription("Total number of idle drain slices run"),
		metric.WithUnit("{slice}"),
	); err != nil {
		return nil, err
	}

	if m.drainSliceLength, err = meter.Float64Histogram(
		"cache.drain.slice_duration_ms",
		metric.WithDescription("Idle drain slice duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, mode string, hit bool, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("cache.mode", mode),
		attribute.Bool("cache.hit", hit),
	)
	m.lookupCount.Add(ctx, 1, opt)
	m.lookupDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

func (m *metricsImpl) RecordStore(ctx context.Context, mode string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.mode", mode))
	m.storeCount.Add(ctx, 1, opt)
	m.storeDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
	if err != nil {
		m.storeErrors.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordPersist(ctx context.Context, entries int, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.Bool("cache.error", err != nil))
	m.persistDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
	m.persistEntries.Add(ctx, int64(entries), opt)
}

func (m *metricsImpl) RecordEviction(ctx context.Context, evicted int) {
	m.evictionCount.Add(ctx, int64(evicted))
}

func (m *metricsImpl) RecordQuarantine(ctx context.Context) {
	m.quarantineCount.Add(ctx, 1)
}

func (m *metricsImpl) RecordDrainSlice(ctx context.Context, actions int, duration time.Duration) {
	opt := metric.WithAttributes(attribute.Int("cache.drain.actions", actions))
	m.drainSliceCount.Add(ctx, 1, opt)
	m.drainSliceLength.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

// Ensure metricsImpl implements Metrics
var _ Metrics = (*metricsImpl)(nil)
