package mapres

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the metric
// package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordMap is called after each MappedResource load attempt.
	// size is zero for empty resources and failed loads.
	RecordMap(size int, executable bool, duration time.Duration, err error)

	// RecordUnmap is called when a mapping of size bytes is released.
	RecordUnmap(size int)

	// RecordSnapshotLoad is called after each ElfSnapshot load attempt.
	// size is the length of the loaded image span.
	RecordSnapshotLoad(size uintptr, duration time.Duration, err error)

	// RecordSnapshotUnload is called when a snapshot of size bytes is released.
	RecordSnapshotUnload(size uintptr)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMap(int, bool, time.Duration, error)        {}
func (NoopMetricsCollector) RecordUnmap(int)                                  {}
func (NoopMetricsCollector) RecordSnapshotLoad(uintptr, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotUnload(uintptr)                     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MapCount            atomic.Int64
	MapErrors           atomic.Int64
	ExecutableMaps      atomic.Int64
	MapTotalNanos       atomic.Int64
	MappedBytes         atomic.Int64
	UnmapCount          atomic.Int64
	SnapshotLoadCount   atomic.Int64
	SnapshotLoadErrors  atomic.Int64
	SnapshotTotalNanos  atomic.Int64
	SnapshotBytes       atomic.Int64
	SnapshotUnloadCount atomic.Int64
}

// RecordMap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMap(size int, executable bool, duration time.Duration, err error) {
	b.MapCount.Add(1)
	b.MapTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MapErrors.Add(1)
		return
	}
	if executable {
		b.ExecutableMaps.Add(1)
	}
	b.MappedBytes.Add(int64(size))
}

// RecordUnmap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnmap(size int) {
	b.UnmapCount.Add(1)
	b.MappedBytes.Add(-int64(size))
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(size uintptr, duration time.Duration, err error) {
	b.SnapshotLoadCount.Add(1)
	b.SnapshotTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SnapshotLoadErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(int64(size))
}

// RecordSnapshotUnload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotUnload(size uintptr) {
	b.SnapshotUnloadCount.Add(1)
	b.SnapshotBytes.Add(-int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MapCount:            b.MapCount.Load(),
		MapErrors:           b.MapErrors.Load(),
		ExecutableMaps:      b.ExecutableMaps.Load(),
		MapAvgNanos:         avg(b.MapTotalNanos.Load(), b.MapCount.Load()),
		MappedBytes:         b.MappedBytes.Load(),
		UnmapCount:          b.UnmapCount.Load(),
		SnapshotLoadCount:   b.SnapshotLoadCount.Load(),
		SnapshotLoadErrors:  b.SnapshotLoadErrors.Load(),
		SnapshotAvgNanos:    avg(b.SnapshotTotalNanos.Load(), b.SnapshotLoadCount.Load()),
		SnapshotBytes:       b.SnapshotBytes.Load(),
		SnapshotUnloadCount: b.SnapshotUnloadCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MapCount            int64
	MapErrors           int64
	ExecutableMaps      int64
	MapAvgNanos         int64
	MappedBytes         int64
	UnmapCount          int64
	SnapshotLoadCount   int64
	SnapshotLoadErrors  int64
	SnapshotAvgNanos    int64
	SnapshotBytes       int64
	SnapshotUnloadCount int64
}
