package tomsychapel

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting layer metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// RecordChunkAcquire is called from chunk hooks on allocator threads and
// must be safe for concurrent use.
type MetricsCollector interface {
	// RecordInit is called once after Layer.Init.
	RecordInit(mode Mode, duration time.Duration, err error)

	// RecordChunkAcquire is called after every shared-heap chunk request.
	RecordChunkAcquire(size uintptr, err error)

	// RecordDrain is called once per size class after purification.
	RecordDrain(classSize uintptr, sacrificed int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInit(Mode, time.Duration, error) {}
func (NoopMetricsCollector) RecordChunkAcquire(uintptr, error)     {}
func (NoopMetricsCollector) RecordDrain(uintptr, int)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	InitCount          atomic.Int64
	InitErrors         atomic.Int64
	InitTotalNanos     atomic.Int64
	SharedHeapMode     atomic.Bool
	ChunkAcquires      atomic.Int64
	ChunkAcquireErrors atomic.Int64
	ChunkBytes         atomic.Uint64
	DrainedClasses     atomic.Int64
	Sacrificed         atomic.Int64
	SacrificedBytes    atomic.Uint64
}

// RecordInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInit(mode Mode, duration time.Duration, err error) {
	b.InitCount.Add(1)
	b.InitTotalNanos.Add(duration.Nanoseconds())
	b.SharedHeapMode.Store(mode == ModeSharedHeap)
	if err != nil {
		b.InitErrors.Add(1)
	}
}

// RecordChunkAcquire implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkAcquire(size uintptr, err error) {
	b.ChunkAcquires.Add(1)
	if err != nil {
		b.ChunkAcquireErrors.Add(1)
		return
	}
	b.ChunkBytes.Add(uint64(size))
}

// RecordDrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDrain(classSize uintptr, sacrificed int) {
	b.DrainedClasses.Add(1)
	b.Sacrificed.Add(int64(sacrificed))
	b.SacrificedBytes.Add(uint64(classSize) * uint64(sacrificed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InitCount:          b.InitCount.Load(),
		InitErrors:         b.InitErrors.Load(),
		InitAvgNanos:       b.getAvgInitNanos(),
		SharedHeapMode:     b.SharedHeapMode.Load(),
		ChunkAcquires:      b.ChunkAcquires.Load(),
		ChunkAcquireErrors: b.ChunkAcquireErrors.Load(),
		ChunkBytes:         b.ChunkBytes.Load(),
		DrainedClasses:     b.DrainedClasses.Load(),
		Sacrificed:         b.Sacrificed.Load(),
		SacrificedBytes:    b.SacrificedBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgInitNanos() int64 {
	count := b.InitCount.Load()
	if count == 0 {
		return 0
	}
	return b.InitTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InitCount          int64
	InitErrors         int64
	InitAvgNanos       int64
	SharedHeapMode     bool
	ChunkAcquires      int64
	ChunkAcquireErrors int64
	ChunkBytes         uint64
	DrainedClasses     int64
	Sacrificed         int64
	SacrificedBytes    uint64
}
