package eventpipe

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"

	"github.com/dbitrace/eventpipe/internal/interfaces"
)

// LatencyBuckets defines the rotation-stall latency histogram buckets in
// nanoseconds. Buckets cover from 1us to 10s with logarithmic spacing,
// since a stall is a pure backpressure wait (the consumer hasn't caught
// up) rather than an I/O operation, and can in principle range from
// sub-millisecond to the full rendezvous timeout.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks per-kind event throughput and rotation-stall latency for
// a running producer.
type Metrics struct {
	MemoryEvents      atomic.Uint64
	ComputationEvents atomic.Uint64
	SyncEvents        atomic.Uint64
	ContextEvents     atomic.Uint64

	PoolBytesUsed atomic.Uint64
	Rotations     atomic.Uint64
	BlockedRotations atomic.Uint64 // rotations that had to wait on emptyfifo

	StallLatencyNs atomic.Uint64 // cumulative blocked-rotation stall time
	StallCount     atomic.Uint64

	StallBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64

	clock *timecache.TimeCache
}

// NewMetrics creates a new metrics instance. It starts a millisecond-
// resolution cached clock that supplies the start, stop, and uptime
// timestamps. Rotation stall durations are not read from this clock: the
// transport measures them with time.Now and passes them in through
// RecordRotation.
func NewMetrics() *Metrics {
	m := &Metrics{clock: timecache.NewWithResolution(time.Millisecond)}
	m.StartTime.Store(m.clock.CachedTime().UnixNano())
	return m
}

// Close stops the underlying cached clock. Safe to call once a producer
// is done recording metrics.
func (m *Metrics) Close() {
	if m.clock != nil {
		m.clock.Stop()
	}
}

// RecordEvent records one emitted event of the given wire tag.
func (m *Metrics) RecordEvent(kind string, poolBytes uint32) {
	switch kind {
	case "memory", "pooled":
		m.MemoryEvents.Add(1)
	case "computation":
		m.ComputationEvents.Add(1)
	case "sync":
		m.SyncEvents.Add(1)
	case "context":
		m.ContextEvents.Add(1)
	}
	if poolBytes > 0 {
		m.PoolBytesUsed.Add(uint64(poolBytes))
	}
}

// RecordRotation records one buffer rotation, and the stall it incurred
// if the next buffer wasn't yet released by the consumer.
func (m *Metrics) RecordRotation(stallNs uint64, blocked bool) {
	m.Rotations.Add(1)
	if !blocked {
		return
	}
	m.BlockedRotations.Add(1)
	m.StallLatencyNs.Add(stallNs)
	m.StallCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if stallNs <= bucket {
			m.StallBuckets[i].Add(1)
		}
	}
}

// Stop marks metrics collection as stopped.
func (m *Metrics) Stop() {
	if m.clock != nil {
		m.StopTime.Store(m.clock.CachedTime().UnixNano())
	} else {
		m.StopTime.Store(time.Now().UnixNano())
	}
}

// MetricsSnapshot is a point-in-time view of Metrics.
type MetricsSnapshot struct {
	MemoryEvents      uint64
	ComputationEvents uint64
	SyncEvents        uint64
	ContextEvents     uint64

	PoolBytesUsed    uint64
	Rotations        uint64
	BlockedRotations uint64

	AvgStallNs   uint64
	StallP50Ns   uint64
	StallP99Ns   uint64

	UptimeNs  uint64
	TotalOps  uint64
	EventRate float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		MemoryEvents:      m.MemoryEvents.Load(),
		ComputationEvents: m.ComputationEvents.Load(),
		SyncEvents:        m.SyncEvents.Load(),
		ContextEvents:     m.ContextEvents.Load(),
		PoolBytesUsed:     m.PoolBytesUsed.Load(),
		Rotations:         m.Rotations.Load(),
		BlockedRotations:  m.BlockedRotations.Load(),
	}
	snap.TotalOps = snap.MemoryEvents + snap.ComputationEvents + snap.SyncEvents + snap.ContextEvents

	stallCount := m.StallCount.Load()
	if stallCount > 0 {
		snap.AvgStallNs = m.StallLatencyNs.Load() / stallCount
		snap.StallP50Ns = m.calculatePercentile(0.50)
		snap.StallP99Ns = m.calculatePercentile(0.99)
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	now := time.Now().UnixNano()
	if m.clock != nil {
		now = m.clock.CachedTime().UnixNano()
	}
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(now - startTime)
	}
	if snap.UptimeNs > 0 {
		snap.EventRate = float64(snap.TotalOps) / (float64(snap.UptimeNs) / 1e9)
	}

	return snap
}

func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	total := m.StallCount.Load()
	if total == 0 {
		return 0
	}
	target := uint64(float64(total) * percentile)
	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		count := m.StallBuckets[i].Load()
		if count >= target {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.StallBuckets[i-1].Load()
			}
			if count == prevCount {
				return bucket
			}
			fraction := float64(target-prevCount) / float64(count-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// MetricsObserver adapts Metrics to internal/interfaces.Observer so a
// Transport can record directly into it.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into the given Metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEvent(kind string, poolBytes uint32) {
	o.metrics.RecordEvent(kind, poolBytes)
}

func (o *MetricsObserver) ObserveRotation(stallNs uint64, blocked bool) {
	o.metrics.RecordRotation(stallNs, blocked)
}

func (o *MetricsObserver) ObserveShutdown() {
	o.metrics.Stop()
}

// NoOpObserver discards all observations.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEvent(string, uint32)  {}
func (NoOpObserver) ObserveRotation(uint64, bool) {}
func (NoOpObserver) ObserveShutdown()             {}

var (
	_ interfaces.Observer = (*MetricsObserver)(nil)
	_ interfaces.Observer = (*NoOpObserver)(nil)
)
