package orchestra

import (
	"math"
	"sync/atomic"
	"time"
)

// PerformanceMonitor tracks per-block render cost as a running average. The
// audio thread calls beginBlock/endBlock; any other thread may take a
// snapshot concurrently.
type PerformanceMonitor struct {
	running     atomic.Bool
	lastBlockNs atomic.Int64
	avgBlockMs  atomic.Uint64 // float64 bits
	blockCount  atomic.Int64

	blockStart time.Time
}

// BlockStats is a point-in-time view of the render timing.
type BlockStats struct {
	LastBlockMs    float64
	AverageBlockMs float64
	Blocks         int64
}

func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// BeginSession resets the counters for a fresh run.
func (m *PerformanceMonitor) BeginSession() {
	m.running.Store(true)
	m.blockCount.Store(0)
	m.avgBlockMs.Store(math.Float64bits(0))
	m.lastBlockNs.Store(0)
}

func (m *PerformanceMonitor) EndSession() {
	m.running.Store(false)
}

func (m *PerformanceMonitor) beginBlock() {
	m.blockStart = time.Now()
}

func (m *PerformanceMonitor) endBlock() {
	elapsed := time.Since(m.blockStart)
	m.lastBlockNs.Store(int64(elapsed))

	ms := float64(elapsed) / float64(time.Millisecond)
	n := m.blockCount.Add(1)
	prev := math.Float64frombits(m.avgBlockMs.Load())
	m.avgBlockMs.Store(math.Float64bits(prev + (ms-prev)/float64(n)))
}

// Snapshot reads the current stats without blocking the audio thread.
func (m *PerformanceMonitor) Snapshot() BlockStats {
	return BlockStats{
		LastBlockMs:    float64(m.lastBlockNs.Load()) / float64(time.Millisecond),
		AverageBlockMs: math.Float64frombits(m.avgBlockMs.Load()),
		Blocks:         m.blockCount.Load(),
	}
}
