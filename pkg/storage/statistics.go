package storage

import (
	"math"
	"sync/atomic"
	"time"
)

// Statistics tracks graph size and lookup timing
type Statistics struct {
	NodeCount          uint64
	EdgeCount          uint64
	VulnerabilityCount uint64
	TotalQueries       uint64
	AvgQueryTime       float64 // milliseconds, exponential moving average
}

// GetStatistics returns current graph statistics
func (gs *GraphStorage) GetStatistics() Statistics {
	return Statistics{
		NodeCount:          atomic.LoadUint64(&gs.stats.NodeCount),
		EdgeCount:          atomic.LoadUint64(&gs.stats.EdgeCount),
		VulnerabilityCount: atomic.LoadUint64(&gs.stats.VulnerabilityCount),
		TotalQueries:       atomic.LoadUint64(&gs.stats.TotalQueries),
		AvgQueryTime:       math.Float64frombits(atomic.LoadUint64(&gs.avgQueryTimeBits)),
	}
}

// trackQueryTime records lookup execution time for statistics
// Uses exponential moving average with atomic operations for thread-safety
func (gs *GraphStorage) trackQueryTime(duration time.Duration) {
	atomic.AddUint64(&gs.stats.TotalQueries, 1)

	// new_avg = 0.9 * old_avg + 0.1 * new_value
	durationMs := float64(duration.Nanoseconds()) / 1000000.0

	for {
		oldBits := atomic.LoadUint64(&gs.avgQueryTimeBits)
		oldAvg := math.Float64frombits(oldBits)
		newAvg := 0.9*oldAvg + 0.1*durationMs
		newBits := math.Float64bits(newAvg)

		if atomic.CompareAndSwapUint64(&gs.avgQueryTimeBits, oldBits, newBits) {
			break
		}
	}
}
