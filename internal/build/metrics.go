package build

import (
	"sync"
	"time"
)

// BuildMetrics counts what a build wrote. It is safe for use by the worker
// pool.
type BuildMetrics struct {
	mutex    sync.Mutex
	snapshot Snapshot
}

// Snapshot holds the counters of BuildMetrics at one point in time.
type Snapshot struct {
	Files    int64
	Written  int64
	Failed   int64
	Reused   int64 // files the loader had already resolved
	Partials int64
	Bytes    int64
	Elapsed  time.Duration // summed per-file time, not wall time
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// Record adds the result of building one file.
func (bm *BuildMetrics) Record(result FileResult) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	s := &bm.snapshot
	s.Files++
	s.Elapsed += result.Duration
	if result.Reused {
		s.Reused++
	}
	if result.Error != nil {
		s.Failed++
		return
	}
	s.Written++
	s.Partials += int64(len(result.Partials))
	s.Bytes += int64(result.Bytes)
}

// Snapshot returns a copy of the current counters.
func (bm *BuildMetrics) Snapshot() Snapshot {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()
	return bm.snapshot
}

// Reset zeroes all counters.
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	bm.snapshot = Snapshot{}
	bm.mutex.Unlock()
}

// AverageDuration is the mean time spent on one file.
func (s Snapshot) AverageDuration() time.Duration {
	if s.Files == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Files)
}

// ReuseRate returns the share of files already resolved, as a percentage.
func (s Snapshot) ReuseRate() float64 {
	return percent(s.Reused, s.Files)
}

// SuccessRate returns the share of files written, as a percentage.
func (s Snapshot) SuccessRate() float64 {
	return percent(s.Written, s.Files)
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
