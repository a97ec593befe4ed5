package pipeline

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"go.viam.com/greenscreen/utils"
)

// Stats counts what happened to the frames a pipeline saw and tracks how long processing
// took over a rolling window of frames.
type Stats struct {
	processed *atomic.Int64
	skipped   *atomic.Int64
	failed    *atomic.Int64
	dropped   *atomic.Int64

	mu        sync.Mutex
	latencies *utils.RollingWindow
}

func newStats(window int) *Stats {
	return &Stats{
		processed: atomic.NewInt64(0),
		skipped:   atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
		dropped:   atomic.NewInt64(0),
		latencies: utils.NewRollingWindow(window),
	}
}

func (s *Stats) recordProcessed(latency time.Duration) {
	s.processed.Inc()
	s.mu.Lock()
	s.latencies.Add(float64(latency))
	s.mu.Unlock()
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	Processed int64
	Skipped   int64
	Failed    int64
	Dropped   int64

	// Samples is the number of frames the latencies are computed over.
	Samples     int
	LatencyMean time.Duration
	LatencyP50  time.Duration
	LatencyP95  time.Duration
	LatencyMax  time.Duration
}

// Snapshot returns the current counters and latency summary.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	summary, err := s.latencies.Summarize()
	s.mu.Unlock()
	if err != nil {
		// the stats package only rejects empty input, which Summarize never passes it
		summary = utils.Summary{}
	}

	return StatsSnapshot{
		Processed:   s.processed.Load(),
		Skipped:     s.skipped.Load(),
		Failed:      s.failed.Load(),
		Dropped:     s.dropped.Load(),
		Samples:     summary.Count,
		LatencyMean: time.Duration(summary.Mean),
		LatencyP50:  time.Duration(summary.P50),
		LatencyP95:  time.Duration(summary.P95),
		LatencyMax:  time.Duration(summary.Max),
	}
}

// Map renders the snapshot for DoCommand replies.
func (ss StatsSnapshot) Map() map[string]interface{} {
	return map[string]interface{}{
		"processed":       ss.Processed,
		"skipped":         ss.Skipped,
		"failed":          ss.Failed,
		"dropped":         ss.Dropped,
		"samples":         ss.Samples,
		"latency_mean_ms": durationMillis(ss.LatencyMean),
		"latency_p50_ms":  durationMillis(ss.LatencyP50),
		"latency_p95_ms":  durationMillis(ss.LatencyP95),
		"latency_max_ms":  durationMillis(ss.LatencyMax),
	}
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
