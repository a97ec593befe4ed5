package pipeline

import (
	"sync"

	"go.uber.org/atomic"
)

// A Feeder is the producer side of a frame channel. Offer never blocks: when the consumer
// is behind, the oldest waiting frame set is released and replaced, so the consumer always
// sees the freshest frames.
type Feeder struct {
	mu      sync.Mutex
	closed  bool
	frames  chan FrameSet
	dropped *atomic.Int64
	stats   *Stats
}

// NewFeeder returns a feeder buffering up to capacity frame sets. Drops are also counted in
// the pipeline's stats when p is not nil.
func NewFeeder(capacity int, p *Pipeline) *Feeder {
	if capacity < 1 {
		capacity = 1
	}
	f := &Feeder{
		frames:  make(chan FrameSet, capacity),
		dropped: atomic.NewInt64(0),
	}
	if p != nil {
		f.stats = p.stats
	}
	return f
}

// Frames is the channel to hand to Run.
func (f *Feeder) Frames() <-chan FrameSet {
	return f.frames
}

// Offer queues fs for the consumer and reports whether it was queued. A closed feeder
// releases fs immediately.
func (f *Feeder) Offer(fs FrameSet) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		fs.release()
		return false
	}

	select {
	case f.frames <- fs:
		return true
	default:
	}

	// full: evict the oldest frame set to make room
	select {
	case old := <-f.frames:
		old.release()
		f.drop()
	default:
	}

	select {
	case f.frames <- fs:
		return true
	default:
		fs.release()
		f.drop()
		return false
	}
}

func (f *Feeder) drop() {
	f.dropped.Inc()
	if f.stats != nil {
		f.stats.dropped.Inc()
	}
}

// Dropped is the number of frame sets released without being consumed.
func (f *Feeder) Dropped() int64 {
	return f.dropped.Load()
}

// Close closes the frame channel. Frame sets still buffered stay readable by the consumer.
func (f *Feeder) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.frames)
}

// Drain releases every frame set still buffered. It is meant for shutdown after the consumer
// has stopped reading, and only returns once the channel is closed and empty.
func (f *Feeder) Drain() {
	f.Close()
	for fs := range f.frames {
		fs.release()
		f.drop()
	}
}
