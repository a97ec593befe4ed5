// Package utils contains small helpers shared by the pipeline and the command line tools.
package utils

import (
	"github.com/montanaflynn/stats"
)

// RollingWindow keeps the last N samples added to it.
type RollingWindow struct {
	data []float64
	pos  int
	full bool
}

// NewRollingWindow returns a window holding up to numSamples samples. numSamples must be positive.
func NewRollingWindow(numSamples int) *RollingWindow {
	return &RollingWindow{data: make([]float64, numSamples)}
}

// NumSamples is the capacity of the window.
func (rw *RollingWindow) NumSamples() int {
	return len(rw.data)
}

// Len is the number of samples currently held.
func (rw *RollingWindow) Len() int {
	if rw.full {
		return len(rw.data)
	}
	return rw.pos
}

// Add records x, evicting the oldest sample once the window is full.
func (rw *RollingWindow) Add(x float64) {
	rw.data[rw.pos] = x
	rw.pos++
	if rw.pos >= len(rw.data) {
		rw.pos = 0
		rw.full = true
	}
}

// Values returns a copy of the held samples, oldest first.
func (rw *RollingWindow) Values() stats.Float64Data {
	if !rw.full {
		return append(stats.Float64Data(nil), rw.data[:rw.pos]...)
	}
	out := make(stats.Float64Data, 0, len(rw.data))
	out = append(out, rw.data[rw.pos:]...)
	return append(out, rw.data[:rw.pos]...)
}

// Summary describes the samples in a window.
type Summary struct {
	Count int
	Mean  float64
	P50   float64
	P95   float64
	Max   float64
}

// Summarize describes the samples held in the window. P95 uses the nearest rank method. An
// empty window summarizes to zeros.
func (rw *RollingWindow) Summarize() (Summary, error) {
	values := rw.Values()
	if len(values) == 0 {
		return Summary{}, nil
	}

	var err error
	summary := Summary{Count: len(values)}
	if summary.Mean, err = values.Mean(); err != nil {
		return Summary{}, err
	}
	if summary.P50, err = values.Median(); err != nil {
		return Summary{}, err
	}
	if summary.P95, err = values.PercentileNearestRank(95); err != nil {
		return Summary{}, err
	}
	if summary.Max, err = values.Max(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
