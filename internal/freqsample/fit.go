// Package freqsample estimates the timestamp provider's tick
// frequency by sampling it against the wall clock over a short
// window, the way the sender worker does once at startup and every
// ~100ms thereafter (see worker.Worker).
package freqsample

import "time"

// Sample pairs a tick count with the wall-clock instant it was read
// at.
type Sample struct {
	Wall time.Time
	Tick uint64
}

// Estimator accumulates samples and fits a ticks-per-second rate from
// them. It keeps only the two endpoints of the current window rather
// than a full regression over every sample.
type Estimator struct {
	first, last Sample
	have        bool
}

// Reset discards any accumulated samples.
func (e *Estimator) Reset() {
	*e = Estimator{}
}

// Add records a new sample. Samples must be added in non-decreasing
// wall-clock order.
func (e *Estimator) Add(s Sample) {
	if !e.have {
		e.first = s
		e.have = true
	}
	e.last = s
}

// TicksPerSecond returns the fitted rate, or ok=false if fewer than
// two distinct samples have been recorded.
func (e *Estimator) TicksPerSecond() (rate float64, ok bool) {
	if !e.have {
		return 0, false
	}
	dWall := e.last.Wall.Sub(e.first.Wall).Seconds()
	if dWall <= 0 {
		return 0, false
	}
	// Tick counters wrap; treat the delta as the distance travelled
	// forward from first to last modulo 2^64, which is correct as
	// long as the sampling window is far shorter than a full period.
	dTicks := e.last.Tick - e.first.Tick
	return float64(dTicks) / dWall, true
}
