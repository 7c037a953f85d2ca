// Package perf measures how closely the achieved tick cadence tracks the
// target one.
//
// A Sampler collects the delta of every tick into a window. When the window
// closes it reports the ratio of the target frame duration to the average
// delta: above 1 the host keeps up comfortably, below 1 ticks take longer than
// their budget. For a target of 24fps, a ratio under 0.5 means the averaged
// rate is below 12fps.
package perf

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// maxPrealloc bounds the window capacity reserved up front. Larger windows
// grow on append.
const maxPrealloc = 255

// Sampler accumulates tick deltas and computes the performance ratio.
// It is not safe for concurrent use.
type Sampler struct {
	frameDuration  time.Duration
	samplesCount   int
	sampleDuration time.Duration

	samples     []time.Duration
	windowStart time.Time

	ratio    float64
	hasRatio bool
}

// New creates a Sampler. A window closes once it holds more than
// samplesCount samples or, when sampleDuration is positive, once more than
// sampleDuration has elapsed since it opened.
func New(frameDuration time.Duration, samplesCount int, sampleDuration time.Duration) *Sampler {
	return &Sampler{
		frameDuration:  frameDuration,
		samplesCount:   samplesCount,
		sampleDuration: sampleDuration,
		samples:        make([]time.Duration, 0, min(samplesCount, maxPrealloc)+1),
	}
}

// Record adds a sample taken at now. When this closes the window it returns
// the window's ratio and true; the window is then emptied and reopened at now.
func (s *Sampler) Record(delta time.Duration, now time.Time) (float64, bool) {
	s.samples = append(s.samples, delta)

	elapsed := now.Sub(s.windowStart)
	expired := s.sampleDuration > 0 && elapsed > s.sampleDuration

	// strict: a window holds samplesCount+1 samples when it closes on count
	if !expired && len(s.samples) <= s.samplesCount {
		return 0, false
	}

	s.ratio = float64(s.frameDuration) / s.average()
	s.hasRatio = true

	s.samples = s.samples[:0]
	s.windowStart = now
	return s.ratio, true
}

func (s *Sampler) average() float64 {
	values := make([]float64, len(s.samples))
	for i, d := range s.samples {
		values[i] = float64(d)
	}
	return stat.Mean(values, nil)
}

// Reset empties the window, forgets the last ratio and reopens the window
// at start.
func (s *Sampler) Reset(start time.Time) {
	s.samples = s.samples[:0]
	s.windowStart = start
	s.ratio = 0
	s.hasRatio = false
}

// Ratio returns the ratio of the most recently closed window. The boolean is
// false until a window has closed.
func (s *Sampler) Ratio() (float64, bool) {
	return s.ratio, s.hasRatio
}

// Len returns the number of samples in the open window.
func (s *Sampler) Len() int {
	return len(s.samples)
}

// Samples returns a copy of the open window in insertion order.
func (s *Sampler) Samples() []time.Duration {
	out := make([]time.Duration, len(s.samples))
	copy(out, s.samples)
	return out
}

// WindowStart returns the time the open window started.
func (s *Sampler) WindowStart() time.Time {
	return s.windowStart
}
