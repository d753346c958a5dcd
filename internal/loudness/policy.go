// Package loudness turns a stream of audio sample blocks into discrete trigger events.
package loudness

import "math"

// DefaultThreshold is the block RMS above which audio counts as loud.
const DefaultThreshold = 0.01

// RMS returns the root mean square of block. ok is false for an empty block.
func RMS(block []float32) (rms float64, ok bool) {
	if len(block) == 0 {
		return 0, false
	}
	var sum float64
	for _, sample := range block {
		s := float64(sample)
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(block))), true
}

// Policy fires once per loud excursion: the latch stays set while successive
// blocks remain above the threshold and clears on the first block at or below it.
//
// A Policy is owned by the goroutine consuming the sample stream.
type Policy struct {
	threshold float64
	triggered bool
}

// NewPolicy returns a policy with a clear latch. Negative or NaN thresholds
// are replaced by DefaultThreshold.
func NewPolicy(threshold float64) *Policy {
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return &Policy{threshold: threshold}
}

// Threshold returns the configured loudness threshold.
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Triggered reports whether the latch is set.
func (p *Policy) Triggered() bool {
	return p.triggered
}

// Observe feeds one block and reports whether it fires a trigger. An empty
// block leaves the latch untouched.
func (p *Policy) Observe(block []float32) bool {
	rms, ok := RMS(block)
	if !ok {
		return false
	}
	return p.ObserveRMS(rms)
}

// ObserveRMS feeds a precomputed block energy. NaN is treated like an empty block.
func (p *Policy) ObserveRMS(rms float64) bool {
	if math.IsNaN(rms) {
		return false
	}
	if rms > p.threshold {
		if p.triggered {
			return false
		}
		p.triggered = true
		return true
	}
	p.triggered = false
	return false
}

// Reset clears the latch.
func (p *Policy) Reset() {
	p.triggered = false
}
