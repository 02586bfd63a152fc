// SPDX-License-Identifier: MIT
package fetcher

import "math"

// NoiseGate silences blocks whose peak amplitude stays under a threshold.
// Real inputs never produce exact zeros on their own, so without a gate the
// bar processor's gain control would keep amplifying the noise floor.
type NoiseGate struct {
	enabled   bool
	threshold float32
}

// NewNoiseGate returns an enabled gate. threshold is clamped to [0, 1];
// zero keeps the gate permanently open.
func NewNoiseGate(threshold float64) *NoiseGate {
	g := &NoiseGate{enabled: true}
	g.SetThreshold(threshold)
	return g
}

func (g *NoiseGate) Enable()  { g.enabled = true }
func (g *NoiseGate) Disable() { g.enabled = false }

// SetThreshold adjusts the gate. 0 = always open, 1 = closed for anything
// short of full scale.
func (g *NoiseGate) SetThreshold(threshold float64) {
	g.threshold = float32(math.Min(math.Max(threshold, 0), 1))
}

func (g *NoiseGate) Threshold() float64 {
	return float64(g.threshold)
}

// Apply zeroes block in place when its peak is below the threshold and
// reports whether the gate was open.
func (g *NoiseGate) Apply(block []float32) bool {
	if g == nil || !g.enabled || g.threshold == 0 {
		return true
	}

	var peak float32
	for _, s := range block {
		peak = max(peak, abs32(s))
	}
	if peak >= g.threshold {
		return true
	}
	clear(block)
	return false
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}
