// SPDX-License-Identifier: MIT
package fetcher

import (
	"fmt"
	"math"
	"testing"
)

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},  // Minimum
		{0.5, 0.5},  // Middle
		{1.0, 1.0},  // Maximum
		{1.5, 1.0},  // Above max
	}

	g := NewNoiseGate(0)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			if got := g.Threshold(); math.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("threshold = %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateApply(t *testing.T) {
	quiet := func() []float32 { return []float32{0.001, -0.002, 0.0015, -0.001} }
	loud := func() []float32 { return []float32{0.5, -0.8, 0.3, -0.2} }

	tests := []struct {
		desc      string
		block     []float32
		enabled   bool
		threshold float64
		wantOpen  bool
	}{
		{"Gate disabled/Quiet signal", quiet(), false, 0.1, true},
		{"Gate disabled/Loud signal", loud(), false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quiet(), true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quiet(), true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loud(), true, 0.1, true},
		{"Gate enabled/Loud signal/High threshold", loud(), true, 0.999, false},
		{"Gate enabled/Zero threshold", quiet(), true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			g := NewNoiseGate(tt.threshold)
			if !tt.enabled {
				g.Disable()
			}
			orig := append([]float32(nil), tt.block...)

			if open := g.Apply(tt.block); open != tt.wantOpen {
				t.Fatalf("Apply() open = %v, want %v", open, tt.wantOpen)
			}
			for i, v := range tt.block {
				want := orig[i]
				if !tt.wantOpen {
					want = 0
				}
				if v != want {
					t.Fatalf("sample %d = %f, want %f", i, v, want)
				}
			}
		})
	}
}

func TestNilGateIsOpen(t *testing.T) {
	var g *NoiseGate
	block := []float32{0.0001}
	if !g.Apply(block) || block[0] != 0.0001 {
		t.Error("nil gate must pass audio through")
	}
}

func TestGateApplyZeroAllocs(t *testing.T) {
	g := NewNoiseGate(0.01)
	block := make([]float32, 1024)
	allocs := testing.AllocsPerRun(100, func() {
		g.Apply(block)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in gate hot path, got %.1f", allocs)
	}
}
