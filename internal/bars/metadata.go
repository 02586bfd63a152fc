// SPDX-License-Identifier: MIT
package bars

import (
	"fmt"
	"math"

	"audiobars/internal/interpolation"
)

// binRange is a half-open index range [start, end) into an FFT output.
type binRange struct {
	start, end int
}

func (r binRange) len() int { return r.end - r.start }

// fftOutMetadata pairs every supporting point with the FFT bins it averages.
type fftOutMetadata struct {
	points []interpolation.SupportingPoint
	ranges []binRange
}

func mel(f float64) float64 {
	return 2595 * math.Log10(1+f/700)
}

func invMel(m float64) float64 {
	return 700 * (math.Pow(10, m/2595) - 1)
}

// melWeight maps x in [0, 1] linearly onto the mel scale of human hearing
// and returns the frequency in Hz.
func melWeight(x float64) float64 {
	lo, hi := mel(MinHumanFrequency), mel(MaxHumanFrequency)
	return invMel(lo + x*(hi-lo))
}

// newFftOutMetadata assigns bins of the configured frequency window to
// bars. Bars that would receive no new bins are skipped, so the result
// usually has fewer points than amountBars.
func newFftOutMetadata(amountBars, sampleRate, fftSize int, freq FreqRange) fftOutMetadata {
	resolution := float64(sampleRate) / float64(fftSize)

	first := min(max(1, int(math.Ceil(float64(freq.Min)/resolution))), fftSize/2)
	last := min(int(math.Ceil(float64(freq.Max)/resolution)), fftSize/2+1)
	available := max(1, last-first)

	logger.Debugf("resolution %.2f Hz, bins [%d, %d), %d available", resolution, first, last, available)

	m := fftOutMetadata{
		points: make([]interpolation.SupportingPoint, 0, min(amountBars, available)+1),
		ranges: make([]binRange, 0, min(amountBars, available)+1),
	}

	var prev binRange
	for i := range amountBars {
		weight := melWeight(float64(i+1) / float64(amountBars+1))
		target := int(math.Ceil(weight / MaxHumanFrequency * float64(available)))

		next := binRange{start: prev.end, end: target}
		if next.len() > 0 && next != prev {
			m.points = append(m.points, interpolation.SupportingPoint{X: i})
			m.ranges = append(m.ranges, binRange{start: first + next.start, end: first + next.end})
		}
		// end never decreases, so an empty range leaves prev.end untouched.
		prev = next
	}

	// melWeight never drops below 20 Hz, so bar 0 always gets a bin.
	if len(m.points) == 0 || m.points[0].X != 0 {
		panic(fmt.Sprintf("bars: first supporting point is not the first bar (%d bars, %d bins)", amountBars, available))
	}
	return m
}

// fillup appends a final point at amountBars-1 when the mel mapping ran out
// of bins early. It averages the same bins as the point before it.
func (m *fftOutMetadata) fillup(amountBars int) {
	last := m.points[len(m.points)-1]
	if last.X+1 < amountBars {
		m.points = append(m.points, interpolation.SupportingPoint{X: amountBars - 1})
		m.ranges = append(m.ranges, m.ranges[len(m.ranges)-1])
	}
	if got := m.points[len(m.points)-1].X; got != amountBars-1 {
		panic(fmt.Sprintf("bars: supporting points end at bar %d, want %d", got, amountBars-1))
	}
}

// redistribute moves the points according to d. The last point stays on
// the last bar and every bin range stays with its point.
func (m *fftOutMetadata) redistribute(d Distribution) {
	if d != Uniform {
		return
	}
	n := len(m.points)
	step := float64(m.coveredAmountBars()) / float64(n)
	for i := range n - 1 {
		m.points[i].X = int(float64(i) * step)
	}
}

func (m *fftOutMetadata) coveredAmountBars() int {
	return m.points[len(m.points)-1].X + 1 - m.points[0].X
}
