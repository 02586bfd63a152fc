// SPDX-License-Identifier: MIT

// Package signal generates deterministic test material: tones, harmonic
// mixes and kick-drum pulses in the interleaved float32 layout used by
// the sample buffer.
package signal

import "math"

// Oscillator produces a continuous sine across successive calls.
type Oscillator struct {
	Frequency  float64
	Amplitude  float64
	SampleRate float64

	phase float64
}

// Next returns the next sample and advances the phase.
func (o *Oscillator) Next() float64 {
	v := o.Amplitude * math.Sin(o.phase)
	o.phase += 2 * math.Pi * o.Frequency / o.SampleRate
	if o.phase >= 2*math.Pi {
		o.phase -= 2 * math.Pi
	}
	return v
}

// Kick is an exponentially decaying low sine retriggered every beat.
type Kick struct {
	BPM        float64
	Frequency  float64
	Decay      float64 // seconds until the envelope reaches 1/e
	Amplitude  float64
	SampleRate float64

	pos int
}

// Next returns the next kick sample.
func (k *Kick) Next() float64 {
	period := int(k.SampleRate * 60 / k.BPM)
	if period <= 0 {
		return 0
	}
	t := float64(k.pos%period) / k.SampleRate
	k.pos++
	return k.Amplitude * math.Exp(-t/k.Decay) * math.Sin(2*math.Pi*k.Frequency*t)
}

// SineWave fills a mono buffer with a sine at frequency Hz.
func SineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// ComplexWave is a 440 Hz fundamental plus two harmonics.
func ComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		v := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(v * 0.9)
	}
	return buffer
}

// Interleave repeats each mono sample across channels.
func Interleave(mono []float32, channels int) []float32 {
	out := make([]float32, len(mono)*channels)
	for i, v := range mono {
		for c := range channels {
			out[i*channels+c] = v
		}
	}
	return out
}

// PeakBin returns the index of the largest value in mags[start:end+1],
// clamping the bounds to the slice.
func PeakBin(mags []float64, start, end int) int {
	if len(mags) == 0 {
		return 0
	}
	start = max(start, 0)
	end = min(end, len(mags)-1)

	peak := start
	for bin := start + 1; bin <= end; bin++ {
		if mags[bin] > mags[peak] {
			peak = bin
		}
	}
	return peak
}
