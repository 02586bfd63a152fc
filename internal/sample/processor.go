// SPDX-License-Identifier: MIT

// Package sample turns the contents of a fetcher's SampleBuffer into one
// real FFT per channel.
package sample

import (
	"math/cmplx"

	"audiobars/internal/fetcher"
	applog "audiobars/internal/log"
	"audiobars/pkg/signal"

	"gonum.org/v1/gonum/dsp/fourier"
)

var logger = applog.Named("sample")

// fftContext holds the pre-allocated buffers of one channel.
type fftContext struct {
	input  []float64    // windowed samples, zero padded to the FFT size
	output []complex128 // FFT size/2 + 1 coefficients
}

// Processor de-interleaves the sample buffer, applies the window and runs
// the FFT for every channel. A Processor is not safe for concurrent use; the
// sample buffer lock is the only synchronization with the producer.
type Processor struct {
	buffer   *fetcher.SampleBuffer
	channels int
	fftSize  int

	fft      *fourier.FFT
	window   []float64
	contexts []fftContext
	mags     []float64 // scratch for PeakFrequency

	deinterleave func(samples []float32)
}

// New sizes the FFT to the sample buffer capacity of f.
func New(f fetcher.Fetcher, w WindowFunc) *Processor {
	buffer := f.SampleBuffer()
	fftSize := buffer.Capacity()
	channels := max(f.Channels(), 1)

	p := &Processor{
		buffer:   buffer,
		channels: channels,
		fftSize:  fftSize,
		fft:      fourier.NewFFT(fftSize),
		window:   windowCoefficients(fftSize, w),
		contexts: make([]fftContext, channels),
		mags:     make([]float64, fftSize/2+1),
	}
	for i := range p.contexts {
		p.contexts[i] = fftContext{
			input:  make([]float64, fftSize),
			output: make([]complex128, fftSize/2+1),
		}
	}
	// Bound once so ProcessNextSamples does not allocate a closure per call.
	p.deinterleave = p.fill

	logger.Infof("FFT size %d, %d channel(s), %d Hz, %s window", fftSize, channels, buffer.SampleRate(), w)
	return p
}

// ProcessNextSamples snapshots the sample buffer and refreshes every
// channel's spectrum. It blocks while a producer holds the buffer lock.
func (p *Processor) ProcessNextSamples() {
	p.buffer.Read(p.deinterleave)

	for i := range p.contexts {
		ctx := &p.contexts[i]
		p.fft.Coefficients(ctx.output, ctx.input)
	}
}

// fill runs under the buffer lock. Each channel receives Capacity/channels
// frames; the tail of its input stays zero.
func (p *Processor) fill(samples []float32) {
	frames := len(samples) / p.channels
	for f := range frames {
		base := f * p.channels
		w := p.window[f]
		for c := range p.contexts {
			p.contexts[c].input[f] = float64(samples[base+c]) * w
		}
	}
}

// Spectrum returns the latest FFT output of channel ch. The slice is reused
// by the next ProcessNextSamples call.
func (p *Processor) Spectrum(ch int) []complex128 {
	return p.contexts[ch].output
}

func (p *Processor) Channels() int   { return p.channels }
func (p *Processor) FFTSize() int    { return p.fftSize }
func (p *Processor) SampleRate() int { return p.buffer.SampleRate() }

// PeakFrequency returns the frequency of the strongest non-DC bin of
// channel ch, or 0 for a silent spectrum.
func (p *Processor) PeakFrequency(ch int) float64 {
	silent := true
	for i, c := range p.contexts[ch].output {
		p.mags[i] = cmplx.Abs(c)
		if i > 0 && p.mags[i] > 0 {
			silent = false
		}
	}
	if silent {
		return 0
	}
	return p.FrequencyForBin(signal.PeakBin(p.mags, 1, len(p.mags)-1))
}

// FrequencyForBin returns the center frequency of bin i in Hz, or 0 when i
// is out of range.
func (p *Processor) FrequencyForBin(i int) float64 {
	if i < 0 || i >= p.fftSize/2+1 {
		return 0
	}
	return float64(i) * float64(p.SampleRate()) / float64(p.fftSize)
}
