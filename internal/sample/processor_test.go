// SPDX-License-Identifier: MIT
package sample

import (
	"math"
	"math/cmplx"
	"testing"

	"audiobars/internal/fetcher"
	"audiobars/pkg/signal"
)

const testSampleRate = 44_100

type bufferFetcher struct {
	buffer   *fetcher.SampleBuffer
	channels int
}

func (f *bufferFetcher) SampleBuffer() *fetcher.SampleBuffer { return f.buffer }
func (f *bufferFetcher) Channels() int                       { return f.channels }

func newTestFetcher(channels int) *bufferFetcher {
	return &bufferFetcher{buffer: fetcher.NewSampleBuffer(testSampleRate), channels: channels}
}

func magnitudes(spectrum []complex128) []float64 {
	mags := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

func TestProcessorSizes(t *testing.T) {
	p := New(newTestFetcher(2), Hann)
	if p.FFTSize() != 1024 {
		t.Errorf("FFTSize() = %d, want 1024", p.FFTSize())
	}
	if p.Channels() != 2 || p.SampleRate() != testSampleRate {
		t.Errorf("Channels/SampleRate = %d/%d", p.Channels(), p.SampleRate())
	}
	if n := len(p.Spectrum(1)); n != 513 {
		t.Errorf("len(Spectrum) = %d, want 513", n)
	}
}

func TestProcessorFindsTonePerChannel(t *testing.T) {
	f := newTestFetcher(2)
	p := New(f, Hann)

	frames := f.buffer.Capacity() / 2
	left := signal.SineWave(frames, testSampleRate, 1000)
	right := signal.SineWave(frames, testSampleRate, 5000)
	stereo := make([]float32, 2*frames)
	for i := range frames {
		stereo[2*i] = left[i]
		stereo[2*i+1] = right[i]
	}
	f.buffer.PushBefore(stereo)
	p.ProcessNextSamples()

	tests := []struct {
		ch   int
		freq float64
	}{
		{0, 1000},
		{1, 5000},
	}
	for _, tt := range tests {
		peak := signal.PeakBin(magnitudes(p.Spectrum(tt.ch)), 1, p.FFTSize()/2)
		if got := p.FrequencyForBin(peak); math.Abs(got-tt.freq) > 2*float64(testSampleRate)/float64(p.FFTSize()) {
			t.Errorf("channel %d peak at %.1f Hz, want about %.0f Hz", tt.ch, got, tt.freq)
		}
		if got, want := p.PeakFrequency(tt.ch), p.FrequencyForBin(peak); got != want {
			t.Errorf("PeakFrequency(%d) = %.1f Hz, want %.1f Hz", tt.ch, got, want)
		}
	}
}

func TestProcessorSilenceIsZero(t *testing.T) {
	p := New(newTestFetcher(1), Hann)
	p.ProcessNextSamples()
	for i, c := range p.Spectrum(0) {
		if c != 0 {
			t.Fatalf("bin %d = %v, want 0 for silent input", i, c)
		}
	}
	if got := p.PeakFrequency(0); got != 0 {
		t.Errorf("PeakFrequency(0) = %v, want 0 for silent input", got)
	}
}

func TestFrequencyForBin(t *testing.T) {
	p := New(newTestFetcher(1), Hann)
	res := float64(testSampleRate) / 1024
	tests := []struct {
		bin  int
		want float64
	}{
		{-1, 0},
		{0, 0},
		{10, 10 * res},
		{512, float64(testSampleRate) / 2},
		{513, 0},
	}
	for _, tt := range tests {
		if got := p.FrequencyForBin(tt.bin); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FrequencyForBin(%d) = %f, want %f", tt.bin, got, tt.want)
		}
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"Hann", Hann, false},
		{"hanning", Hann, false},
		{"", Hann, false},
		{"blackmanNuttall", BlackmanNuttall, false},
		{"HAMMING", Hamming, false},
		{"triangle", Hann, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.name)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.name, got, err)
		}
	}
}

func TestHannWindowIsSymmetric(t *testing.T) {
	w := windowCoefficients(1024, Hann)
	if w[0] > 1e-12 || w[1023] > 1e-12 {
		t.Errorf("Hann edges = %g, %g; want 0", w[0], w[1023])
	}
	for i := range 512 {
		if math.Abs(w[i]-w[1023-i]) > 1e-12 {
			t.Fatalf("window not symmetric at %d", i)
		}
	}
}

func TestProcessNextSamplesZeroAllocs(t *testing.T) {
	f := newTestFetcher(2)
	f.buffer.PushBefore(signal.Interleave(signal.ComplexWave(512, testSampleRate), 2))
	p := New(f, Hann)

	p.ProcessNextSamples()
	allocs := testing.AllocsPerRun(100, func() {
		p.ProcessNextSamples()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ProcessNextSamples, got %.1f", allocs)
	}
}

func BenchmarkProcessNextSamples(b *testing.B) {
	f := newTestFetcher(2)
	f.buffer.PushBefore(signal.Interleave(signal.ComplexWave(512, testSampleRate), 2))
	p := New(f, Hann)

	b.ReportAllocs()
	for b.Loop() {
		p.ProcessNextSamples()
	}
}
