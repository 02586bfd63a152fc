// SPDX-License-Identifier: MIT

// Package bars maps FFT output onto a fixed number of perceptually spaced,
// smoothed bars per channel.
//
// Each bar is assigned a slice of the spectrum on the mel scale. Bars which
// would not receive new bins are left to the interpolator, so only a subset
// of bars (the supporting points) is computed from the spectrum directly.
package bars

import (
	"fmt"

	applog "audiobars/internal/log"
)

var logger = applog.Named("bars")

// SpectrumSource provides the per-channel spectra the bars are computed
// from. *sample.Processor implements it.
type SpectrumSource interface {
	Channels() int
	SampleRate() int
	FFTSize() int
	// Spectrum returns FFTSize()/2+1 coefficients of channel ch.
	Spectrum(ch int) []complex128
}

// Processor computes the bars of every channel of a SpectrumSource.
type Processor struct {
	source   SpectrumSource
	config   Config
	channels []*channelCtx
	values   [][]float64 // values[channel][bar]
}

// New validates cfg and builds the per-channel state. It panics if the bars
// and padding exceed MaxTotalBars.
func New(source SpectrumSource, cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bars config: %w", err)
	}
	p := &Processor{source: source, config: cfg}
	p.rebuild()
	return p, nil
}

func (p *Processor) rebuild() {
	channels := max(p.source.Channels(), 1)
	rate, size := p.source.SampleRate(), p.source.FFTSize()

	p.channels = make([]*channelCtx, channels)
	for i := range p.channels {
		p.channels[i] = newChannelCtx(p.config, rate, size)
	}

	total := p.channels[0].totalAmountBars()
	p.values = make([][]float64, channels)
	for i := range p.values {
		p.values[i] = make([]float64, total)
	}

	logger.Infof("%d bar(s) per channel (%d configured), %d channel(s), %s interpolation",
		total, p.config.AmountBars, channels, p.config.Interpolation)
}

// ProcessBars reads the current spectra and returns the bars as
// values[channel][bar]. The returned slices are reused by the next call.
func (p *Processor) ProcessBars() [][]float64 {
	for i, ch := range p.channels {
		ch.updateSupportingPoints(p.source.Spectrum(i))
		ch.interpolate(p.values[i])
	}
	return p.values
}

// SetAmountBars rebuilds all channels for n bars. Smoothing state and gain
// start over.
// Counts whose padded total exceeds MaxTotalBars are rejected with
// ErrTooManyBars and leave the processor unchanged.
func (p *Processor) SetAmountBars(n uint16) error {
	if n == 0 {
		return ErrNoBars
	}
	cfg := p.config
	cfg.AmountBars = n
	if total := TotalAmountBars(cfg, p.source.SampleRate(), p.source.FFTSize()); total > MaxTotalBars {
		return fmt.Errorf("%w: %d bars need %d bars per channel, at most %d fit", ErrTooManyBars, n, total, MaxTotalBars)
	}
	p.config = cfg
	p.rebuild()
	return nil
}

// TotalAmountBars returns the bars per channel, padding included, that a
// valid cfg yields for a spectrum of fftSize samples at sampleRate. Unlike
// New it does not panic past MaxTotalBars.
func TotalAmountBars(cfg Config, sampleRate, fftSize int) int {
	amountBars := int(cfg.AmountBars)
	meta := newFftOutMetadata(amountBars, sampleRate, fftSize, cfg.FreqRange)
	meta.fillup(amountBars)
	meta.redistribute(cfg.Distribution)

	total := meta.coveredAmountBars()
	if cfg.Padding != nil {
		total += newPaddingCtx(*cfg.Padding, cfg.Distribution, meta.points).amountBars()
	}
	return total
}

func (p *Processor) Config() Config {
	return p.config
}

// TotalAmountBars is the number of bars per channel, padding included.
func (p *Processor) TotalAmountBars() int {
	return len(p.values[0])
}
