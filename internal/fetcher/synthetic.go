// SPDX-License-Identifier: MIT
package fetcher

import (
	"audiobars/pkg/signal"
)

// SyntheticConfig describes the generated signal.
type SyntheticConfig struct {
	SampleRate int
	Channels   int
	FrameRate  float64   // pulls per second
	BPM        float64   // kick tempo; 0 disables the kick
	Tones      []float64 // sine frequencies in Hz
	Gate       *NoiseGate
}

// Synthetic generates a deterministic mix of sines and a kick drum. It is
// useful for demos and as a known input in tests.
type Synthetic struct {
	buffer   *SampleBuffer
	channels int
	gate     *NoiseGate

	tones   []signal.Oscillator
	kick    *signal.Kick
	scratch []float32
}

var _ Fetcher = (*Synthetic)(nil)
var _ Puller = (*Synthetic)(nil)

func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.Channels <= 0 {
		return nil, ErrInvalidChannels
	}

	s := &Synthetic{
		buffer:   NewSampleBuffer(cfg.SampleRate),
		channels: cfg.Channels,
		gate:     cfg.Gate,
		scratch:  make([]float32, framesPerPull(cfg.SampleRate, cfg.FrameRate)*cfg.Channels),
	}

	// Keep the sum of all voices inside [-1, 1].
	voices := len(cfg.Tones)
	if cfg.BPM > 0 {
		voices++
	}
	amp := 0.9 / float64(max(voices, 1))

	for _, f := range cfg.Tones {
		s.tones = append(s.tones, signal.Oscillator{Frequency: f, Amplitude: amp, SampleRate: float64(cfg.SampleRate)})
	}
	if cfg.BPM > 0 {
		s.kick = &signal.Kick{
			BPM:        cfg.BPM,
			Frequency:  60,
			Decay:      0.08,
			Amplitude:  amp,
			SampleRate: float64(cfg.SampleRate),
		}
	}
	return s, nil
}

// Pull generates one frame interval of audio and pushes it.
func (s *Synthetic) Pull() error {
	s.Generate(s.scratch)
	s.gate.Apply(s.scratch)
	s.buffer.PushBefore(s.scratch)
	return nil
}

// Generate fills dst (interleaved) with the next samples.
func (s *Synthetic) Generate(dst []float32) {
	for i := 0; i+s.channels <= len(dst); i += s.channels {
		var v float64
		for t := range s.tones {
			v += s.tones[t].Next()
		}
		if s.kick != nil {
			v += s.kick.Next()
		}
		for c := range s.channels {
			dst[i+c] = float32(v)
		}
	}
}

func (s *Synthetic) SampleBuffer() *SampleBuffer { return s.buffer }
func (s *Synthetic) Channels() int               { return s.channels }
