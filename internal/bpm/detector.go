// SPDX-License-Identifier: MIT

// Package bpm estimates the tempo of the input from the onset strength of
// the bass band.
//
// Every frame the positive change of the 20-200 Hz energy (spectral flux) is
// appended to a ring buffer. Every 15 seconds the autocorrelation of that
// history picks the most periodic lag, and the reported tempo is the median
// of the recent estimates.
package bpm

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	applog "audiobars/internal/log"

	"gonum.org/v1/gonum/floats"
)

var logger = applog.Named("bpm")

const (
	// DefaultBPM is reported until the first estimate is in.
	DefaultBPM = 120.0

	bassMinFrequency = 20.0
	bassMaxFrequency = 200.0

	updateIntervalSeconds = 15.0
)

var ErrInvalidConfig = errors.New("invalid bpm config")

type Config struct {
	// HistorySeconds is the length of the onset history.
	HistorySeconds float64
	MinBPM         float64
	MaxBPM         float64
	// EstimateHistorySize is the number of estimates the median is taken
	// over. At one estimate per 15 s, 60 estimates span 15 minutes.
	EstimateHistorySize int
	// FrameRate is how often Process is called per second. When zero it is
	// derived from the sample rate and the FFT size.
	FrameRate float64
}

func DefaultConfig() Config {
	return Config{
		HistorySeconds:      15,
		MinBPM:              60,
		MaxBPM:              200,
		EstimateHistorySize: 60,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.HistorySeconds > 0):
		return fmt.Errorf("%w: history must be positive, got %v s", ErrInvalidConfig, c.HistorySeconds)
	case !(c.MinBPM > 0) || !(c.MaxBPM > c.MinBPM):
		return fmt.Errorf("%w: want 0 < min < max, got %v..%v BPM", ErrInvalidConfig, c.MinBPM, c.MaxBPM)
	case c.EstimateHistorySize <= 0:
		return fmt.Errorf("%w: estimate history must be positive, got %d", ErrInvalidConfig, c.EstimateHistorySize)
	case c.FrameRate < 0:
		return fmt.Errorf("%w: negative frame rate %v", ErrInvalidConfig, c.FrameRate)
	}
	return nil
}

// Detector tracks the tempo of a single spectrum stream. It is not safe for
// concurrent use.
type Detector struct {
	config Config
	fps    float64

	bassStart, bassEnd int

	prevBassEnergy float64
	history        []float64 // onset ring buffer
	writeIdx       int
	linear         []float64 // history in chronological order

	estimates []float64
	sorted    []float64
	current   float64

	frameCount           int
	framesBetweenUpdates int
}

// New prepares a detector for spectra of an FFT of fftSize samples taken at
// sampleRate.
func New(sampleRate, fftSize int, cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, FFT size %d", ErrInvalidConfig, sampleRate, fftSize)
	}

	resolution := float64(sampleRate) / float64(fftSize)
	fps := cfg.FrameRate
	if fps == 0 {
		fps = resolution
	}
	historyLen := max(1, int(cfg.HistorySeconds*fps))

	d := &Detector{
		config:               cfg,
		fps:                  fps,
		bassStart:            int(math.Ceil(bassMinFrequency / resolution)),
		bassEnd:              int(math.Ceil(bassMaxFrequency / resolution)),
		history:              make([]float64, historyLen),
		linear:               make([]float64, historyLen),
		estimates:            make([]float64, 0, cfg.EstimateHistorySize),
		sorted:               make([]float64, 0, cfg.EstimateHistorySize),
		current:              DefaultBPM,
		framesBetweenUpdates: max(1, int(fps*updateIntervalSeconds)),
	}

	logger.Debugf("%.2f frames/s, bass bins [%d, %d), %d frames of history", fps, d.bassStart, d.bassEnd, historyLen)
	return d, nil
}

// Process adds one frame of spectrum and returns the current estimate.
func (d *Detector) Process(spectrum []complex128) float64 {
	end := min(d.bassEnd, len(spectrum))
	start := min(d.bassStart, end)
	if start >= end {
		return d.current
	}

	var energy float64
	for _, c := range spectrum[start:end] {
		energy += cmplx.Abs(c)
	}
	flux := max(0, energy-d.prevBassEnergy)
	d.prevBassEnergy = energy

	d.history[d.writeIdx] = flux
	d.writeIdx = (d.writeIdx + 1) % len(d.history)

	d.frameCount++
	if d.frameCount < d.framesBetweenUpdates {
		return d.current
	}
	d.frameCount = 0

	estimate, ok := d.estimate()
	if ok && estimate >= d.config.MinBPM && estimate <= d.config.MaxBPM {
		if len(d.estimates) == d.config.EstimateHistorySize {
			copy(d.estimates, d.estimates[1:])
			d.estimates = d.estimates[:len(d.estimates)-1]
		}
		d.estimates = append(d.estimates, estimate)
	}
	if len(d.estimates) > 0 {
		d.sorted = append(d.sorted[:0], d.estimates...)
		d.current = median(d.sorted)
	}
	if logger.Enabled(applog.LevelDebug) {
		logger.Debugf("estimate %.1f BPM, median %.1f over %d", estimate, d.current, len(d.estimates))
	}
	return d.current
}

// BPM returns the current estimate.
func (d *Detector) BPM() float64 {
	return d.current
}

// estimate returns the tempo of the most periodic lag within the BPM
// bounds. It reports false if no lag fits into the history or the history
// holds no onsets.
func (d *Detector) estimate() (float64, bool) {
	n := len(d.history)
	minLag := int(60 / d.config.MaxBPM * d.fps)
	maxLag := min(int(60/d.config.MinBPM*d.fps), n/2)
	if minLag >= maxLag {
		return 0, false
	}

	copy(d.linear, d.history[d.writeIdx:])
	copy(d.linear[n-d.writeIdx:], d.history[:d.writeIdx])

	bestLag := minLag
	bestCorrelation := 0.0
	for lag := minLag; lag < maxLag; lag++ {
		count := n - lag
		correlation := floats.Dot(d.linear[:count], d.linear[lag:]) / float64(count)
		if correlation > bestCorrelation {
			bestCorrelation = correlation
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorrelation == 0 {
		return 0, false
	}
	return 60 * d.fps / float64(bestLag), true
}

// median sorts values in place and returns their median. Even counts
// average the two middle values.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2
	}
	return values[mid]
}
