// SPDX-License-Identifier: MIT
package bars

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"audiobars/internal/interpolation"
)

// Bounds of human hearing in Hz. The mel mapping spans exactly this range.
const (
	MinHumanFrequency = 20
	MaxHumanFrequency = 20000
)

var (
	ErrNoBars           = errors.New("amount of bars must be positive")
	ErrInvalidFreqRange = errors.New("invalid frequency range")
	ErrSensitivity      = errors.New("sensitivity must be a positive number")
	ErrTooManyBars      = errors.New("too many bars")
)

// FreqRange is the half-open frequency window [Min, Max) in Hz the bars
// are spread over.
type FreqRange struct {
	Min uint16
	Max uint16
}

// Distribution decides where the supporting points sit within the bars.
type Distribution int

const (
	// Uniform spreads the supporting points evenly over all bars.
	Uniform Distribution = iota
	// Natural keeps the mel spacing, packing points towards the bass.
	Natural
)

func (d Distribution) String() string {
	switch d {
	case Uniform:
		return "uniform"
	case Natural:
		return "natural"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

func ParseDistribution(name string) (Distribution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "uniform":
		return Uniform, nil
	case "natural":
		return Natural, nil
	default:
		return Uniform, fmt.Errorf("unknown bar distribution: '%s'", name)
	}
}

type PaddingSide int

const (
	PaddingLeft PaddingSide = iota
	PaddingRight
	PaddingBoth
)

func (s PaddingSide) String() string {
	switch s {
	case PaddingLeft:
		return "left"
	case PaddingRight:
		return "right"
	case PaddingBoth:
		return "both"
	default:
		return fmt.Sprintf("PaddingSide(%d)", int(s))
	}
}

func ParsePaddingSide(name string) (PaddingSide, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return PaddingLeft, nil
	case "right":
		return PaddingRight, nil
	case "", "both":
		return PaddingBoth, nil
	default:
		return PaddingBoth, fmt.Errorf("unknown padding side: '%s'", name)
	}
}

// AutoPadding derives the padding size from the supporting point layout.
const AutoPadding uint16 = 0

// PaddingConfig adds Size extra bars on Side. A Size of AutoPadding picks
// the size automatically.
type PaddingConfig struct {
	Side PaddingSide
	Size uint16
}

// Config describes how a spectrum is turned into bars.
type Config struct {
	AmountBars    uint16
	FreqRange     FreqRange
	Sensitivity   float64
	Interpolation interpolation.Variant
	Distribution  Distribution
	Padding       *PaddingConfig // nil disables padding
}

// DefaultConfig returns 30 uniformly distributed, spline interpolated bars
// over 50 Hz to 10 kHz.
func DefaultConfig() Config {
	return Config{
		AmountBars:    30,
		FreqRange:     FreqRange{Min: 50, Max: 10000},
		Sensitivity:   0.2,
		Interpolation: interpolation.CubicSpline,
		Distribution:  Uniform,
	}
}

func (c Config) Validate() error {
	if c.AmountBars == 0 {
		return ErrNoBars
	}
	r := c.FreqRange
	if r.Min < MinHumanFrequency || r.Max > MaxHumanFrequency || r.Min >= r.Max {
		return fmt.Errorf("%w: %d..%d Hz, want %d <= min < max <= %d",
			ErrInvalidFreqRange, r.Min, r.Max, MinHumanFrequency, MaxHumanFrequency)
	}
	if math.IsNaN(c.Sensitivity) || math.IsInf(c.Sensitivity, 0) || c.Sensitivity <= 0 {
		return fmt.Errorf("%w: %v", ErrSensitivity, c.Sensitivity)
	}
	return nil
}
