// SPDX-License-Identifier: MIT

// Package interpolation fills a run of visual bars from a sparse set of
// supporting points. All variants pre-allocate at construction and never
// allocate in Interpolate.
package interpolation

import (
	"fmt"
	"strings"
)

// SupportingPoint is a bar whose height is computed directly from the
// spectrum. X is the bar index, Y its current height.
type SupportingPoint struct {
	X int
	Y float64
}

// Interpolator owns a strictly ascending set of supporting points and
// derives every bar between the first and the last one.
type Interpolator interface {
	// SupportingPoints returns the points for in-place Y updates. X values
	// must not be reordered.
	SupportingPoints() []SupportingPoint

	// CoveredBarRange is the half-open bar range [start, end) spanned by
	// the points.
	CoveredBarRange() (start, end int)

	// Interpolate writes out[start:end] for the covered range.
	Interpolate(out []float64)
}

// Variant selects an interpolator.
type Variant int

const (
	Nothing Variant = iota
	Linear
	CubicSpline
)

func (v Variant) String() string {
	switch v {
	case Nothing:
		return "none"
	case Linear:
		return "linear"
	case CubicSpline:
		return "cubic"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant accepts "none", "linear" and "cubic" (case-insensitive).
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "nothing", "step":
		return Nothing, nil
	case "linear":
		return Linear, nil
	case "cubic", "cubicspline", "cubic_spline", "spline":
		return CubicSpline, nil
	default:
		return CubicSpline, fmt.Errorf("unknown interpolation: '%s'", name)
	}
}

// New builds the interpolator for v. It takes ownership of points.
func New(v Variant, points []SupportingPoint) Interpolator {
	switch v {
	case Nothing:
		return &nothing{points: points}
	case Linear:
		return &linear{points: points}
	default:
		return newCubicSpline(points)
	}
}

func coveredRange(points []SupportingPoint) (int, int) {
	if len(points) == 0 {
		return 0, 0
	}
	return points[0].X, points[len(points)-1].X + 1
}

// nothing assigns every bar the height of its nearest supporting point,
// ties going to the left one.
type nothing struct {
	points []SupportingPoint
}

func (n *nothing) SupportingPoints() []SupportingPoint { return n.points }
func (n *nothing) CoveredBarRange() (int, int)         { return coveredRange(n.points) }

func (n *nothing) Interpolate(out []float64) {
	if len(n.points) == 0 {
		return
	}
	for i := 0; i+1 < len(n.points); i++ {
		left, right := n.points[i], n.points[i+1]
		for x := left.X; x < right.X; x++ {
			if x-left.X <= right.X-x {
				out[x] = left.Y
			} else {
				out[x] = right.Y
			}
		}
	}
	last := n.points[len(n.points)-1]
	out[last.X] = last.Y
}

type linear struct {
	points []SupportingPoint
}

func (l *linear) SupportingPoints() []SupportingPoint { return l.points }
func (l *linear) CoveredBarRange() (int, int)         { return coveredRange(l.points) }

func (l *linear) Interpolate(out []float64) {
	if len(l.points) == 0 {
		return
	}
	for i := 0; i+1 < len(l.points); i++ {
		left, right := l.points[i], l.points[i+1]
		slope := (right.Y - left.Y) / float64(right.X-left.X)
		for x := left.X; x < right.X; x++ {
			out[x] = left.Y + slope*float64(x-left.X)
		}
	}
	last := l.points[len(l.points)-1]
	out[last.X] = last.Y
}
