// SPDX-License-Identifier: MIT
package interpolation

// cubicSpline is a natural cubic spline (zero curvature at both ends).
// The second derivatives are solved every frame with the Thomas algorithm.
type cubicSpline struct {
	points []SupportingPoint

	// Scratch, one slot per point.
	h      []float64 // segment widths
	cPrime []float64
	dPrime []float64
	m      []float64 // second derivatives
}

func newCubicSpline(points []SupportingPoint) *cubicSpline {
	n := len(points)
	cs := &cubicSpline{
		points: points,
		h:      make([]float64, n),
		cPrime: make([]float64, n),
		dPrime: make([]float64, n),
		m:      make([]float64, n),
	}
	for i := 0; i+1 < n; i++ {
		cs.h[i] = float64(points[i+1].X - points[i].X)
	}
	return cs
}

func (cs *cubicSpline) SupportingPoints() []SupportingPoint { return cs.points }
func (cs *cubicSpline) CoveredBarRange() (int, int)         { return coveredRange(cs.points) }

func (cs *cubicSpline) solve() {
	n := len(cs.points)
	p, h, m := cs.points, cs.h, cs.m

	m[0], m[n-1] = 0, 0
	if n < 3 {
		return
	}

	// Interior rows i = 1..n-2:
	//   h[i-1] m[i-1] + 2(h[i-1]+h[i]) m[i] + h[i] m[i+1] = rhs[i]
	cs.cPrime[0], cs.dPrime[0] = 0, 0
	for i := 1; i < n-1; i++ {
		a, c := h[i-1], h[i]
		b := 2 * (a + c)
		rhs := 6 * ((p[i+1].Y-p[i].Y)/c - (p[i].Y-p[i-1].Y)/a)

		denom := b - a*cs.cPrime[i-1]
		cs.cPrime[i] = c / denom
		cs.dPrime[i] = (rhs - a*cs.dPrime[i-1]) / denom
	}
	for i := n - 2; i >= 1; i-- {
		m[i] = cs.dPrime[i] - cs.cPrime[i]*m[i+1]
	}
}

func (cs *cubicSpline) Interpolate(out []float64) {
	n := len(cs.points)
	if n == 0 {
		return
	}
	cs.solve()

	p, h, m := cs.points, cs.h, cs.m
	for i := 0; i+1 < n; i++ {
		x0, x1 := p[i].X, p[i+1].X
		hi := h[i]
		for x := x0; x < x1; x++ {
			a := float64(x1 - x) // distance to the right knot
			b := float64(x - x0) // distance to the left knot
			out[x] = (m[i]*a*a*a+m[i+1]*b*b*b)/(6*hi) +
				(p[i].Y/hi-m[i]*hi/6)*a +
				(p[i+1].Y/hi-m[i+1]*hi/6)*b
		}
	}
	out[p[n-1].X] = p[n-1].Y
}
