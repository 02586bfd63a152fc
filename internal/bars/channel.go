// SPDX-License-Identifier: MIT
package bars

import (
	"fmt"
	"math"
	"math/cmplx"

	"audiobars/internal/interpolation"
)

const (
	initNormalizeFactor = 1.0

	// Automatic gain: shrink fast on clipping, recover slowly otherwise.
	agcShrink = 0.98
	agcGrow   = 1.002

	fallStep    = 0.028
	memoryDecay = 0.77
	bassDamping = 0.05

	// MaxTotalBars is the per-channel budget including padding.
	MaxTotalBars = math.MaxUint16
)

// channelCtx turns one channel's spectrum into bar heights.
type channelCtx struct {
	interpolator interpolation.Interpolator
	ranges       []binRange
	padding      *paddingCtx

	// Covered bar range of the interpolator, after the padding shift.
	rangeStart, rangeEnd int

	normalizeFactor float64
	sensitivity     float64

	// Per supporting point state.
	prev []float64 // raw value of the previous frame
	peak []float64 // height the current fall started from
	fall []float64 // how long the point has been falling
	mem  []float64 // smoothed value of the previous frame
}

func newChannelCtx(cfg Config, sampleRate, fftSize int) *channelCtx {
	amountBars := int(cfg.AmountBars)

	meta := newFftOutMetadata(amountBars, sampleRate, fftSize, cfg.FreqRange)
	meta.fillup(amountBars)
	meta.redistribute(cfg.Distribution)

	var padding *paddingCtx
	if cfg.Padding != nil {
		p := newPaddingCtx(*cfg.Padding, cfg.Distribution, meta.points)
		p.adjust(meta.points)
		padding = &p
	}

	ip := interpolation.New(cfg.Interpolation, meta.points)
	start, end := ip.CoveredBarRange()
	n := len(meta.points)

	ctx := &channelCtx{
		interpolator:    ip,
		ranges:          meta.ranges,
		padding:         padding,
		rangeStart:      start,
		rangeEnd:        end,
		normalizeFactor: initNormalizeFactor,
		sensitivity:     cfg.Sensitivity,
		prev:            make([]float64, n),
		peak:            make([]float64, n),
		fall:            make([]float64, n),
		mem:             make([]float64, n),
	}

	if total := ctx.totalAmountBars(); total > MaxTotalBars {
		paddingBars := 0
		if padding != nil {
			paddingBars = padding.amountBars()
		}
		panic(fmt.Sprintf("bars: %d bars plus %d padding bars exceed the limit of %d bars (total: %d)",
			cfg.AmountBars, paddingBars, MaxTotalBars, total))
	}

	logger.Debugf("%d supporting points for %d bars, covered range [%d, %d)", n, amountBars, start, end)
	return ctx
}

// updateSupportingPoints computes the next height of every supporting point
// from spectrum and adjusts the gain.
func (c *channelCtx) updateSupportingPoints(spectrum []complex128) {
	overshoot := false
	silent := true

	covered := float64(c.rangeEnd - c.rangeStart)
	points := c.interpolator.SupportingPoints()

	for i := range points {
		r := c.ranges[i]
		point := &points[i]

		var sum float64
		for _, bin := range spectrum[r.start:r.end] {
			mag := cmplx.Abs(bin)
			if mag > 0 {
				silent = false
			}
			sum += mag
		}
		raw := sum / float64(r.len())

		// Dampen the bass, boost the treble.
		normX := float64(point.X-c.rangeStart) / covered
		correction := normX*normX + bassDamping

		next := raw * c.normalizeFactor * correction
		assertNotNaN(point.Y, "previous supporting point height")
		assertNotNaN(next, "next supporting point height")

		if next < c.prev[i] {
			next = max(0, c.peak[i]*(1-c.fall[i]*c.fall[i]*c.sensitivity))
			c.fall[i] += fallStep
		} else {
			c.peak[i] = next
			c.fall[i] = 0
		}
		c.prev[i] = next

		point.Y = c.mem[i]*memoryDecay + next
		c.mem[i] = point.Y

		if point.Y > 1 {
			overshoot = true
		}
	}

	if overshoot {
		c.normalizeFactor *= agcShrink
	} else if !silent {
		c.normalizeFactor *= agcGrow
	}
}

// interpolate writes all bars of the channel, padding included, into out.
func (c *channelCtx) interpolate(out []float64) {
	c.interpolator.Interpolate(out)
	if c.padding != nil {
		c.padding.apply(out, c.rangeStart, c.rangeEnd)
	}
}

func (c *channelCtx) totalAmountBars() int {
	total := c.rangeEnd - c.rangeStart
	if c.padding != nil {
		total += c.padding.amountBars()
	}
	return total
}
