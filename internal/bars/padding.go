// SPDX-License-Identifier: MIT
package bars

import "audiobars/internal/interpolation"

// defaultPaddingSize is used when the automatic size cannot be derived from
// the supporting points.
const defaultPaddingSize = 5

// paddingCtx reserves extra bars next to the interpolated ones and fills
// them with a faded mirror image of the visible edge.
type paddingCtx struct {
	size int
	side PaddingSide
}

func newPaddingCtx(cfg PaddingConfig, dist Distribution, points []interpolation.SupportingPoint) paddingCtx {
	size := int(cfg.Size)
	if cfg.Size == AutoPadding {
		size = defaultPaddingSize
		if dist == Uniform && len(points) > 1 {
			size = (points[1].X - points[0].X) * 4
		}
	}
	return paddingCtx{size: size, side: cfg.Side}
}

func (p paddingCtx) left() int {
	if p.side == PaddingLeft || p.side == PaddingBoth {
		return p.size
	}
	return 0
}

func (p paddingCtx) right() int {
	if p.side == PaddingRight || p.side == PaddingBoth {
		return p.size
	}
	return 0
}

func (p paddingCtx) amountBars() int {
	return p.left() + p.right()
}

// adjust moves every point behind the left padding.
func (p paddingCtx) adjust(points []interpolation.SupportingPoint) {
	shift := p.left()
	for i := range points {
		points[i].X += shift
	}
}

// apply fills the padded cells of out. [start, end) is the interpolated
// range; cell k away from the edge copies the visible bar k away on the
// other side, scaled down linearly towards the outer border.
func (p paddingCtx) apply(out []float64, start, end int) {
	visible := end - start
	if visible <= 0 {
		return
	}
	outer := float64(p.size + 1)

	for k := range p.left() {
		src := out[start+min(k, visible-1)]
		out[start-1-k] = src * (1 - float64(k+1)/outer)
	}
	for k := range p.right() {
		src := out[end-1-min(k, visible-1)]
		out[end+k] = src * (1 - float64(k+1)/outer)
	}
}
