package locate

import (
	"image"
	"math"
)

// toGray converts any image to 8-bit grayscale. Matching runs on luminance
// only; color carries little signal for UI chrome and triples the work.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			// Rec. 601 luma.
			lum := (299*r + 587*gr + 114*bl) / 1000
			g.Pix[y*g.Stride+x] = uint8(lum >> 8)
		}
	}
	return g
}

// matchTemplate slides tpl over src and returns the best normalized
// cross-correlation score with the center of the best window. Scores are in
// [0,1] where 1 is a pixel-perfect match.
//
// The scan is coarse-to-fine: a strided pass finds the neighborhood, a
// dense pass refines it. This keeps full-screen searches tractable without
// changing which window wins in practice.
func matchTemplate(src, tpl *image.Gray) (score float64, cx, cy int) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	tw, th := tpl.Bounds().Dx(), tpl.Bounds().Dy()
	if tw == 0 || th == 0 || tw > sw || th > sh {
		return 0, 0, 0
	}

	tplMean, tplDev := meanStddev(tpl.Pix, tw, th, tpl.Stride)
	if tplDev < 1e-6 {
		// A flat reference matches everything equally; reject it.
		return 0, 0, 0
	}

	const coarseStep = 4
	bestScore, bestX, bestY := -1.0, 0, 0
	for y := 0; y+th <= sh; y += coarseStep {
		for x := 0; x+tw <= sw; x += coarseStep {
			s := nccAt(src, tpl, x, y, tplMean, tplDev)
			if s > bestScore {
				bestScore, bestX, bestY = s, x, y
			}
		}
	}

	// Dense refinement around the coarse winner.
	x0, y0 := bestX-coarseStep, bestY-coarseStep
	x1, y1 := bestX+coarseStep, bestY+coarseStep
	for y := max(0, y0); y <= min(sh-th, y1); y++ {
		for x := max(0, x0); x <= min(sw-tw, x1); x++ {
			s := nccAt(src, tpl, x, y, tplMean, tplDev)
			if s > bestScore {
				bestScore, bestX, bestY = s, x, y
			}
		}
	}

	return bestScore, bestX + tw/2, bestY + th/2
}

// nccAt computes normalized cross-correlation of tpl against the window at
// (ox,oy) in src.
func nccAt(src, tpl *image.Gray, ox, oy int, tplMean, tplDev float64) float64 {
	tw, th := tpl.Bounds().Dx(), tpl.Bounds().Dy()
	n := float64(tw * th)

	var sum, sumSq, cross float64
	for y := 0; y < th; y++ {
		srow := src.Pix[(oy+y)*src.Stride+ox:]
		trow := tpl.Pix[y*tpl.Stride:]
		for x := 0; x < tw; x++ {
			sv := float64(srow[x])
			tv := float64(trow[x])
			sum += sv
			sumSq += sv * sv
			cross += sv * tv
		}
	}

	srcMean := sum / n
	srcVar := sumSq/n - srcMean*srcMean
	if srcVar < 1e-6 {
		return 0
	}
	srcDev := math.Sqrt(srcVar)

	// E[s*t] - E[s]E[t] over dev product.
	cov := cross/n - srcMean*tplMean
	score := cov / (srcDev * tplDev)
	if score < 0 {
		return 0
	}
	return score
}

func meanStddev(pix []uint8, w, h, stride int) (mean, dev float64) {
	n := float64(w * h)
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			v := float64(row[x])
			sum += v
			sumSq += v * v
		}
	}
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
