package locate

import (
	"image"
	"math/bits"
	"sort"
)

// Feature matching handles references that template matching misses, mostly
// elements rendered with different antialiasing or minor theme differences.
// Corners are detected with a gradient response, described with binary
// intensity comparisons and matched under a translation consensus.

type corner struct {
	x, y     int
	response float64
}

type descriptor [16]byte // 128 comparison bits

type feature struct {
	corner
	desc descriptor
}

const (
	maxCorners     = 200
	cornerBorder   = 10
	nmsRadius      = 6
	shiftTolerance = 12
)

// briefPairs is the fixed sampling pattern: offset pairs within a 15x15
// patch whose intensity ordering forms the descriptor bits. Deterministic
// so descriptors are comparable across images.
var briefPairs = buildBriefPairs()

func buildBriefPairs() [][4]int {
	// Linear congruential walk, fixed seed. Offsets stay within ±7.
	pairs := make([][4]int, 128)
	state := uint32(0x9d2c5680)
	next := func() int {
		state = state*1664525 + 1013904223
		return int(state>>28) - 8 + 1 // [-7, 7]
	}
	for i := range pairs {
		pairs[i] = [4]int{next(), next(), next(), next()}
	}
	return pairs
}

// detectCorners finds high-gradient-response points with non-maximum
// suppression, strongest first, capped at maxCorners.
func detectCorners(img *image.Gray) []corner {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 2*cornerBorder || h <= 2*cornerBorder {
		return nil
	}

	at := func(x, y int) float64 { return float64(img.Pix[y*img.Stride+x]) }

	var cands []corner
	for y := cornerBorder; y < h-cornerBorder; y += 2 {
		for x := cornerBorder; x < w-cornerBorder; x += 2 {
			// Structure-tensor approximation from central differences.
			ix := at(x+1, y) - at(x-1, y)
			iy := at(x, y+1) - at(x, y-1)
			ixy := at(x+1, y+1) - at(x-1, y-1)
			resp := ix*ix + iy*iy + 0.5*ixy*ixy
			if resp > 2000 {
				cands = append(cands, corner{x: x, y: y, response: resp})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].response > cands[j].response })

	var out []corner
	for _, c := range cands {
		suppressed := false
		for _, kept := range out {
			dx, dy := c.x-kept.x, c.y-kept.y
			if dx*dx+dy*dy < nmsRadius*nmsRadius {
				suppressed = true
				break
			}
		}
		if !suppressed {
			out = append(out, c)
			if len(out) >= maxCorners {
				break
			}
		}
	}
	return out
}

// describe computes the binary descriptor for a corner.
func describe(img *image.Gray, c corner) descriptor {
	var d descriptor
	at := func(x, y int) uint8 {
		b := img.Bounds()
		if x < 0 || y < 0 || x >= b.Dx() || y >= b.Dy() {
			return 0
		}
		return img.Pix[y*img.Stride+x]
	}
	for i, p := range briefPairs {
		if at(c.x+p[0], c.y+p[1]) < at(c.x+p[2], c.y+p[3]) {
			d[i/8] |= 1 << (i % 8)
		}
	}
	return d
}

func extractFeatures(img *image.Gray) []feature {
	corners := detectCorners(img)
	feats := make([]feature, 0, len(corners))
	for _, c := range corners {
		feats = append(feats, feature{corner: c, desc: describe(img, c)})
	}
	return feats
}

func hamming(a, b descriptor) int {
	n := 0
	for i := range a {
		n += bits.OnesCount8(a[i] ^ b[i])
	}
	return n
}

// matchFeatures locates tpl inside src by feature consensus. Matches pass a
// ratio test, then vote for a common translation; the dominant shift's
// inlier fraction is the confidence.
func matchFeatures(src, tpl *image.Gray) (confidence float64, cx, cy int) {
	tplFeats := extractFeatures(tpl)
	srcFeats := extractFeatures(src)
	if len(tplFeats) < minGoodMatches || len(srcFeats) < minGoodMatches {
		return 0, 0, 0
	}

	type match struct{ dx, dy int }
	var good []match
	for _, tf := range tplFeats {
		best, second := 1<<30, 1<<30
		var bestFeat feature
		for _, sf := range srcFeats {
			d := hamming(tf.desc, sf.desc)
			if d < best {
				second = best
				best = d
				bestFeat = sf
			} else if d < second {
				second = d
			}
		}
		// Lowe ratio on Hamming distances.
		if best > 0 && float64(best) >= loweRatio*float64(second) {
			continue
		}
		good = append(good, match{dx: bestFeat.x - tf.x, dy: bestFeat.y - tf.y})
	}
	if len(good) < minGoodMatches {
		return 0, 0, 0
	}

	// Translation consensus: the shift with the most agreeing matches wins.
	bestInliers, bestDx, bestDy := 0, 0, 0
	for _, cand := range good {
		inliers := 0
		sumDx, sumDy := 0, 0
		for _, m := range good {
			if abs(m.dx-cand.dx) <= shiftTolerance && abs(m.dy-cand.dy) <= shiftTolerance {
				inliers++
				sumDx += m.dx
				sumDy += m.dy
			}
		}
		if inliers > bestInliers {
			bestInliers = inliers
			bestDx = sumDx / inliers
			bestDy = sumDy / inliers
		}
	}

	confidence = float64(bestInliers) / float64(len(good))
	cx = tpl.Bounds().Dx()/2 + bestDx
	cy = tpl.Bounds().Dy()/2 + bestDy
	return confidence, cx, cy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
