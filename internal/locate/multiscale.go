package locate

import (
	"image"

	"golang.org/x/image/draw"
)

// scaleSet covers references captured on devices with different densities.
// 1.0 is omitted because the exact template stage already tried it.
var scaleSet = []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.1, 1.2, 1.3, 1.4, 1.5}

// matchMultiScale rescales the reference across scaleSet and template-matches
// each size, keeping the best score.
func matchMultiScale(src, tpl *image.Gray) (score float64, cx, cy int) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	best := -1.0
	for _, scale := range scaleSet {
		tw := int(float64(tpl.Bounds().Dx()) * scale)
		th := int(float64(tpl.Bounds().Dy()) * scale)
		if tw < 8 || th < 8 || tw > sw || th > sh {
			continue
		}
		scaled := resizeGray(tpl, tw, th)
		s, x, y := matchTemplate(src, scaled)
		if s > best {
			best, cx, cy = s, x, y
		}
	}
	if best < 0 {
		return 0, 0, 0
	}
	return best, cx, cy
}

// resizeGray rescales a grayscale image with bilinear interpolation.
func resizeGray(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
