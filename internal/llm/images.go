package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// maxImageEdge caps the longer edge of screenshots sent to models. Larger
// uploads cost tokens without improving localisation.
const maxImageEdge = 1024

// EncodeImage downscales an image so its longer edge is at most maxImageEdge
// and returns it as base64 JPEG.
//
// Parameters:
//   - img: The image to encode
//
// Returns:
//   - string: Base64-encoded JPEG bytes
//   - error: Encoding errors
func EncodeImage(img image.Image) (string, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w > maxImageEdge || h > maxImageEdge {
		scale := float64(maxImageEdge) / float64(max(w, h))
		nw, nh := int(float64(w)*scale), int(float64(h)*scale)
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encoding image for model upload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// BBoxCenter converts a 0-1000 normalized bounding box to pixel center
// coordinates on an image of the given size.
func BBoxCenter(xmin, ymin, xmax, ymax float64, width, height int) (int, int) {
	cx := (xmin + xmax) / 2 / 1000 * float64(width)
	cy := (ymin + ymax) / 2 / 1000 * float64(height)
	return int(cx), int(cy)
}

// ScreensDiffer reports whether two screenshots look materially different.
// Both are downsampled to a fixed 100x200 grid; a pixel counts as changed
// when its gray level moves by more than 30, and the screens differ when
// more than 2% of pixels changed. Cheap enough to run after every action.
func ScreensDiffer(before, after image.Image) bool {
	const (
		gridW      = 100
		gridH      = 200
		pixelDelta = 30
		changeFrac = 0.02
	)
	a := downsampleGray(before, gridW, gridH)
	b := downsampleGray(after, gridW, gridH)

	changed := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > pixelDelta {
			changed++
		}
	}
	return float64(changed)/float64(len(a.Pix)) > changeFrac
}

func downsampleGray(src image.Image, w, h int) *image.Gray {
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), src, src.Bounds(), draw.Src, nil)
	gray := image.NewGray(small.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray.Set(x, y, color.GrayModel.Convert(small.At(x, y)))
		}
	}
	return gray
}
