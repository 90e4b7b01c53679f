package adb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// barFrameRe matches window frames in dumpsys output, e.g.
// "frame=[0,0][1080,80]" on the StatusBar window.
var barFrameRe = regexp.MustCompile(`\[(\d+),(\d+)\]\[(\d+),(\d+)\]`)

// CaptureScreen grabs one frame with `exec-out screencap -p`, crops the
// status and navigation bars and returns the re-encoded PNG with the top
// offset that was removed.
func (c *Controller) CaptureScreen(ctx context.Context) (*Screenshot, error) {
	capCtx, cancel := context.WithTimeout(ctx, c.screenshotTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(capCtx, c.adbPath, "-s", c.serial, "exec-out", "screencap", "-p")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if capCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("screencap timed out: %w", ErrDeviceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("screencap: %s: %w", bytes.TrimSpace(stderr.Bytes()), ErrCommandFailed)
	}

	img, err := png.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decoding screencap output: %w", err)
	}

	top, bottom := c.barInsets(ctx, img.Bounds().Dy())
	cropped := cropVertical(img, top, bottom)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("re-encoding screenshot: %w", err)
	}

	log.Debug("captured screen",
		"size", fmt.Sprintf("%dx%d", cropped.Bounds().Dx(), cropped.Bounds().Dy()),
		"topOffset", top,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Screenshot{
		PNG:       buf.Bytes(),
		TopOffset: top,
		Width:     cropped.Bounds().Dx(),
		Height:    cropped.Bounds().Dy(),
	}, nil
}

// barInsets queries the system bar frames. Failures degrade to zero insets;
// a full-frame screenshot is still usable, just with untranslated
// coordinates.
func (c *Controller) barInsets(ctx context.Context, screenHeight int) (top, bottom int) {
	out, err := c.shell(ctx, "dumpsys", "window", "windows")
	if err != nil {
		return 0, 0
	}
	return parseBarInsets(string(out), screenHeight)
}

// parseBarInsets extracts the status bar height and navigation bar height
// from `dumpsys window windows` output.
func parseBarInsets(out string, screenHeight int) (top, bottom int) {
	for _, line := range regexp.MustCompile(`\r?\n`).Split(out, -1) {
		isStatus := containsWord(line, "StatusBar")
		isNav := containsWord(line, "NavigationBar")
		if !isStatus && !isNav {
			continue
		}
		m := barFrameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		y1, _ := strconv.Atoi(m[2])
		y2, _ := strconv.Atoi(m[4])
		if isStatus && y1 == 0 && y2 > top && y2 < screenHeight/4 {
			top = y2
		}
		if isNav && screenHeight > 0 && y2 >= screenHeight && y1 > screenHeight/2 {
			bottom = y2 - y1
		}
	}
	return top, bottom
}

func containsWord(s, word string) bool {
	return bytes.Contains([]byte(s), []byte(word))
}

// cropVertical removes top rows and bottom rows from an image.
func cropVertical(img image.Image, top, bottom int) image.Image {
	b := img.Bounds()
	if top < 0 {
		top = 0
	}
	if bottom < 0 {
		bottom = 0
	}
	if top+bottom >= b.Dy() {
		return img
	}
	rect := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y-bottom)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(rect)
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.Set(x, y, img.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}
