package adb

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Mock is the debug-mode device backend. Every operation is logged and
// sleeps a little, proportional to its payload, so pacing bugs show up in
// debug runs too. Screenshots are synthetic gradients of the configured
// resolution.
type Mock struct {
	name   string
	width  int
	height int

	mu         sync.Mutex
	foreground string
	ops        []string
	captures   int
}

// NewMock creates a mock device.
//
// Parameters:
//   - name: Display name used as the serial
//   - width, height: The synthetic screen resolution
//
// Returns:
//   - *Mock: The mock device
func NewMock(name string, width, height int) *Mock {
	if width <= 0 {
		width = 1080
	}
	if height <= 0 {
		height = 2400
	}
	return &Mock{name: name, width: width, height: height, foreground: "com.android.launcher"}
}

// Serial returns the configured mock name.
func (m *Mock) Serial() string { return m.name }

// Ops returns the recorded operation log. Used by tests.
func (m *Mock) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// Captures reports how many screenshots have been taken.
func (m *Mock) Captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captures
}

func (m *Mock) record(ctx context.Context, op string, d time.Duration) error {
	m.mu.Lock()
	m.ops = append(m.ops, op)
	m.mu.Unlock()
	log.Debug("mock device", "op", op)
	sleepCtx(ctx, d)
	return ctx.Err()
}

func (m *Mock) Tap(ctx context.Context, x, y int) error {
	return m.record(ctx, "tap", 30*time.Millisecond)
}

func (m *Mock) LongPress(ctx context.Context, x, y int, durationMs int) error {
	return m.record(ctx, "long_press", time.Duration(durationMs)*time.Millisecond/10)
}

func (m *Mock) Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMs int) error {
	return m.record(ctx, "swipe", 50*time.Millisecond)
}

func (m *Mock) InputText(ctx context.Context, text string) error {
	return m.record(ctx, "input_text", time.Duration(len(text))*2*time.Millisecond)
}

func (m *Mock) ClearField(ctx context.Context) error {
	return m.record(ctx, "clear_field", 50*time.Millisecond)
}

func (m *Mock) PressKey(ctx context.Context, keycode int) error {
	return m.record(ctx, "press_key", 20*time.Millisecond)
}

func (m *Mock) GoHome(ctx context.Context) error {
	m.mu.Lock()
	m.foreground = "com.android.launcher"
	m.mu.Unlock()
	return m.record(ctx, "go_home", 100*time.Millisecond)
}

func (m *Mock) LaunchApp(ctx context.Context, pkg, activity string) error {
	m.mu.Lock()
	m.foreground = pkg
	m.mu.Unlock()
	return m.record(ctx, "launch_app "+pkg, 100*time.Millisecond)
}

func (m *Mock) StopApp(ctx context.Context, pkg string) error {
	m.mu.Lock()
	if m.foreground == pkg {
		m.foreground = "com.android.launcher"
	}
	m.mu.Unlock()
	return m.record(ctx, "stop_app "+pkg, 50*time.Millisecond)
}

func (m *Mock) ForegroundPackage(ctx context.Context) (string, error) {
	m.mu.Lock()
	fg := m.foreground
	m.mu.Unlock()
	if err := m.record(ctx, "foreground", 10*time.Millisecond); err != nil {
		return "", err
	}
	return fg, nil
}

func (m *Mock) Dial(ctx context.Context, number string) error {
	return m.record(ctx, "dial "+number, 50*time.Millisecond)
}

func (m *Mock) OpenURL(ctx context.Context, url string) error {
	return m.record(ctx, "open_url "+url, 50*time.Millisecond)
}

func (m *Mock) ScreenSize(ctx context.Context) (int, int, error) {
	return m.width, m.height, nil
}

// CaptureScreen produces a synthetic gradient frame. The gradient shifts
// with the capture count so change-detection sees motion.
func (m *Mock) CaptureScreen(ctx context.Context) (*Screenshot, error) {
	m.mu.Lock()
	m.captures++
	n := m.captures
	m.mu.Unlock()

	if err := m.record(ctx, "screenshot", 50*time.Millisecond); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + n*7) % 256),
				G: uint8((y + n*13) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Screenshot{PNG: buf.Bytes(), TopOffset: 0, Width: m.width, Height: m.height}, nil
}
