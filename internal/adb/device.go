// Package adb is the device surface: a narrow synchronous command set over
// the adb shell bridge. It issues input events, launches and stops apps,
// queries the foreground activity and captures screenshots. It never runs
// code on the device.
//
// Two backends implement the same contract: the real controller shelling out
// to adb, and a mock used when DEBUG_MODE is set. Callers must not be able to
// tell them apart.
package adb

import (
	"context"
	"errors"
)

// Android key codes used by the orchestrator.
const (
	KeyHome    = 3
	KeyBack    = 4
	KeyPower   = 26
	KeyEnter   = 66
	KeyDelete  = 67
	KeyMoveEnd = 123
)

// Sentinel errors for the two device failure kinds. Command failures wrap
// these so callers can errors.Is on the kind while keeping stderr context.
var (
	// ErrDeviceUnavailable covers timeouts and unreachable devices.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrCommandFailed covers commands that ran but returned non-zero.
	ErrCommandFailed = errors.New("device command failed")
)

// Screenshot is a captured frame with the vertical crop applied during
// capture, so locator hits can be translated back to full-display pixels.
type Screenshot struct {
	// PNG is the encoded image after cropping the status and navigation
	// bars.
	PNG []byte

	// TopOffset is the number of pixel rows removed from the top.
	// device_y = cropped_y + TopOffset.
	TopOffset int

	Width  int
	Height int
}

// Device is the command surface the orchestrator drives. All blocking
// operations take a context; cancellation aborts at the adb process
// boundary.
type Device interface {
	Serial() string

	Tap(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y int, durationMs int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMs int) error

	// InputText types text into the focused field. Wide-character input
	// (any rune >= U+0080) goes through the keyboard broadcast channel.
	InputText(ctx context.Context, text string) error

	// ClearField empties the focused input field.
	ClearField(ctx context.Context) error

	PressKey(ctx context.Context, keycode int) error

	// GoHome presses HOME twice with a short interval; a single press can
	// leave an app at its own root screen instead of the launcher.
	GoHome(ctx context.Context) error

	LaunchApp(ctx context.Context, pkg, activity string) error
	StopApp(ctx context.Context, pkg string) error

	// ForegroundPackage reports the package of the resumed activity.
	// Returns ErrCommandFailed when the query output is unparseable, which
	// callers treat as "unknown" and fall back to screenshot detection.
	ForegroundPackage(ctx context.Context) (string, error)

	Dial(ctx context.Context, number string) error
	OpenURL(ctx context.Context, url string) error

	ScreenSize(ctx context.Context) (w, h int, err error)

	// CaptureScreen grabs a frame and crops the system bars.
	CaptureScreen(ctx context.Context) (*Screenshot, error)
}

// IsWideText reports whether text needs the broadcast input channel
// instead of plain `input text`.
func IsWideText(text string) bool {
	for _, r := range text {
		if r >= 0x80 {
			return true
		}
	}
	return false
}
