package adb

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Controller drives a real device through the adb binary.
type Controller struct {
	adbPath string
	serial  string

	// cmdTimeout bounds individual shell commands; screenshots get their
	// own, larger budget.
	cmdTimeout        time.Duration
	screenshotTimeout time.Duration
}

// NewController creates a controller bound to one device serial.
//
// Parameters:
//   - adbPath: The adb binary (bare "adb" uses PATH lookup)
//   - serial: Device serial or host:port address
//
// Returns:
//   - *Controller: The device controller
func NewController(adbPath, serial string) *Controller {
	return &Controller{
		adbPath:           adbPath,
		serial:            serial,
		cmdTimeout:        15 * time.Second,
		screenshotTimeout: 30 * time.Second,
	}
}

// SetScreenshotTimeout overrides the capture budget.
func (c *Controller) SetScreenshotTimeout(d time.Duration) {
	c.screenshotTimeout = d
}

// Serial returns the bound device identifier.
func (c *Controller) Serial() string { return c.serial }

// ListDevices returns the serials of all devices in "device" state.
func ListDevices(ctx context.Context, adbPath string) ([]string, error) {
	out, err := exec.CommandContext(ctx, adbPath, "devices").Output()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", ErrDeviceUnavailable)
	}
	var serials []string
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials, nil
}

// run executes an adb command against the bound device and returns stdout.
func (c *Controller) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cmdTimeout)
	defer cancel()

	full := append([]string{"-s", c.serial}, args...)
	cmd := exec.CommandContext(ctx, c.adbPath, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("adb", "args", strings.Join(args, " "))

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("adb %s timed out: %w", args[0], ErrDeviceUnavailable)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("adb %s: %s: %w", strings.Join(args, " "), msg, ErrCommandFailed)
	}
	return stdout.Bytes(), nil
}

func (c *Controller) shell(ctx context.Context, args ...string) ([]byte, error) {
	return c.run(ctx, append([]string{"shell"}, args...)...)
}

// Tap issues a single tap at device coordinates.
func (c *Controller) Tap(ctx context.Context, x, y int) error {
	_, err := c.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// LongPress holds a point by swiping in place for the given duration.
func (c *Controller) LongPress(ctx context.Context, x, y int, durationMs int) error {
	if durationMs <= 0 {
		durationMs = 1000
	}
	return c.Swipe(ctx, x, y, x, y, durationMs)
}

// Swipe drags from (x1,y1) to (x2,y2).
func (c *Controller) Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMs int) error {
	if durationMs <= 0 {
		durationMs = 300
	}
	_, err := c.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(durationMs))
	return err
}

// InputText types text into the focused field. ASCII goes through
// `input text`; anything wider uses the keyboard broadcast channel with a
// base64 payload first and the raw broadcast as fallback.
func (c *Controller) InputText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if !IsWideText(text) {
		_, err := c.shell(ctx, "input", "text", escapeShellText(text))
		return err
	}

	b64 := base64.StdEncoding.EncodeToString([]byte(text))
	if _, err := c.shell(ctx, "am", "broadcast", "-a", "ADB_INPUT_B64", "--es", "msg", b64); err == nil {
		return nil
	}
	_, err := c.shell(ctx, "am", "broadcast", "-a", "ADB_INPUT_TEXT", "--es", "msg", text)
	return err
}

// ClearField moves the cursor to the end and deletes up to 30 characters.
func (c *Controller) ClearField(ctx context.Context) error {
	if err := c.PressKey(ctx, KeyMoveEnd); err != nil {
		return err
	}
	for i := 0; i < 30; i++ {
		if err := c.PressKey(ctx, KeyDelete); err != nil {
			return err
		}
	}
	return nil
}

// PressKey sends a key event.
func (c *Controller) PressKey(ctx context.Context, keycode int) error {
	_, err := c.shell(ctx, "input", "keyevent", strconv.Itoa(keycode))
	return err
}

// GoHome presses HOME twice. The first press may only back out to an app's
// root; the second lands on the launcher.
func (c *Controller) GoHome(ctx context.Context) error {
	if err := c.PressKey(ctx, KeyHome); err != nil {
		return err
	}
	sleepCtx(ctx, 300*time.Millisecond)
	if err := c.PressKey(ctx, KeyHome); err != nil {
		return err
	}
	sleepCtx(ctx, 500*time.Millisecond)
	return nil
}

// LaunchApp starts an app by explicit component, falling back to a monkey
// launcher intent when no activity is known or the start fails.
func (c *Controller) LaunchApp(ctx context.Context, pkg, activity string) error {
	if activity != "" {
		if _, err := c.shell(ctx, "am", "start", "-n", pkg+"/"+activity); err == nil {
			return nil
		}
	}
	_, err := c.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// StopApp force-stops the package.
func (c *Controller) StopApp(ctx context.Context, pkg string) error {
	_, err := c.shell(ctx, "am", "force-stop", pkg)
	return err
}

var (
	resumedActivityRe = regexp.MustCompile(`mResumedActivity.*\s([\w.]+)/[\w.$]+`)
	focusedAppRe      = regexp.MustCompile(`mFocusedApp.*\s([\w.]+)/[\w.$]+`)
)

// ForegroundPackage parses the resumed activity out of dumpsys.
func (c *Controller) ForegroundPackage(ctx context.Context) (string, error) {
	out, err := c.shell(ctx, "dumpsys", "activity", "activities")
	if err != nil {
		return "", err
	}
	if m := resumedActivityRe.FindSubmatch(out); m != nil {
		return string(m[1]), nil
	}
	if m := focusedAppRe.FindSubmatch(out); m != nil {
		return string(m[1]), nil
	}
	return "", fmt.Errorf("no resumed activity in dumpsys output: %w", ErrCommandFailed)
}

// Prop reads one system property via getprop.
func (c *Controller) Prop(ctx context.Context, name string) (string, error) {
	out, err := c.shell(ctx, "getprop", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Dial places a call directly.
func (c *Controller) Dial(ctx context.Context, number string) error {
	_, err := c.shell(ctx, "am", "start", "-a", "android.intent.action.CALL", "-d", "tel:"+number)
	return err
}

// OpenURL opens a URL in the default browser, adding a scheme if missing.
func (c *Controller) OpenURL(ctx context.Context, url string) error {
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	_, err := c.shell(ctx, "am", "start", "-a", "android.intent.action.VIEW", "-d", url)
	return err
}

var wmSizeRe = regexp.MustCompile(`(Override|Physical) size:\s*(\d+)x(\d+)`)

// ScreenSize reads `wm size`, preferring the override resolution when the
// device reports one.
func (c *Controller) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := c.shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	w, h, err := parseWMSize(string(out))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", err, ErrCommandFailed)
	}
	return w, h, nil
}

// parseWMSize extracts a resolution from `wm size` output.
func parseWMSize(out string) (int, int, error) {
	var physical, override [2]int
	for _, m := range wmSizeRe.FindAllStringSubmatch(out, -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		if m[1] == "Override" {
			override = [2]int{w, h}
		} else {
			physical = [2]int{w, h}
		}
	}
	if override[0] > 0 {
		return override[0], override[1], nil
	}
	if physical[0] > 0 {
		return physical[0], physical[1], nil
	}
	return 0, 0, fmt.Errorf("no size in wm output %q", strings.TrimSpace(out))
}

// escapeShellText quotes text for `input text`, which treats space and
// several shell metacharacters specially.
func escapeShellText(text string) string {
	r := strings.NewReplacer(
		" ", "%s",
		"&", "\\&",
		"<", "\\<",
		">", "\\>",
		"(", "\\(",
		")", "\\)",
		"'", "\\'",
		";", "\\;",
		"|", "\\|",
		"$", "\\$",
	)
	return r.Replace(text)
}

// sleepCtx sleeps unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
