package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/apps/system"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/locate"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/runner"
)

func newTestServer(t *testing.T) (*Server, *adb.Mock) {
	t.Helper()

	dev := adb.NewMock("test-device", 1080, 2400)
	classifier := classify.New(nil, config.ClassifierModeRegex)

	reg := registry.New()
	if err := reg.AddInfo(system.Manifest()); err != nil {
		t.Fatalf("add system manifest: %v", err)
	}
	reg.Register(system.New(dev, classifier))

	s := NewServer("test", Options{
		Device:     dev,
		Locator:    locate.New(nil, nil),
		Runner:     runner.New(reg, classifier),
		Registry:   reg,
		Classifier: classifier,
	})
	return s, dev
}

func TestDeviceTapByCoordinates(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, err := s.handleDeviceTap(context.Background(), nil, DeviceTapInput{X: 100, Y: 200})
	if err != nil {
		t.Fatalf("handleDeviceTap: %v", err)
	}
	if !out.Success {
		t.Fatalf("tap failed: %s", out.Error)
	}
	if out.X != 100 || out.Y != 200 {
		t.Errorf("coordinates = (%d, %d), want (100, 200)", out.X, out.Y)
	}

	ops := dev.Ops()
	if len(ops) == 0 || ops[len(ops)-1] != "tap" {
		t.Errorf("ops = %v, want trailing tap", ops)
	}
}

func TestDeviceTapUnknownTarget(t *testing.T) {
	s, _ := newTestServer(t)

	// No assets and no model stages wired, so a described target cannot
	// resolve.
	_, out, err := s.handleDeviceTap(context.Background(), nil, DeviceTapInput{Target: "登录按钮"})
	if err != nil {
		t.Fatalf("handleDeviceTap: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure for unresolvable target")
	}
	if !strings.Contains(out.Error, "not found") {
		t.Errorf("error = %q, want not-found", out.Error)
	}
}

func TestDeviceSwipeDirection(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, err := s.handleDeviceSwipe(context.Background(), nil, DeviceSwipeInput{Direction: "up"})
	if err != nil {
		t.Fatalf("handleDeviceSwipe: %v", err)
	}
	if !out.Success {
		t.Fatalf("swipe failed: %s", out.Error)
	}

	ops := dev.Ops()
	if len(ops) != 1 || ops[0] != "swipe" {
		t.Errorf("ops = %v, want single swipe", ops)
	}
}

func TestDeviceSwipeBadDirection(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, _ := s.handleDeviceSwipe(context.Background(), nil, DeviceSwipeInput{Direction: "sideways"})
	if out.Success {
		t.Fatal("expected failure for unknown direction")
	}
}

func TestDeviceKeyNames(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		key  string
		code int
	}{
		{"home", adb.KeyHome},
		{"back", adb.KeyBack},
		{"enter", adb.KeyEnter},
		{"66", adb.KeyEnter},
	}
	for _, tc := range cases {
		_, out, err := s.handleDeviceKey(context.Background(), nil, DeviceKeyInput{Key: tc.key})
		if err != nil {
			t.Fatalf("handleDeviceKey(%q): %v", tc.key, err)
		}
		if !out.Success || out.Keycode != tc.code {
			t.Errorf("key %q: keycode = %d, success = %v, want %d", tc.key, out.Keycode, out.Success, tc.code)
		}
	}

	_, out, _ := s.handleDeviceKey(context.Background(), nil, DeviceKeyInput{Key: "volume_up_please"})
	if out.Success {
		t.Error("expected failure for unknown key name")
	}
}

func TestScreenshotReturnsImage(t *testing.T) {
	s, dev := newTestServer(t)

	result, out, err := s.handleScreenshot(context.Background(), nil, ScreenshotInput{})
	if err != nil {
		t.Fatalf("handleScreenshot: %v", err)
	}
	if !out.Success {
		t.Fatalf("screenshot failed: %s", out.Error)
	}
	if out.Width != 1080 || out.Height != 2400 {
		t.Errorf("size = %dx%d, want 1080x2400", out.Width, out.Height)
	}
	if result == nil || len(result.Content) != 1 {
		t.Fatal("expected one content item")
	}
	img, ok := result.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.ImageContent", result.Content[0])
	}
	if img.MIMEType != "image/png" || len(img.Data) == 0 {
		t.Error("expected non-empty PNG image content")
	}
	if dev.Captures() != 1 {
		t.Errorf("captures = %d, want 1", dev.Captures())
	}
}

func TestDeviceTypeRequiresText(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, _ := s.handleDeviceType(context.Background(), nil, DeviceTypeInput{})
	if out.Success {
		t.Fatal("expected failure without text")
	}
	if len(dev.Ops()) != 0 {
		t.Errorf("ops = %v, want none", dev.Ops())
	}

	_, out, _ = s.handleDeviceType(context.Background(), nil, DeviceTypeInput{Text: "你好"})
	if !out.Success {
		t.Fatalf("type failed: %s", out.Error)
	}
}

func TestLaunchApp(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, _ := s.handleLaunchApp(context.Background(), nil, LaunchAppInput{Package: "com.tencent.mm"})
	if !out.Success {
		t.Fatalf("launch failed: %s", out.Error)
	}
	ops := dev.Ops()
	if len(ops) != 1 || !strings.Contains(ops[0], "com.tencent.mm") {
		t.Errorf("ops = %v, want launch_app com.tencent.mm", ops)
	}

	_, out, _ = s.handleLaunchApp(context.Background(), nil, LaunchAppInput{})
	if out.Success {
		t.Error("expected failure without package")
	}
}
