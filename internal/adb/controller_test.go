package adb

import (
	"bytes"
	"context"
	"image/png"
	"testing"
)

func TestParseWMSize(t *testing.T) {
	tests := []struct {
		name string
		out  string
		w, h int
		ok   bool
	}{
		{"physical only", "Physical size: 1080x2400\n", 1080, 2400, true},
		{"override wins", "Physical size: 1440x3200\nOverride size: 1080x2400\n", 1080, 2400, true},
		{"garbage", "error: no devices found", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parseWMSize(tt.out)
			if tt.ok != (err == nil) {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if w != tt.w || h != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestParseBarInsets(t *testing.T) {
	out := `
  Window #0 Window{abc u0 StatusBar}:
    mFrame=[0,0][1080,80]
  Window #1 Window{def u0 NavigationBar0}:
    mFrame=[0,2280][1080,2400]
  Window #2 Window{ghi u0 com.tencent.mm}:
    mFrame=[0,0][1080,2400]
`
	top, bottom := parseBarInsets(out, 2400)
	if top != 80 {
		t.Errorf("top = %d, want 80", top)
	}
	if bottom != 120 {
		t.Errorf("bottom = %d, want 120", bottom)
	}
}

func TestParseBarInsetsEmpty(t *testing.T) {
	top, bottom := parseBarInsets("no bars here", 2400)
	if top != 0 || bottom != 0 {
		t.Errorf("insets = (%d,%d), want (0,0)", top, bottom)
	}
}

func TestIsWideText(t *testing.T) {
	tests := []struct {
		text string
		wide bool
	}{
		{"hello", false},
		{"hello world 123", false},
		{"你好", true},
		{"hi 张三", true},
		{"café", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWideText(tt.text); got != tt.wide {
			t.Errorf("IsWideText(%q) = %v, want %v", tt.text, got, tt.wide)
		}
	}
}

func TestEscapeShellText(t *testing.T) {
	if got := escapeShellText("hello world"); got != "hello%sworld" {
		t.Errorf("space escape = %q", got)
	}
	if got := escapeShellText("a&b"); got != "a\\&b" {
		t.Errorf("ampersand escape = %q", got)
	}
}

func TestForegroundRegex(t *testing.T) {
	out := []byte("    mResumedActivity: ActivityRecord{123 u0 com.tencent.mm/.ui.LauncherUI t42}")
	m := resumedActivityRe.FindSubmatch(out)
	if m == nil {
		t.Fatal("no match for mResumedActivity line")
	}
	if string(m[1]) != "com.tencent.mm" {
		t.Errorf("package = %q, want com.tencent.mm", m[1])
	}
}

func TestMockDeviceContract(t *testing.T) {
	var _ Device = (*Mock)(nil)
	var _ Device = (*Controller)(nil)

	m := NewMock("test", 320, 640)
	ctx := context.Background()

	if err := m.LaunchApp(ctx, "com.example", ""); err != nil {
		t.Fatal(err)
	}
	fg, err := m.ForegroundPackage(ctx)
	if err != nil || fg != "com.example" {
		t.Errorf("foreground = %q (%v), want com.example", fg, err)
	}

	shot, err := m.CaptureScreen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(shot.PNG))
	if err != nil {
		t.Fatalf("mock screenshot is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 640 {
		t.Errorf("mock screen = %v, want 320x640", img.Bounds())
	}
	if m.Captures() != 1 {
		t.Errorf("captures = %d, want 1", m.Captures())
	}

	if err := m.GoHome(ctx); err != nil {
		t.Fatal(err)
	}
	fg, _ = m.ForegroundPackage(ctx)
	if fg != "com.android.launcher" {
		t.Errorf("after GoHome foreground = %q", fg)
	}
}
