package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/droidpilot/cli/internal/adb"
)

func TestSuggestCommand(t *testing.T) {
	cases := []struct {
		input string
		want  string
		found bool
	}{
		{"task", "droidpilot run", true},
		{"shell", "droidpilot interactive", true},
		{"screencap", "droidpilot screenshot", true},
		{"serve", "droidpilot mcp", true},
		{"frobnicate", "", false},
	}
	for _, tc := range cases {
		got, found := suggestCommand(tc.input)
		if found != tc.found || got != tc.want {
			t.Errorf("suggestCommand(%q) = (%q, %v), want (%q, %v)", tc.input, got, found, tc.want, tc.found)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	if got := exitCodeFor(nil); got != 0 {
		t.Errorf("nil error = %d, want 0", got)
	}
	if got := exitCodeFor(errors.New("step failed")); got != 1 {
		t.Errorf("task error = %d, want 1", got)
	}
	wrapped := fmt.Errorf("adb: %w", adb.ErrDeviceUnavailable)
	if got := exitCodeFor(wrapped); got != 2 {
		t.Errorf("device error = %d, want 2", got)
	}
}

func TestRootCommandsRegistered(t *testing.T) {
	want := []string{"run", "interactive", "devices", "info", "modules", "screenshot", "mcp", "version"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}
