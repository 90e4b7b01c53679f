// Package main provides the devices and info commands.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/ui"
)

// devicesCmd lists connected adb devices.
var devicesCmd = &cobra.Command{
	Use:           "devices",
	Short:         "List connected devices",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DebugMode {
			ui.PrintInfo("%s (mock)", cfg.DebugDeviceName)
			return nil
		}

		serials, err := adb.ListDevices(cmd.Context(), cfg.ADBPath)
		if err != nil {
			ui.PrintError("adb unavailable: %v", err)
			return deviceError(err)
		}
		if len(serials) == 0 {
			ui.PrintWarning("No devices connected")
			return nil
		}
		for _, serial := range serials {
			marker := ""
			if serial == cfg.DefaultDevice {
				marker = "  (default)"
			}
			ui.PrintInfo("%s%s", serial, marker)
		}
		return nil
	},
}

// infoCmd prints device properties.
var infoCmd = &cobra.Command{
	Use:           "info",
	Short:         "Show device properties",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(cmd)
		defer a.close()
		ctx := cmd.Context()

		w, h, err := a.dev.ScreenSize(ctx)
		if err != nil {
			ui.PrintError("device unavailable: %v", err)
			return deviceError(err)
		}
		fg, _ := a.dev.ForegroundPackage(ctx)

		widths := []int{16, 40}
		ui.PrintTableHeader(widths, "property", "value")
		ui.PrintTableRow(widths, "serial", a.dev.Serial())
		ui.PrintTableRow(widths, "screen", formatSize(w, h))
		ui.PrintTableRow(widths, "foreground", fg)

		if ctrl, ok := a.dev.(*adb.Controller); ok {
			for _, prop := range []struct{ label, name string }{
				{"model", "ro.product.model"},
				{"android", "ro.build.version.release"},
				{"sdk", "ro.build.version.sdk"},
			} {
				if v, err := ctrl.Prop(ctx, prop.name); err == nil && v != "" {
					ui.PrintTableRow(widths, prop.label, v)
				}
			}
		}
		return nil
	},
}

func formatSize(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
