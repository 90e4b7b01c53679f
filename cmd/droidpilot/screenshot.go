// Package main provides the screenshot command.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/ui"
)

// screenshotCmd captures the device screen to a file.
var screenshotCmd = &cobra.Command{
	Use:           "screenshot <file>",
	Short:         "Capture the device screen to a PNG file",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil && ui.IsInteractive() {
			ok, err := ui.PromptConfirm(args[0]+" exists, overwrite?", false)
			if err != nil {
				return err
			}
			if !ok {
				ui.PrintDim("aborted")
				return nil
			}
		}

		a := buildApp(cmd)
		defer a.close()

		shot, err := a.dev.CaptureScreen(cmd.Context())
		if err != nil {
			ui.PrintError("capture failed: %v", err)
			return deviceError(err)
		}
		if err := os.WriteFile(args[0], shot.PNG, 0o644); err != nil {
			ui.PrintError("write %s: %v", args[0], err)
			return err
		}
		ui.PrintSuccess("Saved %s (%dx%d)", args[0], shot.Width, shot.Height)
		return nil
	},
}
