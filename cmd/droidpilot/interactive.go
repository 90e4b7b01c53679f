// Package main provides the interactive shell command.
package main

import (
	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/interactive"
	"github.com/droidpilot/cli/internal/ui"
)

// interactiveCmd starts the interactive task shell.
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Enter the interactive task shell",
	Long: `Enter the interactive task shell.

The shell opens with a mode menu (fast form vs natural language) and then
reads tasks until an empty line or q returns to the menu. :copy places the
last result JSON on the clipboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(cmd)
		defer a.close()

		ui.PrintBanner(version)

		session := interactive.NewSession(a.runner)
		repl, err := interactive.NewREPL(session)
		if err != nil {
			ui.PrintError("%v", err)
			return err
		}
		return repl.Run(cmd.Context())
	},
}
