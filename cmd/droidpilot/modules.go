// Package main provides the modules command.
package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/ui"
)

// modulesCmd lists the registered task modules.
var modulesCmd = &cobra.Command{
	Use:           "modules",
	Short:         "List registered task modules",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(cmd)
		defer a.close()

		infos := a.reg.Infos()
		if len(infos) == 0 {
			ui.PrintWarning("No modules registered")
			return nil
		}

		widths := []int{10, 22, 30}
		ui.PrintTableHeader(widths, "module", "package", "keywords")
		for _, info := range infos {
			keywords := strings.Join(info.Keywords, " ")
			if keywords == "" {
				keywords = "-"
			}
			ui.PrintTableRow(widths, info.Name, info.PackageID, keywords)
		}
		return nil
	},
}
