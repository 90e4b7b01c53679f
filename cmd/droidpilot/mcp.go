// Package main provides the MCP command for the droidpilot CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/mcp"
)

// mcpCmd starts the MCP server over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Start the droidpilot MCP server over stdio.

This command starts an MCP (Model Context Protocol) server that communicates
via JSON-RPC over stdin/stdout. It's designed to be launched by AI hosts.

The server exposes the task pipeline (run_task, classify_task, list_modules,
locator_stats) and the raw device surface (screenshot, device_tap,
device_type, device_swipe, device_key, find_element, launch_app, go_home).

Example host configuration:
  {
    "mcpServers": {
      "droidpilot": {
        "command": "droidpilot",
        "args": ["mcp"]
      }
    }
  }`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(cmd)
		defer a.close()

		server := mcp.NewServer(version, mcp.Options{
			Device:     a.dev,
			Locator:    a.loc,
			Assets:     a.store,
			Runner:     a.runner,
			Registry:   a.reg,
			Classifier: a.classifier,
		})
		return server.Run(cmd.Context())
	},
}
