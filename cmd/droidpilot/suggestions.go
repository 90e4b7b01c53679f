// Package main provides command suggestion functionality for the CLI.
//
// This file implements "did you mean" suggestions when users reach for a
// synonym of a real command (e.g. "droidpilot task ..." instead of
// "droidpilot run ...").
package main

import (
	"github.com/droidpilot/cli/internal/ui"
)

// commandAliases maps common synonyms to the canonical command. Cobra's own
// prefix matching handles typos; this catches different words entirely.
var commandAliases = map[string]string{
	"task":      "run",
	"exec":      "run",
	"do":        "run",
	"shell":     "interactive",
	"repl":      "interactive",
	"chat":      "interactive",
	"device":    "devices",
	"ls":        "devices",
	"list":      "modules",
	"handlers":  "modules",
	"screencap": "screenshot",
	"capture":   "screenshot",
	"serve":     "mcp",
}

// suggestCommand maps an unknown command to a canonical one.
//
// Parameters:
//   - unknownCmd: The command that was not recognized by Cobra
//
// Returns:
//   - string: The suggested command line
//   - bool: True if a suggestion was found
func suggestCommand(unknownCmd string) (string, bool) {
	canonical, ok := commandAliases[unknownCmd]
	if !ok {
		return "", false
	}
	return "droidpilot " + canonical, true
}

// printCommandSuggestion prints a "did you mean" suggestion to the user.
//
// Parameters:
//   - suggestion: The suggested command string to display
func printCommandSuggestion(suggestion string) {
	ui.Println()
	ui.PrintInfo("Did you mean:")
	ui.PrintDim("  %s", suggestion)
	ui.Println()
}
