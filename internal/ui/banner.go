// Package ui provides the ASCII banner for the droidpilot CLI.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// banner is the ASCII art logo for droidpilot.
const banner = `
  ██████╗ ██████╗  ██████╗ ██╗██████╗ ██████╗ ██╗██╗      ██████╗ ████████╗
  ██╔══██╗██╔══██╗██╔═══██╗██║██╔══██╗██╔══██╗██║██║     ██╔═══██╗╚══██╔══╝
  ██║  ██║██████╔╝██║   ██║██║██║  ██║██████╔╝██║██║     ██║   ██║   ██║
  ██║  ██║██╔══██╗██║   ██║██║██║  ██║██╔═══╝ ██║██║     ██║   ██║   ██║
  ██████╔╝██║  ██║╚██████╔╝██║██████╔╝██║     ██║███████╗╚██████╔╝   ██║
  ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝╚═════╝ ╚═╝     ╚═╝╚══════╝ ╚═════╝    ╚═╝`

// tagline is the product tagline.
const tagline = "Natural-language task automation for Android"

// PrintBanner prints the droidpilot banner with version info.
//
// Parameters:
//   - version: The CLI version string to display
func PrintBanner(version string) {
	styledBanner := lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		Render(banner)

	fmt.Println(styledBanner)
	fmt.Println()

	taglineStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		PaddingLeft(2)
	fmt.Println(taglineStyle.Render(tagline))
	fmt.Println()

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		PaddingLeft(2)
	fmt.Println(infoStyle.Render(fmt.Sprintf("Version: %s", version)))
	fmt.Println()
}

// GetHelpText returns a compact cheat-sheet shown when the user runs
// `droidpilot` with no arguments.
func GetHelpText() string {
	title := lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	return fmt.Sprintf(`%s

%s
  %s          Run one task, e.g. droidpilot run "ss:张三:你好"
  %s          Enter the interactive task shell

%s
  %s              List connected devices
  %s                 Show device properties
  %s              List registered task modules
  %s <file>   Capture the screen to a file

%s
  %s                  Start the MCP server over stdio

%s`,
		title.Render("droidpilot — drive an Android device with natural language"),
		title.Render("Run tasks"),
		dim.Render("run <task>"),
		dim.Render("interactive"),
		title.Render("Inspect"),
		dim.Render("devices"),
		dim.Render("info"),
		dim.Render("modules"),
		dim.Render("screenshot"),
		title.Render("Integrate"),
		dim.Render("mcp"),
		dim.Render(`Set DEBUG_MODE=true to practice against the mock device.`))
}
