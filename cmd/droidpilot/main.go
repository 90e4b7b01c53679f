// Package main provides the entry point for the droidpilot CLI.
//
// droidpilot drives an Android device through adb from natural-language or
// fast-form task descriptions.
package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/droidpilot/cli/internal/trace"
	"github.com/droidpilot/cli/internal/ui"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// traceShutdown flushes the span exporter on exit. Installed by
// PersistentPreRun once flags are parsed.
var traceShutdown func(context.Context) error

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "droidpilot",
	Short: "Natural-language task automation for Android",
	Long:  ui.GetHelpText(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}
		traceShutdown = trace.Setup("droidpilot", debug)
	},
}

// Execute runs the root command and maps errors to exit codes. Unknown
// commands get a "did you mean" suggestion before exiting.
func Execute() {
	err := rootCmd.Execute()
	if traceShutdown != nil {
		_ = traceShutdown(context.Background())
	}
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "unknown command") {
			if start := strings.Index(errStr, `unknown command "`); start != -1 {
				start += len(`unknown command "`)
				if end := strings.Index(errStr[start:], `"`); end != -1 {
					if suggestion, found := suggestCommand(errStr[start : start+end]); found {
						printCommandSuggestion(suggestion)
					}
				}
			}
		}
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	// Accept snake_case flag spellings, matching the env var names.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and span export")
	rootCmd.PersistentFlags().StringP("device", "d", "", "Device serial (overrides DEFAULT_DEVICE)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(screenshotCmd)
	rootCmd.AddCommand(mcpCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ui.PrintBanner(version)
		ui.PrintInfo("Version: %s", version)
		ui.PrintInfo("Commit: %s", commit)
		ui.PrintInfo("Built: %s", date)
	},
}

func main() {
	Execute()
}
