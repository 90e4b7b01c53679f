// Package main provides the run command for executing a single task.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/runner"
	"github.com/droidpilot/cli/internal/ui"
	"github.com/droidpilot/cli/internal/workflow"
)

// runCmd executes one task and exits.
var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run one task on the device",
	Long: `Run one task on the device and print the step trace.

The task is either the fast form or free natural language:

  droidpilot run "ss:张三:你好"
  droidpilot run "给张三发消息说晚点到"
  droidpilot run "ss:朋友圈:今天天气不错"

Use -d to pick a device when several are connected.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

// runRun executes the task through the full pipeline.
func runRun(cmd *cobra.Command, args []string) error {
	a := buildApp(cmd)
	defer a.close()

	task := strings.Join(args, " ")
	res, err := a.runner.Run(cmd.Context(), task)
	if res != nil {
		ui.PrintTaskResult(res)
	}

	switch {
	case errors.Is(err, runner.ErrInvalidInput):
		ui.PrintWarning("无法理解该输入")
		ui.PrintDim("%s", runner.Guidance)
		return err
	case errors.Is(err, runner.ErrClassificationFailed):
		ui.PrintError("无法识别任务类型: %s", task)
		return err
	case err != nil:
		ui.PrintError("%v", err)
		return err
	case res != nil && res.Status != workflow.StatusSuccess:
		return fmt.Errorf("task %s: %s", res.Status, res.Message)
	}
	return nil
}
