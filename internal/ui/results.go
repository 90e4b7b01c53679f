// Package ui provides result rendering components.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/droidpilot/cli/internal/workflow"
)

// PrintTaskResult prints a task's terminal record: one status line, the
// step trace, and a one-line summary with elapsed time.
//
// Parameters:
//   - res: The task result to render
func PrintTaskResult(res *workflow.TaskResult) {
	icon, style := "✓", StatusPassedStyle
	if res.Status != workflow.StatusSuccess {
		icon, style = "✗", StatusFailedStyle
	}

	header := fmt.Sprintf("%s %s", icon, res.Task)
	fmt.Println(style.Render(header))
	if res.Workflow != "" {
		fmt.Printf("  %s %s\n", DimStyle.Render("workflow:"), res.Workflow)
	}

	for _, step := range res.Steps {
		PrintStep(step)
	}

	summary := fmt.Sprintf("%s in %s", res.Status, res.Elapsed.Round(100*time.Millisecond))
	if res.Message != "" && res.Status != workflow.StatusSuccess {
		summary += ": " + res.Message
	}
	box := ResultBoxPassedStyle
	if res.Status != workflow.StatusSuccess {
		box = ResultBoxFailedStyle
	}
	fmt.Println(box.Render(summary))
}

// PrintStep prints one step trace line.
func PrintStep(step workflow.StepResult) {
	icon, style := "✓", StatusPassedStyle
	if step.Status != workflow.StatusSuccess {
		icon, style = "✗", StatusFailedStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s %d. %s", icon, step.Index+1, step.Action)
	if step.Target != "" {
		fmt.Fprintf(&b, " %s", step.Target)
	}
	if step.Stage != "" {
		fmt.Fprintf(&b, " (%s)", step.Stage)
	}
	fmt.Println(style.Render(b.String()))
	if step.Error != "" {
		fmt.Printf("     %s\n", DimStyle.Render(step.Error))
	}
}
