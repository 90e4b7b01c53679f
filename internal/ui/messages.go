// Package ui provides message printing utilities.
package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Println prints an empty line.
func Println() {
	fmt.Println()
}

// PrintSuccess prints a success message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintSuccess(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(SuccessStyle.Render("✓ " + msg))
}

// PrintError prints an error message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(ErrorStyle.Render("✗ " + msg))
}

// PrintWarning prints a warning message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(WarningStyle.Render("⚠ " + msg))
}

// PrintInfo prints an informational message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(InfoStyle.Render(msg))
}

// PrintDim prints a dimmed message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintDim(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(DimStyle.Render(msg))
}

// PrintBox prints content in a styled box.
//
// Parameters:
//   - title: Box title
//   - content: Box content
func PrintBox(title, content string) {
	titleStyled := BoxTitleStyle.Render(title)
	box := BoxStyle.Render(titleStyled + "\n" + content)
	fmt.Println(box)
}

// PadCell pads a string to a display width. Utterances and module names mix
// CJK and latin, so padding must count cell width, not runes.
func PadCell(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// PrintTableHeader prints a table header row with a separator.
//
// Parameters:
//   - widths: Display width per column
//   - columns: Column names
func PrintTableHeader(widths []int, columns ...string) {
	PrintTableRow(widths, columns...)
	total := 0
	for _, w := range widths {
		total += w
	}
	fmt.Println(DimStyle.Render(strings.Repeat("─", total)))
}

// PrintTableRow prints one table row, cells padded to the given widths.
func PrintTableRow(widths []int, values ...string) {
	var cells []string
	for i, val := range values {
		w := 16
		if i < len(widths) {
			w = widths[i]
		}
		cells = append(cells, PadCell(val, w))
	}
	fmt.Println(strings.Join(cells, "  "))
}
