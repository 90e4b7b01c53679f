// Package ui provides interactive input components.
package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Prompt displays a prompt and reads user input.
//
// Parameters:
//   - message: The prompt message to display
//
// Returns:
//   - string: The user's input
//   - error: Any error that occurred
func Prompt(message string) (string, error) {
	fmt.Printf("%s ", InfoStyle.Render(message))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(input), nil
}

// PromptConfirm displays a yes/no confirmation prompt.
//
// Parameters:
//   - message: The prompt message to display
//   - defaultYes: Whether the default is yes (true) or no (false)
//
// Returns:
//   - bool: True if user confirmed, false otherwise
//   - error: Any error that occurred
func PromptConfirm(message string, defaultYes bool) (bool, error) {
	suffix := "[y/N]"
	if defaultYes {
		suffix = "[Y/n]"
	}

	input, err := Prompt(fmt.Sprintf("%s %s", message, suffix))
	if err != nil {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))

	if input == "" {
		return defaultYes, nil
	}

	return input == "y" || input == "yes", nil
}

// PromptSelect displays a numbered selection prompt.
//
// Parameters:
//   - message: The prompt message
//   - options: The selectable options
//
// Returns:
//   - int: Index of the chosen option
//   - error: Read errors or an out-of-range choice
func PromptSelect(message string, options []string) (int, error) {
	fmt.Println(InfoStyle.Render(message))
	for i, opt := range options {
		fmt.Printf("  %s %s\n", TitleStyle.Render(fmt.Sprintf("%d.", i+1)), opt)
	}

	input, err := Prompt(">")
	if err != nil {
		return 0, err
	}
	var choice int
	if _, err := fmt.Sscanf(input, "%d", &choice); err != nil || choice < 1 || choice > len(options) {
		return 0, fmt.Errorf("invalid choice %q", input)
	}
	return choice - 1, nil
}
