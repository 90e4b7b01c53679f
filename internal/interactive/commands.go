// Package interactive provides the interactive task shell for the CLI.
//
// This file contains the command parser that separates shell commands from
// task utterances.
package interactive

import "strings"

// CommandType represents the type of command parsed from user input.
type CommandType string

const (
	// CommandTask is a task utterance to run on the device.
	CommandTask CommandType = "task"

	// CommandMenu returns to the mode selection menu.
	CommandMenu CommandType = "menu"

	// CommandCopy puts the last task result on the clipboard.
	CommandCopy CommandType = "copy"

	// CommandHistory lists the results of this session.
	CommandHistory CommandType = "history"

	// CommandClear clears the session history.
	CommandClear CommandType = "clear"

	// CommandHelp shows help information.
	CommandHelp CommandType = "help"

	// CommandQuit exits the shell entirely.
	CommandQuit CommandType = "quit"
)

// ParsedCommand represents a parsed user command.
type ParsedCommand struct {
	// Type is the command type.
	Type CommandType

	// Task is the task utterance (for CommandTask).
	Task string

	// Raw is the original input string.
	Raw string
}

// reservedCommands maps command keywords to their types. Shell commands use
// a ':' prefix so that Chinese utterances can never collide with them; a few
// bare words are kept as conveniences.
var reservedCommands = map[string]CommandType{
	":copy":    CommandCopy,
	":history": CommandHistory,
	":clear":   CommandClear,
	":help":    CommandHelp,
	":quit":    CommandQuit,
	"help":     CommandHelp,
	"?":        CommandHelp,
	"exit":     CommandQuit,
	"quit":     CommandQuit,
}

// ParseCommand parses user input into a command.
//
// An empty line or a bare "q" returns to the mode menu. Anything that is not
// a reserved command is a task utterance.
//
// Parameters:
//   - input: The raw user input
//
// Returns:
//   - *ParsedCommand: The parsed command
func ParseCommand(input string) *ParsedCommand {
	trimmed := strings.TrimSpace(input)

	if trimmed == "" || trimmed == "q" {
		return &ParsedCommand{Type: CommandMenu, Raw: input}
	}

	if t, ok := reservedCommands[strings.ToLower(trimmed)]; ok {
		return &ParsedCommand{Type: t, Raw: input}
	}

	return &ParsedCommand{Type: CommandTask, Task: trimmed, Raw: input}
}
