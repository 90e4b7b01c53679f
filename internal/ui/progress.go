// Package ui provides the spinner shown while a task runs.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerMu     sync.Mutex
	spinnerStop   chan struct{}
	spinnerActive bool
)

// StartSpinner starts an animated spinner with a message. A no-op when
// output is not a terminal.
//
// Parameters:
//   - message: The message to display next to the spinner
func StartSpinner(message string) {
	if !IsInteractive() {
		return
	}

	spinnerMu.Lock()
	defer spinnerMu.Unlock()

	if spinnerActive {
		return
	}

	spinnerActive = true
	spinnerStop = make(chan struct{})

	go func() {
		i := 0
		for {
			select {
			case <-spinnerStop:
				// Clear the spinner line
				fmt.Printf("\r%s\r", strings.Repeat(" ", TerminalWidth()-1))
				return
			default:
				frame := spinnerFrames[i%len(spinnerFrames)]
				styledFrame := StatusRunningStyle.Render(frame)
				fmt.Printf("\r%s %s", styledFrame, message)
				i++
				time.Sleep(80 * time.Millisecond)
			}
		}
	}()
}

// StopSpinner stops the current spinner.
func StopSpinner() {
	spinnerMu.Lock()
	defer spinnerMu.Unlock()

	if !spinnerActive {
		return
	}

	close(spinnerStop)
	spinnerActive = false
	time.Sleep(100 * time.Millisecond) // Allow cleanup
}
