// Package interactive provides the interactive task shell for the CLI.
//
// This file contains the session state shared across shell inputs.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/workflow"
)

// Mode selects how shell input is interpreted.
type Mode int

const (
	// ModeFast treats input as the ss: fast form, adding the prefix when
	// the user omits it.
	ModeFast Mode = iota

	// ModeNatural passes input through the full classification pipeline.
	ModeNatural
)

// String returns the menu label for the mode.
func (m Mode) String() string {
	if m == ModeFast {
		return "fast form"
	}
	return "natural language"
}

// TaskRunner runs one utterance end to end. Implemented by runner.Runner.
type TaskRunner interface {
	Run(ctx context.Context, utterance string) (*workflow.TaskResult, error)
}

// ErrNoHistory is returned when a history operation has nothing to act on.
var ErrNoHistory = errors.New("no task has run in this session")

// Session holds the state of one interactive shell.
type Session struct {
	runner TaskRunner
	mode   Mode

	mu      sync.Mutex
	history []*workflow.TaskResult
}

// NewSession creates a session in fast-form mode.
//
// Parameters:
//   - runner: The task runner to execute utterances with
//
// Returns:
//   - *Session: A new session
func NewSession(runner TaskRunner) *Session {
	return &Session{runner: runner}
}

// Mode returns the current input mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the input mode.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Prepare turns shell input into the utterance handed to the runner. In fast
// mode a missing ss: prefix is added so users can type 张三:你好 directly.
//
// Parameters:
//   - input: The trimmed shell input
//
// Returns:
//   - string: The utterance to run
func (s *Session) Prepare(input string) string {
	if s.Mode() != ModeFast {
		return input
	}
	norm := classify.Normalize(input)
	if classify.HasFastPrefix(norm) {
		return norm
	}
	return "ss:" + norm
}

// RunTask executes one utterance and records the result.
//
// Parameters:
//   - ctx: Context for cancellation
//   - input: The shell input, already trimmed
//
// Returns:
//   - *workflow.TaskResult: The recorded result, when one was produced
//   - error: The runner error, when any
func (s *Session) RunTask(ctx context.Context, input string) (*workflow.TaskResult, error) {
	res, err := s.runner.Run(ctx, s.Prepare(input))
	if res != nil {
		s.mu.Lock()
		s.history = append(s.history, res)
		s.mu.Unlock()
	}
	return res, err
}

// History returns the results recorded this session, oldest first.
func (s *Session) History() []*workflow.TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*workflow.TaskResult(nil), s.history...)
}

// ClearHistory drops all recorded results.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// LastResultJSON renders the most recent result as indented JSON.
//
// Returns:
//   - string: The JSON document
//   - error: ErrNoHistory when nothing has run
func (s *Session) LastResultJSON() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return "", ErrNoHistory
	}
	last := s.history[len(s.history)-1]

	doc := resultDoc{
		ID:       last.ID,
		Task:     last.Task,
		Workflow: last.Workflow,
		Status:   last.Status,
		Message:  last.Message,
		Elapsed:  last.Elapsed.Round(time.Millisecond).String(),
	}
	for _, step := range last.Steps {
		doc.Steps = append(doc.Steps, stepDoc{
			Index:  step.Index,
			Action: step.Action,
			Target: step.Target,
			Status: step.Status,
			Stage:  step.Stage,
			Error:  step.Error,
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(out), nil
}

// CopyLast puts the most recent result JSON on the system clipboard.
//
// Returns:
//   - error: ErrNoHistory or a clipboard error
func (s *Session) CopyLast() error {
	doc, err := s.LastResultJSON()
	if err != nil {
		return err
	}
	if err := clipboard.WriteAll(doc); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Summary renders a one-line history entry.
func Summary(res *workflow.TaskResult) string {
	task := res.Task
	if len([]rune(task)) > 30 {
		task = string([]rune(task)[:30]) + "…"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-7s %s", res.Status, task)
	if res.Workflow != "" {
		fmt.Fprintf(&b, " [%s]", res.Workflow)
	}
	return b.String()
}

// resultDoc is the clipboard/JSON shape of a task result.
type resultDoc struct {
	ID       string    `json:"id"`
	Task     string    `json:"task"`
	Workflow string    `json:"workflow,omitempty"`
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Elapsed  string    `json:"elapsed"`
	Steps    []stepDoc `json:"steps,omitempty"`
}

type stepDoc struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error,omitempty"`
}
