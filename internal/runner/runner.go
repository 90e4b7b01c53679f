// Package runner is the top-level task orchestration: classify the
// utterance, route it to a handler, and surface the result. Structured
// fast-form tasks route by type; free text routes by keyword score.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/workflow"
)

// Sentinel errors the shell switches on.
var (
	// ErrInvalidInput means the utterance is not an actionable task. The
	// shell prints guidance and re-prompts. Handlers raise the same
	// sentinel from the classify package when their own classification
	// comes back invalid.
	ErrInvalidInput = classify.ErrInvalidInput

	// ErrClassificationFailed means neither the fast form nor the model
	// produced anything actionable. The shell restarts mode selection
	// rather than risk misrouting through the keyword table.
	ErrClassificationFailed = errors.New("classification failed")
)

// Guidance is shown on invalid input.
const Guidance = classify.Guidance

// Runner wires the classifier and the registry.
type Runner struct {
	reg        *registry.Registry
	classifier *classify.Classifier
}

// New builds a runner.
func New(reg *registry.Registry, classifier *classify.Classifier) *Runner {
	return &Runner{reg: reg, classifier: classifier}
}

// Run executes one utterance end to end.
//
// Parameters:
//   - utterance: The raw user input
//
// Returns:
//   - *workflow.TaskResult: The terminal result, never nil
//   - error: One of the sentinel kinds above, or the handler's error
func (r *Runner) Run(ctx context.Context, utterance string) (*workflow.TaskResult, error) {
	start := time.Now()
	u := classify.Normalize(utterance)

	if classify.IsBlank(u) {
		return failedResult(u, start, Guidance), ErrInvalidInput
	}

	// Fast form routes by type, never by keyword.
	if classify.HasFastPrefix(u) {
		if parsed, ok := classify.ParseFast(u); ok {
			return r.runParsed(ctx, u, parsed, start)
		}
		stripped := classify.StripFastPrefix(u)
		log.Debug("fast form malformed, reclassifying", "stripped", stripped)
		res, err := r.classifier.Classify(ctx, stripped)
		if err != nil || !res.HasParsed {
			return failedResult(u, start, "could not classify the task"), ErrClassificationFailed
		}
		if res.Parsed.Type == classify.TypeInvalid {
			return failedResult(u, start, Guidance), ErrInvalidInput
		}
		return r.runParsed(ctx, stripped, res.Parsed, start)
	}

	// Free text: keyword routing, classification happens in the handler.
	name, score := r.reg.Route(u)
	log.Debug("keyword routed", "handler", name, "score", fmt.Sprintf("%.2f", score))
	handler, ok := r.reg.Get(name)
	if !ok {
		return failedResult(u, start, "no handler available"), ErrInvalidInput
	}
	return handler.Execute(ctx, u, nil)
}

// runParsed routes a structured record by its type.
func (r *Runner) runParsed(ctx context.Context, task string, parsed classify.Parsed, start time.Time) (*workflow.TaskResult, error) {
	switch parsed.Type {
	case classify.TypeInvalid:
		return failedResult(task, start, Guidance), ErrInvalidInput
	case classify.TypeOthers:
		// A structured record with no type route cannot be trusted to
		// the keyword table.
		return failedResult(task, start, "task type has no handler"), ErrClassificationFailed
	}

	handler, ok := r.reg.RouteByType(parsed.Type)
	if !ok {
		return failedResult(task, start, "task type has no handler"), ErrClassificationFailed
	}
	return handler.Execute(ctx, task, &parsed)
}

func failedResult(task string, start time.Time, message string) *workflow.TaskResult {
	return &workflow.TaskResult{
		ID:        uuid.NewString(),
		Task:      task,
		Status:    workflow.StatusFailed,
		Message:   message,
		StartedAt: start,
		Elapsed:   time.Since(start),
	}
}
