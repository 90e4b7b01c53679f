package llm

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// PlannedStep is one recovery action proposed by the model. Coordinates are
// already converted to pixels; Target carries a description for actions that
// need locating instead.
type PlannedStep struct {
	Action string // tap, swipe, input, key, wait, launch
	X, Y   int
	ToX    int
	ToY    int
	Text   string
	Target string
	Reason string
}

// Planner asks the model for a fresh step sequence when a workflow has lost
// its way.
type Planner struct {
	client *Client
}

// NewPlanner wraps a client for planning calls.
func NewPlanner(client *Client) *Planner {
	return &Planner{client: client}
}

// actionAliases folds the model's verb choices onto the executor's action
// vocabulary. Models are not reliable about sticking to the listed verbs.
var actionAliases = map[string]string{
	"click":       "tap",
	"press":       "tap",
	"touch":       "tap",
	"scroll":      "swipe",
	"drag":        "swipe",
	"type":        "input",
	"text":        "input",
	"enter":       "input",
	"dial":        "call",
	"back":        "key",
	"keypress":    "key",
	"sleep":       "wait",
	"pause":       "wait",
	"open":        "launch",
	"launch_app":  "launch",
	"start_app":   "launch",
	"find":        "tap",
	"tap_element": "tap",
}

// NormalizeAction maps a model-chosen verb to the executor vocabulary.
func NormalizeAction(action string) string {
	a := strings.ToLower(strings.TrimSpace(action))
	if mapped, ok := actionAliases[a]; ok {
		return mapped
	}
	return a
}

const planSystem = `You plan recovery steps for Android UI automation.
You get a screenshot of the current screen, the task being attempted and what
went wrong. Propose up to 5 concrete steps to get the task back on track.
Return strictly valid JSON and nothing else:
{"steps": [{"action": "tap"|"swipe"|"input"|"key"|"wait"|"launch",
            "xmin": N, "ymin": N, "xmax": N, "ymax": N,
            "to_xmin": N, "to_ymin": N, "to_xmax": N, "to_ymax": N,
            "text": "...", "target": "element description", "reason": "why"}]}
Coordinates are 0-1000 normalized; give them for tap and swipe. For input,
put the text in "text". For launch, put the package name in "text". Omit
fields that do not apply. Empty steps means the task cannot be recovered.`

// PlanRecovery asks for replacement steps after a workflow failure.
//
// Parameters:
//   - shot: Current screenshot
//   - task: The task being attempted in user terms
//   - failure: What went wrong, including the failed step
//
// Returns:
//   - []PlannedStep: Recovery steps in pixel coordinates, possibly empty
//   - error: Model or parse errors
func (p *Planner) PlanRecovery(ctx context.Context, shot image.Image, task, failure string) ([]PlannedStep, error) {
	b64, err := EncodeImage(shot)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Task: %s\nProblem: %s", task, failure)
	reply, err := p.client.Chat(ctx, planSystem, prompt, []string{b64}, true)
	if err != nil {
		return nil, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("planner reply is not JSON: %s", truncate(reply, 120))
	}

	w, h := shot.Bounds().Dx(), shot.Bounds().Dy()
	var steps []PlannedStep
	for _, s := range obj.Get("steps").Array() {
		step := PlannedStep{
			Action: NormalizeAction(s.Get("action").String()),
			Text:   s.Get("text").String(),
			Target: s.Get("target").String(),
			Reason: s.Get("reason").String(),
		}
		if s.Get("xmax").Exists() {
			step.X, step.Y = BBoxCenter(
				s.Get("xmin").Float(), s.Get("ymin").Float(),
				s.Get("xmax").Float(), s.Get("ymax").Float(), w, h)
		}
		if s.Get("to_xmax").Exists() {
			step.ToX, step.ToY = BBoxCenter(
				s.Get("to_xmin").Float(), s.Get("to_ymin").Float(),
				s.Get("to_xmax").Float(), s.Get("to_ymax").Float(), w, h)
		}
		if step.Action == "" {
			continue
		}
		steps = append(steps, step)
		if len(steps) == 5 {
			break
		}
	}
	return steps, nil
}

// NavHint is the model's advice for getting back to a known screen.
type NavHint struct {
	Arrived bool
	Action  string // tap or key
	X, Y    int
	Reason  string
}

const navSystem = `You help Android automation navigate back to a target
screen. You get a screenshot and a description of the screen to reach.
Return strictly valid JSON and nothing else:
{"arrived": true/false, "action": "tap"|"back",
 "xmin": N, "ymin": N, "xmax": N, "ymax": N, "reason": "why"}
If the screenshot already shows the target screen, set arrived true. Otherwise
propose one action: tap an element (0-1000 normalized box) or press back.`

// SuggestNavigation asks for one step toward the described screen.
func (p *Planner) SuggestNavigation(ctx context.Context, shot image.Image, targetScreen string) (NavHint, error) {
	b64, err := EncodeImage(shot)
	if err != nil {
		return NavHint{}, err
	}
	reply, err := p.client.Chat(ctx, navSystem,
		"Target screen: "+targetScreen, []string{b64}, true)
	if err != nil {
		return NavHint{}, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return NavHint{}, fmt.Errorf("navigation reply is not JSON: %s", truncate(reply, 120))
	}
	hint := NavHint{
		Arrived: obj.Get("arrived").Bool(),
		Action:  NormalizeAction(obj.Get("action").String()),
		Reason:  obj.Get("reason").String(),
	}
	if hint.Action == "tap" && obj.Get("xmax").Exists() {
		hint.X, hint.Y = BBoxCenter(
			obj.Get("xmin").Float(), obj.Get("ymin").Float(),
			obj.Get("xmax").Float(), obj.Get("ymax").Float(),
			shot.Bounds().Dx(), shot.Bounds().Dy())
	}
	return hint, nil
}

const chooseWorkflowSystem = `You route tasks to workflows. You get a task in
user terms and a list of workflows with descriptions. Pick the best workflow
and extract its parameters from the task text.
Return strictly valid JSON and nothing else:
{"workflow": "name", "params": {"key": "value"}, "confidence": 0.0-1.0}
If no workflow fits, return {"workflow": ""}.`

// ChooseWorkflow picks a workflow for a free-form task.
//
// Parameters:
//   - task: The task in user terms
//   - workflows: Candidate workflow names mapped to their descriptions
//
// Returns:
//   - string: The chosen workflow name, empty when none fit
//   - map[string]string: Extracted parameters
//   - error: Model or parse errors
func (p *Planner) ChooseWorkflow(ctx context.Context, task string, workflows map[string]string) (string, map[string]string, error) {
	names := make([]string, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\nWorkflows:\n", task)
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s: %s\n", name, workflows[name])
	}

	reply, err := p.client.Chat(ctx, chooseWorkflowSystem, sb.String(), nil, true)
	if err != nil {
		return "", nil, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return "", nil, fmt.Errorf("workflow choice reply is not JSON: %s", truncate(reply, 120))
	}
	name := obj.Get("workflow").String()
	if _, known := workflows[name]; !known {
		return "", nil, nil
	}
	params := map[string]string{}
	obj.Get("params").ForEach(func(k, v gjson.Result) bool {
		params[k.String()] = v.String()
		return true
	})
	return name, params, nil
}
