// Package workflow defines declarative workflows and the executor that runs
// them against a device: preset to a known state, step execution with screen
// verification and recovery, and a mandatory reset to home.
package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Step actions. Workflows are data; the executor interprets these.
const (
	ActionTap          = "tap"
	ActionLongPress    = "long_press"
	ActionSwipe        = "swipe"
	ActionInputText    = "input_text"
	ActionInputURL     = "input_url"
	ActionPressKey     = "press_key"
	ActionKeyEvent     = "keyevent"
	ActionWait         = "wait"
	ActionCheck        = "check"
	ActionFindOrSearch = "find_or_search"
	ActionConditional  = "conditional"
	ActionScreenshot   = "screenshot"
	ActionNavToHome    = "nav_to_home"
	ActionSubWorkflow  = "sub_workflow"
	ActionLaunchApp    = "launch_app"
	ActionOpenURL      = "open_url"
	ActionCall         = "call"
	ActionGoHome       = "go_home"
)

// Step is one workflow operation. Target may be a reference name, a
// "dynamic:<description>" free-text locator, or a "{param}" placeholder.
type Step struct {
	Action       string            `yaml:"action"`
	Target       string            `yaml:"target,omitempty"`
	Params       map[string]string `yaml:"params,omitempty"`
	Description  string            `yaml:"description,omitempty"`
	ExpectScreen string            `yaml:"expectScreen,omitempty"`
	MaxWaitMs    int               `yaml:"maxWaitMs,omitempty"`
	VerifyRef    string            `yaml:"verifyRef,omitempty"`
	Condition    string            `yaml:"condition,omitempty"`
}

// Workflow is a declarative task recipe.
type Workflow struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description,omitempty"`
	ValidStartScreens []string          `yaml:"validStartScreens"`
	NavToStart        []Step            `yaml:"navToStart,omitempty"`
	Steps             []Step            `yaml:"steps"`
	EndScreen         string            `yaml:"endScreen,omitempty"`
	RequiredParams    []string          `yaml:"requiredParams,omitempty"`
	OptionalParams    map[string]string `yaml:"optionalParams,omitempty"`
}

// MissingParams returns required parameter names absent from params.
func (w *Workflow) MissingParams(params map[string]string) []string {
	var missing []string
	for _, name := range w.RequiredParams {
		if strings.TrimSpace(params[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// MergedParams overlays user params on the workflow's optional defaults.
func (w *Workflow) MergedParams(params map[string]string) map[string]string {
	merged := make(map[string]string, len(w.OptionalParams)+len(params))
	for k, v := range w.OptionalParams {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Substitute replaces {name} placeholders in the step's target, text param
// and description. An unresolved placeholder is a step failure.
//
// Parameters:
//   - params: The merged parameter map
//
// Returns:
//   - Step: A copy with placeholders replaced
//   - error: The first unresolved placeholder
func (s Step) Substitute(params map[string]string) (Step, error) {
	out := s
	out.Params = make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		out.Params[k] = v
	}

	var missing string
	apply := func(text string) string {
		return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := params[name]; ok {
				return v
			}
			if missing == "" {
				missing = name
			}
			return m
		})
	}

	out.Target = apply(out.Target)
	out.Description = apply(out.Description)
	if text, ok := out.Params["text"]; ok {
		out.Params["text"] = apply(text)
	}
	if missing != "" {
		return out, fmt.Errorf("unresolved placeholder {%s} in step %q", missing, s.Action)
	}
	return out, nil
}

// Task status values.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusAborted = "aborted"
)

// StepResult records one executed step.
type StepResult struct {
	Index   int
	Action  string
	Target  string
	Status  string
	Stage   string // locator stage that found the target, when any
	Error   string
	Elapsed time.Duration
}

// TaskResult is the terminal record of one task run.
type TaskResult struct {
	ID        string
	Task      string
	Workflow  string
	Status    string
	Message   string
	Steps     []StepResult
	StartedAt time.Time
	Elapsed   time.Duration
}

// Screen associates an app screen name with its visual indicators, primary
// tried before fallback.
type Screen struct {
	Name     string   `yaml:"name"`
	Primary  []string `yaml:"primary"`
	Fallback []string `yaml:"fallback,omitempty"`
}

// Well-known screen names shared across apps.
const (
	ScreenHome    = "home"
	ScreenUnknown = "unknown"
	ScreenOther   = "other"
)

// ScreenSet is one app's screen enumeration in detection priority order,
// plus the reference names the ensure-home loop probes.
type ScreenSet struct {
	App           string
	Package       string
	Screens       []Screen
	HomeIndicator string
	CancelButton  string
	BackButton    string
	HomeScreenAI  string // description for the model navigation fallback
}

// Lookup returns the screen entry by name.
func (s *ScreenSet) Lookup(name string) (Screen, bool) {
	for _, sc := range s.Screens {
		if sc.Name == name {
			return sc, true
		}
	}
	return Screen{}, false
}
