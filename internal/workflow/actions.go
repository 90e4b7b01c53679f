package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/locate"
)

// keyNames maps the names workflows use to Android key codes.
var keyNames = map[string]int{
	"home":     adb.KeyHome,
	"back":     adb.KeyBack,
	"power":    adb.KeyPower,
	"enter":    adb.KeyEnter,
	"delete":   adb.KeyDelete,
	"move_end": adb.KeyMoveEnd,
}

// executeAction dispatches one substituted step to the device. It returns
// the locator stage that found the target, when the action needed one.
func (e *Executor) executeAction(ctx context.Context, step Step, task string) (string, error) {
	switch step.Action {
	case ActionTap, ActionLongPress:
		return e.actTap(ctx, step)
	case ActionSwipe:
		return "", e.actSwipe(ctx, step)
	case ActionInputText:
		return e.actInput(ctx, step, step.Params["text"])
	case ActionInputURL:
		return e.actInput(ctx, step, normalizeURL(step.Params["text"]))
	case ActionPressKey, ActionKeyEvent:
		return "", e.actPressKey(ctx, step)
	case ActionWait:
		e.sleep(ctx, paramDuration(step.Params, "duration", time.Second))
		return "", nil
	case ActionCheck:
		if step.ExpectScreen == "" {
			return "", fmt.Errorf("check step without expectScreen")
		}
		if screen := e.detectScreen(ctx); screen != step.ExpectScreen {
			return "", fmt.Errorf("check failed: on %s, want %s", screen, step.ExpectScreen)
		}
		return "", nil
	case ActionFindOrSearch:
		return e.actFindOrSearch(ctx, step, task)
	case ActionConditional:
		return e.actConditional(ctx, step)
	case ActionScreenshot:
		path := step.Params["path"]
		if path == "" {
			path = fmt.Sprintf("screenshot_%d.png", time.Now().Unix())
		}
		return "", e.SaveScreenshot(ctx, path)
	case ActionNavToHome:
		return "", e.ensureHome(ctx)
	case ActionSubWorkflow:
		return "", e.actSubWorkflow(ctx, step, task)
	case ActionLaunchApp:
		pkg := step.Params["package"]
		if pkg == "" {
			pkg = e.screens.Package
		}
		return "", e.dev.LaunchApp(ctx, pkg, step.Params["activity"])
	case ActionOpenURL:
		return "", e.dev.OpenURL(ctx, step.Params["url"])
	case ActionCall:
		return "", e.dev.Dial(ctx, step.Params["number"])
	case ActionGoHome:
		return "", e.dev.GoHome(ctx)
	default:
		return "", fmt.Errorf("unknown action %q", step.Action)
	}
}

// actTap locates the target and issues a tap or long press. Planned steps
// may carry absolute coordinates instead of a target.
func (e *Executor) actTap(ctx context.Context, step Step) (string, error) {
	if step.Target == "" {
		x, xok := paramInt(step.Params, "x")
		y, yok := paramInt(step.Params, "y")
		if !xok || !yok {
			return "", fmt.Errorf("tap step has neither target nor coordinates")
		}
		if step.Action == ActionLongPress {
			return "", e.dev.LongPress(ctx, x, y, 800)
		}
		return "", e.dev.Tap(ctx, x, y)
	}

	x, y, stage, err := e.locateTarget(ctx, step.Target)
	if err != nil {
		return stage, err
	}
	if step.Action == ActionLongPress {
		return stage, e.dev.LongPress(ctx, x, y, 800)
	}
	return stage, e.dev.Tap(ctx, x, y)
}

// actSwipe accepts a named direction or explicit coordinates. Directions map
// to safe fractions of the screen so swipes never start in the system bars.
func (e *Executor) actSwipe(ctx context.Context, step Step) error {
	if x1, ok := paramInt(step.Params, "x1"); ok {
		y1, _ := paramInt(step.Params, "y1")
		x2, _ := paramInt(step.Params, "x2")
		y2, _ := paramInt(step.Params, "y2")
		return e.dev.Swipe(ctx, x1, y1, x2, y2, 300)
	}

	w, h, err := e.size(ctx)
	if err != nil {
		return err
	}
	var x1, y1, x2, y2 int
	switch strings.ToLower(step.Params["direction"]) {
	case "up":
		x1, y1, x2, y2 = w/2, h*7/10, w/2, h*3/10
	case "down":
		x1, y1, x2, y2 = w/2, h*3/10, w/2, h*7/10
	case "left":
		x1, y1, x2, y2 = w*8/10, h/2, w*2/10, h/2
	case "right":
		x1, y1, x2, y2 = w*2/10, h/2, w*8/10, h/2
	default:
		return fmt.Errorf("swipe needs a direction or coordinates")
	}
	return e.dev.Swipe(ctx, x1, y1, x2, y2, 300)
}

// actInput focuses the target field when one is given, then types. The
// device layer picks the wide-character channel by content.
func (e *Executor) actInput(ctx context.Context, step Step, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("input step has no text")
	}
	stage := ""
	if step.Target != "" {
		x, y, s, err := e.locateTarget(ctx, step.Target)
		if err != nil {
			return s, err
		}
		stage = s
		if err := e.dev.Tap(ctx, x, y); err != nil {
			return stage, err
		}
		e.sleep(ctx, 300*time.Millisecond)
	}
	if step.Params["clear"] == "true" {
		if err := e.dev.ClearField(ctx); err != nil {
			return stage, err
		}
	}
	return stage, e.dev.InputText(ctx, text)
}

func (e *Executor) actPressKey(ctx context.Context, step Step) error {
	name := strings.ToLower(step.Params["key"])
	if code, ok := keyNames[name]; ok {
		return e.dev.PressKey(ctx, code)
	}
	if code, err := strconv.Atoi(name); err == nil {
		return e.dev.PressKey(ctx, code)
	}
	return fmt.Errorf("unknown key %q", step.Params["key"])
}

// actFindOrSearch taps the target when it is visible; otherwise it enters
// the app's search surface via the declared sub-workflow, typically to pull
// up a contact that is not on the current screen.
func (e *Executor) actFindOrSearch(ctx context.Context, step Step, task string) (string, error) {
	x, y, stage, err := e.locateTarget(ctx, step.Target)
	if err == nil {
		return stage, e.dev.Tap(ctx, x, y)
	}

	child := step.Params["searchWorkflow"]
	if child == "" {
		child = "search_contact"
	}
	wf, ok := e.workflows[child]
	if !ok {
		return stage, fmt.Errorf("%w: %s and no %s workflow", ErrLocateFailed, step.Target, child)
	}
	log.Info("target not visible, searching", "target", step.Target, "workflow", child)
	params := map[string]string{"query": strings.TrimPrefix(step.Target, "dynamic:")}
	if q := step.Params["query"]; q != "" {
		params["query"] = q
	}
	return stage, e.runChild(ctx, wf, params, task)
}

// actConditional taps the target when it is visible and succeeds either
// way. Used for optional dialogs like "stay signed in".
func (e *Executor) actConditional(ctx context.Context, step Step) (string, error) {
	x, y, stage, err := e.locateTarget(ctx, step.Target)
	if err != nil {
		log.Debug("conditional target absent, skipping", "target", step.Target)
		return stage, nil
	}
	return stage, e.dev.Tap(ctx, x, y)
}

// actSubWorkflow re-enters the executor for a named child workflow. The
// child runs steps only; preset and reset remain the parent's.
func (e *Executor) actSubWorkflow(ctx context.Context, step Step, task string) error {
	name := step.Params["name"]
	wf, ok := e.workflows[name]
	if !ok {
		return fmt.Errorf("unknown sub-workflow %q", name)
	}
	params := make(map[string]string, len(step.Params))
	for k, v := range step.Params {
		if k != "name" {
			params[k] = v
		}
	}
	return e.runChild(ctx, wf, params, task)
}

// runChild executes a child workflow's steps inside the parent's session.
func (e *Executor) runChild(ctx context.Context, wf *Workflow, params map[string]string, task string) error {
	if missing := wf.MissingParams(params); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrParamsMissing, strings.Join(missing, ", "))
	}
	child := &TaskResult{}
	return e.runSteps(ctx, wf, wf.MergedParams(params), child, task)
}

// locateTarget resolves a target to device coordinates. Reference targets go
// through the asset store and the full pixel pipeline; dynamic targets go
// straight to the models. Coordinates are translated back to full-display
// pixels with the capture crop offset.
func (e *Executor) locateTarget(ctx context.Context, target string) (x, y int, stage string, err error) {
	shot, img, err := e.capture(ctx)
	if err != nil {
		return 0, 0, "", err
	}

	var t locate.Target
	if desc, ok := locate.IsDynamic(target); ok {
		t = locate.ByDescription(target, desc)
	} else {
		t = locate.ByReference(target, e.assets.Variants(target))
	}

	r := e.loc.Locate(ctx, img, t)
	if !r.Found {
		return 0, 0, string(r.Stage), fmt.Errorf("%w: %s", ErrLocateFailed, target)
	}
	return r.X, r.Y + shot.TopOffset, string(r.Stage), nil
}

func normalizeURL(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}

func paramInt(params map[string]string, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func paramDuration(params map[string]string, key string, def time.Duration) time.Duration {
	v, ok := params[key]
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
