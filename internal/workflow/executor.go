package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
	"github.com/droidpilot/cli/internal/locate"
)

// Sentinel errors for workflow failure kinds.
var (
	ErrLocateFailed      = errors.New("element not found")
	ErrStepFailed        = errors.New("step failed")
	ErrUnableToReachHome = errors.New("unable to reach home screen")
	ErrParamsMissing     = errors.New("required parameters missing")
	ErrPlannerFailed     = errors.New("planner returned nothing usable")
)

// AssetSource resolves logical reference names to image paths. The asset
// store implements it; tests substitute their own.
type AssetSource interface {
	Resolve(name string) string
	Variants(name string) []string
}

// Verifier judges step outcomes. Nil skips model verification; the cheap
// pixel-difference check still runs.
type Verifier interface {
	QuickCheck(before, after image.Image) bool
	VerifyStep(ctx context.Context, after image.Image, action, expected string) (llm.VerifyResult, error)
	DetectBlocker(ctx context.Context, shot image.Image) (*llm.Blocker, error)
}

// Planner produces recovery steps and navigation hints. Nil disables
// replanning and the model navigation fallback.
type Planner interface {
	PlanRecovery(ctx context.Context, shot image.Image, task, failure string) ([]llm.PlannedStep, error)
	SuggestNavigation(ctx context.Context, shot image.Image, targetScreen string) (llm.NavHint, error)
}

// Options wires an executor.
type Options struct {
	Device    adb.Device
	Locator   *locate.Locator
	Assets    AssetSource
	Screens   *ScreenSet
	Verifier  Verifier
	Planner   Planner
	Config    *config.Config
	Workflows map[string]*Workflow
}

// Executor interprets declarative workflows against one device. One executor
// serves one app handler; state between runs is limited to cached screen
// dimensions.
type Executor struct {
	dev       adb.Device
	loc       *locate.Locator
	assets    AssetSource
	screens   *ScreenSet
	verifier  Verifier
	planner   Planner
	cfg       *config.Config
	workflows map[string]*Workflow
	tracer    trace.Tracer

	screenW int
	screenH int

	// lastShot is the most recent decoded capture, kept for the cheap
	// did-anything-change verification.
	lastShot image.Image
}

// NewExecutor builds an executor from its collaborators.
func NewExecutor(opts Options) *Executor {
	return &Executor{
		dev:       opts.Device,
		loc:       opts.Locator,
		assets:    opts.Assets,
		screens:   opts.Screens,
		verifier:  opts.Verifier,
		planner:   opts.Planner,
		cfg:       opts.Config,
		workflows: opts.Workflows,
		tracer:    otel.Tracer("droidpilot/workflow"),
	}
}

// Execute runs one workflow to completion. Whatever happens in the body, the
// reset step runs exactly once before returning: the device is steered back
// to the app's home screen, and reset errors never override the body result.
//
// Parameters:
//   - wf: The workflow definition
//   - params: User parameters, overlaid on the workflow's optional defaults
//   - task: The originating task text, used for replanning context
//
// Returns:
//   - *TaskResult: Terminal result with per-step records, never nil
func (e *Executor) Execute(ctx context.Context, wf *Workflow, params map[string]string, task string) *TaskResult {
	res := &TaskResult{
		ID:        uuid.NewString(),
		Task:      task,
		Workflow:  wf.Name,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	defer func() { res.Elapsed = time.Since(res.StartedAt) }()

	if missing := wf.MissingParams(params); len(missing) > 0 {
		res.Status = StatusFailed
		res.Message = fmt.Sprintf("%v: %s", ErrParamsMissing, strings.Join(missing, ", "))
		return res
	}

	ctx, span := e.tracer.Start(ctx, "workflow."+wf.Name)
	defer span.End()

	err := func() error {
		// Reset is mandatory on every path out of the body.
		defer e.reset(ctx)
		if err := e.preset(ctx); err != nil {
			return err
		}
		return e.runSteps(ctx, wf, wf.MergedParams(params), res, task)
	}()

	if err != nil {
		res.Status = StatusFailed
		res.Message = err.Error()
		span.RecordError(err)
		return res
	}
	res.Status = StatusSuccess
	res.Message = "completed"
	return res
}

// preset launches the app when it is not foreground and steers to the app
// home screen.
func (e *Executor) preset(ctx context.Context) error {
	if e.screens.Package != "" {
		fg, err := e.dev.ForegroundPackage(ctx)
		if err != nil || fg != e.screens.Package {
			if lerr := e.dev.LaunchApp(ctx, e.screens.Package, ""); lerr != nil {
				return fmt.Errorf("launching %s: %w", e.screens.Package, lerr)
			}
			e.sleep(ctx, 2*time.Second)
			if err != nil {
				// Foreground query unsupported: fall back to
				// screenshot detection.
				if screen := e.detectScreen(ctx); screen == ScreenUnknown {
					log.Warn("cannot confirm app foreground", "package", e.screens.Package)
				}
			}
		}
	}
	if err := e.ensureHome(ctx); err != nil {
		return err
	}
	return nil
}

// reset steers back to the app home screen. Errors are logged, never
// returned: a failed reset must not mask the body result.
func (e *Executor) reset(ctx context.Context) {
	if err := e.ensureHome(ctx); err != nil {
		log.Warn("reset to home failed", "err", err)
	}
}

// ensureHome is the canonical navigate-to-home macro. Each attempt probes
// three candidates in parallel and prefers in-app controls over the device
// back key: home indicator, cancel button, back button, then KEYCODE_BACK.
func (e *Executor) ensureHome(ctx context.Context) error {
	targets := []locate.Target{
		locate.ByReference("home", e.assets.Variants(e.screens.HomeIndicator)),
		locate.ByReference("cancel", e.assets.Variants(e.screens.CancelButton)),
		locate.ByReference("back", e.assets.Variants(e.screens.BackButton)),
	}

	backPresses := 0
	for attempt := 0; attempt < e.cfg.HomeMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		shot, img, err := e.capture(ctx)
		if err != nil {
			return err
		}

		results := e.loc.LocateMultiple(ctx, img, targets, locate.StrategyOpenCVOnly)
		switch {
		case results["home"].Found:
			r := results["home"]
			if err := e.dev.Tap(ctx, r.X, r.Y+shot.TopOffset); err != nil {
				return err
			}
			e.sleep(ctx, e.cfg.OperationDelay)
			return nil
		case results["cancel"].Found:
			r := results["cancel"]
			if err := e.dev.Tap(ctx, r.X, r.Y+shot.TopOffset); err != nil {
				return err
			}
		case results["back"].Found:
			r := results["back"]
			if err := e.dev.Tap(ctx, r.X, r.Y+shot.TopOffset); err != nil {
				return err
			}
		default:
			// Blind back presses have their own budget: past it the
			// model fallback is a better bet than digging deeper into
			// whatever screen this is.
			if backPresses >= e.cfg.MaxBackPresses {
				if err := e.aiNavigateHome(ctx); err == nil {
					return nil
				}
				return ErrUnableToReachHome
			}
			backPresses++
			if err := e.dev.PressKey(ctx, adb.KeyBack); err != nil {
				return err
			}
		}
		e.sleep(ctx, e.cfg.BackPressInterval)
	}

	if err := e.aiNavigateHome(ctx); err == nil {
		return nil
	}
	return ErrUnableToReachHome
}

// aiNavigateHome asks the model for single navigation steps toward the app
// home screen when the pixel probes keep missing.
func (e *Executor) aiNavigateHome(ctx context.Context) error {
	if e.planner == nil || e.screens.HomeScreenAI == "" {
		return ErrUnableToReachHome
	}
	for attempt := 0; attempt < e.cfg.AIFallbackAttempts; attempt++ {
		shot, img, err := e.capture(ctx)
		if err != nil {
			return err
		}
		hint, err := e.planner.SuggestNavigation(ctx, img, e.screens.HomeScreenAI)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPlannerFailed, err)
		}
		if hint.Arrived {
			return nil
		}
		switch hint.Action {
		case "tap":
			if err := e.dev.Tap(ctx, hint.X, hint.Y+shot.TopOffset); err != nil {
				return err
			}
		default:
			if err := e.dev.PressKey(ctx, adb.KeyBack); err != nil {
				return err
			}
		}
		e.sleep(ctx, e.cfg.OperationDelay)
	}
	return ErrUnableToReachHome
}

// detectScreen classifies the current screen by probing each state's
// indicators in priority order. All misses mean unknown.
func (e *Executor) detectScreen(ctx context.Context) string {
	_, img, err := e.capture(ctx)
	if err != nil {
		log.Debug("screen detection capture failed", "err", err)
		return ScreenUnknown
	}
	return e.classifyScreen(ctx, img)
}

func (e *Executor) classifyScreen(ctx context.Context, img image.Image) string {
	for _, screen := range e.screens.Screens {
		for _, ref := range screen.Primary {
			if e.probe(ctx, img, ref) {
				return screen.Name
			}
		}
		for _, ref := range screen.Fallback {
			if e.probe(ctx, img, ref) {
				return screen.Name
			}
		}
	}
	return ScreenUnknown
}

func (e *Executor) probe(ctx context.Context, img image.Image, ref string) bool {
	paths := e.assets.Variants(ref)
	if len(paths) == 0 {
		return false
	}
	r := e.loc.LocateWithStrategy(ctx, img, locate.ByReference(ref, paths), locate.StrategyOpenCVFirst)
	return r.Found
}

// runSteps is the main loop: start-screen policy, then each step with
// retries, verification, recovery and bounded replanning.
func (e *Executor) runSteps(ctx context.Context, wf *Workflow, params map[string]string, res *TaskResult, task string) error {
	if err := e.ensureStartScreen(ctx, wf, params); err != nil {
		return err
	}

	steps := wf.Steps
	replans := 0
	for i := 0; i < len(steps); i++ {
		step, err := steps[i].Substitute(params)
		if err != nil {
			res.Steps = append(res.Steps, StepResult{
				Index: i, Action: steps[i].Action, Target: steps[i].Target,
				Status: StatusFailed, Error: err.Error(),
			})
			return fmt.Errorf("%w: %v", ErrStepFailed, err)
		}

		// Consecutive fire-and-forget steps run back to back with no
		// intermediate capture.
		batched := i+1 < len(steps) && CanBatch(step, steps[i+1])

		sr, stepErr := e.runStep(ctx, step, i, batched, task)
		res.Steps = append(res.Steps, sr)
		if stepErr == nil {
			continue
		}

		if e.planner != nil && replans < e.cfg.MaxReplans {
			replans++
			planned, perr := e.replan(ctx, task, step, stepErr)
			if perr != nil {
				log.Warn("replan failed", "err", perr)
				return fmt.Errorf("%w: %s (%s)", ErrStepFailed, step.Action, stepErr)
			}
			log.Info("replanned remaining steps", "count", len(planned), "replan", replans)
			// Copy before splicing; wf.Steps is shared and immutable.
			spliced := make([]Step, 0, i+1+len(planned))
			spliced = append(spliced, steps[:i+1]...)
			spliced = append(spliced, planned...)
			steps = spliced
			continue
		}
		return fmt.Errorf("%w: %s (%s)", ErrStepFailed, step.Action, stepErr)
	}

	if wf.EndScreen != "" {
		if screen := e.detectScreen(ctx); screen != wf.EndScreen {
			return fmt.Errorf("%w: ended on %s, want %s", ErrStepFailed, screen, wf.EndScreen)
		}
	}
	return nil
}

// ensureStartScreen gets the device onto one of the workflow's valid start
// screens, running navToStart from home when the workflow declares it.
func (e *Executor) ensureStartScreen(ctx context.Context, wf *Workflow, params map[string]string) error {
	current := e.detectScreen(ctx)
	if containsString(wf.ValidStartScreens, current) {
		return nil
	}
	if err := e.ensureHome(ctx); err != nil {
		return err
	}
	for i, raw := range wf.NavToStart {
		step, err := raw.Substitute(params)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStepFailed, err)
		}
		if _, err := e.executeAction(ctx, step, ""); err != nil {
			return fmt.Errorf("nav to start step %d: %w", i, err)
		}
		e.sleep(ctx, e.cfg.OperationDelay)
	}
	current = e.detectScreen(ctx)
	if !containsString(wf.ValidStartScreens, current) && !containsString(wf.ValidStartScreens, ScreenHome) {
		return fmt.Errorf("%w: start screen %s not in %v", ErrStepFailed, current, wf.ValidStartScreens)
	}
	return nil
}

// runStep executes one step with its retry budget, screen expectation and
// verification tier.
func (e *Executor) runStep(ctx context.Context, step Step, index int, batched bool, task string) (StepResult, error) {
	sr := StepResult{Index: index, Action: step.Action, Target: step.Target}
	start := time.Now()
	defer func() { sr.Elapsed = time.Since(start) }()

	ctx, span := e.tracer.Start(ctx, "step."+step.Action, trace.WithAttributes(
		attribute.Int("step.index", index),
		attribute.String("step.target", step.Target),
	))
	defer span.End()

	var lastErr error
	navRecoveries := 0
	for attempt := 0; attempt <= e.cfg.MaxStepRetries; attempt++ {
		if ctx.Err() != nil {
			sr.Status = StatusAborted
			return sr, ctx.Err()
		}
		if attempt > 0 {
			log.Debug("retrying step", "action", step.Action, "attempt", attempt)
			e.handleBlocker(ctx)
			e.sleep(ctx, e.cfg.OperationDelay)
		}

		stage, err := e.executeAction(ctx, step, task)
		sr.Stage = stage
		if err == nil && step.ExpectScreen != "" && !batched {
			e.sleep(ctx, e.transitionWait())
			if screen := e.detectScreen(ctx); screen != step.ExpectScreen {
				err = fmt.Errorf("expected screen %s, detected %s", step.ExpectScreen, screen)
			}
		}
		if err == nil && !batched {
			err = e.verify(ctx, step)
		}
		if err == nil {
			sr.Status = StatusSuccess
			if !batched {
				e.sleep(ctx, e.postActionWait(step))
			}
			return sr, nil
		}
		lastErr = err
		span.RecordError(err)

		if errors.Is(err, adb.ErrDeviceUnavailable) {
			break
		}
		// Locate failures recover locally: steer home and retry from a
		// known screen, bounded separately from the retry budget.
		if errors.Is(err, ErrLocateFailed) && attempt < e.cfg.MaxStepRetries {
			if navRecoveries >= e.cfg.RecoverNavAttempts {
				break
			}
			navRecoveries++
			if herr := e.ensureHome(ctx); herr != nil {
				break
			}
		}
	}
	sr.Status = StatusFailed
	sr.Error = lastErr.Error()
	return sr, lastErr
}

// handleBlocker checks for an overlay blocking the flow and taps it away
// when the model points at a dismiss control. Loading overlays are waited
// out instead of dismissed.
func (e *Executor) handleBlocker(ctx context.Context) {
	if e.verifier == nil {
		return
	}
	for attempt := 0; attempt < 3; attempt++ {
		shot, img, err := e.capture(ctx)
		if err != nil {
			return
		}
		blocker, err := e.verifier.DetectBlocker(ctx, img)
		if err != nil || blocker == nil {
			return
		}
		log.Info("blocker detected", "kind", blocker.Kind, "desc", blocker.Description)
		if blocker.Kind == llm.BlockerLoading {
			e.sleep(ctx, 1500*time.Millisecond)
			continue
		}
		if blocker.CanDismiss {
			_ = e.dev.Tap(ctx, blocker.DismissX, blocker.DismissY+shot.TopOffset)
			e.sleep(ctx, 1500*time.Millisecond)
		} else {
			_ = e.dev.PressKey(ctx, adb.KeyBack)
			e.sleep(ctx, e.cfg.BackPressInterval)
		}
		return
	}
}

// verify applies the step's verification tier after a successful action.
func (e *Executor) verify(ctx context.Context, step Step) error {
	switch VerificationOf(step) {
	case VerifySkip:
		return nil
	case VerifyLenient:
		e.handleBlocker(ctx)
		return nil
	case VerifyPrecise:
		_, img, err := e.capture(ctx)
		if err != nil {
			return err
		}
		paths := e.assets.Variants(step.VerifyRef)
		r := e.loc.LocateWithStrategy(ctx, img, locate.ByReference(step.VerifyRef, paths), locate.StrategyOpenCVFirst)
		if !r.Found {
			return fmt.Errorf("verify reference %s not visible", step.VerifyRef)
		}
		return nil
	default: // standard
		if e.verifier == nil {
			return nil
		}
		before := e.lastShot
		_, img, err := e.capture(ctx)
		if err != nil {
			return err
		}
		if TierOf(step) == TierFullAI {
			verdict, err := e.verifier.VerifyStep(ctx, img,
				step.Action+" "+step.Target, step.Description)
			if err != nil {
				log.Debug("model verification unavailable", "err", err)
				return nil
			}
			if !verdict.Passed {
				return fmt.Errorf("verification failed: %s", verdict.Reason)
			}
			return nil
		}
		if before != nil && !e.verifier.QuickCheck(before, img) {
			return fmt.Errorf("screen did not change after %s", step.Action)
		}
		return nil
	}
}

// replan asks the planner for replacement steps after a step exhausted its
// retries.
func (e *Executor) replan(ctx context.Context, task string, failed Step, cause error) ([]Step, error) {
	_, img, err := e.capture(ctx)
	if err != nil {
		return nil, err
	}
	failure := fmt.Sprintf("step %q on %q failed: %v", failed.Action, failed.Target, cause)
	planned, err := e.planner.PlanRecovery(ctx, img, task, failure)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerFailed, err)
	}
	if len(planned) == 0 {
		return nil, ErrPlannerFailed
	}

	steps := make([]Step, 0, len(planned))
	for _, p := range planned {
		steps = append(steps, plannedToStep(p))
	}
	return steps, nil
}

// plannedToStep converts a model-proposed action to a workflow step. Planned
// coordinates are absolute, carried through params.
func plannedToStep(p llm.PlannedStep) Step {
	s := Step{Description: p.Reason, Params: map[string]string{}}
	switch p.Action {
	case "tap":
		s.Action = ActionTap
		if p.Target != "" && p.X == 0 && p.Y == 0 {
			s.Target = "dynamic:" + p.Target
		} else {
			s.Params["x"] = strconv.Itoa(p.X)
			s.Params["y"] = strconv.Itoa(p.Y)
		}
	case "swipe":
		s.Action = ActionSwipe
		s.Params["x1"] = strconv.Itoa(p.X)
		s.Params["y1"] = strconv.Itoa(p.Y)
		s.Params["x2"] = strconv.Itoa(p.ToX)
		s.Params["y2"] = strconv.Itoa(p.ToY)
	case "input":
		s.Action = ActionInputText
		s.Params["text"] = p.Text
		if p.Target != "" {
			s.Target = "dynamic:" + p.Target
		}
	case "key":
		s.Action = ActionPressKey
		s.Params["key"] = "back"
	case "wait":
		s.Action = ActionWait
		s.Params["duration"] = "1000"
	case "launch":
		s.Action = ActionLaunchApp
		s.Params["package"] = p.Text
	default:
		s.Action = ActionWait
		s.Params["duration"] = "500"
	}
	return s
}

// transitionWait is the capture-readiness delay before screen detection.
func (e *Executor) transitionWait() time.Duration {
	return e.cfg.ScreenshotWaitFor(e.screens.App)
}

// postActionWait picks the settle delay after a successful action.
func (e *Executor) postActionWait(step Step) time.Duration {
	switch step.Action {
	case ActionLaunchApp, ActionOpenURL, ActionCall:
		return 2 * time.Second
	case ActionTap:
		return 300 * time.Millisecond
	case ActionWait:
		return 0
	default:
		return e.cfg.OperationDelay
	}
}

// capture waits for the app's capture-readiness delay and grabs a cropped
// screenshot plus its decoded image.
func (e *Executor) capture(ctx context.Context) (*adb.Screenshot, image.Image, error) {
	e.sleep(ctx, e.cfg.ScreenshotWaitFor(e.screens.App))
	shot, err := e.dev.CaptureScreen(ctx)
	if err != nil {
		return nil, nil, err
	}
	img, err := locate.DecodeScreenshot(shot.PNG)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	e.lastShot = img
	return shot, img, nil
}

func (e *Executor) size(ctx context.Context) (int, int, error) {
	if e.screenW > 0 {
		return e.screenW, e.screenH, nil
	}
	w, h, err := e.dev.ScreenSize(ctx)
	if err != nil {
		return 0, 0, err
	}
	e.screenW, e.screenH = w, h
	return w, h, nil
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// SaveScreenshot captures the current screen to a PNG file.
func (e *Executor) SaveScreenshot(ctx context.Context, path string) error {
	shot, err := e.dev.CaptureScreen(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, shot.PNG, 0o644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
