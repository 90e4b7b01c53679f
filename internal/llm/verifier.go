package llm

import (
	"context"
	"fmt"
	"image"
)

// Suggestion is the verifier's advice when a step did not land.
type Suggestion string

const (
	SuggestRetry  Suggestion = "retry"  // same step again
	SuggestBack   Suggestion = "back"   // press back, then retry
	SuggestReplan Suggestion = "replan" // workflow is off the rails
	SuggestIgnore Suggestion = "ignore" // harmless, keep going
)

// VerifyResult is the verifier's judgement of one executed step.
type VerifyResult struct {
	Passed     bool
	Confidence float64
	Reason     string
	Suggestion Suggestion
}

// Blocker kinds reported by the model.
const (
	BlockerPopup      = "popup"
	BlockerDialog     = "dialog"
	BlockerPermission = "permission"
	BlockerAd         = "ad"
	BlockerError      = "error"
	BlockerLoading    = "loading"
	BlockerKeyboard   = "keyboard"
)

// Blocker is an unexpected overlay sitting on top of the workflow: a
// permission prompt, update dialog, ad or similar. DismissX/Y point at the
// element that closes it when the model could see one.
type Blocker struct {
	Kind        string
	Description string
	DismissX    int
	DismissY    int
	CanDismiss  bool
}

// Verifier judges step outcomes with the remote model, with a cheap
// pixel-difference path for steps that only need "did anything change".
type Verifier struct {
	client *Client
}

// NewVerifier wraps a client for verification calls.
func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

// QuickCheck reports whether the screen changed at all between two
// screenshots. No model call.
func (v *Verifier) QuickCheck(before, after image.Image) bool {
	return ScreensDiffer(before, after)
}

const verifySystem = `You verify Android automation steps from screenshots.
You get the screenshot taken after a step ran, the action that was attempted
and the expected outcome. Judge whether the step succeeded.
Return strictly valid JSON and nothing else:
{"passed": true/false, "confidence": 0.0-1.0, "reason": "short explanation",
 "suggestion": "retry"|"back"|"replan"|"ignore"}
suggestion only matters when passed is false: "retry" if the same action may
work again, "back" if the app navigated somewhere wrong, "replan" if the
screen no longer fits the workflow, "ignore" if the failure is cosmetic.`

// VerifyStep asks the model whether a step achieved its expected outcome.
//
// Parameters:
//   - after: Screenshot taken after the step
//   - action: What the step did, e.g. "tapped send_button"
//   - expected: The expected outcome, e.g. "message appears in the chat"
//
// Returns:
//   - VerifyResult: The judgement with a recovery suggestion on failure
//   - error: Model or parse errors
func (v *Verifier) VerifyStep(ctx context.Context, after image.Image, action, expected string) (VerifyResult, error) {
	b64, err := EncodeImage(after)
	if err != nil {
		return VerifyResult{}, err
	}
	prompt := fmt.Sprintf("Action performed: %s\nExpected outcome: %s", action, expected)
	reply, err := v.client.Chat(ctx, verifySystem, prompt, []string{b64}, true)
	if err != nil {
		return VerifyResult{}, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return VerifyResult{}, fmt.Errorf("verifier reply is not JSON: %s", truncate(reply, 120))
	}
	res := VerifyResult{
		Passed:     obj.Get("passed").Bool(),
		Confidence: obj.Get("confidence").Float(),
		Reason:     obj.Get("reason").String(),
		Suggestion: Suggestion(obj.Get("suggestion").String()),
	}
	if !res.Passed && res.Suggestion == "" {
		res.Suggestion = SuggestRetry
	}
	return res, nil
}

const blockerSystem = `You look at Android screenshots for automation blockers:
permission prompts, update dialogs, ads, login walls or any overlay that sits
on top of the app and blocks interaction.
Return strictly valid JSON and nothing else:
{"blocked": true/false,
 "kind": "popup"|"dialog"|"permission"|"ad"|"error"|"loading"|"keyboard",
 "description": "what is blocking",
 "dismiss": {"found": true/false, "xmin": N, "ymin": N, "xmax": N, "ymax": N}}
dismiss is the button that closes the overlay (close, cancel, skip, allow),
in 0-1000 normalized coordinates. A loading spinner or progress screen is
kind loading with no dismiss. Normal app screens are not blocked.`

// DetectBlocker checks a screenshot for an overlay blocking the workflow.
// Returns nil when the screen is clear.
func (v *Verifier) DetectBlocker(ctx context.Context, shot image.Image) (*Blocker, error) {
	b64, err := EncodeImage(shot)
	if err != nil {
		return nil, err
	}
	reply, err := v.client.Chat(ctx, blockerSystem,
		"Is anything blocking this screen?", []string{b64}, true)
	if err != nil {
		return nil, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("blocker reply is not JSON: %s", truncate(reply, 120))
	}
	if !obj.Get("blocked").Bool() {
		return nil, nil
	}
	b := &Blocker{
		Kind:        obj.Get("kind").String(),
		Description: obj.Get("description").String(),
	}
	if dismiss := obj.Get("dismiss"); dismiss.Get("found").Bool() {
		b.CanDismiss = true
		b.DismissX, b.DismissY = BBoxCenter(
			dismiss.Get("xmin").Float(), dismiss.Get("ymin").Float(),
			dismiss.Get("xmax").Float(), dismiss.Get("ymax").Float(),
			shot.Bounds().Dx(), shot.Bounds().Dy(),
		)
	}
	return b, nil
}
