package llm

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/droidpilot/cli/internal/locate"
)

// Vision answers screen-grounding questions with the remote model. It
// implements locate.RemoteVision.
type Vision struct {
	client *Client
}

// NewVision wraps a client for vision calls.
func NewVision(client *Client) *Vision {
	return &Vision{client: client}
}

const findByDescriptionSystem = `You are a UI element locator for Android screenshots.
Given a screenshot and a description of one UI element, return the element's
bounding box in 0-1000 normalized coordinates.
Return strictly valid JSON and nothing else:
{"found": true/false, "xmin": N, "ymin": N, "xmax": N, "ymax": N, "confidence": 0.0-1.0}
If the element is not visible, return {"found": false}.`

// FindByDescription locates an element described in natural language.
//
// Parameters:
//   - desc: Natural-language element description, e.g. "红色的发送按钮"
//   - shot: The current screenshot
//
// Returns:
//   - locate.Result: Pixel coordinates of the element center when found
//   - error: Model or parse errors
func (v *Vision) FindByDescription(ctx context.Context, desc string, shot image.Image) (locate.Result, error) {
	b64, err := EncodeImage(shot)
	if err != nil {
		return locate.Result{}, err
	}
	reply, err := v.client.Chat(ctx, findByDescriptionSystem,
		"Find this element: "+desc, []string{b64}, true)
	if err != nil {
		return locate.Result{}, err
	}
	return parseBBoxReply(reply, shot.Bounds().Dx(), shot.Bounds().Dy())
}

const findByImageSystem = `You are a UI element locator for Android screenshots.
The first image is a cropped reference of one UI element. The second image is
the full current screenshot. Find where the reference element appears in the
screenshot, tolerating small rendering differences.
Return strictly valid JSON and nothing else:
{"found": true/false, "xmin": N, "ymin": N, "xmax": N, "ymax": N, "confidence": 0.0-1.0}
Coordinates are 0-1000 normalized against the screenshot.
If the element is not visible, return {"found": false}.`

// FindByImage locates an element given its cropped reference image. Needs a
// multi-image capable endpoint; claude-provider configs reject it upstream.
func (v *Vision) FindByImage(ctx context.Context, ref, shot image.Image) (locate.Result, error) {
	refB64, err := EncodeImage(ref)
	if err != nil {
		return locate.Result{}, err
	}
	shotB64, err := EncodeImage(shot)
	if err != nil {
		return locate.Result{}, err
	}
	reply, err := v.client.Chat(ctx, findByImageSystem,
		"Locate the first image inside the second.", []string{refB64, shotB64}, true)
	if err != nil {
		return locate.Result{}, err
	}
	return parseBBoxReply(reply, shot.Bounds().Dx(), shot.Bounds().Dy())
}

func parseBBoxReply(reply string, width, height int) (locate.Result, error) {
	obj, ok := ExtractJSON(reply)
	if !ok {
		return locate.Result{}, fmt.Errorf("locator reply is not JSON: %s", truncate(reply, 120))
	}
	if !obj.Get("found").Bool() {
		return locate.Result{}, nil
	}
	x, y := BBoxCenter(
		obj.Get("xmin").Float(), obj.Get("ymin").Float(),
		obj.Get("xmax").Float(), obj.Get("ymax").Float(),
		width, height,
	)
	return locate.Result{
		Found:      true,
		X:          x,
		Y:          y,
		Confidence: obj.Get("confidence").Float(),
	}, nil
}

const screenMatchSystem = `You look at Android screenshots and answer yes/no
questions about what screen is shown.
Return strictly valid JSON and nothing else:
{"match": true/false, "reason": "short explanation"}`

// ScreenMatches asks whether the screenshot shows the described screen.
func (v *Vision) ScreenMatches(ctx context.Context, shot image.Image, description string) (bool, error) {
	b64, err := EncodeImage(shot)
	if err != nil {
		return false, err
	}
	reply, err := v.client.Chat(ctx, screenMatchSystem,
		"Is this screen: "+description+"?", []string{b64}, true)
	if err != nil {
		return false, err
	}
	obj, ok := ExtractJSON(reply)
	if !ok {
		return false, fmt.Errorf("screen-match reply is not JSON: %s", truncate(reply, 120))
	}
	if !obj.Get("match").Bool() {
		log.Debug("screen mismatch", "want", description, "reason", obj.Get("reason").String())
		return false, nil
	}
	return true, nil
}

// SmallModelClient adapts a lightweight locator endpoint to locate.SmallModel.
// Same wire protocol as the remote model, just a cheaper deployment; the
// pipeline tries it before the full model.
type SmallModelClient struct {
	vision *Vision
}

// NewSmallModel wraps a client as the small-model pipeline stage.
func NewSmallModel(client *Client) *SmallModelClient {
	return &SmallModelClient{vision: NewVision(client)}
}

// Locate implements locate.SmallModel.
func (s *SmallModelClient) Locate(ctx context.Context, shot image.Image, hint string) (locate.Result, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return locate.Result{}, nil
	}
	return s.vision.FindByDescription(ctx, hint, shot)
}
