package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/locate"
)

// NextStep suggests a follow-up action to the agent.
type NextStep struct {
	Tool   string `json:"tool"`
	Params string `json:"params,omitempty"`
	Reason string `json:"reason"`
}

// boolPtr returns a pointer to a bool value. Used for ToolAnnotations fields.
func boolPtr(b bool) *bool { return &b }

// registerDeviceTools registers all device interaction MCP tools.
func (s *Server) registerDeviceTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "device_tap",
		Description: "Tap an element by asset name, description, or raw coordinates. Provide target OR x+y.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Tap Element",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleDeviceTap)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "device_long_press",
		Description: "Long press an element by asset name, description, or raw coordinates. Provide target OR x+y.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Long Press Element",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleDeviceLongPress)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "device_type",
		Description: "Type text into the focused field, optionally tapping a target first. Chinese input goes through the clipboard path automatically.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Type Text",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleDeviceType)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "device_swipe",
		Description: "Swipe in a direction (up/down/left/right) or between raw coordinates.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Swipe on Device",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleDeviceSwipe)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "device_key",
		Description: "Press a key by name (home, back, enter, delete, power) or numeric Android keycode.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Press Key",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleDeviceKey)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "screenshot",
		Description: "Capture the current device screen as a PNG image. Returns the image natively for rendering.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Take Screenshot",
			ReadOnlyHint: true,
		},
	}, s.handleScreenshot)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_element",
		Description: "Locate a UI element without acting. Accepts an asset name from the asset store or a free-text description. Returns coordinates and the locator stage that matched.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Find Element",
			ReadOnlyHint: true,
		},
	}, s.handleFindElement)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "launch_app",
		Description: "Launch an installed app by package name.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Launch App",
			DestructiveHint: boolPtr(true),
		},
	}, s.handleLaunchApp)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "go_home",
		Description: "Return the device to the launcher home screen.",
		Annotations: &mcp.ToolAnnotations{
			Title: "Go Home",
		},
	}, s.handleGoHome)
}

// resolved is a grounded screen coordinate.
type resolved struct {
	X, Y       int
	Confidence float64
	Stage      string
}

// resolveTarget grounds a target string to pixel coordinates. Asset names
// resolve through the reference pipeline; anything else is treated as a
// description for the model stages.
func (s *Server) resolveTarget(ctx context.Context, target string) (resolved, error) {
	shot, err := s.dev.CaptureScreen(ctx)
	if err != nil {
		return resolved{}, err
	}
	img, err := locate.DecodeScreenshot(shot.PNG)
	if err != nil {
		return resolved{}, err
	}

	var t locate.Target
	if s.assets != nil && s.assets.Resolve(target) != "" {
		t = locate.ByReference(target, s.assets.Variants(target))
	} else {
		desc := target
		if d, ok := locate.IsDynamic(target); ok {
			desc = d
		}
		t = locate.ByDescription(target, desc)
	}

	res := s.loc.Locate(ctx, img, t)
	if !res.Found {
		return resolved{}, fmt.Errorf("element %q not found on screen", target)
	}
	return resolved{
		X:          res.X,
		Y:          res.Y + shot.TopOffset,
		Confidence: res.Confidence,
		Stage:      string(res.Stage),
	}, nil
}

// DeviceTapInput defines the input parameters for the device_tap tool.
type DeviceTapInput struct {
	Target string `json:"target,omitempty" jsonschema:"Asset name or element description. Omit when using x+y."`
	X      int    `json:"x,omitempty" jsonschema:"Raw X coordinate"`
	Y      int    `json:"y,omitempty" jsonschema:"Raw Y coordinate"`
}

// DeviceTapOutput defines the output for the device_tap tool.
type DeviceTapOutput struct {
	Success    bool       `json:"success"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Confidence float64    `json:"confidence,omitempty"`
	LatencyMs  float64    `json:"latency_ms"`
	Error      string     `json:"error,omitempty"`
	NextSteps  []NextStep `json:"next_steps,omitempty"`
}

// handleDeviceTap handles the device_tap tool call.
func (s *Server) handleDeviceTap(ctx context.Context, req *mcp.CallToolRequest, input DeviceTapInput) (*mcp.CallToolResult, DeviceTapOutput, error) {
	start := time.Now()
	x, y := input.X, input.Y
	var conf float64
	if input.Target != "" {
		rc, err := s.resolveTarget(ctx, input.Target)
		if err != nil {
			return nil, DeviceTapOutput{Success: false, Error: err.Error(),
				NextSteps: []NextStep{{Tool: "screenshot", Reason: "See the screen, then retry with a better description"}},
			}, nil
		}
		x, y, conf = rc.X, rc.Y, rc.Confidence
	}

	err := s.dev.Tap(ctx, x, y)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, DeviceTapOutput{Success: false, X: x, Y: y, LatencyMs: latency, Error: err.Error()}, nil
	}
	return nil, DeviceTapOutput{
		Success: true, X: x, Y: y, Confidence: conf, LatencyMs: latency,
		NextSteps: []NextStep{{Tool: "screenshot", Reason: "See the result of the tap"}},
	}, nil
}

// DeviceLongPressInput defines the input parameters for device_long_press.
type DeviceLongPressInput struct {
	Target     string `json:"target,omitempty" jsonschema:"Asset name or element description. Omit when using x+y."`
	X          int    `json:"x,omitempty" jsonschema:"Raw X coordinate"`
	Y          int    `json:"y,omitempty" jsonschema:"Raw Y coordinate"`
	DurationMs int    `json:"duration_ms,omitempty" jsonschema:"Press duration in milliseconds (default 800)"`
}

// DeviceLongPressOutput defines the output for device_long_press.
type DeviceLongPressOutput struct {
	Success   bool       `json:"success"`
	X         int        `json:"x"`
	Y         int        `json:"y"`
	LatencyMs float64    `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
	NextSteps []NextStep `json:"next_steps,omitempty"`
}

// handleDeviceLongPress handles the device_long_press tool call.
func (s *Server) handleDeviceLongPress(ctx context.Context, req *mcp.CallToolRequest, input DeviceLongPressInput) (*mcp.CallToolResult, DeviceLongPressOutput, error) {
	start := time.Now()
	x, y := input.X, input.Y
	if input.Target != "" {
		rc, err := s.resolveTarget(ctx, input.Target)
		if err != nil {
			return nil, DeviceLongPressOutput{Success: false, Error: err.Error()}, nil
		}
		x, y = rc.X, rc.Y
	}

	dur := input.DurationMs
	if dur <= 0 {
		dur = 800
	}
	err := s.dev.LongPress(ctx, x, y, dur)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, DeviceLongPressOutput{Success: false, X: x, Y: y, LatencyMs: latency, Error: err.Error()}, nil
	}
	return nil, DeviceLongPressOutput{
		Success: true, X: x, Y: y, LatencyMs: latency,
		NextSteps: []NextStep{{Tool: "screenshot", Reason: "See the result of the long press"}},
	}, nil
}

// DeviceTypeInput defines the input parameters for the device_type tool.
type DeviceTypeInput struct {
	Text   string `json:"text" jsonschema:"Text to type"`
	Target string `json:"target,omitempty" jsonschema:"Optional field to tap and focus first"`
}

// DeviceTypeOutput defines the output for the device_type tool.
type DeviceTypeOutput struct {
	Success   bool       `json:"success"`
	LatencyMs float64    `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
	NextSteps []NextStep `json:"next_steps,omitempty"`
}

// handleDeviceType handles the device_type tool call.
func (s *Server) handleDeviceType(ctx context.Context, req *mcp.CallToolRequest, input DeviceTypeInput) (*mcp.CallToolResult, DeviceTypeOutput, error) {
	if input.Text == "" {
		return nil, DeviceTypeOutput{Success: false, Error: "text is required"}, nil
	}
	start := time.Now()
	if input.Target != "" {
		rc, err := s.resolveTarget(ctx, input.Target)
		if err != nil {
			return nil, DeviceTypeOutput{Success: false, Error: err.Error()}, nil
		}
		if err := s.dev.Tap(ctx, rc.X, rc.Y); err != nil {
			return nil, DeviceTypeOutput{Success: false, Error: err.Error()}, nil
		}
	}

	err := s.dev.InputText(ctx, input.Text)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, DeviceTypeOutput{Success: false, LatencyMs: latency, Error: err.Error()}, nil
	}
	return nil, DeviceTypeOutput{
		Success: true, LatencyMs: latency,
		NextSteps: []NextStep{{Tool: "screenshot", Reason: "Verify the typed text"}},
	}, nil
}

// DeviceSwipeInput defines the input parameters for the device_swipe tool.
type DeviceSwipeInput struct {
	Direction  string `json:"direction,omitempty" jsonschema:"Swipe direction: up, down, left, or right. Omit when using coordinates."`
	StartX     int    `json:"start_x,omitempty" jsonschema:"Starting X coordinate"`
	StartY     int    `json:"start_y,omitempty" jsonschema:"Starting Y coordinate"`
	EndX       int    `json:"end_x,omitempty" jsonschema:"Ending X coordinate"`
	EndY       int    `json:"end_y,omitempty" jsonschema:"Ending Y coordinate"`
	DurationMs int    `json:"duration_ms,omitempty" jsonschema:"Swipe duration in milliseconds (default 300)"`
}

// DeviceSwipeOutput defines the output for the device_swipe tool.
type DeviceSwipeOutput struct {
	Success   bool       `json:"success"`
	LatencyMs float64    `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
	NextSteps []NextStep `json:"next_steps,omitempty"`
}

// handleDeviceSwipe handles the device_swipe tool call.
func (s *Server) handleDeviceSwipe(ctx context.Context, req *mcp.CallToolRequest, input DeviceSwipeInput) (*mcp.CallToolResult, DeviceSwipeOutput, error) {
	start := time.Now()
	dur := input.DurationMs
	if dur <= 0 {
		dur = 300
	}

	x1, y1, x2, y2 := input.StartX, input.StartY, input.EndX, input.EndY
	if input.Direction != "" {
		w, h, err := s.dev.ScreenSize(ctx)
		if err != nil {
			return nil, DeviceSwipeOutput{Success: false, Error: err.Error()}, nil
		}
		switch strings.ToLower(input.Direction) {
		case "up":
			x1, y1, x2, y2 = w/2, h*2/3, w/2, h/3
		case "down":
			x1, y1, x2, y2 = w/2, h/3, w/2, h*2/3
		case "left":
			x1, y1, x2, y2 = w*2/3, h/2, w/3, h/2
		case "right":
			x1, y1, x2, y2 = w/3, h/2, w*2/3, h/2
		default:
			return nil, DeviceSwipeOutput{Success: false, Error: fmt.Sprintf("unknown direction %q", input.Direction)}, nil
		}
	}

	err := s.dev.Swipe(ctx, x1, y1, x2, y2, dur)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, DeviceSwipeOutput{Success: false, LatencyMs: latency, Error: err.Error()}, nil
	}
	return nil, DeviceSwipeOutput{
		Success: true, LatencyMs: latency,
		NextSteps: []NextStep{{Tool: "screenshot", Reason: "See the result of the swipe"}},
	}, nil
}

// keycodes maps key names accepted by device_key.
var keycodes = map[string]int{
	"home":   adb.KeyHome,
	"back":   adb.KeyBack,
	"power":  adb.KeyPower,
	"enter":  adb.KeyEnter,
	"delete": adb.KeyDelete,
}

// DeviceKeyInput defines the input parameters for the device_key tool.
type DeviceKeyInput struct {
	Key string `json:"key" jsonschema:"Key name (home, back, enter, delete, power) or numeric Android keycode"`
}

// DeviceKeyOutput defines the output for the device_key tool.
type DeviceKeyOutput struct {
	Success bool   `json:"success"`
	Keycode int    `json:"keycode"`
	Error   string `json:"error,omitempty"`
}

// handleDeviceKey handles the device_key tool call.
func (s *Server) handleDeviceKey(ctx context.Context, req *mcp.CallToolRequest, input DeviceKeyInput) (*mcp.CallToolResult, DeviceKeyOutput, error) {
	if input.Key == "" {
		return nil, DeviceKeyOutput{Success: false, Error: "key is required"}, nil
	}
	code, ok := keycodes[strings.ToLower(input.Key)]
	if !ok {
		if _, err := fmt.Sscanf(input.Key, "%d", &code); err != nil {
			return nil, DeviceKeyOutput{Success: false, Error: fmt.Sprintf("unknown key %q", input.Key)}, nil
		}
	}
	if err := s.dev.PressKey(ctx, code); err != nil {
		return nil, DeviceKeyOutput{Success: false, Keycode: code, Error: err.Error()}, nil
	}
	return nil, DeviceKeyOutput{Success: true, Keycode: code}, nil
}

// ScreenshotInput defines the input parameters for the screenshot tool.
type ScreenshotInput struct{}

// ScreenshotOutput defines the output for the screenshot tool.
type ScreenshotOutput struct {
	Success   bool       `json:"success"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	LatencyMs float64    `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
	NextSteps []NextStep `json:"next_steps,omitempty"`
}

// handleScreenshot handles the screenshot tool call.
func (s *Server) handleScreenshot(ctx context.Context, req *mcp.CallToolRequest, input ScreenshotInput) (*mcp.CallToolResult, ScreenshotOutput, error) {
	start := time.Now()
	shot, err := s.dev.CaptureScreen(ctx)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, ScreenshotOutput{Success: false, LatencyMs: latency, Error: err.Error()}, nil
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{Data: shot.PNG, MIMEType: "image/png"},
		},
	}
	return result, ScreenshotOutput{
		Success: true, Width: shot.Width, Height: shot.Height, LatencyMs: latency,
		NextSteps: []NextStep{
			{Tool: "device_tap", Params: "target=\"...\"", Reason: "Tap an element you see"},
			{Tool: "device_type", Params: "target=\"...\", text=\"...\"", Reason: "Type into a field"},
		},
	}, nil
}

// FindElementInput defines the input parameters for the find_element tool.
type FindElementInput struct {
	Target string `json:"target" jsonschema:"Asset name or element description to locate without acting"`
}

// FindElementOutput defines the output for the find_element tool.
type FindElementOutput struct {
	Success    bool       `json:"success"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Confidence float64    `json:"confidence"`
	Stage      string     `json:"stage,omitempty"`
	LatencyMs  float64    `json:"latency_ms"`
	Error      string     `json:"error,omitempty"`
	NextSteps  []NextStep `json:"next_steps,omitempty"`
}

// handleFindElement handles the find_element tool call.
func (s *Server) handleFindElement(ctx context.Context, req *mcp.CallToolRequest, input FindElementInput) (*mcp.CallToolResult, FindElementOutput, error) {
	if input.Target == "" {
		return nil, FindElementOutput{Success: false, Error: "target is required",
			NextSteps: []NextStep{{Tool: "screenshot", Reason: "See the screen first, then describe the element"}},
		}, nil
	}
	start := time.Now()
	rc, err := s.resolveTarget(ctx, input.Target)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, FindElementOutput{Success: false, LatencyMs: latency, Error: err.Error()}, nil
	}
	return nil, FindElementOutput{
		Success: true, X: rc.X, Y: rc.Y, Confidence: rc.Confidence, Stage: rc.Stage, LatencyMs: latency,
		NextSteps: []NextStep{
			{Tool: "device_tap", Params: fmt.Sprintf("x=%d, y=%d", rc.X, rc.Y), Reason: "Tap the found element"},
		},
	}, nil
}

// LaunchAppInput defines the input parameters for the launch_app tool.
type LaunchAppInput struct {
	Package  string `json:"package" jsonschema:"Android package name, e.g. com.tencent.mm"`
	Activity string `json:"activity,omitempty" jsonschema:"Optional activity to launch"`
}

// LaunchAppOutput defines the output for the launch_app tool.
type LaunchAppOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleLaunchApp handles the launch_app tool call.
func (s *Server) handleLaunchApp(ctx context.Context, req *mcp.CallToolRequest, input LaunchAppInput) (*mcp.CallToolResult, LaunchAppOutput, error) {
	if input.Package == "" {
		return nil, LaunchAppOutput{Success: false, Error: "package is required"}, nil
	}
	if err := s.dev.LaunchApp(ctx, input.Package, input.Activity); err != nil {
		return nil, LaunchAppOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, LaunchAppOutput{Success: true}, nil
}

// GoHomeInput defines the input parameters for the go_home tool.
type GoHomeInput struct{}

// GoHomeOutput defines the output for the go_home tool.
type GoHomeOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleGoHome handles the go_home tool call.
func (s *Server) handleGoHome(ctx context.Context, req *mcp.CallToolRequest, input GoHomeInput) (*mcp.CallToolResult, GoHomeOutput, error) {
	if err := s.dev.GoHome(ctx); err != nil {
		return nil, GoHomeOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, GoHomeOutput{Success: true}, nil
}
