// Package locate finds UI elements in screenshots. The pipeline runs cheap
// pixel matching first (exact template, multi-scale template, feature
// points) and escalates to vision models only when pixels fail: an optional
// local small model, then the remote vision model.
//
// Targets are either a reference image (with numbered variants) or a free
// text description; description targets skip the pixel stages entirely.
package locate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Stage identifies which pipeline stage produced a result.
type Stage string

const (
	StageTemplate   Stage = "template"
	StageMultiScale Stage = "multiscale"
	StageFeature    Stage = "feature"
	StageSmallModel Stage = "small-model"
	StageRemote     Stage = "remote-model"
)

// Strategy forces a subset of the pipeline.
type Strategy string

const (
	// StrategyOpenCVFirst runs pixels then models. The default.
	StrategyOpenCVFirst Strategy = "opencv_first"
	// StrategyOpenCVOnly never calls a model.
	StrategyOpenCVOnly Strategy = "opencv_only"
	// StrategyAIOnly skips the pixel stages.
	StrategyAIOnly Strategy = "ai_only"
)

// Matching thresholds. Multi-scale accepts slightly below the exact
// template threshold because rescaling blurs the reference.
const (
	templateThreshold   = 0.75
	multiScaleThreshold = 0.70
	featureConfidence   = 0.70
	minGoodMatches      = 4
	loweRatio           = 0.90
)

// Target names one thing to find. Exactly one of Ref or Description is set.
type Target struct {
	// Name keys the result in multi-target calls.
	Name string

	// Ref holds candidate image paths (main + variants) for a reference
	// target.
	Ref []string

	// Description is the free-text form ("dynamic:" targets).
	Description string
}

// ByReference builds a reference target from candidate image paths.
func ByReference(name string, paths []string) Target {
	return Target{Name: name, Ref: paths}
}

// ByDescription builds a free-text target.
func ByDescription(name, text string) Target {
	return Target{Name: name, Description: text}
}

// Result is one locate outcome. Coordinates are pixels in the screenshot
// that was searched (callers translate with the capture crop offset).
type Result struct {
	Found      bool
	X, Y       int
	Confidence float64
	Stage      Stage
}

// RemoteVision is the remote model stage. Implemented by the llm package.
type RemoteVision interface {
	// FindByImage locates a reference image inside a screenshot.
	FindByImage(ctx context.Context, reference, screenshot image.Image) (Result, error)

	// FindByDescription locates an element matching a text description.
	FindByDescription(ctx context.Context, description string, screenshot image.Image) (Result, error)
}

// SmallModel is the optional local vision model stage.
type SmallModel interface {
	Locate(ctx context.Context, screenshot image.Image, hint string) (Result, error)
}

// Stats counts per-stage successes across a locator's lifetime.
type Stats struct {
	mu      sync.Mutex
	byStage map[Stage]int
	misses  int
}

func (s *Stats) hit(st Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byStage == nil {
		s.byStage = map[Stage]int{}
	}
	s.byStage[st]++
}

func (s *Stats) miss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses++
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() (map[Stage]int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Stage]int, len(s.byStage))
	for k, v := range s.byStage {
		out[k] = v
	}
	return out, s.misses
}

// LoadImage decodes an image file (png, jpeg or webp).
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// DecodeScreenshot decodes screenshot bytes.
func DecodeScreenshot(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}
	return img, nil
}

// IsDynamic reports whether a workflow target string is a description
// target, and returns the stripped description.
func IsDynamic(target string) (string, bool) {
	if strings.HasPrefix(target, "dynamic:") {
		return strings.TrimPrefix(target, "dynamic:"), true
	}
	return "", false
}
