package locate

import (
	"context"
	"image"
	"sync"

	"github.com/charmbracelet/log"
)

// Locator runs the staged pipeline. It holds the long-lived model clients;
// those are the only shared mutable state and are safe for concurrent use.
type Locator struct {
	remote RemoteVision
	small  SmallModel

	// Stats accumulates per-stage hit counters for diagnostics.
	Stats Stats
}

// New creates a locator. remote may be nil (pixel stages only); small is
// optional.
func New(remote RemoteVision, small SmallModel) *Locator {
	return &Locator{remote: remote, small: small}
}

// Locate finds one target in a screenshot using the default strategy.
func (l *Locator) Locate(ctx context.Context, screenshot image.Image, target Target) Result {
	return l.LocateWithStrategy(ctx, screenshot, target, StrategyOpenCVFirst)
}

// LocateWithStrategy finds one target under a forced strategy. Stage order
// within a target is fixed; a stage's internal error falls through to the
// next stage.
func (l *Locator) LocateWithStrategy(ctx context.Context, screenshot image.Image, target Target, strategy Strategy) Result {
	if target.Description != "" {
		// Description targets have no pixels to match.
		if strategy == StrategyOpenCVOnly {
			l.Stats.miss()
			return Result{Stage: StageFeature}
		}
		return l.modelStages(ctx, screenshot, target, nil)
	}

	var gray *image.Gray
	if strategy != StrategyAIOnly {
		gray = toGray(screenshot)
		if r := l.pixelStages(ctx, gray, target); r.Found {
			l.Stats.hit(r.Stage)
			return r
		}
		if strategy == StrategyOpenCVOnly {
			l.Stats.miss()
			return Result{Stage: StageFeature}
		}
	}

	return l.modelStages(ctx, screenshot, target, gray)
}

// pixelStages runs template, multi-scale and feature matching over every
// candidate variant, short-circuiting on the first acceptance.
func (l *Locator) pixelStages(ctx context.Context, src *image.Gray, target Target) Result {
	type loaded struct {
		gray *image.Gray
	}
	var variants []loaded
	for _, path := range target.Ref {
		img, err := LoadImage(path)
		if err != nil {
			log.Debug("skipping unreadable reference", "path", path, "err", err)
			continue
		}
		variants = append(variants, loaded{gray: toGray(img)})
	}
	if len(variants) == 0 {
		return Result{}
	}

	for _, v := range variants {
		if ctx.Err() != nil {
			return Result{}
		}
		if score, x, y := matchTemplate(src, v.gray); score >= templateThreshold {
			return Result{Found: true, X: x, Y: y, Confidence: score, Stage: StageTemplate}
		}
	}
	for _, v := range variants {
		if ctx.Err() != nil {
			return Result{}
		}
		if score, x, y := matchMultiScale(src, v.gray); score >= multiScaleThreshold {
			return Result{Found: true, X: x, Y: y, Confidence: score, Stage: StageMultiScale}
		}
	}
	for _, v := range variants {
		if ctx.Err() != nil {
			return Result{}
		}
		if conf, dx, dy := matchFeatures(src, v.gray); conf >= featureConfidence {
			return Result{Found: true, X: dx, Y: dy, Confidence: conf, Stage: StageFeature}
		}
	}
	return Result{}
}

// modelStages runs the small-model and remote stages.
func (l *Locator) modelStages(ctx context.Context, screenshot image.Image, target Target, gray *image.Gray) Result {
	hint := target.Description
	if hint == "" {
		hint = target.Name
	}

	if l.small != nil {
		r, err := l.small.Locate(ctx, screenshot, hint)
		if err != nil {
			log.Debug("small model stage failed", "target", target.Name, "err", err)
		} else if r.Found {
			r.Stage = StageSmallModel
			l.Stats.hit(StageSmallModel)
			return r
		}
	}

	if l.remote == nil {
		l.Stats.miss()
		return Result{Stage: StageRemote}
	}

	var (
		r   Result
		err error
	)
	if target.Description != "" || len(target.Ref) == 0 {
		r, err = l.remote.FindByDescription(ctx, hint, screenshot)
	} else {
		ref, lerr := LoadImage(target.Ref[0])
		if lerr != nil {
			l.Stats.miss()
			return Result{Stage: StageRemote}
		}
		r, err = l.remote.FindByImage(ctx, ref, screenshot)
	}
	if err != nil {
		log.Debug("remote stage failed", "target", target.Name, "err", err)
		l.Stats.miss()
		return Result{Stage: StageRemote}
	}
	r.Stage = StageRemote
	if r.Found {
		l.Stats.hit(StageRemote)
	} else {
		l.Stats.miss()
	}
	return r
}

// LocateMultiple evaluates several targets concurrently against the same
// screenshot. Each target runs its own full pipeline; the returned map is
// keyed by target name and always has one entry per target.
func (l *Locator) LocateMultiple(ctx context.Context, screenshot image.Image, targets []Target, strategy Strategy) map[string]Result {
	results := make(map[string]Result, len(targets))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			r := l.LocateWithStrategy(ctx, screenshot, t, strategy)
			mu.Lock()
			results[t.Name] = r
			mu.Unlock()
		}(t)
	}
	wg.Wait()
	return results
}
