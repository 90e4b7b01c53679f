package workflow

import "strings"

// Execution tiers decide whether a step needs a capture and how hard its
// outcome is verified. Batching consecutive fire-and-forget steps saves one
// screenshot round-trip each, which dominates wall time on slow bridges.

// Tier is a step's execution cost class.
type Tier string

const (
	TierFireAndForget    Tier = "fire_and_forget"
	TierQuickVerify      Tier = "quick_verify"
	TierLocateAndExecute Tier = "locate_and_execute"
	TierFullAI           Tier = "full_ai"
)

// Verification levels.
type Verification string

const (
	VerifySkip     Verification = "skip"
	VerifyLenient  Verification = "lenient"
	VerifyStandard Verification = "standard"
	VerifyPrecise  Verification = "precise"
)

// IsDynamicTarget reports whether a step's target is a free-text locator.
func IsDynamicTarget(target string) bool {
	return strings.HasPrefix(target, "dynamic:")
}

// TierOf classifies a step.
func TierOf(s Step) Tier {
	switch s.Action {
	case ActionLaunchApp, ActionCall, ActionOpenURL, ActionGoHome, ActionWait,
		ActionPressKey, ActionKeyEvent, ActionNavToHome:
		return TierFireAndForget
	case ActionSwipe:
		return TierQuickVerify
	case ActionTap, ActionLongPress, ActionInputText, ActionInputURL, ActionFindOrSearch:
		if IsDynamicTarget(s.Target) {
			return TierFullAI
		}
		return TierLocateAndExecute
	default:
		return TierLocateAndExecute
	}
}

// CanBatch reports whether two consecutive steps may run without an
// intermediate capture.
func CanBatch(a, b Step) bool {
	return TierOf(a) == TierFireAndForget && TierOf(b) == TierFireAndForget &&
		a.ExpectScreen == "" && b.ExpectScreen == ""
}

// VerificationOf picks the verification level for a step.
func VerificationOf(s Step) Verification {
	if s.VerifyRef != "" {
		return VerifyPrecise
	}
	switch s.Action {
	case ActionWait, ActionPressKey, ActionKeyEvent, ActionGoHome, ActionNavToHome:
		return VerifySkip
	case ActionLaunchApp, ActionOpenURL, ActionCall:
		return VerifyLenient
	case ActionTap, ActionLongPress, ActionSwipe, ActionInputText, ActionInputURL:
		return VerifyStandard
	default:
		return VerifySkip
	}
}
