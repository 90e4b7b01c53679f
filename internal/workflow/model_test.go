package workflow

import "testing"

func TestSubstitute(t *testing.T) {
	s := Step{
		Action:      ActionInputText,
		Target:      "{contact}",
		Params:      map[string]string{"text": "你好 {name}"},
		Description: "message {contact}",
	}
	out, err := s.Substitute(map[string]string{"contact": "张三", "name": "张三"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Target != "张三" || out.Params["text"] != "你好 张三" || out.Description != "message 张三" {
		t.Errorf("substituted = %+v", out)
	}
	// Original step untouched.
	if s.Target != "{contact}" || s.Params["text"] != "你好 {name}" {
		t.Errorf("source step mutated: %+v", s)
	}
}

func TestSubstituteMissingPlaceholderFails(t *testing.T) {
	s := Step{Action: ActionTap, Target: "{ghost}"}
	if _, err := s.Substitute(map[string]string{}); err == nil {
		t.Error("unresolved placeholder must fail the step")
	}
}

func TestMissingAndMergedParams(t *testing.T) {
	wf := &Workflow{
		RequiredParams: []string{"contact", "message"},
		OptionalParams: map[string]string{"postAction": "long_press"},
	}
	missing := wf.MissingParams(map[string]string{"contact": "李四"})
	if len(missing) != 1 || missing[0] != "message" {
		t.Errorf("missing = %v", missing)
	}

	merged := wf.MergedParams(map[string]string{"contact": "李四", "postAction": "tap"})
	if merged["postAction"] != "tap" {
		t.Error("user params must override optional defaults")
	}
}

func TestTierOf(t *testing.T) {
	cases := []struct {
		step Step
		want Tier
	}{
		{Step{Action: ActionLaunchApp}, TierFireAndForget},
		{Step{Action: ActionWait}, TierFireAndForget},
		{Step{Action: ActionCall}, TierFireAndForget},
		{Step{Action: ActionSwipe}, TierQuickVerify},
		{Step{Action: ActionTap, Target: "send_button"}, TierLocateAndExecute},
		{Step{Action: ActionTap, Target: "dynamic:红色按钮"}, TierFullAI},
		{Step{Action: ActionInputText, Target: "chat_input"}, TierLocateAndExecute},
	}
	for _, c := range cases {
		if got := TierOf(c.step); got != c.want {
			t.Errorf("TierOf(%s %s) = %s, want %s", c.step.Action, c.step.Target, got, c.want)
		}
	}
}

func TestCanBatch(t *testing.T) {
	launch := Step{Action: ActionLaunchApp}
	wait := Step{Action: ActionWait}
	tap := Step{Action: ActionTap, Target: "x"}
	if !CanBatch(launch, wait) {
		t.Error("launch+wait should batch")
	}
	if CanBatch(launch, tap) {
		t.Error("launch+tap must not batch")
	}
	waitExpect := Step{Action: ActionWait, ExpectScreen: "home"}
	if CanBatch(launch, waitExpect) {
		t.Error("a step with expectScreen must not batch")
	}
}

func TestVerificationOf(t *testing.T) {
	if got := VerificationOf(Step{Action: ActionWait}); got != VerifySkip {
		t.Errorf("wait = %s", got)
	}
	if got := VerificationOf(Step{Action: ActionLaunchApp}); got != VerifyLenient {
		t.Errorf("launch = %s", got)
	}
	if got := VerificationOf(Step{Action: ActionTap}); got != VerifyStandard {
		t.Errorf("tap = %s", got)
	}
	if got := VerificationOf(Step{Action: ActionTap, VerifyRef: "sent_mark"}); got != VerifyPrecise {
		t.Errorf("verifyRef = %s", got)
	}
}

func TestScreenSetLookup(t *testing.T) {
	ss := &ScreenSet{Screens: []Screen{{Name: "chat"}, {Name: ScreenHome}}}
	if _, ok := ss.Lookup("chat"); !ok {
		t.Error("chat should resolve")
	}
	if _, ok := ss.Lookup("nope"); ok {
		t.Error("unknown screen resolved")
	}
}
