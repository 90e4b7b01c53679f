package llm

import (
	"context"
	"testing"
)

func TestFindByDescriptionParsesBBox(t *testing.T) {
	srv, _ := newChatServer(t,
		`{"found": true, "xmin": 400, "ymin": 400, "xmax": 600, "ymax": 600, "confidence": 0.92}`)
	v := NewVision(testClient(srv.URL))

	shot := testShot(500, 1000)
	r, err := v.FindByDescription(context.Background(), "发送按钮", shot)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Found {
		t.Fatal("want found")
	}
	// bbox center (500,500)/1000 of a 500x1000 screen.
	if r.X != 250 || r.Y != 500 {
		t.Errorf("center = (%d,%d), want (250,500)", r.X, r.Y)
	}
	if r.Confidence < 0.9 {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestFindByDescriptionNotFound(t *testing.T) {
	srv, _ := newChatServer(t, `{"found": false}`)
	v := NewVision(testClient(srv.URL))

	r, err := v.FindByDescription(context.Background(), "ghost", testShot(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if r.Found {
		t.Error("want not found")
	}
}

func TestFindByImageSendsTwoImages(t *testing.T) {
	srv, lastBody := newChatServer(t,
		`{"found": true, "xmin": 0, "ymin": 0, "xmax": 100, "ymax": 100, "confidence": 0.8}`)
	v := NewVision(testClient(srv.URL))

	if _, err := v.FindByImage(context.Background(), testShot(32, 32), testShot(200, 200)); err != nil {
		t.Fatal(err)
	}
	if !containsJSONPath(*lastBody, "messages.1.content.2.image_url.url") {
		t.Error("request should carry two images")
	}
}

func TestVerifierFailureSuggestion(t *testing.T) {
	srv, _ := newChatServer(t,
		`{"passed": false, "confidence": 0.7, "reason": "keyboard still open", "suggestion": "back"}`)
	ver := NewVerifier(testClient(srv.URL))

	res, err := ver.VerifyStep(context.Background(), testShot(100, 100), "tapped send", "message sent")
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Error("want failed verdict")
	}
	if res.Suggestion != SuggestBack {
		t.Errorf("suggestion = %q, want back", res.Suggestion)
	}
}

func TestVerifierDefaultsSuggestionToRetry(t *testing.T) {
	srv, _ := newChatServer(t, `{"passed": false, "reason": "unclear"}`)
	ver := NewVerifier(testClient(srv.URL))

	res, err := ver.VerifyStep(context.Background(), testShot(50, 50), "tap", "anything")
	if err != nil {
		t.Fatal(err)
	}
	if res.Suggestion != SuggestRetry {
		t.Errorf("suggestion = %q, want retry", res.Suggestion)
	}
}

func TestDetectBlockerWithDismiss(t *testing.T) {
	srv, _ := newChatServer(t,
		`{"blocked": true, "kind": "permission", "description": "location prompt",
		  "dismiss": {"found": true, "xmin": 450, "ymin": 700, "xmax": 550, "ymax": 760}}`)
	ver := NewVerifier(testClient(srv.URL))

	b, err := ver.DetectBlocker(context.Background(), testShot(1000, 1000))
	if err != nil {
		t.Fatal(err)
	}
	if b == nil {
		t.Fatal("want blocker")
	}
	if b.Kind != "permission" || !b.CanDismiss {
		t.Errorf("blocker = %+v", b)
	}
	if b.DismissX != 500 || b.DismissY != 730 {
		t.Errorf("dismiss = (%d,%d), want (500,730)", b.DismissX, b.DismissY)
	}
}

func TestDetectBlockerClear(t *testing.T) {
	srv, _ := newChatServer(t, `{"blocked": false}`)
	ver := NewVerifier(testClient(srv.URL))

	b, err := ver.DetectBlocker(context.Background(), testShot(100, 100))
	if err != nil {
		t.Fatal(err)
	}
	if b != nil {
		t.Errorf("want nil blocker, got %+v", b)
	}
}

func TestNormalizeAction(t *testing.T) {
	cases := map[string]string{
		"Click":  "tap",
		"scroll": "swipe",
		"type":   "input",
		"dial":   "call",
		"tap":    "tap",
		"wait":   "wait",
	}
	for in, want := range cases {
		if got := NormalizeAction(in); got != want {
			t.Errorf("NormalizeAction(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlanRecoveryConvertsCoordinates(t *testing.T) {
	srv, _ := newChatServer(t,
		`{"steps": [
		   {"action": "click", "xmin": 0, "ymin": 0, "xmax": 200, "ymax": 100, "reason": "open chat"},
		   {"action": "type", "text": "hello", "target": "input field"}
		 ]}`)
	p := NewPlanner(testClient(srv.URL))

	steps, err := p.PlanRecovery(context.Background(), testShot(1000, 2000), "send message", "stuck")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if steps[0].Action != "tap" || steps[0].X != 100 || steps[0].Y != 100 {
		t.Errorf("step 0 = %+v", steps[0])
	}
	if steps[1].Action != "input" || steps[1].Text != "hello" {
		t.Errorf("step 1 = %+v", steps[1])
	}
}

func TestChooseWorkflow(t *testing.T) {
	srv, _ := newChatServer(t,
		`{"workflow": "send_message", "params": {"contact": "张华", "message": "hi"}, "confidence": 0.9}`)
	p := NewPlanner(testClient(srv.URL))

	name, params, err := p.ChooseWorkflow(context.Background(), "给张华发hi",
		map[string]string{"send_message": "send a chat message", "post_moments": "post to moments"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "send_message" {
		t.Errorf("workflow = %q", name)
	}
	if params["contact"] != "张华" || params["message"] != "hi" {
		t.Errorf("params = %v", params)
	}
}

func TestChooseWorkflowRejectsUnknownName(t *testing.T) {
	srv, _ := newChatServer(t, `{"workflow": "made_up", "params": {}}`)
	p := NewPlanner(testClient(srv.URL))

	name, _, err := p.ChooseWorkflow(context.Background(), "task", map[string]string{"real": "desc"})
	if err != nil {
		t.Fatal(err)
	}
	if name != "" {
		t.Errorf("workflow = %q, want empty for hallucinated name", name)
	}
}
