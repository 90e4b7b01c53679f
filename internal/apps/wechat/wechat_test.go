package wechat

import (
	"context"
	"strings"
	"testing"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/workflow"
)

type fakeExecutor struct {
	wf     *workflow.Workflow
	params map[string]string
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, wf *workflow.Workflow, params map[string]string, task string) *workflow.TaskResult {
	f.calls++
	f.wf = wf
	f.params = params
	return &workflow.TaskResult{Task: task, Workflow: wf.Name, Status: workflow.StatusSuccess}
}

func newHandler() (*Handler, *fakeExecutor) {
	exec := &fakeExecutor{}
	return New(exec, classify.New(nil, config.ClassifierModeRegex), nil), exec
}

func TestParsedSendMessage(t *testing.T) {
	h, exec := newHandler()
	parsed := &classify.Parsed{Type: classify.TypeSendMsg, Recipient: "张三", Content: "你好"}

	res, err := h.Execute(context.Background(), "ss:张三:你好", parsed)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != workflow.StatusSuccess {
		t.Errorf("status = %s", res.Status)
	}
	if exec.wf.Name != "send_message" {
		t.Errorf("workflow = %s", exec.wf.Name)
	}
	if exec.params["contact"] != "张三" || exec.params["message"] != "你好" {
		t.Errorf("params = %v", exec.params)
	}
}

func TestParsedMoments(t *testing.T) {
	h, exec := newHandler()
	parsed := &classify.Parsed{Type: classify.TypeMomentText, Content: "今天天气真好"}

	if _, err := h.Execute(context.Background(), "ss:朋友圈:今天天气真好", parsed); err != nil {
		t.Fatal(err)
	}
	if exec.wf.Name != "post_moments" {
		t.Errorf("workflow = %s", exec.wf.Name)
	}
	if exec.params["content"] != "今天天气真好" || exec.params["postAction"] != "long_press" {
		t.Errorf("params = %v", exec.params)
	}
}

func TestPatternTableFallback(t *testing.T) {
	cases := []struct {
		task     string
		workflow string
		key      string
		value    string
	}{
		{"给李四发消息说下午见", "send_message", "contact", "李四"},
		{"发朋友圈今天心情不错", "post_moments", "content", "今天心情不错"},
		{"看朋友圈", "view_moments", "", ""},
		{"搜索王五", "search_contact", "query", "王五"},
	}
	for _, c := range cases {
		h, exec := newHandler()
		if _, err := h.Execute(context.Background(), c.task, nil); err != nil {
			t.Errorf("Execute(%q): %v", c.task, err)
			continue
		}
		if exec.wf.Name != c.workflow {
			t.Errorf("Execute(%q) ran %s, want %s", c.task, exec.wf.Name, c.workflow)
			continue
		}
		if c.key != "" && exec.params[c.key] != c.value {
			t.Errorf("Execute(%q) params = %v, want %s=%s", c.task, exec.params, c.key, c.value)
		}
	}
}

func TestMissingParamsDoesNotExecute(t *testing.T) {
	h, exec := newHandler()
	parsed := &classify.Parsed{Type: classify.TypeSendMsg, Recipient: "张三"}

	res, err := h.Execute(context.Background(), "ss:张三:", parsed)
	if err == nil {
		t.Fatal("want missing-params error")
	}
	if exec.calls != 0 {
		t.Error("executor must not run without required params")
	}
	if !strings.Contains(res.Message, "message") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestUnmatchedTaskFails(t *testing.T) {
	h, exec := newHandler()
	if _, err := h.Execute(context.Background(), "随便干点什么", nil); err == nil {
		t.Error("unmatched free text must fail")
	}
	if exec.calls != 0 {
		t.Error("executor must not run for unmatched text")
	}
}

func TestWorkflowDefinitions(t *testing.T) {
	wfs := Workflows()
	if len(wfs) != 9 {
		t.Errorf("workflows = %d, want 9", len(wfs))
	}
	for name, wf := range wfs {
		if len(wf.ValidStartScreens) == 0 {
			t.Errorf("%s: empty validStartScreens", name)
		}
		if wf.Name != name {
			t.Errorf("%s: name mismatch %q", name, wf.Name)
		}
		if len(wf.Steps) == 0 {
			t.Errorf("%s: no steps", name)
		}
	}

	// Every type route points at a defined workflow.
	for typ, name := range typeWorkflows {
		if _, ok := wfs[name]; !ok {
			t.Errorf("type %s routes to undefined workflow %s", typ, name)
		}
	}
	// find_or_search steps reference a defined search sub-workflow.
	for name, wf := range wfs {
		for _, step := range wf.Steps {
			if step.Action == workflow.ActionFindOrSearch {
				child := step.Params["searchWorkflow"]
				if _, ok := wfs[child]; !ok {
					t.Errorf("%s: search workflow %q undefined", name, child)
				}
			}
		}
	}
}

func TestScreensContainHome(t *testing.T) {
	ss := Screens()
	if _, ok := ss.Lookup(workflow.ScreenHome); !ok {
		t.Error("screen set must include home")
	}
	if ss.HomeIndicator == "" || ss.Package != PackageID {
		t.Errorf("screen set = %+v", ss)
	}
}

func TestScreenDetectionPriority(t *testing.T) {
	ss := Screens()
	want := []string{workflow.ScreenHome, "contacts", "discover", "me", "chat", "moments", "search"}
	for i, name := range want {
		if i >= len(ss.Screens) || ss.Screens[i].Name != name {
			t.Fatalf("screens[%d] = %v, want %s", i, ss.Screens, name)
		}
	}
	for _, name := range []string{"moments_post", "add_friend", "profile"} {
		if _, ok := ss.Lookup(name); !ok {
			t.Errorf("screen set missing %s", name)
		}
	}
}

// The _local workflow variants must be executable from stored reference
// images alone: no dynamic targets, no steps in the full-AI tier.
func TestLocalVariantsNeedNoModel(t *testing.T) {
	wfs := Workflows()
	for _, name := range []string{"send_message_local", "post_moments_only_text_local"} {
		wf, ok := wfs[name]
		if !ok {
			t.Fatalf("%s not defined", name)
		}
		for _, step := range wf.Steps {
			if workflow.IsDynamicTarget(step.Target) {
				t.Errorf("%s: step %s has dynamic target %q", name, step.Action, step.Target)
			}
			if workflow.TierOf(step) == workflow.TierFullAI {
				t.Errorf("%s: step %s lands in the full-AI tier", name, step.Action)
			}
		}
	}
}
