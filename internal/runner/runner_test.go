package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/apps/system"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/workflow"
)

type recordingHandler struct {
	name   string
	task   string
	parsed *classify.Parsed
	calls  int
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Execute(ctx context.Context, task string, parsed *classify.Parsed) (*workflow.TaskResult, error) {
	h.calls++
	h.task = task
	h.parsed = parsed
	return &workflow.TaskResult{Task: task, Status: workflow.StatusSuccess}, nil
}

func newTestRunner(t *testing.T) (*Runner, *recordingHandler, *recordingHandler) {
	t.Helper()
	wechat := &recordingHandler{name: "wechat"}
	system := &recordingHandler{name: "system"}

	reg := registry.New()
	reg.Register(wechat)
	reg.Register(system)
	if err := reg.AddInfo(registry.ModuleInfo{
		Name:      "wechat",
		PackageID: "com.tencent.mm",
		Keywords:  []string{"微信", "消息", "朋友圈"},
		Patterns:  []string{"微信"},
	}); err != nil {
		t.Fatal(err)
	}

	classifier := classify.New(nil, config.ClassifierModeRegex)
	return New(reg, classifier), wechat, system
}

func TestFastFormRoutesByType(t *testing.T) {
	r, wechat, system := newTestRunner(t)

	res, err := r.Run(context.Background(), "ss:张三:你好")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != workflow.StatusSuccess {
		t.Errorf("status = %s", res.Status)
	}
	if wechat.calls != 1 || system.calls != 0 {
		t.Errorf("calls: wechat=%d system=%d", wechat.calls, system.calls)
	}
	if wechat.parsed == nil || wechat.parsed.Type != classify.TypeSendMsg ||
		wechat.parsed.Recipient != "张三" || wechat.parsed.Content != "你好" {
		t.Errorf("parsed = %+v", wechat.parsed)
	}
}

func TestFastFormMomentsRoutesToWechat(t *testing.T) {
	r, wechat, _ := newTestRunner(t)

	if _, err := r.Run(context.Background(), "ss:朋友圈:今天天气真好"); err != nil {
		t.Fatal(err)
	}
	if wechat.parsed.Type != classify.TypeMomentText || wechat.parsed.Content != "今天天气真好" {
		t.Errorf("parsed = %+v", wechat.parsed)
	}
}

// Routing for structured records depends on the parsed type alone, not on
// any keyword hit in the utterance.
func TestTypeRoutingIgnoresKeywords(t *testing.T) {
	r, wechat, system := newTestRunner(t)

	// The recipient matches no keyword and mentions another app.
	if _, err := r.Run(context.Background(), "ss:chrome:打开浏览器"); err != nil {
		t.Fatal(err)
	}
	if wechat.calls != 1 || system.calls != 0 {
		t.Errorf("calls: wechat=%d system=%d", wechat.calls, system.calls)
	}
}

func TestBlankUtteranceIsInvalid(t *testing.T) {
	r, wechat, system := newTestRunner(t)

	res, err := r.Run(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if res.Status != workflow.StatusFailed {
		t.Errorf("status = %s", res.Status)
	}
	if wechat.calls+system.calls != 0 {
		t.Error("no handler may run for blank input")
	}
}

func TestMalformedFastFormFailsClassification(t *testing.T) {
	// "ss:李四" has too few fields; the regex-mode classifier produces no
	// parsed record, so classification fails and nothing is routed.
	r, wechat, system := newTestRunner(t)

	_, err := r.Run(context.Background(), "ss:李四")
	if !errors.Is(err, ErrClassificationFailed) {
		t.Fatalf("err = %v, want classification failed", err)
	}
	if wechat.calls+system.calls != 0 {
		t.Error("classification failure must not fall through to keyword routing")
	}
}

func TestFreeTextRoutesByKeyword(t *testing.T) {
	r, wechat, system := newTestRunner(t)

	if _, err := r.Run(context.Background(), "帮我看看微信消息"); err != nil {
		t.Fatal(err)
	}
	if wechat.calls != 1 || system.calls != 0 {
		t.Errorf("calls: wechat=%d system=%d", wechat.calls, system.calls)
	}
	if wechat.parsed != nil {
		t.Error("free text must reach the handler unparsed")
	}
}

func TestFreeTextDefaultsToSystem(t *testing.T) {
	r, wechat, system := newTestRunner(t)

	if _, err := r.Run(context.Background(), "调大音量"); err != nil {
		t.Fatal(err)
	}
	if system.calls != 1 || wechat.calls != 0 {
		t.Errorf("calls: wechat=%d system=%d", wechat.calls, system.calls)
	}
}

// Free-text nonsense keyword-routes to the system fallback, whose own
// classification must surface it as invalid input with guidance.
func TestNonsenseFreeTextIsInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"type\": \"invalid\"}"}}]}`)
	}))
	t.Cleanup(srv.Close)

	classifier := classify.New(llm.NewClient(config.LLM{
		Provider: "custom", BaseURL: srv.URL, APIKey: "k",
		Model: "m", MaxTokens: 256, Timeout: 5 * time.Second,
	}), config.ClassifierModeLLM)

	reg := registry.New()
	reg.Register(system.New(adb.NewMock("test", 0, 0), classifier))
	r := New(reg, classifier)

	res, err := r.Run(context.Background(), "aaa")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if res.Status != workflow.StatusFailed || res.Message != Guidance {
		t.Errorf("result = %s %q", res.Status, res.Message)
	}
}
