package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
	"github.com/droidpilot/cli/internal/workflow"
)

func newTestHandler() (*Handler, *adb.Mock) {
	dev := adb.NewMock("test", 0, 0)
	return New(dev, classify.New(nil, config.ClassifierModeRegex)), dev
}

func lastOp(ops []string) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[len(ops)-1]
}

func TestLaunchKnownApp(t *testing.T) {
	h, dev := newTestHandler()

	res, err := h.Execute(context.Background(), "打开微信", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != workflow.StatusSuccess {
		t.Errorf("status = %s", res.Status)
	}
	if op := lastOp(dev.Ops()); !strings.Contains(op, "com.tencent.mm") {
		t.Errorf("last op = %q", op)
	}
}

func TestDialStripsSeparators(t *testing.T) {
	h, dev := newTestHandler()

	if _, err := h.Execute(context.Background(), "拨打138-0013-8000", nil); err != nil {
		t.Fatal(err)
	}
	op := lastOp(dev.Ops())
	if !strings.Contains(op, "13800138000") {
		t.Errorf("last op = %q, want digits only", op)
	}
}

func TestOpenURL(t *testing.T) {
	h, dev := newTestHandler()

	if _, err := h.Execute(context.Background(), "访问example.com/page", nil); err != nil {
		t.Fatal(err)
	}
	if op := lastOp(dev.Ops()); !strings.Contains(op, "example.com") {
		t.Errorf("last op = %q", op)
	}
}

func modelServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNonsenseComesBackAsInvalidInput(t *testing.T) {
	srv := modelServer(t, `{"type": "invalid"}`)
	dev := adb.NewMock("test", 0, 0)
	classifier := classify.New(llm.NewClient(config.LLM{
		Provider: "custom", BaseURL: srv.URL, APIKey: "k",
		Model: "m", MaxTokens: 256, Timeout: 5 * time.Second,
	}), config.ClassifierModeLLM)
	h := New(dev, classifier)

	res, err := h.Execute(context.Background(), "aaa", nil)
	if !errors.Is(err, classify.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if res.Status != workflow.StatusFailed {
		t.Errorf("status = %s", res.Status)
	}
	if res.Message != classify.Guidance {
		t.Errorf("message = %q, want the guidance text", res.Message)
	}
	if len(dev.Ops()) != 0 {
		t.Errorf("ops = %v, want none", dev.Ops())
	}
}

func TestUnknownTaskFails(t *testing.T) {
	h, dev := newTestHandler()

	res, err := h.Execute(context.Background(), "给我讲个笑话", nil)
	if err == nil {
		t.Fatal("want error for unmatched task")
	}
	if res.Status != workflow.StatusFailed {
		t.Errorf("status = %s", res.Status)
	}
	if len(dev.Ops()) != 0 {
		t.Errorf("ops = %v, want none", dev.Ops())
	}
}
