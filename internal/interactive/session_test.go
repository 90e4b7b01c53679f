package interactive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/droidpilot/cli/internal/workflow"
)

type fakeRunner struct {
	got []string
	res *workflow.TaskResult
	err error
}

func (f *fakeRunner) Run(ctx context.Context, utterance string) (*workflow.TaskResult, error) {
	f.got = append(f.got, utterance)
	return f.res, f.err
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		input string
		want  CommandType
	}{
		{"", CommandMenu},
		{"  ", CommandMenu},
		{"q", CommandMenu},
		{":copy", CommandCopy},
		{":HISTORY", CommandHistory},
		{":clear", CommandClear},
		{"help", CommandHelp},
		{"?", CommandHelp},
		{"exit", CommandQuit},
		{":quit", CommandQuit},
		{"ss:张三:你好", CommandTask},
		{"给李四发消息", CommandTask},
	}
	for _, tc := range cases {
		got := ParseCommand(tc.input)
		if got.Type != tc.want {
			t.Errorf("ParseCommand(%q) = %s, want %s", tc.input, got.Type, tc.want)
		}
	}

	if cmd := ParseCommand(" 打开微信 "); cmd.Task != "打开微信" {
		t.Errorf("task not trimmed: %q", cmd.Task)
	}
}

func TestPrepareFastMode(t *testing.T) {
	s := NewSession(&fakeRunner{})

	if got := s.Prepare("张三:你好"); got != "ss:张三:你好" {
		t.Errorf("Prepare = %q, want prefixed form", got)
	}
	if got := s.Prepare("ss:张三:你好"); got != "ss:张三:你好" {
		t.Errorf("Prepare = %q, prefix should not double", got)
	}
	// Full-width colon folds before the prefix check.
	if got := s.Prepare("ss：张三：你好"); got != "ss:张三:你好" {
		t.Errorf("Prepare = %q, want normalized form", got)
	}

	s.SetMode(ModeNatural)
	if got := s.Prepare("给张三发消息"); got != "给张三发消息" {
		t.Errorf("natural mode should pass through, got %q", got)
	}
}

func TestRunTaskRecordsHistory(t *testing.T) {
	fr := &fakeRunner{res: &workflow.TaskResult{
		ID:      "t-1",
		Task:    "ss:msg:张三:你好",
		Status:  workflow.StatusSuccess,
		Elapsed: 1200 * time.Millisecond,
	}}
	s := NewSession(fr)

	if _, err := s.RunTask(context.Background(), "张三:你好"); err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if len(fr.got) != 1 || fr.got[0] != "ss:张三:你好" {
		t.Errorf("runner received %v", fr.got)
	}
	if len(s.History()) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.History()))
	}

	s.ClearHistory()
	if len(s.History()) != 0 {
		t.Error("history should be empty after clear")
	}
}

func TestLastResultJSON(t *testing.T) {
	s := NewSession(&fakeRunner{})
	if _, err := s.LastResultJSON(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("err = %v, want ErrNoHistory", err)
	}

	fr := &fakeRunner{res: &workflow.TaskResult{
		ID:       "t-2",
		Task:     "ss:pyq:今天天气不错",
		Workflow: "post_moments",
		Status:   workflow.StatusFailed,
		Message:  "step failed",
		Elapsed:  2 * time.Second,
		Steps: []workflow.StepResult{
			{Index: 0, Action: "tap", Target: "discover_tab", Status: workflow.StatusSuccess},
			{Index: 1, Action: "tap", Target: "moments_entry", Status: workflow.StatusFailed, Error: "not found"},
		},
	}}
	s = NewSession(fr)
	if _, err := s.RunTask(context.Background(), "ss:pyq:今天天气不错"); err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	doc, err := s.LastResultJSON()
	if err != nil {
		t.Fatalf("LastResultJSON: %v", err)
	}
	if gjson.Get(doc, "status").String() != workflow.StatusFailed {
		t.Errorf("status = %s", gjson.Get(doc, "status").String())
	}
	if gjson.Get(doc, "steps.#").Int() != 2 {
		t.Errorf("steps = %s", gjson.Get(doc, "steps").Raw)
	}
	if gjson.Get(doc, "steps.1.error").String() != "not found" {
		t.Errorf("step error missing: %s", doc)
	}
}

func TestSummaryTruncates(t *testing.T) {
	res := &workflow.TaskResult{
		Task:   strings.Repeat("很长的任务", 10),
		Status: workflow.StatusSuccess,
	}
	line := Summary(res)
	if !strings.HasSuffix(line, "…") {
		t.Errorf("long task should be truncated: %q", line)
	}

	res = &workflow.TaskResult{Task: "短任务", Status: workflow.StatusFailed, Workflow: "send_message"}
	line = Summary(res)
	if !strings.Contains(line, "[send_message]") || !strings.Contains(line, "短任务") {
		t.Errorf("summary = %q", line)
	}
}
