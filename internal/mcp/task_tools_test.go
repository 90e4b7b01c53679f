package mcp

import (
	"context"
	"strings"
	"testing"
)

func TestRunTaskThroughPipeline(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, err := s.handleRunTask(context.Background(), nil, RunTaskInput{Task: "打开设置"})
	if err != nil {
		t.Fatalf("handleRunTask: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s / %s", out.Message, out.Error)
	}
	if out.TaskID == "" {
		t.Error("expected a task id")
	}

	ops := dev.Ops()
	if len(ops) == 0 || !strings.Contains(ops[len(ops)-1], "com.android.settings") {
		t.Errorf("ops = %v, want settings launch", ops)
	}
}

func TestRunTaskRequiresTask(t *testing.T) {
	s, dev := newTestServer(t)

	_, out, _ := s.handleRunTask(context.Background(), nil, RunTaskInput{})
	if out.Success {
		t.Fatal("expected failure without task")
	}
	if len(dev.Ops()) != 0 {
		t.Errorf("ops = %v, want none", dev.Ops())
	}
}

func TestClassifyTaskFastForm(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleClassifyTask(context.Background(), nil, ClassifyTaskInput{Task: "ss:张三:你好"})
	if err != nil {
		t.Fatalf("handleClassifyTask: %v", err)
	}
	if !out.FastForm {
		t.Fatal("expected fast-form match")
	}
	if out.Type != "send_msg" || out.Recipient != "张三" || out.Content != "你好" {
		t.Errorf("parsed = %+v", out)
	}
}

func TestClassifyTaskFreeText(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleClassifyTask(context.Background(), nil, ClassifyTaskInput{Task: "调大音量"})
	if err != nil {
		t.Fatalf("handleClassifyTask: %v", err)
	}
	if out.FastForm {
		t.Error("free text should not be fast form")
	}
	if out.Module != "system" {
		t.Errorf("module = %q, want system", out.Module)
	}
}

func TestClassifyTaskBlank(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, _ := s.handleClassifyTask(context.Background(), nil, ClassifyTaskInput{Task: "  。 "})
	if out.Error == "" {
		t.Error("expected blank-utterance error")
	}
}

func TestListModules(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleListModules(context.Background(), nil, ListModulesInput{})
	if err != nil {
		t.Fatalf("handleListModules: %v", err)
	}
	if out.Total != 1 {
		t.Fatalf("total = %d, want 1", out.Total)
	}
	if out.Modules[0].Name != "system" {
		t.Errorf("module = %q, want system", out.Modules[0].Name)
	}
}

func TestLocatorStatsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	_, out, err := s.handleLocatorStats(context.Background(), nil, LocatorStatsInput{})
	if err != nil {
		t.Fatalf("handleLocatorStats: %v", err)
	}
	if out.Misses != 0 || len(out.Hits) != 0 {
		t.Errorf("stats = %+v, want empty", out)
	}
}
