// Package wechat is the reference app handler: it maps classified tasks and
// free text onto the WeChat workflows and delegates execution. Other app
// handlers follow the same shape.
package wechat

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/workflow"
)

// PackageID is the WeChat Android package.
const PackageID = "com.tencent.mm"

// Manifest describes the handler to the registry.
func Manifest() registry.ModuleInfo {
	return registry.ModuleInfo{
		Name:        "wechat",
		PackageID:   PackageID,
		Keywords:    []string{"微信", "消息", "朋友圈", "聊天", "联系人", "好友"},
		Description: "微信消息、朋友圈与联系人操作",
		Patterns:    []string{"微信", "发消息", "朋友圈"},
	}
}

// WorkflowExecutor runs one workflow. The workflow executor satisfies it;
// tests substitute their own.
type WorkflowExecutor interface {
	Execute(ctx context.Context, wf *workflow.Workflow, params map[string]string, task string) *workflow.TaskResult
}

// WorkflowChooser picks a workflow for a complex task. The planner
// satisfies it; nil disables the model path.
type WorkflowChooser interface {
	ChooseWorkflow(ctx context.Context, task string, workflows map[string]string) (string, map[string]string, error)
}

// Handler is the WeChat app handler.
type Handler struct {
	exec       WorkflowExecutor
	classifier *classify.Classifier
	chooser    WorkflowChooser
	workflows  map[string]*workflow.Workflow
}

// New builds the handler. chooser may be nil.
func New(exec WorkflowExecutor, classifier *classify.Classifier, chooser WorkflowChooser) *Handler {
	return &Handler{
		exec:       exec,
		classifier: classifier,
		chooser:    chooser,
		workflows:  Workflows(),
	}
}

// Name implements registry.Handler.
func (h *Handler) Name() string { return "wechat" }

// typeWorkflows maps structured task types to workflow names.
var typeWorkflows = map[classify.TaskType]string{
	classify.TypeSendMsg:    "send_message",
	classify.TypeMomentText: "post_moments",
}

// paramsFor builds workflow parameters from a parsed record.
func paramsFor(p classify.Parsed) map[string]string {
	switch p.Type {
	case classify.TypeSendMsg:
		return map[string]string{"contact": p.Recipient, "message": p.Content}
	case classify.TypeMomentText:
		return map[string]string{"content": p.Content, "postAction": "long_press"}
	default:
		return map[string]string{}
	}
}

// patternTable matches simple free-text tasks when no structured record and
// no model are available. First match wins.
var patternTable = []struct {
	re       *regexp.Regexp
	workflow string
	params   func(m []string) map[string]string
}{
	{
		re:       regexp.MustCompile(`给(.+?)发(?:消息|微信)?[说，,:：]?(.+)`),
		workflow: "send_message",
		params: func(m []string) map[string]string {
			return map[string]string{"contact": strings.TrimSpace(m[1]), "message": strings.TrimSpace(m[2])}
		},
	},
	{
		re:       regexp.MustCompile(`发(?:一条|个)?朋友圈[说，,:：]?(.*)`),
		workflow: "post_moments",
		params: func(m []string) map[string]string {
			return map[string]string{"content": strings.TrimSpace(m[1])}
		},
	},
	{
		re:       regexp.MustCompile(`(?:看|刷|浏览)朋友圈`),
		workflow: "view_moments",
		params:   func(m []string) map[string]string { return map[string]string{} },
	},
	{
		re:       regexp.MustCompile(`(?:搜索|查找|找)(?:联系人)?(.+)`),
		workflow: "search_contact",
		params: func(m []string) map[string]string {
			return map[string]string{"query": strings.TrimSpace(m[1])}
		},
	},
	{
		re:       regexp.MustCompile(`添加(?:好友|朋友)(.*)`),
		workflow: "add_friend",
		params: func(m []string) map[string]string {
			return map[string]string{"query": strings.TrimSpace(m[1])}
		},
	},
}

// Execute implements registry.Handler.
//
// Parameters:
//   - task: The utterance, for planner context and result reporting
//   - parsed: The classifier's structured record, nil for free text
//
// Returns:
//   - *workflow.TaskResult: Terminal result, never nil
//   - error: Routing failures; execution failures live in the result
func (h *Handler) Execute(ctx context.Context, task string, parsed *classify.Parsed) (*workflow.TaskResult, error) {
	name, params, err := h.resolve(ctx, task, parsed)
	if err != nil {
		return failed(task, err.Error()), err
	}

	wf, ok := h.workflows[name]
	if !ok {
		err := fmt.Errorf("unknown workflow %q", name)
		return failed(task, err.Error()), err
	}
	if missing := wf.MissingParams(params); len(missing) > 0 {
		msg := fmt.Sprintf("%v: %s", workflow.ErrParamsMissing, strings.Join(missing, ", "))
		return failed(task, msg), workflow.ErrParamsMissing
	}

	log.Info("executing workflow", "workflow", name, "task", task)
	return h.exec.Execute(ctx, wf, params, task), nil
}

// resolve picks a workflow name and parameters for the task.
func (h *Handler) resolve(ctx context.Context, task string, parsed *classify.Parsed) (string, map[string]string, error) {
	if parsed != nil && parsed.Type != classify.TypeInvalid {
		if name, ok := typeWorkflows[parsed.Type]; ok {
			return name, paramsFor(*parsed), nil
		}
	}

	res, err := h.classifier.Classify(ctx, task)
	if err != nil {
		return "", nil, err
	}
	if res.HasParsed {
		if res.Parsed.Type == classify.TypeInvalid {
			return "", nil, fmt.Errorf("%w: %q", classify.ErrInvalidInput, task)
		}
		if name, ok := typeWorkflows[res.Parsed.Type]; ok {
			return name, paramsFor(res.Parsed), nil
		}
	}

	if res.Class == classify.ClassComplex && h.chooser != nil {
		descs := make(map[string]string, len(h.workflows))
		for n, wf := range h.workflows {
			descs[n] = wf.Description
		}
		name, params, err := h.chooser.ChooseWorkflow(ctx, task, descs)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", workflow.ErrPlannerFailed, err)
		}
		if name != "" {
			return name, params, nil
		}
	}

	for _, entry := range patternTable {
		if m := entry.re.FindStringSubmatch(task); m != nil {
			return entry.workflow, entry.params(m), nil
		}
	}
	return "", nil, fmt.Errorf("no workflow matches %q", task)
}

func failed(task, message string) *workflow.TaskResult {
	return &workflow.TaskResult{
		Task:    task,
		Status:  workflow.StatusFailed,
		Message: message,
	}
}
