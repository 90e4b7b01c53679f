package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/workflow"
)

// registerTaskTools registers the task pipeline MCP tools.
func (s *Server) registerTaskTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "run_task",
		Description: "Run a natural-language or ss: fast-form task on the device. Classifies, routes to a module, and executes the matching workflow. Returns the step trace.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Run Task",
			DestructiveHint: boolPtr(true),
			OpenWorldHint:   boolPtr(true),
		},
	}, s.handleRunTask)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_task",
		Description: "Classify a task utterance without executing it. Shows whether the fast-form grammar matched and which type/recipient/content were extracted.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Classify Task",
			ReadOnlyHint: true,
		},
	}, s.handleClassifyTask)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_modules",
		Description: "List registered task modules with their keywords and route patterns.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "List Modules",
			ReadOnlyHint: true,
		},
	}, s.handleListModules)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "locator_stats",
		Description: "Report how often each visual locator stage (template, multi-scale, feature, small model, remote model) resolved a target this session.",
		Annotations: &mcp.ToolAnnotations{
			Title:        "Locator Stats",
			ReadOnlyHint: true,
		},
	}, s.handleLocatorStats)
}

// StepSummary is one executed step in a run_task trace.
type StepSummary struct {
	Index  int    `json:"index"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunTaskInput defines the input parameters for the run_task tool.
type RunTaskInput struct {
	Task string `json:"task" jsonschema:"Task utterance. Natural language or fast form like 'ss:张三:你好'."`
}

// RunTaskOutput defines the output for the run_task tool.
type RunTaskOutput struct {
	Success   bool          `json:"success"`
	TaskID    string        `json:"task_id,omitempty"`
	Workflow  string        `json:"workflow,omitempty"`
	Status    string        `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
	Duration  string        `json:"duration,omitempty"`
	Steps     []StepSummary `json:"steps,omitempty"`
	Error     string        `json:"error,omitempty"`
	NextSteps []NextStep    `json:"next_steps,omitempty"`
}

// handleRunTask handles the run_task tool call.
func (s *Server) handleRunTask(ctx context.Context, req *mcp.CallToolRequest, input RunTaskInput) (*mcp.CallToolResult, RunTaskOutput, error) {
	if input.Task == "" {
		return nil, RunTaskOutput{
			Success: false,
			Error:   "task is required",
			NextSteps: []NextStep{
				{Tool: "classify_task", Params: "task=\"...\"", Reason: "Preview how an utterance would be parsed"},
			},
		}, nil
	}

	res, err := s.runner.Run(ctx, input.Task)
	out := RunTaskOutput{Success: err == nil && res != nil && res.Status == workflow.StatusSuccess}
	if res != nil {
		out.TaskID = res.ID
		out.Workflow = res.Workflow
		out.Status = res.Status
		out.Message = res.Message
		out.Duration = res.Elapsed.Round(time.Millisecond).String()
		for _, step := range res.Steps {
			out.Steps = append(out.Steps, StepSummary{
				Index:  step.Index,
				Action: step.Action,
				Target: step.Target,
				Status: step.Status,
				Stage:  step.Stage,
				Error:  step.Error,
			})
		}
	}
	if err != nil {
		out.Error = err.Error()
		out.NextSteps = []NextStep{
			{Tool: "screenshot", Reason: "Inspect the screen the task ended on"},
		}
	}
	return nil, out, nil
}

// ClassifyTaskInput defines the input parameters for the classify_task tool.
type ClassifyTaskInput struct {
	Task string `json:"task" jsonschema:"Task utterance to classify"`
}

// ClassifyTaskOutput defines the output for the classify_task tool.
type ClassifyTaskOutput struct {
	FastForm  bool   `json:"fast_form"`
	Type      string `json:"type,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content,omitempty"`
	Class     string `json:"class,omitempty"`
	Module    string `json:"module,omitempty"`
	Score     string `json:"score,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleClassifyTask handles the classify_task tool call.
func (s *Server) handleClassifyTask(ctx context.Context, req *mcp.CallToolRequest, input ClassifyTaskInput) (*mcp.CallToolResult, ClassifyTaskOutput, error) {
	task := classify.Normalize(input.Task)
	if classify.IsBlank(task) {
		return nil, ClassifyTaskOutput{Error: "utterance is blank"}, nil
	}

	if classify.HasFastPrefix(task) {
		if parsed, ok := classify.ParseFast(task); ok {
			return nil, ClassifyTaskOutput{
				FastForm:  true,
				Type:      string(parsed.Type),
				Recipient: parsed.Recipient,
				Content:   parsed.Content,
				Class:     string(parsed.Class()),
			}, nil
		}
		task = classify.StripFastPrefix(task)
	}

	res, err := s.classifier.Classify(ctx, task)
	if err != nil {
		return nil, ClassifyTaskOutput{Error: err.Error()}, nil
	}
	out := ClassifyTaskOutput{Class: string(res.Class)}
	if res.HasParsed {
		out.Type = string(res.Parsed.Type)
		out.Recipient = res.Parsed.Recipient
		out.Content = res.Parsed.Content
	} else {
		name, _ := s.reg.Route(task)
		out.Module = name
	}
	return nil, out, nil
}

// ModuleSummary describes one registered module.
type ModuleSummary struct {
	Name        string   `json:"name"`
	PackageID   string   `json:"package_id,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Patterns    []string `json:"patterns,omitempty"`
}

// ListModulesInput defines the input parameters for the list_modules tool.
type ListModulesInput struct{}

// ListModulesOutput defines the output for the list_modules tool.
type ListModulesOutput struct {
	Modules []ModuleSummary `json:"modules"`
	Total   int             `json:"total"`
}

// handleListModules handles the list_modules tool call.
func (s *Server) handleListModules(ctx context.Context, req *mcp.CallToolRequest, input ListModulesInput) (*mcp.CallToolResult, ListModulesOutput, error) {
	var modules []ModuleSummary
	for _, info := range s.reg.Infos() {
		modules = append(modules, ModuleSummary{
			Name:        info.Name,
			PackageID:   info.PackageID,
			Description: info.Description,
			Keywords:    info.Keywords,
			Patterns:    info.Patterns,
		})
	}
	return nil, ListModulesOutput{Modules: modules, Total: len(modules)}, nil
}

// LocatorStatsInput defines the input parameters for the locator_stats tool.
type LocatorStatsInput struct{}

// LocatorStatsOutput defines the output for the locator_stats tool.
type LocatorStatsOutput struct {
	Hits   map[string]int `json:"hits"`
	Misses int            `json:"misses"`
}

// handleLocatorStats handles the locator_stats tool call.
func (s *Server) handleLocatorStats(ctx context.Context, req *mcp.CallToolRequest, input LocatorStatsInput) (*mcp.CallToolResult, LocatorStatsOutput, error) {
	hits := make(map[string]int)
	byStage, misses := s.loc.Stats.Snapshot()
	for stage, n := range byStage {
		hits[string(stage)] = n
	}
	return nil, LocatorStatsOutput{Hits: hits, Misses: misses}, nil
}
