// Package system is the default handler: device-level tasks that need no
// app workflow, and the sink for utterances no app handler claims.
package system

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/workflow"
)

// Manifest describes the handler to the registry. No keywords: the system
// handler wins by being the routing fallback, not by scoring.
func Manifest() registry.ModuleInfo {
	return registry.ModuleInfo{
		Name:        "system",
		Description: "打开应用、拨号、打开网址等系统级操作",
	}
}

// knownApps maps spoken app names to packages.
var knownApps = map[string]string{
	"微信":      "com.tencent.mm",
	"wechat":  "com.tencent.mm",
	"浏览器":     "com.android.chrome",
	"chrome":  "com.android.chrome",
	"设置":      "com.android.settings",
	"相机":      "com.android.camera",
	"图库":      "com.android.gallery3d",
	"电话":      "com.android.dialer",
	"短信":      "com.android.mms",
	"日历":      "com.android.calendar",
	"时钟":      "com.android.deskclock",
	"计算器":     "com.android.calculator2",
	"应用商店":    "com.android.vending",
	"地图":      "com.autonavi.minimap",
	"支付宝":     "com.eg.android.AlipayGphone",
	"淘宝":      "com.taobao.taobao",
	"抖音":      "com.ss.android.ugc.aweme",
}

var (
	dialRe = regexp.MustCompile(`(?:拨打|打电话给?|呼叫|call\s*)([\d\- ]{3,})`)
	urlRe  = regexp.MustCompile(`(?:打开网址|访问|open\s+)?((?:https?://)?[\w\-]+(?:\.[\w\-]+)+\S*)`)
	openRe = regexp.MustCompile(`(?:打开|启动|open\s+)(.+)`)
)

// Handler executes system-level tasks directly on the device.
type Handler struct {
	dev        adb.Device
	classifier *classify.Classifier
}

// New builds the system handler.
func New(dev adb.Device, classifier *classify.Classifier) *Handler {
	return &Handler{dev: dev, classifier: classifier}
}

// Name implements registry.Handler.
func (h *Handler) Name() string { return "system" }

// Execute implements registry.Handler. The system handler recognizes three
// shapes: dial a number, open a URL, launch a named app.
func (h *Handler) Execute(ctx context.Context, task string, parsed *classify.Parsed) (*workflow.TaskResult, error) {
	res := &workflow.TaskResult{
		ID:        uuid.NewString(),
		Task:      task,
		Status:    workflow.StatusRunning,
		StartedAt: time.Now(),
	}
	defer func() { res.Elapsed = time.Since(res.StartedAt) }()

	u := classify.Normalize(task)
	if classify.IsBlank(u) {
		res.Status = workflow.StatusFailed
		res.Message = "empty task"
		return res, fmt.Errorf("empty task")
	}

	if m := dialRe.FindStringSubmatch(u); m != nil {
		number := strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' {
				return -1
			}
			return r
		}, m[1])
		log.Info("dialing", "number", number)
		if err := h.dev.Dial(ctx, number); err != nil {
			return fail(res, err)
		}
		return succeed(res, "拨打 "+number)
	}

	if m := openRe.FindStringSubmatch(u); m != nil {
		name := strings.TrimSpace(strings.ToLower(m[1]))
		if pkg, ok := lookupApp(name); ok {
			log.Info("launching app", "app", name, "package", pkg)
			if err := h.dev.LaunchApp(ctx, pkg, ""); err != nil {
				return fail(res, err)
			}
			return succeed(res, "打开 "+name)
		}
	}

	if m := urlRe.FindStringSubmatch(u); m != nil && strings.Contains(m[1], ".") {
		log.Info("opening url", "url", m[1])
		if err := h.dev.OpenURL(ctx, m[1]); err != nil {
			return fail(res, err)
		}
		return succeed(res, "打开网址 "+m[1])
	}

	// No shape matched. Classify before giving up: free text reaches this
	// handler by being unclaimed, so nonsense lands here too and must come
	// back as invalid input with guidance, not as a generic failure.
	if h.classifier != nil {
		cls, cerr := h.classifier.Classify(ctx, u)
		if cerr == nil && cls.HasParsed && cls.Parsed.Type == classify.TypeInvalid {
			res.Status = workflow.StatusFailed
			res.Message = classify.Guidance
			return res, fmt.Errorf("%w: %q", classify.ErrInvalidInput, task)
		}
	}

	res.Status = workflow.StatusFailed
	res.Message = "不知道怎么执行这个任务"
	return res, fmt.Errorf("no system action matches %q", task)
}

func lookupApp(name string) (string, bool) {
	if pkg, ok := knownApps[name]; ok {
		return pkg, true
	}
	// Spoken forms carry suffixes like "微信应用".
	for app, pkg := range knownApps {
		if strings.Contains(name, app) {
			return pkg, true
		}
	}
	return "", false
}

func fail(res *workflow.TaskResult, err error) (*workflow.TaskResult, error) {
	res.Status = workflow.StatusFailed
	res.Message = err.Error()
	return res, err
}

func succeed(res *workflow.TaskResult, message string) (*workflow.TaskResult, error) {
	res.Status = workflow.StatusSuccess
	res.Message = message
	return res, nil
}
