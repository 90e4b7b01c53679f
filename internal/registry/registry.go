// Package registry discovers app handler manifests and routes utterances to
// handlers by scored keyword match. Type-based routing from the fast
// classifier bypasses scoring entirely.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/workflow"
)

// DefaultHandler receives every utterance that no app handler claims.
const DefaultHandler = "system"

// routeFloor is the minimum score an app handler needs to win routing.
const routeFloor = 0.3

// ModuleInfo is one handler's manifest, loaded from module.yaml in its
// directory.
type ModuleInfo struct {
	Name        string   `yaml:"name"`
	PackageID   string   `yaml:"packageId"`
	Keywords    []string `yaml:"keywords"`
	Description string   `yaml:"description"`
	Patterns    []string `yaml:"patterns,omitempty"`

	patterns []*regexp.Regexp
}

// Handler executes tasks routed to one app.
type Handler interface {
	// Name returns the handler name, matching its manifest directory.
	Name() string

	// Execute runs the task end to end. parsed is non-nil when the
	// classifier produced a structured record.
	Execute(ctx context.Context, task string, parsed *classify.Parsed) (*workflow.TaskResult, error)
}

// Registry holds discovered manifests and registered handler
// implementations. Immutable after startup.
type Registry struct {
	infos    map[string]*ModuleInfo
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		infos:    make(map[string]*ModuleInfo),
		handlers: make(map[string]Handler),
	}
}

// Discover loads every module.yaml under root's immediate sub-directories.
// Directories without a manifest are skipped silently; a malformed manifest
// is an error.
//
// Parameters:
//   - root: The apps directory, one sub-directory per handler
//
// Returns:
//   - error: Filesystem or YAML errors
func (r *Registry) Discover(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading apps directory %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifest := filepath.Join(root, e.Name(), "module.yaml")
		data, err := os.ReadFile(manifest)
		if err != nil {
			continue
		}
		var info ModuleInfo
		if err := yaml.Unmarshal(data, &info); err != nil {
			return fmt.Errorf("parsing %s: %w", manifest, err)
		}
		if info.Name == "" {
			info.Name = e.Name()
		}
		for _, p := range info.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("pattern %q in %s: %w", p, manifest, err)
			}
			info.patterns = append(info.patterns, re)
		}
		r.infos[info.Name] = &info
		log.Debug("discovered module", "name", info.Name, "package", info.PackageID)
	}
	return nil
}

// AddInfo registers a manifest directly, for handlers without an on-disk
// directory and for tests.
func (r *Registry) AddInfo(info ModuleInfo) error {
	for _, p := range info.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
		info.patterns = append(info.patterns, re)
	}
	r.infos[info.Name] = &info
	return nil
}

// Register attaches a handler implementation.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

// Get returns a registered handler.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Infos returns all discovered manifests, sorted by name.
func (r *Registry) Infos() []ModuleInfo {
	out := make([]ModuleInfo, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// typeRoutes maps structured task types straight to their handler, skipping
// keyword scoring.
var typeRoutes = map[classify.TaskType]string{
	classify.TypeSendMsg:    "wechat",
	classify.TypeMomentText: "wechat",
}

// RouteByType resolves a handler from a parsed task type.
func (r *Registry) RouteByType(t classify.TaskType) (Handler, bool) {
	name, ok := typeRoutes[t]
	if !ok {
		return nil, false
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Route scores every manifest against the utterance and returns the winner,
// falling back to the system handler below the score floor.
//
// Returns:
//   - string: The chosen handler name
//   - float64: The winning score, 0 for the fallback
func (r *Registry) Route(utterance string) (string, float64) {
	best, bestScore := DefaultHandler, 0.0
	for name, info := range r.infos {
		score := scoreModule(info, utterance)
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore < routeFloor {
		return DefaultHandler, 0
	}
	return best, bestScore
}

// scoreModule implements the routing weights: patterns 0.5, keywords up to
// 0.4 (0.1 per hit, exact match +0.2), package id 0.1.
func scoreModule(info *ModuleInfo, utterance string) float64 {
	u := strings.ToLower(strings.TrimSpace(utterance))
	score := 0.0

	for _, re := range info.patterns {
		if re.MatchString(u) {
			score += 0.5
			break
		}
	}

	keyword := 0.0
	for _, kw := range info.Keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if strings.Contains(u, k) {
			keyword += 0.1
			if u == k {
				keyword += 0.2
			}
		}
	}
	if keyword > 0.4 {
		keyword = 0.4
	}
	score += keyword

	if info.PackageID != "" && strings.Contains(u, strings.ToLower(info.PackageID)) {
		score += 0.1
	}
	return score
}
