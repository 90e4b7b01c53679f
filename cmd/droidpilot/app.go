// Package main provides the subsystem wiring shared by all commands.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/droidpilot/cli/internal/adb"
	"github.com/droidpilot/cli/internal/apps/system"
	"github.com/droidpilot/cli/internal/apps/wechat"
	"github.com/droidpilot/cli/internal/assets"
	"github.com/droidpilot/cli/internal/classify"
	"github.com/droidpilot/cli/internal/config"
	"github.com/droidpilot/cli/internal/llm"
	"github.com/droidpilot/cli/internal/locate"
	"github.com/droidpilot/cli/internal/registry"
	"github.com/droidpilot/cli/internal/runner"
	"github.com/droidpilot/cli/internal/ui"
	"github.com/droidpilot/cli/internal/workflow"
)

// app bundles the wired subsystems a command needs.
type app struct {
	cfg        *config.Config
	dev        adb.Device
	store      *assets.Store
	loc        *locate.Locator
	reg        *registry.Registry
	classifier *classify.Classifier
	runner     *runner.Runner
}

// buildApp loads configuration and wires the full pipeline: device, asset
// store, locator, classifier, module registry and task runner.
//
// Parameters:
//   - cmd: The invoking command, read for the --device flag
//
// Returns:
//   - *app: The wired subsystems
func buildApp(cmd *cobra.Command) *app {
	cfg := config.Load()

	dev := buildDevice(cmd, cfg)

	store := assets.NewStore(cfg.AssetsDir)
	if cfg.AssetHotReload {
		if err := store.Watch(); err != nil {
			log.Warn("asset hot reload unavailable", "err", err)
		}
	}

	var (
		remote   locate.RemoteVision
		small    locate.SmallModel
		verifier workflow.Verifier
		planner  workflow.Planner
		chooser  wechat.WorkflowChooser
	)
	if modelConfigured(cfg.Model) {
		client := llm.NewClient(cfg.Model)
		vision := llm.NewVision(client)
		remote = vision
		small = llm.NewSmallModel(client)
		verifier = llm.NewVerifier(client)
		p := llm.NewPlanner(client)
		planner = p
		chooser = p
	} else {
		log.Debug("no model configured, pixel locator stages only")
	}
	loc := locate.New(remote, small)

	var clsClient *llm.Client
	if modelConfigured(cfg.ClassifierModel) {
		clsClient = llm.NewClient(cfg.ClassifierModel)
	}
	classifier := classify.New(clsClient, cfg.ClassifierMode)

	exec := workflow.NewExecutor(workflow.Options{
		Device:    dev,
		Locator:   loc,
		Assets:    store,
		Screens:   wechat.Screens(),
		Verifier:  verifier,
		Planner:   planner,
		Config:    cfg,
		Workflows: wechat.Workflows(),
	})

	reg := registry.New()
	if err := reg.Discover(cfg.ModulesDir); err != nil {
		log.Warn("module discovery failed", "dir", cfg.ModulesDir, "err", err)
	}
	// Built-in handlers register their manifests when the modules dir has
	// no override for them.
	_ = reg.AddInfo(wechat.Manifest())
	_ = reg.AddInfo(system.Manifest())
	reg.Register(wechat.New(exec, classifier, chooser))
	reg.Register(system.New(dev, classifier))

	return &app{
		cfg:        cfg,
		dev:        dev,
		store:      store,
		loc:        loc,
		reg:        reg,
		classifier: classifier,
		runner:     runner.New(reg, classifier),
	}
}

// buildDevice picks the mock backend in debug mode and a real controller
// otherwise. The --device flag wins over DEFAULT_DEVICE.
func buildDevice(cmd *cobra.Command, cfg *config.Config) adb.Device {
	if cfg.DebugMode {
		log.Info("debug mode: using mock device", "name", cfg.DebugDeviceName)
		return adb.NewMock(cfg.DebugDeviceName, cfg.DebugScreenSize[0], cfg.DebugScreenSize[1])
	}

	serial := cfg.DefaultDevice
	if cmd != nil {
		if flag, _ := cmd.Flags().GetString("device"); flag != "" {
			serial = flag
		}
	}
	if serial == "" {
		serial = pickDevice(cfg.ADBPath)
	}
	ctrl := adb.NewController(cfg.ADBPath, serial)
	ctrl.SetScreenshotTimeout(cfg.ScreenshotTimeout)
	return ctrl
}

// pickDevice asks the user which device to drive when several are attached
// and no serial was configured. Non-interactive runs keep adb's own default.
func pickDevice(adbPath string) string {
	if !ui.IsInteractive() {
		return ""
	}
	serials, err := adb.ListDevices(context.Background(), adbPath)
	if err != nil || len(serials) < 2 {
		return ""
	}
	idx, err := ui.PromptSelect("Multiple devices attached:", serials)
	if err != nil {
		return ""
	}
	return serials[idx]
}

// modelConfigured reports whether an endpoint has enough settings to call.
func modelConfigured(m config.LLM) bool {
	return m.APIKey != "" || m.BaseURL != ""
}

// exitCodeFor maps an error to the process exit code: 2 for configuration
// and device availability problems, 1 for everything else.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, adb.ErrDeviceUnavailable) {
		return 2
	}
	return 1
}

// close releases long-lived resources.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Debug("asset store close", "err", err)
		}
	}
}

// deviceError wraps an error so exitCodeFor reports device unavailability.
func deviceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, adb.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", adb.ErrDeviceUnavailable, err)
}
