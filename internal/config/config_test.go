package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ADBPath == "" {
		t.Error("expected a default adb path")
	}
	if cfg.MaxStepRetries != 3 {
		t.Errorf("MaxStepRetries = %d, want 3", cfg.MaxStepRetries)
	}
	if cfg.HomeMaxAttempts != 5 {
		t.Errorf("HomeMaxAttempts = %d, want 5", cfg.HomeMaxAttempts)
	}
	if cfg.BackPressInterval != 500*time.Millisecond {
		t.Errorf("BackPressInterval = %v, want 500ms", cfg.BackPressInterval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_MAX_STEP_RETRIES", "7")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("SCREENSHOT_WAIT_DEFAULT_MS", "1200")

	cfg := Load()

	if cfg.MaxStepRetries != 7 {
		t.Errorf("MaxStepRetries = %d, want 7", cfg.MaxStepRetries)
	}
	if !cfg.DebugMode {
		t.Error("DebugMode should be true")
	}
	if cfg.ScreenshotWait != 1200*time.Millisecond {
		t.Errorf("ScreenshotWait = %v, want 1.2s", cfg.ScreenshotWait)
	}
}

func TestScreenshotWaitFor(t *testing.T) {
	cfg := Load()

	if got := cfg.ScreenshotWaitFor("chrome"); got != 1000*time.Millisecond {
		t.Errorf("chrome wait = %v, want 1s", got)
	}
	if got := cfg.ScreenshotWaitFor("unknown-app"); got != cfg.ScreenshotWait {
		t.Errorf("unknown app should use default, got %v", got)
	}
}

func TestEnvDurationForms(t *testing.T) {
	t.Setenv("OPERATION_DELAY_MS", "1.5s")
	if got := Load().OperationDelay; got != 1500*time.Millisecond {
		t.Errorf("duration string form = %v, want 1.5s", got)
	}

	t.Setenv("OPERATION_DELAY_MS", "250")
	if got := Load().OperationDelay; got != 250*time.Millisecond {
		t.Errorf("bare millisecond form = %v, want 250ms", got)
	}
}

func TestClassifierModelFallsBackToPrimary(t *testing.T) {
	t.Setenv("LLM_MODEL", "main-model")
	cfg := Load()
	if cfg.ClassifierModel.Model != "main-model" {
		t.Errorf("classifier model = %q, want fallback to primary", cfg.ClassifierModel.Model)
	}

	t.Setenv("CLASSIFIER_LLM_API_KEY", "k")
	t.Setenv("CLASSIFIER_LLM_MODEL", "cheap-model")
	cfg = Load()
	if cfg.ClassifierModel.Model != "cheap-model" {
		t.Errorf("classifier model = %q, want cheap-model", cfg.ClassifierModel.Model)
	}
}
