// Package config loads runtime configuration for the droidpilot CLI.
//
// Configuration comes from a .env file in the working directory (values there
// override the inherited environment) plus plain environment variables. All
// values have working defaults so the tool runs with an empty environment
// against a locally connected device.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Classifier modes for TASK_CLASSIFIER_MODE.
const (
	ClassifierModeRegex = "regex"
	ClassifierModeLLM   = "llm"
)

// LLM holds the connection settings for one model endpoint.
type LLM struct {
	// Provider is one of "openai", "claude" or "custom" (OpenAI-compatible).
	Provider string

	APIKey  string
	BaseURL string
	Model   string

	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Config is the resolved process configuration. It is built once at startup
// and passed down explicitly; nothing in this package is a mutable global.
type Config struct {
	// ADBPath is the adb binary, resolved from ADB_PATH or left as "adb"
	// so PATH lookup applies.
	ADBPath string

	// DefaultDevice is the serial used when -d/--device is not given.
	DefaultDevice string

	// DebugMode swaps the real device for the mock backend.
	DebugMode       bool
	DebugDeviceName string
	DebugScreenSize [2]int
	AssetHotReload  bool

	// AssetsDir is the reference-image store root; ModulesDir holds the
	// discoverable module manifests.
	AssetsDir  string
	ModulesDir string

	ClassifierMode    string
	OperationDelay    time.Duration
	ScreenshotWait    time.Duration
	AppScreenshotWait map[string]time.Duration

	// Workflow budgets. Names mirror the environment variables.
	MaxStepRetries     int
	MaxBackPresses     int
	BackPressInterval  time.Duration
	HomeMaxAttempts    int
	AIFallbackAttempts int
	RecoverNavAttempts int
	MaxReplans         int

	// Primary model used for vision, planning and verification.
	Model LLM
	// ClassifierModel is an optional cheaper endpoint for classification.
	// Falls back to Model when unset.
	ClassifierModel LLM

	ScreenshotTimeout time.Duration
}

// Load reads .env (if present) and the environment and returns the resolved
// configuration.
//
// Returns:
//   - *Config: The resolved configuration, never nil
func Load() *Config {
	// Values in .env win over the inherited environment, matching the
	// behaviour users expect from per-project env files.
	_ = godotenv.Overload(".env")

	cfg := &Config{
		ADBPath:         envStr("ADB_PATH", "adb"),
		DefaultDevice:   envStr("DEFAULT_DEVICE", ""),
		DebugMode:       envBool("DEBUG_MODE", false),
		DebugDeviceName: envStr("DEBUG_DEVICE_NAME", "mock-device"),
		DebugScreenSize: [2]int{
			envInt("DEBUG_SCREEN_WIDTH", 1080),
			envInt("DEBUG_SCREEN_HEIGHT", 2400),
		},
		AssetHotReload: envBool("ASSET_HOT_RELOAD", false),
		AssetsDir:      envStr("ASSETS_DIR", "assets"),
		ModulesDir:     envStr("MODULES_DIR", "modules"),
		ClassifierMode: envStr("TASK_CLASSIFIER_MODE", ClassifierModeLLM),
		OperationDelay: envDuration("OPERATION_DELAY_MS", 500*time.Millisecond),
		ScreenshotWait: envDuration("SCREENSHOT_WAIT_DEFAULT_MS", 300*time.Millisecond),
		AppScreenshotWait: map[string]time.Duration{
			"wechat": envDuration("SCREENSHOT_WAIT_WECHAT_MS", 300*time.Millisecond),
			"chrome": envDuration("SCREENSHOT_WAIT_CHROME_MS", 1000*time.Millisecond),
			"system": envDuration("SCREENSHOT_WAIT_SYSTEM_MS", 300*time.Millisecond),
		},

		MaxStepRetries:     envInt("WORKFLOW_MAX_STEP_RETRIES", 3),
		MaxBackPresses:     envInt("WORKFLOW_MAX_BACK_PRESSES", 5),
		BackPressInterval:  envDuration("WORKFLOW_BACK_PRESS_INTERVAL", 500*time.Millisecond),
		HomeMaxAttempts:    envInt("WORKFLOW_HOME_MAX_ATTEMPTS", 5),
		AIFallbackAttempts: envInt("WORKFLOW_AI_FALLBACK_ATTEMPTS", 3),
		RecoverNavAttempts: envInt("WORKFLOW_RECOVER_NAV_ATTEMPTS", 3),
		MaxReplans:         envInt("WORKFLOW_MAX_REPLANS", 3),

		ScreenshotTimeout: envDuration("SCREENSHOT_TIMEOUT_MS", 10*time.Second),
	}

	cfg.Model = loadLLM("")
	cfg.ClassifierModel = loadLLM("CLASSIFIER_")
	if cfg.ClassifierModel.APIKey == "" && cfg.ClassifierModel.BaseURL == "" {
		cfg.ClassifierModel = cfg.Model
	}

	return cfg
}

// ScreenshotWaitFor returns the pre-capture settle delay for an app,
// falling back to the default when the app has no override.
func (c *Config) ScreenshotWaitFor(app string) time.Duration {
	if d, ok := c.AppScreenshotWait[strings.ToLower(app)]; ok {
		return d
	}
	return c.ScreenshotWait
}

// loadLLM reads one provider triple. prefix distinguishes the optional
// classifier endpoint (CLASSIFIER_LLM_API_KEY etc.) from the primary one.
func loadLLM(prefix string) LLM {
	provider := envStr(prefix+"LLM_PROVIDER", "openai")
	l := LLM{
		Provider:    provider,
		APIKey:      envStr(prefix+"LLM_API_KEY", ""),
		BaseURL:     envStr(prefix+"LLM_BASE_URL", ""),
		Model:       envStr(prefix+"LLM_MODEL", ""),
		MaxTokens:   envInt(prefix+"LLM_MAX_TOKENS", 1024),
		Temperature: envFloat(prefix+"LLM_TEMPERATURE", 0.0),
		Timeout:     envDuration(prefix+"LLM_TIMEOUT", 60*time.Second),
	}
	if l.BaseURL == "" && provider == "openai" {
		l.BaseURL = "https://api.openai.com/v1"
	}
	return l
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// envDuration accepts either a Go duration string ("1.5s") or a bare
// number of milliseconds, which is what the original env surface used.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
