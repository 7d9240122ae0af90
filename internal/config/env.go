package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// envOverrides lists every environment variable the run observes.
// Flags are read as strings and coerced with cast so values like "1",
// "yes" and "TRUE" all work.
type envOverrides struct {
	LLMAPIKey     string `env:"LLM_API_KEY"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	Provider      string `env:"LLM_PROVIDER"`
	Model         string `env:"LLM_MODEL"`
	EvalDisabled  string `env:"LLM_EVAL_DISABLED"`
	Scope         string `env:"LLM_SCOPE"`
	MaxAttempts   string `env:"LLM_MAX_ATTEMPTS"`
	BasePath      string `env:"BASE_PATH"`
	OutDir        string `env:"ZODIAC_OUT_DIR"`
	ChartProvider string `env:"ZODIAC_CHART_PROVIDER"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are never overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	logging.Boot("Loaded environment from %s", path)
	return nil
}

// applyEnvOverrides applies environment variables on top of file values.
// Key precedence: LLM_API_KEY > GEMINI_API_KEY > OPENAI_API_KEY.
func (c *Config) applyEnvOverrides() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if e.OpenAIAPIKey != "" {
		c.LLM.APIKey = e.OpenAIAPIKey
		c.LLM.Provider = "openai"
	}
	if e.GeminiAPIKey != "" {
		c.LLM.APIKey = e.GeminiAPIKey
		c.LLM.Provider = "gemini"
	}
	if e.LLMAPIKey != "" {
		c.LLM.APIKey = e.LLMAPIKey
	}
	if e.Provider != "" {
		c.LLM.Provider = strings.ToLower(e.Provider)
	}
	if e.Model != "" {
		c.LLM.Model = e.Model
	}

	if e.EvalDisabled != "" {
		if v, ok := parseFlag(e.EvalDisabled); ok {
			c.LLM.EvalDisabled = v
		} else {
			logging.BootWarn("Ignoring LLM_EVAL_DISABLED=%q: not a boolean", e.EvalDisabled)
		}
	}
	if e.MaxAttempts != "" {
		n, err := cast.ToIntE(e.MaxAttempts)
		if err != nil {
			return fmt.Errorf("invalid LLM_MAX_ATTEMPTS %q: %w", e.MaxAttempts, err)
		}
		c.LLM.MaxAttempts = n
	}
	if e.Scope != "" {
		c.LLM.Scope = strings.ToLower(e.Scope)
	}
	if e.BasePath != "" {
		c.Site.BasePath = e.BasePath
	}
	if e.OutDir != "" {
		c.Site.OutDir = e.OutDir
	}
	if e.ChartProvider != "" {
		c.Chart.Provider = strings.ToLower(e.ChartProvider)
	}
	return nil
}

// parseFlag accepts the usual boolean spellings plus yes/no and on/off.
func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	}
	v, err := cast.ToBoolE(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return v, true
}
