// Package config loads the daily-zodiac run configuration.
// Values come from zodiac.yaml, then .env, then the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Scope policies decide which scopes may use the text generator.
const (
	ScopeGlobal = "global" // only the global forecast is generated
	ScopeAll    = "all"    // global and all twelve signs
	ScopeNone   = "none"   // fallback only
)

// Config holds all daily-zodiac configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Chart    ChartConfig    `yaml:"chart"`
	Site     SiteConfig     `yaml:"site"`
	Fallback FallbackConfig `yaml:"fallback"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the text generator and the quality gate.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`

	// MinInterval is the minimum spacing between two API requests.
	MinInterval string `yaml:"min_interval"`

	MaxAttempts  int    `yaml:"max_attempts"`
	AttemptDelay string `yaml:"attempt_delay"`

	// EvalDisabled replaces the evaluator with an always-pass bypass.
	EvalDisabled bool   `yaml:"eval_disabled"`
	Scope        string `yaml:"scope"`

	PersonalityPath string `yaml:"personality_path"`
	EvalProfilePath string `yaml:"eval_profile_path"`
}

// ChartConfig selects the chart data provider.
type ChartConfig struct {
	Provider string `yaml:"provider"` // ephemeris, none
}

// SiteConfig configures the static output.
type SiteConfig struct {
	OutDir      string `yaml:"out_dir"`
	BasePath    string `yaml:"base_path"`
	Concurrency int    `yaml:"concurrency"`
}

// FallbackConfig points at an optional pool file. Empty means the
// pools compiled into the binary.
type FallbackConfig struct {
	PoolPath string `yaml:"pool_path"`
}

// StoreConfig configures the dated cache and the run archive.
type StoreConfig struct {
	DataDir     string `yaml:"data_dir"`
	ArchivePath string `yaml:"archive_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-flash-lite-latest",
			Timeout:         "60s",
			MinInterval:     "500ms",
			MaxAttempts:     3,
			AttemptDelay:    "1s",
			Scope:           ScopeGlobal,
			PersonalityPath: "config/llm_personality.yaml",
			EvalProfilePath: "config/llm_eval.yaml",
		},
		Chart: ChartConfig{
			Provider: "ephemeris",
		},
		Site: SiteConfig{
			OutDir:      "site",
			BasePath:    "/",
			Concurrency: 4,
		},
		Store: StoreConfig{
			DataDir:     "data",
			ArchivePath: "data/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Dir:        ".zodiac/logs",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Resolve joins relative paths in the config onto root.
func (c *Config) Resolve(root string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, p)
	}
	c.LLM.PersonalityPath = join(c.LLM.PersonalityPath)
	c.LLM.EvalProfilePath = join(c.LLM.EvalProfilePath)
	c.Site.OutDir = join(c.Site.OutDir)
	c.Fallback.PoolPath = join(c.Fallback.PoolPath)
	c.Store.DataDir = join(c.Store.DataDir)
	c.Store.ArchivePath = join(c.Store.ArchivePath)
	c.Logging.Dir = join(c.Logging.Dir)
}

// GetLLMTimeout returns the per-request timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetMinInterval returns the minimum spacing between API requests.
func (c *Config) GetMinInterval() time.Duration {
	return parseDuration(c.LLM.MinInterval, 500*time.Millisecond)
}

// GetAttemptDelay returns the fixed delay between generation attempts.
func (c *Config) GetAttemptDelay() time.Duration {
	return parseDuration(c.LLM.AttemptDelay, time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// NormalizedBasePath returns the base path with leading and trailing slashes.
func (c *Config) NormalizedBasePath() string {
	return NormalizeBasePath(c.Site.BasePath)
}

// NormalizeBasePath makes p start and end with "/". Empty becomes "/".
func NormalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// HasCredential reports whether a text generator can be constructed.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs *multierror.Error

	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown llm provider %q (want gemini or openai)", c.LLM.Provider))
	}

	switch c.LLM.Scope {
	case ScopeGlobal, ScopeAll, ScopeNone:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown scope policy %q (want global, all or none)", c.LLM.Scope))
	}

	switch c.Chart.Provider {
	case "ephemeris", "none":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown chart provider %q (want ephemeris or none)", c.Chart.Provider))
	}

	if c.LLM.MaxAttempts < 1 {
		errs = multierror.Append(errs, fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts))
	}
	if c.Site.Concurrency < 1 {
		errs = multierror.Append(errs, fmt.Errorf("site.concurrency must be at least 1, got %d", c.Site.Concurrency))
	}
	if c.Site.OutDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("site.out_dir is required"))
	}

	for _, d := range []struct{ name, value string }{
		{"llm.timeout", c.LLM.Timeout},
		{"llm.min_interval", c.LLM.MinInterval},
		{"llm.attempt_delay", c.LLM.AttemptDelay},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid %s: %w", d.name, err))
		}
	}
	return errs.ErrorOrNil()
}
