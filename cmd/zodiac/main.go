package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "zodiac",
	Short: "daily-zodiac - Japanese daily horoscope site generator",
	Long: `zodiac builds a static daily horoscope site in Japanese.

Each run computes the day's placements, asks the configured LLM for the
global forecast (quality-gated by a second evaluation call), and fills every
other scope from deterministic fallback pools. Missing credentials, chart
failures or bad model output never stop a run.

Run without arguments to generate today's site.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runGenerate,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/zodiac.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(verifyLLMCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workspaceDir returns the workspace root, defaulting to the working directory.
func workspaceDir() string {
	if workspace != "" {
		return workspace
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// configFile returns --config or <workspace>/zodiac.yaml.
func configFile() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(workspaceDir(), "zodiac.yaml")
}

// readConfig reads .env and the config file and resolves paths against the
// workspace.
func readConfig() (*config.Config, error) {
	ws := workspaceDir()
	if err := config.LoadDotEnv(filepath.Join(ws, ".env")); err != nil {
		return nil, err
	}

	path := configFile()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Resolve(ws)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig is readConfig plus category logger setup. Commands call it once.
func loadConfig() (*config.Config, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	settings := cfg.Logging.Settings()
	if verbose {
		settings.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging.Dir, settings); err != nil {
		return nil, err
	}
	logging.Boot("Config loaded from %s (provider=%s scope=%s)", configFile(), cfg.LLM.Provider, cfg.LLM.Scope)
	return cfg, nil
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// signalContext is cancelled on SIGINT/SIGTERM only.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// resolveDate validates --date, defaulting to today in JST.
func resolveDate(flag string) (string, error) {
	if flag == "" {
		return types.TodayKey(time.Now()), nil
	}
	if _, err := types.ParseDateKey(flag); err != nil {
		return "", err
	}
	return flag, nil
}
