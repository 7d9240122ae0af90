package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nyukimin/daily-zodiac/internal/preview"
	"github.com/Nyukimin/daily-zodiac/internal/site"
)

var (
	serveAddr     string
	serveNoWatch  bool
	serveDebounce time.Duration
)

// serveCmd previews the site locally and rebuilds it when inputs change.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site locally and rebuild on pool/config changes",
	Long: `Generates today's site, serves site.out_dir under the configured base
path, and watches the fallback pools, personality, eval profile and config
files. Any change triggers one rebuild; POST /-/rebuild forces one.

Preview builds use the fallback pools only and are not archived.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch input files")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", 300*time.Millisecond, "Debounce window for file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dateKey, err := resolveDate("")
	if err != nil {
		return err
	}

	// serve runs until interrupted; --timeout does not apply
	ctx, stop := signalContext()
	defer stop()

	rebuild := func(ctx context.Context) error {
		current, err := readConfig()
		if err != nil {
			return err
		}
		_, err = buildAndPublish(ctx, current, dateKey, site.PolicyNone, false)
		return err
	}
	if err := rebuild(ctx); err != nil {
		return err
	}

	var rebuilder preview.Rebuilder
	if !serveNoWatch {
		files := []string{cfg.Fallback.PoolPath, cfg.LLM.PersonalityPath, cfg.LLM.EvalProfilePath, configFile()}
		w, err := preview.NewWatcher(files, rebuild, serveDebounce)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer func() {
			w.Stop()
			stats := w.Stats()
			logger.Info("Watcher stopped",
				zap.Int("events", stats.Events),
				zap.Int("rebuilds", stats.Rebuilds),
				zap.Int("errors", stats.Errors))
		}()
		rebuilder = w
	}

	srv := preview.NewServer(cfg.Site.OutDir, cfg.NormalizedBasePath(), rebuilder)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s%s (Ctrl+C to stop)\n", cfg.Site.OutDir, serveAddr, cfg.NormalizedBasePath())
	return srv.ListenAndServe(ctx, serveAddr)
}
