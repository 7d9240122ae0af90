package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/fallback"
	"github.com/Nyukimin/daily-zodiac/internal/forecast"
	"github.com/Nyukimin/daily-zodiac/internal/llm"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/site"
	"github.com/Nyukimin/daily-zodiac/internal/store"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

var (
	genDate      string
	genScope     string
	genNoArchive bool
)

// generateCmd builds and publishes the site for one date.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the payload for a date and publish the site",
	Long: `Builds the DailyPayload for --date (default: today in JST), renders the
static site into site.out_dir, caches the payload as <data_dir>/<date>.json
and records the run in the SQLite archive.`,
	RunE: runGenerate,
}

func init() {
	for _, fs := range []*cobra.Command{rootCmd, generateCmd} {
		fs.Flags().StringVar(&genDate, "date", "", "Date key YYYY-MM-DD (default: today in JST)")
		fs.Flags().StringVar(&genScope, "scope", "", "Generator scope policy: global, all, none (default: llm.scope)")
		fs.Flags().BoolVar(&genNoArchive, "no-archive", false, "Do not record the run in the archive")
	}
}

// buildResult is the outcome of one generate run.
type buildResult struct {
	Payload   *types.DailyPayload
	DailyPath string
	RunID     string
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dateKey, err := resolveDate(genDate)
	if err != nil {
		return err
	}
	policy, err := site.ParseScopePolicy(firstNonEmpty(genScope, cfg.LLM.Scope))
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := buildAndPublish(ctx, cfg, dateKey, policy, !genNoArchive)
	if err != nil {
		return err
	}

	logger.Info("Site generated",
		zap.String("date", dateKey),
		zap.String("out_dir", cfg.Site.OutDir),
		zap.String("daily", res.DailyPath),
		zap.Int("generated_scopes", res.Payload.GeneratedCount()),
		zap.String("run_id", res.RunID))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d generated, %d fallback -> %s\n",
		dateKey, res.Payload.GeneratedCount(), len(types.Scopes())-res.Payload.GeneratedCount(), cfg.Site.OutDir)
	return nil
}

// newGenerator returns the configured generator, or an untyped nil when the
// text generator is unavailable.
func newGenerator(ctx context.Context, cfg *config.Config, policy site.ScopePolicy) site.Generator {
	if policy == site.PolicyNone {
		return nil
	}
	g, err := forecast.NewFromConfig(ctx, cfg)
	if err != nil {
		if errors.Is(err, llm.ErrNoCredential) {
			logger.Info("No LLM credential; using fallback pools for every scope")
		} else {
			logger.Warn("Text generator unavailable", zap.Error(err))
		}
		return nil
	}
	return g
}

// buildAndPublish runs the whole pipeline for dateKey. Only configuration
// and I/O failures are returned; generator and chart problems degrade to
// fallback inside the assembler.
func buildAndPublish(ctx context.Context, cfg *config.Config, dateKey string, policy site.ScopePolicy, archive bool) (*buildResult, error) {
	timer := logging.StartTimer(logging.CategorySite, "buildAndPublish")
	defer timer.Stop()

	pools, err := fallback.Load(cfg.Fallback.PoolPath)
	if err != nil {
		return nil, err
	}
	provider, err := chart.NewProvider(cfg.Chart.Provider)
	if err != nil {
		return nil, err
	}

	asm := site.NewAssembler(provider, newGenerator(ctx, cfg, policy), pools, policy)
	payload, err := asm.Build(ctx, dateKey)
	if err != nil {
		return nil, err
	}

	renderer, err := site.NewRenderer(cfg.NormalizedBasePath())
	if err != nil {
		return nil, err
	}
	if err := site.NewPublisher(renderer, pools, cfg.Site.Concurrency).Publish(ctx, cfg.Site.OutDir, payload); err != nil {
		return nil, err
	}

	dailyPath, err := store.SaveDaily(cfg.Store.DataDir, payload)
	if err != nil {
		return nil, err
	}
	res := &buildResult{Payload: payload, DailyPath: dailyPath}

	if archive && cfg.Store.ArchivePath != "" {
		id, err := archiveRun(ctx, cfg.Store.ArchivePath, payload)
		if err != nil {
			// archive failures are logged, not returned
			logger.Warn("Failed to archive run", zap.Error(err))
		}
		res.RunID = id
	}
	return res, nil
}

func archiveRun(ctx context.Context, path string, payload *types.DailyPayload) (string, error) {
	a, err := store.OpenArchive(path)
	if err != nil {
		return "", err
	}
	defer a.Close()

	run := store.NewRun(payload)
	if err := a.Put(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
