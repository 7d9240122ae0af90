package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/forecast"
	"github.com/Nyukimin/daily-zodiac/internal/llm"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

var (
	sampleSeed uint64
	sampleOut  string
)

// verifyLLMCmd checks that the configured provider answers.
var verifyLLMCmd = &cobra.Command{
	Use:   "verify-llm",
	Short: "Check the LLM credential and generate one global sample",
	RunE:  runVerifyLLM,
}

// sampleCmd generates forecasts for a random date and random placements.
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate global and one sign forecast for random placements",
	Long: `Picks a random date in 2024-2027, random placements for every body, a
random moon phase and a random sign, then runs the quality-gated generator
for the global scope and for that sign. Use --seed to repeat a run.`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 0, "Random seed (default: time based)")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", "", "Also write the result to this file")
}

var (
	okMark = color.New(color.FgGreen, color.Bold).SprintFunc()
	ngMark = color.New(color.FgRed, color.Bold).SprintFunc()
)

func printOK(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", okMark("[OK]"), fmt.Sprintf(format, args...))
}

func printNG(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", ngMark("[NG]"), fmt.Sprintf(format, args...))
}

// verifyChart is a fixed chart so the check does not depend on the ephemeris.
func verifyChart() *chart.Data {
	return &chart.Data{
		Date:     "2026-02-11",
		SunSign:  types.Aquarius,
		MoonSign: types.Pisces,
		Planets: map[string]types.Sign{
			"sun":     types.Aquarius,
			"moon":    types.Pisces,
			"mercury": types.Aquarius,
		},
		MoonPhase: "Waxing Gibbous",
	}
}

func runVerifyLLM(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !cfg.HasCredential() {
		printNG(out, "LLM_API_KEY / GEMINI_API_KEY / OPENAI_API_KEY が設定されていません")
		return errors.New("no LLM credential")
	}
	printOK(out, "API キーが設定されています (provider=%s model=%s)", cfg.LLM.Provider, cfg.LLM.Model)

	ctx, cancel := commandContext()
	defer cancel()

	gen, err := forecast.NewFromConfig(ctx, cfg)
	if err != nil {
		printNG(out, "クライアントを初期化できません: %v", err)
		return err
	}

	fmt.Fprintln(out, "  占い文章を生成中...")
	data := verifyChart()
	block, err := gen.Generate(ctx, data.Date, data, types.Global)
	if err != nil {
		printNG(out, "LLM からの応答が取得できませんでした（API キーまたは接続を確認）: %v", err)
		return err
	}

	printOK(out, "LLM が正常に動作しました")
	fmt.Fprintln(out)
	writeBlock(out, types.Global.Label(), block)
	logStats(gen.Stats())
	return nil
}

// sampleInput is one randomized generator input.
type sampleInput struct {
	Data *chart.Data
	Sign types.Sign
}

// randomSample draws a date in 2024-01-01..2027-12-31, a sign per body,
// a moon phase and a target sign.
func randomSample(r *rand.Rand) sampleInput {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, types.JST)
	end := time.Date(2027, 12, 31, 0, 0, 0, 0, types.JST)
	days := int(end.Sub(start).Hours() / 24)
	date := start.AddDate(0, 0, r.IntN(days+1)).Format(types.DateKeyLayout)

	planets := make(map[string]types.Sign, len(chart.Bodies))
	for _, body := range chart.Bodies {
		planets[body] = types.Signs[r.IntN(len(types.Signs))]
	}

	return sampleInput{
		Data: &chart.Data{
			Date:      date,
			SunSign:   planets["sun"],
			MoonSign:  planets["moon"],
			Planets:   planets,
			MoonPhase: chart.MoonPhase(r.Float64() * 360),
		},
		Sign: types.Signs[r.IntN(len(types.Signs))],
	}
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	seed := sampleSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	in := randomSample(rand.New(rand.NewPCG(seed, seed)))
	data := in.Data

	var report strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&report, "%s\nLLM 占い結果テスト (seed=%d)\n%s\n\n", rule, seed, rule)
	fmt.Fprintf(&report, "【入力】日付: %s\n", data.Date)
	fmt.Fprintf(&report, "  太陽: %s, 月: %s\n", data.SunSign, data.MoonSign)
	fmt.Fprintf(&report, "  月相: %s\n", data.MoonPhase)
	for _, p := range data.Placements() {
		fmt.Fprintf(&report, "  %-8s %s\n", p.Body, p.Sign)
	}
	fmt.Fprintln(&report)
	fmt.Fprint(out, report.String())

	ctx, cancel := commandContext()
	defer cancel()

	gen, err := forecast.NewFromConfig(ctx, cfg)
	if errors.Is(err, llm.ErrNoCredential) {
		printNG(out, "LLM_API_KEY または GEMINI_API_KEY が設定されていません")
		fmt.Fprintln(out, "     .env に LLM_API_KEY=... を設定してください")
		return err
	}
	if err != nil {
		return err
	}

	scopes := []types.Scope{types.Global, types.ScopeOf(in.Sign)}
	for i, scope := range scopes {
		fmt.Fprintf(out, "【%d】%s を生成中...\n", i+1, scope.Label())
		block, err := gen.Generate(ctx, data.Date, data, scope)
		if err != nil {
			printNG(out, "%s の取得に失敗しました: %v", scope.Label(), err)
			fmt.Fprintf(&report, "【%s】取得失敗: %v\n\n", scope.Label(), err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		writeBlock(out, scope.Label(), block)
		writeBlock(&report, scope.Label(), block)
	}
	logStats(gen.Stats())

	if sampleOut != "" {
		if err := os.MkdirAll(filepath.Dir(sampleOut), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(sampleOut, []byte(report.String()), 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "結果を保存: %s\n", sampleOut)
	}
	return nil
}

func writeBlock(w io.Writer, label string, block types.ForecastBlock) {
	fmt.Fprintf(w, "  ■ %s\n", label)
	fmt.Fprintf(w, "  要約: %s\n", block.Summary)
	fmt.Fprintf(w, "  アドバイス: %s\n\n", block.Advice)
}

func logStats(s forecast.Snapshot) {
	logger.Debug("Generator stats",
		zap.Int64("attempts", s.Attempts),
		zap.Int64("candidates", s.Candidates),
		zap.Int64("evaluations", s.Evaluations),
		zap.Int64("passed", s.Passed),
		zap.Int64("exhausted", s.Exhausted))
}

