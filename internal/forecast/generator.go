// Package forecast produces forecast blocks with a hosted text generator,
// gated by an evaluator and bounded by a fixed number of attempts.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cast"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/llm"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// ErrExhausted is returned when every attempt failed to produce a candidate.
var ErrExhausted = errors.New("generation attempts exhausted")

// DefaultMaxAttempts bounds the generate-evaluate loop.
const DefaultMaxAttempts = 3

// Options tunes a Generator.
type Options struct {
	SystemInstruction string
	MaxAttempts       int
	AttemptDelay      time.Duration
}

// Stats counts generator activity across a run.
type Stats struct {
	Attempts    atomic.Int64 // generation requests sent
	Candidates  atomic.Int64 // requests that yielded a valid block
	Evaluations atomic.Int64
	Passed      atomic.Int64
	Exhausted   atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Attempts    int64
	Candidates  int64
	Evaluations int64
	Passed      int64
	Exhausted   int64
}

// Generator runs the quality-gated generation loop for one scope at a time.
type Generator struct {
	client    llm.Client
	evaluator Evaluator
	opts      Options
	stats     Stats
}

// NewGenerator creates a generator. A nil evaluator is the bypass.
func NewGenerator(client llm.Client, evaluator Evaluator, opts Options) *Generator {
	if evaluator == nil {
		evaluator = BypassEvaluator{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if strings.TrimSpace(opts.SystemInstruction) == "" {
		opts.SystemInstruction = config.DefaultSystemInstruction
	}
	return &Generator{client: client, evaluator: evaluator, opts: opts}
}

// NewFromConfig wires a generator from the run configuration. It returns
// llm.ErrNoCredential when no client can be built.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Generator, error) {
	client, err := llm.NewClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var evaluator Evaluator = BypassEvaluator{}
	if !cfg.LLM.EvalDisabled {
		evaluator = NewLLMEvaluator(client, config.LoadEvalProfile(cfg.LLM.EvalProfilePath))
	}

	return NewGenerator(client, evaluator, Options{
		SystemInstruction: config.LoadPersonality(cfg.LLM.PersonalityPath).SystemInstruction(),
		MaxAttempts:       cfg.LLM.MaxAttempts,
		AttemptDelay:      cfg.GetAttemptDelay(),
	}), nil
}

// Stats returns a snapshot of the counters.
func (g *Generator) Stats() Snapshot {
	return Snapshot{
		Attempts:    g.stats.Attempts.Load(),
		Candidates:  g.stats.Candidates.Load(),
		Evaluations: g.stats.Evaluations.Load(),
		Passed:      g.stats.Passed.Load(),
		Exhausted:   g.stats.Exhausted.Load(),
	}
}

// Generate produces a block for scope. It returns the first candidate the
// evaluator passes; otherwise the highest-scoring candidate seen, keeping
// the earliest on ties. ErrExhausted means no attempt produced a candidate.
// data may be nil when chart data is unavailable.
func (g *Generator) Generate(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (types.ForecastBlock, error) {
	timer := logging.StartTimer(logging.CategoryForecast, "Generate "+string(scope))
	defer timer.Stop()

	prompt := BuildPrompt(dateKey, data, scope)

	var best types.ForecastBlock
	bestScore := -1

	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, g.opts.AttemptDelay); err != nil {
				if bestScore >= 0 {
					return best, nil
				}
				return types.ForecastBlock{}, err
			}
		}

		candidate, err := g.candidate(ctx, prompt)
		if err != nil {
			logging.ForecastDebug("%s attempt %d/%d: %v", scope, attempt, g.opts.MaxAttempts, err)
			continue
		}

		g.stats.Evaluations.Add(1)
		verdict := g.evaluator.Evaluate(ctx, scope, candidate)
		logging.ForecastDebug("%s attempt %d/%d: pass=%v score=%d", scope, attempt, g.opts.MaxAttempts, verdict.Passed, verdict.Score)

		if verdict.Passed {
			g.stats.Passed.Add(1)
			return candidate, nil
		}
		if verdict.Score > bestScore {
			best = candidate
			bestScore = verdict.Score
		}
	}

	if bestScore < 0 {
		g.stats.Exhausted.Add(1)
		logging.ForecastWarn("%s: no candidate after %d attempts", scope, g.opts.MaxAttempts)
		return types.ForecastBlock{}, fmt.Errorf("%s: %w", scope, ErrExhausted)
	}
	logging.Forecast("%s: no candidate passed, keeping best score %d", scope, bestScore)
	return best, nil
}

// candidate requests and decodes one block.
func (g *Generator) candidate(ctx context.Context, prompt string) (types.ForecastBlock, error) {
	g.stats.Attempts.Add(1)

	text, err := g.client.CompleteWithSystem(ctx, g.opts.SystemInstruction, prompt)
	if err != nil {
		return types.ForecastBlock{}, err
	}

	var raw map[string]interface{}
	if err := llm.ExtractJSON(text, &raw); err != nil {
		return types.ForecastBlock{}, err
	}
	block := types.ForecastBlock{
		Summary: strings.TrimSpace(cast.ToString(raw["summary"])),
		Advice:  strings.TrimSpace(cast.ToString(raw["advice"])),
	}
	if !block.Valid() {
		return types.ForecastBlock{}, fmt.Errorf("%w: summary or advice missing", llm.ErrMalformed)
	}

	g.stats.Candidates.Add(1)
	return block, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
