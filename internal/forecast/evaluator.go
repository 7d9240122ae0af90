package forecast

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/llm"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 5
)

// Verdict is the evaluator's judgement of one candidate.
type Verdict struct {
	Passed        bool
	Score         int
	ReasonSummary string
	ReasonAdvice  string
}

// Evaluator scores a candidate block.
type Evaluator interface {
	Evaluate(ctx context.Context, scope types.Scope, block types.ForecastBlock) Verdict
}

// BypassEvaluator passes every candidate with the maximum score.
type BypassEvaluator struct{}

// Evaluate implements Evaluator.
func (BypassEvaluator) Evaluate(ctx context.Context, scope types.Scope, block types.ForecastBlock) Verdict {
	return Verdict{Passed: true, Score: MaxScore}
}

// LLMEvaluator asks a text generator to grade candidates against a rubric.
type LLMEvaluator struct {
	client  llm.Client
	profile *config.EvalProfile
}

// NewLLMEvaluator creates an evaluator. A nil profile uses the default rubric.
func NewLLMEvaluator(client llm.Client, profile *config.EvalProfile) *LLMEvaluator {
	if profile == nil {
		profile = config.DefaultEvalProfile()
	}
	return &LLMEvaluator{client: client, profile: profile}
}

// evalResponse accepts loosely typed fields; models return "4" as often as 4.
type evalResponse struct {
	Pass          interface{} `json:"pass"`
	Score         interface{} `json:"score"`
	ReasonSummary interface{} `json:"reason_summary"`
	ReasonAdvice  interface{} `json:"reason_advice"`
}

// Evaluate implements Evaluator. Invalid candidates and unusable evaluator
// output both score {false, 0}.
func (e *LLMEvaluator) Evaluate(ctx context.Context, scope types.Scope, block types.ForecastBlock) Verdict {
	if !block.Valid() {
		return Verdict{}
	}

	text, err := e.client.CompleteWithSystem(ctx, evalSystemPrompt, BuildEvalPrompt(e.profile, scope, block))
	if err != nil {
		logging.ForecastWarn("evaluate %s: %v", scope, err)
		return Verdict{}
	}

	var resp evalResponse
	if err := llm.ExtractJSON(text, &resp); err != nil {
		logging.ForecastWarn("evaluate %s: %v", scope, err)
		return Verdict{}
	}
	return e.verdict(resp)
}

func (e *LLMEvaluator) verdict(resp evalResponse) Verdict {
	if resp.Score == nil {
		return Verdict{}
	}
	score, err := cast.ToIntE(resp.Score)
	if err != nil {
		f, ferr := cast.ToFloat64E(resp.Score)
		if ferr != nil {
			return Verdict{}
		}
		score = int(f)
	}
	score = clampScore(score)

	// A missing or unreadable "pass" falls back to the rubric threshold.
	passed := score >= e.profile.PassScore
	if resp.Pass != nil {
		if p, err := cast.ToBoolE(normalizeBool(resp.Pass)); err == nil {
			passed = p
		}
	}

	return Verdict{
		Passed:        passed,
		Score:         score,
		ReasonSummary: cast.ToString(resp.ReasonSummary),
		ReasonAdvice:  cast.ToString(resp.ReasonAdvice),
	}
}

func normalizeBool(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return v
}

func clampScore(s int) int {
	if s < MinScore {
		return MinScore
	}
	if s > MaxScore {
		return MaxScore
	}
	return s
}
