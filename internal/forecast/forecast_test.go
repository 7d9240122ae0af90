package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// mockClient replays scripted responses in order.
type mockClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	systems   []string
	prompts   []string
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.systems = append(m.systems, system)
	m.prompts = append(m.prompts, user)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

// scriptedEvaluator returns verdicts in order and records what it saw.
type scriptedEvaluator struct {
	verdicts []Verdict
	seen     []types.ForecastBlock
}

func (s *scriptedEvaluator) Evaluate(ctx context.Context, scope types.Scope, block types.ForecastBlock) Verdict {
	i := len(s.seen)
	s.seen = append(s.seen, block)
	if i < len(s.verdicts) {
		return s.verdicts[i]
	}
	return Verdict{}
}

func blockJSON(n int) string {
	return fmt.Sprintf(`{"summary":"summary-%d","advice":"advice-%d"}`, n, n)
}

func blockN(n int) types.ForecastBlock {
	return types.ForecastBlock{Summary: fmt.Sprintf("summary-%d", n), Advice: fmt.Sprintf("advice-%d", n)}
}

func TestGenerate_BypassPassesFirstCandidate(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1), blockJSON(2)}}
	g := NewGenerator(client, BypassEvaluator{}, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, blockN(1), got)
	assert.Equal(t, 1, client.calls, "exactly one generate call")

	s := g.Stats()
	assert.Equal(t, int64(1), s.Attempts)
	assert.Equal(t, int64(1), s.Passed)
}

func TestGenerate_AlwaysFailIncreasingScoresKeepsLast(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1), blockJSON(2), blockJSON(3)}}
	eval := &scriptedEvaluator{verdicts: []Verdict{{Score: 1}, {Score: 2}, {Score: 3}}}
	g := NewGenerator(client, eval, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, blockN(3), got)
	assert.Equal(t, 3, client.calls)
	assert.Len(t, eval.seen, 3)
}

func TestGenerate_TieKeepsFirstSeen(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1), blockJSON(2), blockJSON(3)}}
	eval := &scriptedEvaluator{verdicts: []Verdict{{Score: 2}, {Score: 2}, {Score: 1}}}
	g := NewGenerator(client, eval, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.ScopeOf(types.Leo))
	require.NoError(t, err)
	assert.Equal(t, blockN(1), got)
}

func TestGenerate_ZeroScoreCandidateIsRetained(t *testing.T) {
	client := &mockClient{
		responses: []string{blockJSON(1)},
		errs:      []error{nil, errors.New("boom"), errors.New("boom")},
	}
	eval := &scriptedEvaluator{verdicts: []Verdict{{Score: 0}}}
	g := NewGenerator(client, eval, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, blockN(1), got)
}

func TestGenerate_PassOnSecondAttempt(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1), blockJSON(2), blockJSON(3)}}
	eval := &scriptedEvaluator{verdicts: []Verdict{{Score: 4}, {Passed: true, Score: 3}}}
	g := NewGenerator(client, eval, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, blockN(2), got, "a passing candidate wins over a higher failing score")
	assert.Equal(t, 2, client.calls)
}

func TestGenerate_Exhausted(t *testing.T) {
	client := &mockClient{
		responses: []string{"not json", `{"summary":"only summary"}`, `{"summary":" ","advice":"a"}`},
	}
	g := NewGenerator(client, BypassEvaluator{}, Options{})

	_, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, client.calls)

	s := g.Stats()
	assert.Equal(t, int64(3), s.Attempts)
	assert.Equal(t, int64(0), s.Candidates)
	assert.Equal(t, int64(1), s.Exhausted)
}

func TestGenerate_ClientErrorsExhaust(t *testing.T) {
	boom := errors.New("network down")
	client := &mockClient{errs: []error{boom, boom, boom}}
	g := NewGenerator(client, BypassEvaluator{}, Options{MaxAttempts: 3})

	_, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGenerate_NonStringFieldsAreCoerced(t *testing.T) {
	client := &mockClient{responses: []string{`{"summary": 7, "advice": "ok"}`}}
	g := NewGenerator(client, nil, Options{})

	got, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, "7", got.Summary)
}

func TestGenerate_AttemptDelayHonoursContext(t *testing.T) {
	client := &mockClient{errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}
	g := NewGenerator(client, nil, Options{AttemptDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Generate(ctx, "2026-02-10", nil, types.Global)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, client.calls)
}

func TestGenerate_CancelledDelayKeepsBest(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1), blockJSON(2)}}
	eval := &scriptedEvaluator{verdicts: []Verdict{{Score: 1}}}
	g := NewGenerator(client, eval, Options{AttemptDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := g.Generate(ctx, "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, blockN(1), got)
}

func TestGenerate_UsesSystemInstruction(t *testing.T) {
	client := &mockClient{responses: []string{blockJSON(1)}}
	g := NewGenerator(client, nil, Options{SystemInstruction: "persona"})
	_, err := g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, []string{"persona"}, client.systems)

	client = &mockClient{responses: []string{blockJSON(1)}}
	g = NewGenerator(client, nil, Options{})
	_, err = g.Generate(context.Background(), "2026-02-10", nil, types.Global)
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultSystemInstruction}, client.systems)
}

func TestNewFromConfig_NoCredential(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewFromConfig(context.Background(), cfg)
	assert.Error(t, err)
}

// =============================================================================
// EVALUATOR
// =============================================================================

func TestBypassEvaluator(t *testing.T) {
	v := BypassEvaluator{}.Evaluate(context.Background(), types.Global, types.ForecastBlock{})
	assert.Equal(t, Verdict{Passed: true, Score: 5}, v)
}

func TestLLMEvaluator_InvalidCandidateSkipsCall(t *testing.T) {
	client := &mockClient{}
	e := NewLLMEvaluator(client, nil)

	v := e.Evaluate(context.Background(), types.Global, types.ForecastBlock{Summary: "s"})
	assert.Equal(t, Verdict{}, v)
	assert.Equal(t, 0, client.calls)
}

func TestLLMEvaluator_Parsing(t *testing.T) {
	tests := []struct {
		name   string
		resp   string
		passed bool
		score  int
	}{
		{"typed", `{"pass": true, "score": 5, "reason_summary": "良い", "reason_advice": "良い"}`, true, 5},
		{"string fields", `{"pass": "false", "score": "3"}`, false, 3},
		{"fenced", "```json\n{\"pass\": false, \"score\": 2}\n```", false, 2},
		{"score clamped high", `{"pass": true, "score": 11}`, true, 5},
		{"score clamped low", `{"pass": false, "score": -4}`, false, 0},
		{"fractional score", `{"pass": false, "score": 3.5}`, false, 3},
		{"missing pass uses threshold", `{"score": 4}`, true, 4},
		{"missing pass below threshold", `{"score": 3}`, false, 3},
		{"unparseable", `I think it is fine`, false, 0},
		{"missing score", `{"pass": true}`, false, 0},
		{"garbage score", `{"pass": true, "score": "high"}`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{responses: []string{tt.resp}}
			e := NewLLMEvaluator(client, nil)

			v := e.Evaluate(context.Background(), types.Global, blockN(1))
			assert.Equal(t, tt.passed, v.Passed)
			assert.Equal(t, tt.score, v.Score)
			assert.Equal(t, 1, client.calls)
		})
	}
}

func TestLLMEvaluator_ClientError(t *testing.T) {
	client := &mockClient{errs: []error{errors.New("quota")}}
	v := NewLLMEvaluator(client, nil).Evaluate(context.Background(), types.Global, blockN(1))
	assert.Equal(t, Verdict{}, v)
}

func TestLLMEvaluator_PromptCarriesRubric(t *testing.T) {
	client := &mockClient{responses: []string{`{"pass":true,"score":5}`}}
	profile := &config.EvalProfile{Profile: "朝の占い", Avoid: []string{"断定"}, PassScore: 4}
	NewLLMEvaluator(client, profile).Evaluate(context.Background(), types.ScopeOf(types.Aries), blockN(1))

	require.Len(t, client.prompts, 1)
	p := client.prompts[0]
	assert.Contains(t, p, "朝の占い")
	assert.Contains(t, p, "牡羊座")
	assert.Contains(t, p, "断定")
	assert.Contains(t, p, "summary-1")
	assert.Contains(t, client.systems[0], `"reason_advice"`)
}

// =============================================================================
// PROMPTS
// =============================================================================

func TestBuildPrompt(t *testing.T) {
	data := &chart.Data{
		Date:      "2026-02-11",
		SunSign:   types.Aquarius,
		MoonSign:  types.Pisces,
		MoonPhase: "Waxing Gibbous",
		Planets:   map[string]types.Sign{"mercury": types.Aquarius, "sun": types.Aquarius, "moon": types.Pisces},
	}

	global := BuildPrompt("2026-02-11", data, types.Global)
	assert.Contains(t, global, "今日（2026-02-11）の天体配置です。")
	assert.Contains(t, global, "太陽: aquarius、月: pisces、月相: Waxing Gibbous")
	assert.Contains(t, global, `惑星: {"sun": "aquarius", "moon": "pisces", "mercury": "aquarius"}`)
	assert.Contains(t, global, "全体の雰囲気")

	sign := BuildPrompt("2026-02-11", data, types.ScopeOf(types.Virgo))
	assert.Contains(t, sign, "乙女座（太陽がvirgoにある人）")
	assert.Contains(t, sign, "上記の天体配置を踏まえて")

	bare := BuildPrompt("2026-02-11", nil, types.ScopeOf(types.Virgo))
	assert.Contains(t, bare, "2026-02-11")
	assert.NotContains(t, bare, "惑星:")
	assert.False(t, strings.Contains(bare, "上記の天体配置"))
}
