// Package site assembles the daily payload and publishes it as a static site.
package site

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/fallback"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// Strategy is how one scope's block is produced in a run.
type Strategy int

const (
	StrategyFallback Strategy = iota
	StrategyGenerated
)

func (s Strategy) String() string {
	if s == StrategyGenerated {
		return "generated"
	}
	return "fallback"
}

// ScopePolicy decides which scopes may use the text generator.
type ScopePolicy string

const (
	PolicyGlobal ScopePolicy = config.ScopeGlobal
	PolicyAll    ScopePolicy = config.ScopeAll
	PolicyNone   ScopePolicy = config.ScopeNone
)

// ParseScopePolicy validates a policy name. Empty means PolicyGlobal.
func ParseScopePolicy(s string) (ScopePolicy, error) {
	switch p := ScopePolicy(s); p {
	case "":
		return PolicyGlobal, nil
	case PolicyGlobal, PolicyAll, PolicyNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown scope policy %q", s)
	}
}

// Allows reports whether the policy lets scope use the generator.
func (p ScopePolicy) Allows(scope types.Scope) bool {
	switch p {
	case PolicyAll:
		return true
	case PolicyGlobal, "":
		return scope.IsGlobal()
	default:
		return false
	}
}

// Generator produces one block for a scope. forecast.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (types.ForecastBlock, error)
}

// Assembler builds the complete payload for a date.
type Assembler struct {
	chart     chart.Provider
	generator Generator
	pools     *fallback.Pools
	policy    ScopePolicy
	now       func() time.Time
}

// NewAssembler creates an assembler. A nil generator means the text
// generator is unavailable and every scope uses the fallback pools.
// A nil chart provider behaves as chart.Unavailable.
func NewAssembler(provider chart.Provider, generator Generator, pools *fallback.Pools, policy ScopePolicy) *Assembler {
	if provider == nil {
		provider = chart.Unavailable{}
	}
	return &Assembler{
		chart:     provider,
		generator: generator,
		pools:     pools,
		policy:    policy,
		now:       time.Now,
	}
}

// SetClock replaces the clock used for GeneratedAt.
func (a *Assembler) SetClock(now func() time.Time) { a.now = now }

// StrategyFor returns the strategy chosen for scope in this run.
func (a *Assembler) StrategyFor(scope types.Scope) Strategy {
	if a.generator != nil && a.policy.Allows(scope) {
		return StrategyGenerated
	}
	return StrategyFallback
}

// Build produces the payload for dateKey. Every scope ends up with a valid
// block; generator failures and panics are replaced with fallback content.
// The only error is an invalid date key.
func (a *Assembler) Build(ctx context.Context, dateKey string) (*types.DailyPayload, error) {
	if _, err := types.ParseDateKey(dateKey); err != nil {
		return nil, err
	}
	timer := logging.StartTimer(logging.CategorySite, "Build "+dateKey)
	defer timer.Stop()

	data := a.chartData(ctx, dateKey)

	payload := &types.DailyPayload{
		Date:        dateKey,
		GeneratedAt: a.now(),
		Signs:       make(map[types.Sign]types.ForecastBlock, len(types.Signs)),
		Sources:     make(map[string]types.Source, len(types.Signs)+1),
	}

	for _, scope := range types.Scopes() {
		block, source := a.buildScope(ctx, dateKey, data, scope)
		if scope.IsGlobal() {
			payload.Global = block
		} else {
			payload.Signs[types.Sign(scope)] = block
		}
		payload.Sources[string(scope)] = source
	}

	logging.Site("Built %s: %d/%d scopes generated", dateKey, payload.GeneratedCount(), len(payload.Sources))
	return payload, nil
}

func (a *Assembler) chartData(ctx context.Context, dateKey string) *chart.Data {
	data, err := a.chart.ChartData(ctx, dateKey)
	if err != nil {
		if errors.Is(err, chart.ErrUnavailable) {
			logging.Site("Chart data unavailable for %s; using date-only prompts", dateKey)
		} else {
			logging.SiteWarn("Chart data for %s failed: %v", dateKey, err)
		}
		return nil
	}
	return data
}

// buildScope runs the chosen strategy for one scope.
func (a *Assembler) buildScope(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (types.ForecastBlock, types.Source) {
	if a.StrategyFor(scope) == StrategyGenerated {
		block, err := a.generate(ctx, dateKey, data, scope)
		if err == nil && block.Valid() {
			return block, types.SourceGenerated
		}
		if err == nil {
			err = errors.New("generator returned an incomplete block")
		}
		logging.SiteWarn("%s: %v; using fallback", scope, err)
	}
	return a.pools.Block(dateKey, scope), types.SourceFallback
}

// generate calls the generator, converting a panic into an error.
func (a *Assembler) generate(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (block types.ForecastBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.SiteError("%s: generator panic: %v", scope, r)
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return a.generator.Generate(ctx, dateKey, data, scope)
}

// SignPages expands a payload into the per-sign documents. Choices and the
// next step come from the fallback template selected for the same date.
func SignPages(payload *types.DailyPayload, pools *fallback.Pools) []types.SignPage {
	pages := make([]types.SignPage, 0, len(types.Signs))
	for _, sign := range types.Signs {
		scope := types.ScopeOf(sign)
		block := payload.Block(scope)
		tmpl := pools.Pick(payload.Date, scope)
		pages = append(pages, types.SignPage{
			Date:     payload.Date,
			Sign:     sign,
			SignJA:   sign.JA(),
			Summary:  block.Summary,
			Advice:   block.Advice,
			Choices:  append([]string(nil), tmpl.Choices...),
			NextStep: tmpl.NextStep,
			Source:   payload.SourceOf(scope),
		})
	}
	return pages
}
