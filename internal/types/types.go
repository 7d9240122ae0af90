// Package types provides the shared domain types of daily-zodiac.
// It has no dependencies on other internal packages so that the selector,
// the generator and the site assembler can all agree on one vocabulary.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// FORECAST TYPES
// =============================================================================

// ForecastBlock is one short horoscope: a summary sentence and a piece of advice.
type ForecastBlock struct {
	Summary string `json:"summary"`
	Advice  string `json:"advice"`
}

// Valid reports whether both fields carry non-blank text.
func (b ForecastBlock) Valid() bool {
	return strings.TrimSpace(b.Summary) != "" && strings.TrimSpace(b.Advice) != ""
}

// Source records which strategy produced a block.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// DailyPayload is everything published for one calendar date.
// It is built fresh on every run and never mutated after assembly.
type DailyPayload struct {
	Date        string                 `json:"date"`
	GeneratedAt time.Time              `json:"generated_at"`
	Global      ForecastBlock          `json:"global"`
	Signs       map[Sign]ForecastBlock `json:"signs"`
	Sources     map[string]Source      `json:"sources,omitempty"`
}

// Block returns the block for a scope.
func (p *DailyPayload) Block(scope Scope) ForecastBlock {
	if scope.IsGlobal() {
		return p.Global
	}
	return p.Signs[Sign(scope)]
}

// SourceOf returns the recorded source for a scope, or "" if none was recorded.
func (p *DailyPayload) SourceOf(scope Scope) Source {
	if p.Sources == nil {
		return ""
	}
	return p.Sources[string(scope)]
}

// GeneratedCount returns how many scopes were produced by the text generator.
func (p *DailyPayload) GeneratedCount() int {
	n := 0
	for _, src := range p.Sources {
		if src == SourceGenerated {
			n++
		}
	}
	return n
}

// Validate checks the completeness invariant: a valid global block and a
// valid block for each of the 12 signs.
func (p *DailyPayload) Validate() error {
	if _, err := ParseDateKey(p.Date); err != nil {
		return err
	}
	if !p.Global.Valid() {
		return fmt.Errorf("payload %s: global block is incomplete", p.Date)
	}
	for _, sign := range Signs {
		block, ok := p.Signs[sign]
		if !ok {
			return fmt.Errorf("payload %s: sign %s missing", p.Date, sign)
		}
		if !block.Valid() {
			return fmt.Errorf("payload %s: sign %s block is incomplete", p.Date, sign)
		}
	}
	if len(p.Signs) != len(Signs) {
		return fmt.Errorf("payload %s: expected %d signs, got %d", p.Date, len(Signs), len(p.Signs))
	}
	return nil
}

// SignPage is the per-sign JSON document written next to each sign page.
type SignPage struct {
	Date     string   `json:"date"`
	Sign     Sign     `json:"sign"`
	SignJA   string   `json:"sign_ja"`
	Summary  string   `json:"summary"`
	Advice   string   `json:"advice"`
	Choices  []string `json:"choices"`
	NextStep string   `json:"next_step"`
	Source   Source   `json:"source,omitempty"`
}
