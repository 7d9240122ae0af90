package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

//go:embed assets/templates.json
var defaultPoolJSON []byte

// Template is one pre-authored forecast entry.
type Template struct {
	Summary  string   `json:"summary"`
	Advice   string   `json:"advice"`
	Choices  []string `json:"choices"`
	NextStep string   `json:"next_step"`
}

// Block returns the summary/advice pair of the template.
func (t Template) Block() types.ForecastBlock {
	return types.ForecastBlock{Summary: t.Summary, Advice: t.Advice}
}

// Pools holds one pool for the global scope and one per sign.
// A loaded Pools value is treated as immutable.
type Pools struct {
	Version string                    `json:"version"`
	Global  []Template                `json:"global"`
	Signs   map[types.Sign][]Template `json:"signs"`
}

// Default returns the pools embedded in the binary.
func Default() (*Pools, error) {
	p, err := Parse(defaultPoolJSON)
	if err != nil {
		return nil, fmt.Errorf("embedded pools: %w", err)
	}
	return p, nil
}

// Load reads pools from a JSON file. An empty path loads the embedded pools.
func Load(path string) (*Pools, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Fallback("Loaded fallback pools version=%s from %s", p.Version, path)
	return p, nil
}

// Parse decodes and validates pool JSON.
func Parse(data []byte) (*Pools, error) {
	var p Pools
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pools: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every scope has at least one complete entry.
func (p *Pools) Validate() error {
	if err := validatePool("global", p.Global); err != nil {
		return err
	}
	for _, sign := range types.Signs {
		pool, ok := p.Signs[sign]
		if !ok {
			return fmt.Errorf("pool for sign %s is missing", sign)
		}
		if err := validatePool(string(sign), pool); err != nil {
			return err
		}
	}
	for sign := range p.Signs {
		if !sign.Valid() {
			return fmt.Errorf("pool for unknown sign %q", sign)
		}
	}
	return nil
}

func validatePool(name string, pool []Template) error {
	if len(pool) == 0 {
		return fmt.Errorf("pool %s is empty", name)
	}
	for i, t := range pool {
		if strings.TrimSpace(t.Summary) == "" {
			return fmt.Errorf("pool %s[%d]: summary is empty", name, i)
		}
		if strings.TrimSpace(t.Advice) == "" {
			return fmt.Errorf("pool %s[%d]: advice is empty", name, i)
		}
		if strings.TrimSpace(t.NextStep) == "" {
			return fmt.Errorf("pool %s[%d]: next_step is empty", name, i)
		}
		if n := len(t.Choices); n < 2 || n > 3 {
			return fmt.Errorf("pool %s[%d]: expected 2-3 choices, got %d", name, i, n)
		}
	}
	return nil
}

// pool returns the entries for a scope.
func (p *Pools) pool(scope types.Scope) []Template {
	if scope.IsGlobal() {
		return p.Global
	}
	return p.Signs[types.Sign(scope)]
}

// Size returns the number of entries for a scope.
func (p *Pools) Size(scope types.Scope) int {
	return len(p.pool(scope))
}

// Pick returns the entry selected for the date and scope.
func (p *Pools) Pick(dateKey string, scope types.Scope) Template {
	pool := p.pool(scope)
	idx := Select(dateKey, scope.Target(), len(pool))
	logging.FallbackDebug("Picked %s[%d/%d] for %s", scope.Target(), idx, len(pool), dateKey)
	return pool[idx]
}

// Block returns the forecast block selected for the date and scope.
func (p *Pools) Block(dateKey string, scope types.Scope) types.ForecastBlock {
	return p.Pick(dateKey, scope).Block()
}
