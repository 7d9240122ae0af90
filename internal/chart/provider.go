// Package chart supplies the daily astrological placements that feed the
// text generator. Placements are reported at sign resolution only.
package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// ErrUnavailable means the chart capability is absent. Callers continue
// with date-only data.
var ErrUnavailable = errors.New("chart data unavailable")

// Bodies lists the reported bodies in display order.
var Bodies = []string{"sun", "moon", "mercury", "venus", "mars", "jupiter", "saturn"}

// Data is the chart for one date key, computed at 12:00 JST.
type Data struct {
	Date      string                `json:"date"`
	SunSign   types.Sign            `json:"sun_sign"`
	MoonSign  types.Sign            `json:"moon_sign"`
	Planets   map[string]types.Sign `json:"planets"`
	MoonPhase string                `json:"moon_phase"`
}

// Placement is one body/sign pair.
type Placement struct {
	Body string
	Sign types.Sign
}

// Placements returns the planets in Bodies order, skipping absent bodies.
func (d *Data) Placements() []Placement {
	out := make([]Placement, 0, len(d.Planets))
	for _, b := range Bodies {
		if s, ok := d.Planets[b]; ok {
			out = append(out, Placement{Body: b, Sign: s})
		}
	}
	return out
}

// Provider computes chart data for a date key.
type Provider interface {
	ChartData(ctx context.Context, dateKey string) (*Data, error)
}

// Unavailable is a Provider that always reports ErrUnavailable.
type Unavailable struct{}

// ChartData implements Provider.
func (Unavailable) ChartData(ctx context.Context, dateKey string) (*Data, error) {
	return nil, ErrUnavailable
}

// NewProvider returns the provider registered under name.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "", "ephemeris":
		return NewEphemeris(), nil
	case "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown chart provider %q", name)
	}
}
