package site

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyukimin/daily-zodiac/internal/chart"
	"github.com/Nyukimin/daily-zodiac/internal/fallback"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

const testDate = "2026-02-10"

// mockGenerator delegates to GenerateFunc and records scopes.
type mockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (types.ForecastBlock, error)
	scopes       []types.Scope
	charts       []*chart.Data
}

func (m *mockGenerator) Generate(ctx context.Context, dateKey string, data *chart.Data, scope types.Scope) (types.ForecastBlock, error) {
	m.mu.Lock()
	m.scopes = append(m.scopes, scope)
	m.charts = append(m.charts, data)
	m.mu.Unlock()
	return m.GenerateFunc(ctx, dateKey, data, scope)
}

func generated(scope types.Scope) types.ForecastBlock {
	return types.ForecastBlock{Summary: "gen summary " + string(scope), Advice: "gen advice " + string(scope)}
}

func okGenerator() *mockGenerator {
	return &mockGenerator{GenerateFunc: func(_ context.Context, _ string, _ *chart.Data, scope types.Scope) (types.ForecastBlock, error) {
		return generated(scope), nil
	}}
}

func defaultPools(t *testing.T) *fallback.Pools {
	t.Helper()
	pools, err := fallback.Default()
	require.NoError(t, err)
	return pools
}

func TestBuild_NoGeneratorIsCompleteFallback(t *testing.T) {
	pools := defaultPools(t)
	a := NewAssembler(chart.Unavailable{}, nil, pools, PolicyAll)

	payload, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)
	require.NoError(t, payload.Validate())

	assert.Equal(t, testDate, payload.Date)
	assert.Len(t, payload.Signs, 12)
	assert.Equal(t, pools.Block(testDate, types.Global), payload.Global)
	for _, sign := range types.Signs {
		assert.Equal(t, pools.Block(testDate, types.ScopeOf(sign)), payload.Signs[sign], sign)
	}
	assert.Equal(t, 0, payload.GeneratedCount())
	assert.Len(t, payload.Sources, 13)
}

func TestBuild_FallbackIsDeterministic(t *testing.T) {
	pools := defaultPools(t)
	a := NewAssembler(nil, nil, pools, PolicyGlobal)

	first, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)
	second, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)

	assert.Equal(t, first.Global, second.Global)
	assert.Equal(t, first.Signs, second.Signs)
}

func TestBuild_ScopePolicies(t *testing.T) {
	tests := []struct {
		policy    ScopePolicy
		wantCalls int
	}{
		{PolicyGlobal, 1},
		{PolicyAll, 13},
		{PolicyNone, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			gen := okGenerator()
			a := NewAssembler(chart.NewEphemeris(), gen, defaultPools(t), tt.policy)

			payload, err := a.Build(context.Background(), testDate)
			require.NoError(t, err)
			require.NoError(t, payload.Validate())
			assert.Len(t, gen.scopes, tt.wantCalls)
			assert.Equal(t, tt.wantCalls, payload.GeneratedCount())

			if tt.wantCalls > 0 {
				assert.Equal(t, generated(types.Global), payload.Global)
				assert.Equal(t, types.SourceGenerated, payload.SourceOf(types.Global))
			}
			if tt.policy == PolicyGlobal {
				assert.Equal(t, types.SourceFallback, payload.SourceOf(types.ScopeOf(types.Aries)))
			}
		})
	}
}

func TestBuild_FailuresFallBackPerScope(t *testing.T) {
	pools := defaultPools(t)
	gen := &mockGenerator{GenerateFunc: func(_ context.Context, _ string, _ *chart.Data, scope types.Scope) (types.ForecastBlock, error) {
		switch scope {
		case types.ScopeOf(types.Aries):
			return types.ForecastBlock{}, errors.New("exhausted")
		case types.ScopeOf(types.Leo):
			panic("unexpected nil")
		case types.ScopeOf(types.Pisces):
			return types.ForecastBlock{Summary: "only summary"}, nil
		}
		return generated(scope), nil
	}}
	a := NewAssembler(nil, gen, pools, PolicyAll)

	payload, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)
	require.NoError(t, payload.Validate())

	for _, sign := range []types.Sign{types.Aries, types.Leo, types.Pisces} {
		scope := types.ScopeOf(sign)
		assert.Equal(t, pools.Block(testDate, scope), payload.Signs[sign], sign)
		assert.Equal(t, types.SourceFallback, payload.SourceOf(scope), sign)
	}
	assert.Equal(t, generated(types.ScopeOf(types.Virgo)), payload.Signs[types.Virgo])
	assert.Equal(t, 10, payload.GeneratedCount())
}

func TestBuild_ChartUnavailablePassesNilData(t *testing.T) {
	gen := okGenerator()
	a := NewAssembler(chart.Unavailable{}, gen, defaultPools(t), PolicyGlobal)

	_, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, gen.charts, 1)
	assert.Nil(t, gen.charts[0])
}

func TestBuild_ChartDataReachesGenerator(t *testing.T) {
	gen := okGenerator()
	a := NewAssembler(chart.NewEphemeris(), gen, defaultPools(t), PolicyGlobal)

	_, err := a.Build(context.Background(), "2026-02-11")
	require.NoError(t, err)
	require.NotNil(t, gen.charts[0])
	assert.Equal(t, types.Aquarius, gen.charts[0].SunSign)
}

func TestBuild_InvalidDate(t *testing.T) {
	a := NewAssembler(nil, nil, defaultPools(t), PolicyGlobal)
	_, err := a.Build(context.Background(), "2026/02/10")
	assert.Error(t, err)
}

func TestBuild_UsesClock(t *testing.T) {
	fixed := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	a := NewAssembler(nil, nil, defaultPools(t), PolicyGlobal)
	a.SetClock(func() time.Time { return fixed })

	payload, err := a.Build(context.Background(), testDate)
	require.NoError(t, err)
	assert.True(t, payload.GeneratedAt.Equal(fixed))
}

func TestStrategyFor(t *testing.T) {
	pools := defaultPools(t)
	assert.Equal(t, StrategyFallback, NewAssembler(nil, nil, pools, PolicyAll).StrategyFor(types.Global))

	a := NewAssembler(nil, okGenerator(), pools, PolicyGlobal)
	assert.Equal(t, StrategyGenerated, a.StrategyFor(types.Global))
	assert.Equal(t, StrategyFallback, a.StrategyFor(types.ScopeOf(types.Gemini)))
	assert.Equal(t, "generated", StrategyGenerated.String())
}

func TestParseScopePolicy(t *testing.T) {
	p, err := ParseScopePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyGlobal, p)

	p, err = ParseScopePolicy("all")
	require.NoError(t, err)
	assert.Equal(t, PolicyAll, p)

	_, err = ParseScopePolicy("signs")
	assert.Error(t, err)
}

func TestSignPages(t *testing.T) {
	pools := defaultPools(t)
	payload, err := NewAssembler(nil, nil, pools, PolicyNone).Build(context.Background(), testDate)
	require.NoError(t, err)

	pages := SignPages(payload, pools)
	require.Len(t, pages, 12)
	for i, page := range pages {
		sign := types.Signs[i]
		tmpl := pools.Pick(testDate, types.ScopeOf(sign))
		assert.Equal(t, sign, page.Sign)
		assert.Equal(t, sign.JA(), page.SignJA)
		assert.Equal(t, tmpl.Choices, page.Choices)
		assert.Equal(t, tmpl.NextStep, page.NextStep)
		assert.Equal(t, types.SourceFallback, page.Source)
	}
}

// =============================================================================
// PUBLISH + CHECK
// =============================================================================

func publish(t *testing.T, basePath string) (string, *types.DailyPayload) {
	t.Helper()
	pools := defaultPools(t)
	payload, err := NewAssembler(nil, nil, pools, PolicyGlobal).Build(context.Background(), testDate)
	require.NoError(t, err)

	renderer, err := NewRenderer(basePath)
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, NewPublisher(renderer, pools, 3).Publish(context.Background(), out, payload))
	return out, payload
}

func openDoc(t *testing.T, path string) *goquery.Document {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestPublish_WritesEveryFile(t *testing.T) {
	out, _ := publish(t, "/")

	for _, name := range []string{"index.html", "style.css", "data.json"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	for _, sign := range types.Signs {
		assert.FileExists(t, filepath.Join(out, string(sign), "index.html"))
		assert.FileExists(t, filepath.Join(out, string(sign), "index.json"))
	}
}

func TestPublish_IndexHooks(t *testing.T) {
	out, payload := publish(t, "/daily-zodiac/")
	doc := openDoc(t, filepath.Join(out, "index.html"))

	charset, _ := doc.Find("meta[charset]").Attr("charset")
	assert.Equal(t, "utf-8", charset)
	base, _ := doc.Find("base").Attr("href")
	assert.Equal(t, "/daily-zodiac/", base)

	links := doc.Find("ul.sign-grid a[href]")
	assert.Equal(t, 12, links.Length())
	hrefs := links.Map(func(_ int, s *goquery.Selection) string {
		h, _ := s.Attr("href")
		return h
	})
	assert.Contains(t, hrefs, "/daily-zodiac/aries/")
	assert.Contains(t, doc.Text(), "牡羊座")
	assert.Equal(t, 1, doc.Find(".ad-slot").Length())
	assert.Contains(t, doc.Find(".global .summary").Text(), payload.Global.Summary)
}

func TestPublish_SignPage(t *testing.T) {
	out, payload := publish(t, "/")
	doc := openDoc(t, filepath.Join(out, "aries", "index.html"))

	assert.Equal(t, "牡羊座 / "+testDate, strings.TrimSpace(doc.Find("h1").Text()))
	assert.Equal(t, payload.Signs[types.Aries].Summary, doc.Find(".forecast .summary").Text())
	assert.GreaterOrEqual(t, doc.Find(".choices li").Length(), 2)
	assert.NotEmpty(t, strings.TrimSpace(doc.Find(".next-step p").Text()))
	assert.Equal(t, 1, doc.Find(".ad-slot").Length())
	assert.Contains(t, doc.Find(".other-signs").Text(), "他の星座")

	others := doc.Find(".other-signs a[href]")
	assert.Equal(t, 11, others.Length())
	selfLink := doc.Find(`.other-signs a[href="/aries/"]`)
	assert.Equal(t, 0, selfLink.Length(), "a sign page does not link to itself")
	assert.Equal(t, 1, doc.Find(`.other-signs a[href="/taurus/"]`).Length())
}

func TestPublish_JSONDocuments(t *testing.T) {
	out, payload := publish(t, "/")

	raw, err := os.ReadFile(filepath.Join(out, "aries", "index.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "牡羊座", "JSON keeps Japanese unescaped")

	var keys map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &keys))
	for _, k := range []string{"date", "sign", "sign_ja", "summary", "advice", "choices", "next_step"} {
		assert.Contains(t, keys, k)
	}

	var page types.SignPage
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Equal(t, testDate, page.Date)
	assert.Equal(t, payload.Signs[types.Aries].Advice, page.Advice)

	data, err := os.ReadFile(filepath.Join(out, "data.json"))
	require.NoError(t, err)
	var decoded types.DailyPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NoError(t, decoded.Validate())
}

func TestPublish_RejectsIncompletePayload(t *testing.T) {
	renderer, err := NewRenderer("/")
	require.NoError(t, err)
	p := NewPublisher(renderer, defaultPools(t), 2)

	bad := &types.DailyPayload{Date: testDate, Global: types.ForecastBlock{Summary: "s", Advice: "a"}}
	assert.Error(t, p.Publish(context.Background(), t.TempDir(), bad))
}

func TestCheck_CleanSite(t *testing.T) {
	out, _ := publish(t, "/daily-zodiac/")
	issues, err := Check(out, "/daily-zodiac/")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheck_ReportsDefects(t *testing.T) {
	out, _ := publish(t, "/")
	require.NoError(t, os.Remove(filepath.Join(out, "leo", "index.html")))
	require.NoError(t, os.WriteFile(filepath.Join(out, "virgo", "index.json"), []byte("{"), 0644))

	issues, err := Check(out, "/other/")
	require.NoError(t, err)

	joined := ""
	for _, i := range issues {
		joined += i.String() + "\n"
	}
	assert.Contains(t, joined, filepath.Join("leo", "index.html")+": missing page")
	assert.Contains(t, joined, filepath.Join("virgo", "index.json")+": invalid JSON")
	assert.Contains(t, joined, "base href")
}

func TestCheck_MissingIndex(t *testing.T) {
	_, err := Check(t.TempDir(), "/")
	assert.Error(t, err)
}
