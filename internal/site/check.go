package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// Issue is one structural defect found in a published site.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string { return i.Path + ": " + i.Message }

// Check inspects a published site and reports structural defects: missing
// pages, broken sign links, and missing layout hooks. An empty result means
// the site is complete.
func Check(outDir, basePath string) ([]Issue, error) {
	base := config.NormalizeBasePath(basePath)
	var issues []Issue
	add := func(path, format string, args ...interface{}) {
		issues = append(issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	indexPath := filepath.Join(outDir, "index.html")
	doc, err := loadDocument(indexPath)
	if err != nil {
		return nil, err
	}
	checkCommon(doc, indexPath, base, add)
	if doc.Find(".sign-grid").Length() == 0 {
		add(indexPath, "missing .sign-grid")
	}
	hrefs := map[string]bool{}
	doc.Find(".sign-grid a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs[href] = true
	})
	for _, sign := range types.Signs {
		if !hrefs[base+string(sign)+"/"] {
			add(indexPath, "no link to %s%s/", base, sign)
		}
	}

	for _, sign := range types.Signs {
		pagePath := filepath.Join(outDir, string(sign), "index.html")
		page, err := loadDocument(pagePath)
		if err != nil {
			add(pagePath, "missing page")
			continue
		}
		checkCommon(page, pagePath, base, add)
		if !strings.Contains(page.Find("h1").Text(), sign.JA()) {
			add(pagePath, "heading does not name %s", sign.JA())
		}
		if !strings.Contains(page.Find(".other-signs").Text(), "他の星座") {
			add(pagePath, "missing 他の星座 navigation")
		}
		if n := page.Find(".other-signs a[href]").Length(); n != len(types.Signs)-1 {
			add(pagePath, "expected %d other-sign links, found %d", len(types.Signs)-1, n)
		}

		jsonPath := filepath.Join(outDir, string(sign), "index.json")
		if err := checkSignJSON(jsonPath, sign); err != nil {
			add(jsonPath, "%v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(outDir, "style.css")); err != nil {
		add(filepath.Join(outDir, "style.css"), "missing stylesheet")
	}
	return issues, nil
}

func loadDocument(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

func checkCommon(doc *goquery.Document, path, base string, add func(string, string, ...interface{})) {
	charset, _ := doc.Find("meta[charset]").Attr("charset")
	if !strings.EqualFold(charset, "utf-8") {
		add(path, "missing <meta charset=\"utf-8\">")
	}
	if href, ok := doc.Find("base").Attr("href"); !ok || href != base {
		add(path, "base href is %q, want %q", href, base)
	}
	if doc.Find(".ad-slot").Length() == 0 {
		add(path, "missing .ad-slot")
	}
}

func checkSignJSON(path string, sign types.Sign) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("missing")
	}
	var page types.SignPage
	if err := json.Unmarshal(data, &page); err != nil {
		return fmt.Errorf("invalid JSON: %v", err)
	}
	switch {
	case page.Sign != sign:
		return fmt.Errorf("sign is %q", page.Sign)
	case page.SignJA != sign.JA():
		return fmt.Errorf("sign_ja is %q", page.SignJA)
	case !(types.ForecastBlock{Summary: page.Summary, Advice: page.Advice}).Valid():
		return fmt.Errorf("incomplete forecast")
	case len(page.Choices) == 0 || strings.TrimSpace(page.NextStep) == "":
		return fmt.Errorf("missing choices or next_step")
	}
	return nil
}
