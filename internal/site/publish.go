package site

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Nyukimin/daily-zodiac/internal/fallback"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
	"github.com/Nyukimin/daily-zodiac/internal/store"
	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// Publisher writes a payload to disk as a static site:
//
//	<out>/index.html
//	<out>/style.css
//	<out>/data.json
//	<out>/<sign>/index.html
//	<out>/<sign>/index.json
type Publisher struct {
	renderer    *Renderer
	pools       *fallback.Pools
	concurrency int
}

// NewPublisher creates a publisher. concurrency bounds the sign
// directories written at once.
func NewPublisher(renderer *Renderer, pools *fallback.Pools, concurrency int) *Publisher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Publisher{renderer: renderer, pools: pools, concurrency: concurrency}
}

// Publish writes every file for payload under outDir.
func (p *Publisher) Publish(ctx context.Context, outDir string, payload *types.DailyPayload) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}
	timer := logging.StartTimer(logging.CategorySite, "Publish "+payload.Date)
	defer timer.Stop()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var index bytes.Buffer
	if err := p.renderer.Index(&index, payload); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if err := writeFile(filepath.Join(outDir, "index.html"), index.Bytes()); err != nil {
		return err
	}

	css, err := Stylesheet()
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, "style.css"), css); err != nil {
		return err
	}

	data, err := store.EncodeJSON(payload)
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(outDir, "data.json"), data); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, page := range SignPages(payload, p.pools) {
		page := page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.writeSign(outDir, page)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logging.Site("Published %s to %s", payload.Date, outDir)
	return nil
}

func (p *Publisher) writeSign(outDir string, page types.SignPage) error {
	dir := filepath.Join(outDir, string(page.Sign))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var html bytes.Buffer
	if err := p.renderer.Sign(&html, page); err != nil {
		return fmt.Errorf("render %s: %w", page.Sign, err)
	}
	if err := writeFile(filepath.Join(dir, "index.html"), html.Bytes()); err != nil {
		return err
	}

	data, err := store.EncodeJSON(page)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "index.json"), data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.SiteDebug("Wrote %s (%d bytes)", path, len(data))
	return nil
}
