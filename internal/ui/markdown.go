package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/Nyukimin/daily-zodiac/internal/types"
)

// DefaultWordWrap is the column width used by Render when none is given.
const DefaultWordWrap = 80

// Markdown formats a payload as a markdown document: the date heading,
// the global forecast and one section per sign in zodiac order.
func Markdown(payload *types.DailyPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s の星占い\n\n", payload.Date)
	for _, scope := range types.Scopes() {
		writeScope(&sb, payload, scope)
	}
	return sb.String()
}

// ScopeMarkdown formats a single scope section.
func ScopeMarkdown(payload *types.DailyPayload, scope types.Scope) string {
	var sb strings.Builder
	writeScope(&sb, payload, scope)
	return sb.String()
}

func writeScope(sb *strings.Builder, payload *types.DailyPayload, scope types.Scope) {
	block := payload.Block(scope)
	fmt.Fprintf(sb, "## %s\n\n", scope.Label())
	fmt.Fprintf(sb, "%s\n\n", block.Summary)
	fmt.Fprintf(sb, "> %s\n\n", block.Advice)
	if src := payload.SourceOf(scope); src != "" {
		fmt.Fprintf(sb, "_source: %s_\n\n", src)
	}
}

// Render runs Markdown through glamour. An empty style picks one from the
// terminal background; "notty" yields plain text.
func Render(payload *types.DailyPayload, style string, width int) (string, error) {
	return RenderMarkdown(Markdown(payload), style, width)
}

// RenderMarkdown renders arbitrary markdown with the same options as Render.
func RenderMarkdown(md, style string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
