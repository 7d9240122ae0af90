// Package ui renders a DailyPayload for the terminal: a glamour markdown
// view for `zodiac show` and a bubbletea browser for `zodiac browse`.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#8BC34A")
	Accent  = lipgloss.Color("#2196F3")
	Muted   = lipgloss.Color("#6b7280")
	Warning = lipgloss.Color("#FFC107")
)

// Styles holds the lipgloss styles shared by the browser views.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Summary  lipgloss.Style
	Advice   lipgloss.Style
	Muted    lipgloss.Style
	Fallback lipgloss.Style
	Help     lipgloss.Style
	Pane     lipgloss.Style
}

// DefaultStyles returns the browser palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Header:   lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1),
		Summary:  lipgloss.NewStyle(),
		Advice:   lipgloss.NewStyle().Italic(true),
		Muted:    lipgloss.NewStyle().Foreground(Muted),
		Fallback: lipgloss.NewStyle().Foreground(Warning),
		Help:     lipgloss.NewStyle().Foreground(Muted),
		Pane:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1),
	}
}
