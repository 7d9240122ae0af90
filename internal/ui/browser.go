package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Nyukimin/daily-zodiac/internal/types"
)

const listWidth = 28

// scopeItem adapts one payload scope to list.Item.
type scopeItem struct {
	scope types.Scope
	block types.ForecastBlock
	src   types.Source
}

func (i scopeItem) Title() string { return i.scope.Label() }
func (i scopeItem) Description() string {
	if i.src == "" {
		return string(i.scope)
	}
	return fmt.Sprintf("%s (%s)", i.scope, i.src)
}
func (i scopeItem) FilterValue() string {
	return string(i.scope) + " " + i.scope.Label() + " " + i.block.Summary
}

// BrowserModel is a two-pane view over one day's payload: scopes on the
// left, the selected forecast on the right.
type BrowserModel struct {
	payload  *types.DailyPayload
	list     list.Model
	viewport viewport.Model
	styles   Styles
	width    int
	height   int

	focusViewport bool
	selected      types.Scope
}

// NewBrowserModel creates a browser for payload.
func NewBrowserModel(payload *types.DailyPayload) BrowserModel {
	items := make([]list.Item, 0, len(types.Signs)+1)
	for _, scope := range types.Scopes() {
		items = append(items, scopeItem{
			scope: scope,
			block: payload.Block(scope),
			src:   payload.SourceOf(scope),
		})
	}

	styles := DefaultStyles()
	l := list.New(items, list.NewDefaultDelegate(), listWidth, 20)
	l.Title = payload.Date
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = styles.Title

	m := BrowserModel{
		payload:  payload,
		list:     l,
		viewport: viewport.New(60, 20),
		styles:   styles,
	}
	m.syncSelection()
	return m
}

// Init implements tea.Model.
func (m BrowserModel) Init() tea.Cmd {
	return nil
}

// SetSize splits the terminal between list and detail.
func (m *BrowserModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(listWidth, h-2)
	m.viewport.Width = max(w-listWidth-4, 20)
	m.viewport.Height = max(h-4, 5)
	m.viewport.SetContent(m.detail(m.selected))
}

// Selected returns the scope currently shown in the detail pane.
func (m BrowserModel) Selected() types.Scope {
	return m.selected
}

// Update implements tea.Model.
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "ctrl+c", "esc":
				return m, tea.Quit
			case "tab":
				m.focusViewport = !m.focusViewport
				return m, nil
			}
		}
	}

	_, isKey := msg.(tea.KeyMsg)
	if !isKey || !m.focusViewport || m.list.FilterState() == list.Filtering {
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	if !isKey || m.focusViewport {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncSelection()
	return m, tea.Batch(cmds...)
}

func (m *BrowserModel) syncSelection() {
	sel, ok := m.list.SelectedItem().(scopeItem)
	if !ok || sel.scope == m.selected {
		return
	}
	m.selected = sel.scope
	m.viewport.SetContent(m.detail(sel.scope))
	m.viewport.GotoTop()
}

func (m BrowserModel) detail(scope types.Scope) string {
	if scope == "" {
		return m.styles.Muted.Render("Select a sign.")
	}
	block := m.payload.Block(scope)
	width := m.viewport.Width
	if width <= 0 {
		width = 60
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render(fmt.Sprintf("%s  %s", scope.Label(), m.payload.Date)))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Summary.Width(width).Render(block.Summary))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Advice.Width(width).Render(block.Advice))
	sb.WriteString("\n\n")
	switch src := m.payload.SourceOf(scope); src {
	case types.SourceFallback:
		sb.WriteString(m.styles.Fallback.Render("fallback"))
	case "":
	default:
		sb.WriteString(m.styles.Muted.Render(string(src)))
	}
	return sb.String()
}

// View implements tea.Model.
func (m BrowserModel) View() string {
	left := m.list.View()
	right := m.styles.Pane.Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	help := m.styles.Help.Render("↑/↓ select • / filter • tab focus • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, body, help)
}

// Browse runs the browser until the user quits.
func Browse(payload *types.DailyPayload, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(NewBrowserModel(payload), opts...).Run()
	return err
}
