package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tabsort/internal/browser"
	"tabsort/internal/domain"
	"tabsort/internal/service"
)

// SortPort is the TUI-facing subset of the sorter.
type SortPort interface {
	Sort(ctx context.Context, tabs []domain.Tab, groups []domain.ExistingGroup) service.Result
}

// Model is the Bubble Tea model for browsing a sort result.
type Model struct {
	sorter   SortPort
	tabs     []domain.Tab
	groups   []domain.ExistingGroup
	result   service.Result
	visible  []int
	input    textinput.Model
	viewport viewport.Model
	status   string
	cursor   int
	ready    bool
	filter   string
}

type sortedMsg struct{ result service.Result }

var writeClipboard = clipboard.WriteAll

// New creates a model showing result. ctrl+r re-runs the sort over tabs and groups.
func New(sorter SortPort, tabs []domain.Tab, groups []domain.ExistingGroup, result service.Result) Model {
	ti := textinput.New()
	ti.Prompt = "filter> "
	ti.Placeholder = "Type to filter groups, Enter to apply"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{sorter: sorter, tabs: tabs, groups: groups, input: ti, viewport: vp}
	m.setResult(result)
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, gh := groupBoxStyle.GetFrameSize()
		_, fh := filterBoxStyle.GetFrameSize()
		reserved := 2 + 1 + fh + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-gh)
		m.viewport.SetContent(m.renderCurrentGroup())
		return m, nil
	case sortedMsg:
		if msg.result.Skipped {
			m.status = "A sort is already running."
			return m, nil
		}
		m.setResult(msg.result)
		m.viewport.SetContent(m.renderCurrentGroup())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "ctrl+r":
			if m.sorter == nil {
				return m, nil
			}
			m.status = "Sorting..."
			sorter, tabs, groups := m.sorter, m.tabs, m.groups
			return m, func() tea.Msg {
				return sortedMsg{result: sorter.Sort(context.Background(), tabs, groups)}
			}
		case "ctrl+y":
			if len(m.visible) == 0 {
				return m, nil
			}
			g := m.result.Groups[m.visible[m.cursor]]
			if err := writeClipboard(groupText(g)); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = fmt.Sprintf("Copied %d tabs of %q.", len(g.Tabs), g.Label)
			}
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.input.Value())
			m.applyFilter()
			m.viewport.SetContent(m.renderCurrentGroup())
			return m, nil
		case "down":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor + 1) % len(m.visible)
				m.viewport.SetContent(m.renderCurrentGroup())
				return m, nil
			}
		case "up":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor - 1 + len(m.visible)) % len(m.visible)
				m.viewport.SetContent(m.renderCurrentGroup())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout and the selected group.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Tab Sort")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary())
	input := filterBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	body := groupBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) setResult(r service.Result) {
	m.result = r
	m.cursor = 0
	m.applyFilter()
	switch {
	case r.Failed:
		m.status = "No groups could be formed."
	default:
		m.status = fmt.Sprintf("%d groups. Up/down to browse, ctrl+y to copy, ctrl+r to sort again.", len(r.Groups))
	}
}

// applyFilter keeps groups whose label or any tab title shares a word with the filter.
func (m *Model) applyFilter() {
	m.visible = nil
	q := toTokenSet(m.filter)
	for i, g := range m.result.Groups {
		if len(q) == 0 || tokenOverlapScore(q, g.Label) > 0 || anyTitleMatches(q, g.Tabs) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

func anyTitleMatches(q map[string]struct{}, tabs []domain.Tab) bool {
	for _, t := range tabs {
		if tokenOverlapScore(q, browser.Title(t)) > 0 {
			return true
		}
	}
	return false
}

func (m Model) summary() string {
	ungrouped := 0
	for _, a := range m.result.Assignments {
		if domain.IsSentinel(a.Topic) {
			ungrouped++
		}
	}
	return fmt.Sprintf("run %s  provider=%s  tabs=%d  ungrouped=%d",
		shortID(m.result.RunID), m.result.Provider, len(m.result.Assignments), ungrouped)
}

func (m Model) renderCurrentGroup() string {
	if len(m.visible) == 0 {
		if len(m.result.Groups) == 0 {
			return "No groups."
		}
		return "No groups match the filter."
	}
	g := m.result.Groups[m.visible[m.cursor]]
	kind := "new"
	if g.Existing {
		kind = "existing"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Group %d/%d  %s  (%s, %d tabs)\n\n", m.cursor+1, len(m.visible), labelStyle.Render(g.Label), kind, len(g.Tabs))
	q := toTokenSet(m.filter)
	for _, t := range g.Tabs {
		title := browser.Title(t)
		if len(q) > 0 && tokenOverlapScore(q, title) > 0 {
			title = highlightStyle.Render(title)
		}
		b.WriteString("  " + title)
		if t.URL != "" {
			b.WriteString("  " + urlStyle.Render(t.URL))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// groupText renders a group as its label followed by one "title<TAB>url" line per tab.
func groupText(g service.Group) string {
	var b strings.Builder
	b.WriteString(g.Label + "\n")
	for _, t := range g.Tabs {
		b.WriteString(browser.Title(t) + "\t" + t.URL + "\n")
	}
	return b.String()
}

var (
	groupBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	filterBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	urlStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
)

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, text string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
