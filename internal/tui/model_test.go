package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/domain"
	"tabsort/internal/service"
)

type stubSorter struct {
	result service.Result
	calls  int
}

func (s *stubSorter) Sort(context.Context, []domain.Tab, []domain.ExistingGroup) service.Result {
	s.calls++
	return s.result
}

func sampleResult() service.Result {
	return service.Result{
		RunID:    "0123456789abcdef",
		Provider: "local",
		Groups: []service.Group{
			{Label: "Golang", Tabs: []domain.Tab{{ID: "1", Title: "Go tour"}, {ID: "2", Title: "Go blog"}}},
			{Label: "Cooking", Existing: true, Tabs: []domain.Tab{{ID: "3", Title: "Banana bread"}}},
		},
		Assignments: []domain.Assignment{
			{Tab: domain.Tab{ID: "1"}, Topic: "Golang"},
			{Tab: domain.Tab{ID: "2"}, Topic: "Golang"},
			{Tab: domain.Tab{ID: "3"}, Topic: "Cooking"},
			{Tab: domain.Tab{ID: "4"}, Topic: domain.NoTopic},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+y":
		return tea.KeyMsg{Type: tea.KeyCtrlY}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestBrowseGroups(t *testing.T) {
	m := New(nil, nil, nil, sampleResult())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Contains(t, m.renderCurrentGroup(), "Golang")
	assert.Contains(t, m.summary(), "ungrouped=1")
	assert.Contains(t, m.summary(), "run 01234567")

	m, _ = update(t, m, key("down"))
	assert.Contains(t, m.renderCurrentGroup(), "Cooking")
	assert.Contains(t, m.renderCurrentGroup(), "existing")

	m, _ = update(t, m, key("down"))
	assert.Contains(t, m.renderCurrentGroup(), "Golang")
}

func TestFilterByTitle(t *testing.T) {
	m := New(nil, nil, nil, sampleResult())
	m.input.SetValue("banana")
	m, _ = update(t, m, key("enter"))
	require.Equal(t, []int{1}, m.visible)
	assert.Contains(t, m.renderCurrentGroup(), "Cooking")

	m.input.SetValue("nothing here")
	m, _ = update(t, m, key("enter"))
	assert.Empty(t, m.visible)
	assert.Equal(t, "No groups match the filter.", m.renderCurrentGroup())
}

func TestResortReplacesResult(t *testing.T) {
	next := service.Result{Groups: []service.Group{{Label: "Music", Tabs: []domain.Tab{{ID: "9", Title: "Radio"}}}}}
	stub := &stubSorter{result: next}
	m := New(stub, nil, nil, sampleResult())

	m, cmd := update(t, m, key("ctrl+r"))
	require.NotNil(t, cmd)
	assert.Equal(t, "Sorting...", m.status)

	m, _ = update(t, m, cmd())
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, m.renderCurrentGroup(), "Music")
}

func TestSkippedResortKeepsResult(t *testing.T) {
	stub := &stubSorter{result: service.Result{Skipped: true}}
	m := New(stub, nil, nil, sampleResult())

	m, cmd := update(t, m, key("ctrl+r"))
	m, _ = update(t, m, cmd())
	assert.Equal(t, "A sort is already running.", m.status)
	assert.Contains(t, m.renderCurrentGroup(), "Golang")
}

func TestFailedResult(t *testing.T) {
	m := New(nil, nil, nil, service.Result{Failed: true})
	assert.Equal(t, "No groups could be formed.", m.status)
	assert.Equal(t, "No groups.", m.renderCurrentGroup())
}

func TestCopyGroup(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	defer func() { writeClipboard = orig }()

	res := sampleResult()
	res.Groups[0].Tabs[0].URL = "https://go.dev/tour"
	m := New(nil, nil, nil, res)
	m, _ = update(t, m, key("ctrl+y"))

	assert.Equal(t, "Golang\nGo tour\thttps://go.dev/tour\nGo blog\t\n", copied)
	assert.Equal(t, `Copied 2 tabs of "Golang".`, m.status)
}
