// Package browser reads the host browser state a sort run works on.
package browser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gobwas/glob"

	"tabsort/internal/domain"
)

// Snapshot is a point-in-time view of the host's tabs.
type Snapshot struct {
	ActiveWorkspace string       `json:"active_workspace"`
	Tabs            []domain.Tab `json:"tabs"`
}

// LoadSnapshot reads a JSON snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.ActiveWorkspace == "" {
		return nil, fmt.Errorf("snapshot %s: active_workspace is empty", path)
	}
	return &s, nil
}

// FilterOptions relaxes the default candidate filter.
type FilterOptions struct {
	IncludeGrouped  bool
	ExcludeSelected bool
	IncludePinned   bool
	IncludeEmpty    bool
	IncludeGlance   bool
	Exclude         *URLMatcher
}

// URLMatcher matches tab URLs against glob patterns such as "*://mail.*".
type URLMatcher struct {
	patterns []glob.Glob
}

// NewURLMatcher compiles patterns. It returns nil when there are none.
func NewURLMatcher(patterns []string) (*URLMatcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	m := &URLMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern '%s': %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Match reports whether u matches any pattern. A nil matcher matches nothing.
func (m *URLMatcher) Match(u string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.patterns {
		if g.Match(u) {
			return true
		}
	}
	return false
}

// Candidates returns the tabs of the active workspace eligible for sorting.
func (s *Snapshot) Candidates() []domain.Tab {
	return Filter(s.Tabs, s.ActiveWorkspace, FilterOptions{})
}

// Filter keeps tabs of workspace that pass opts. By default pinned, grouped,
// empty and glance tabs are dropped and the selected tab is kept. Tabs whose
// URL matches opts.Exclude are always dropped.
func Filter(tabs []domain.Tab, workspace string, opts FilterOptions) []domain.Tab {
	if workspace == "" {
		return nil
	}
	var out []domain.Tab
	for _, t := range tabs {
		if t.WorkspaceID != workspace {
			continue
		}
		if (t.Pinned && !opts.IncludePinned) ||
			(t.Grouped() && !opts.IncludeGrouped) ||
			(t.Selected && opts.ExcludeSelected) ||
			(t.Empty && !opts.IncludeEmpty) ||
			(t.Glance && !opts.IncludeGlance) ||
			opts.Exclude.Match(t.URL) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ExistingGroups returns the labelled groups of the active workspace in order
// of first appearance.
func (s *Snapshot) ExistingGroups() []domain.ExistingGroup {
	var groups []domain.ExistingGroup
	index := map[string]int{}
	for _, t := range s.Tabs {
		if !t.Grouped() || t.WorkspaceID != s.ActiveWorkspace {
			continue
		}
		i, ok := index[t.Group]
		if !ok {
			i = len(groups)
			index[t.Group] = i
			groups = append(groups, domain.ExistingGroup{Label: t.Group})
		}
		groups[i].Members = append(groups[i].Members, t)
		groups[i].Titles = append(groups[i].Titles, Title(t))
	}
	return groups
}

// Labels returns the labels of groups.
func Labels(groups []domain.ExistingGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Label
	}
	return out
}

// Title resolves the display title of a tab. Placeholder titles fall back to
// the URL host, then to "Untitled Page".
func Title(t domain.Tab) string {
	title := strings.TrimSpace(t.Title)
	if title != "" && title != "New Tab" && title != "about:blank" && !strings.HasPrefix(title, "http") {
		return title
	}
	if t.URL != "" && !strings.HasPrefix(t.URL, "about:") {
		if u, err := url.Parse(t.URL); err == nil {
			host := strings.TrimPrefix(u.Hostname(), "www.")
			if host != "" && host != "localhost" && host != "127.0.0.1" {
				return host
			}
		}
	}
	return "Untitled Page"
}

// Titles resolves the titles of tabs.
func Titles(tabs []domain.Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = Title(t)
	}
	return out
}
