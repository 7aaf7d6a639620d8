// Package consolidate merges result groups whose labels are near-duplicates.
package consolidate

import (
	"tabsort/internal/domain"
	"tabsort/internal/similarity"
)

// Group is a labelled set of tabs in the final grouping. Members holds the
// positions of Tabs in the assignments the group was built from.
type Group struct {
	Label   string
	Tabs    []domain.Tab
	Members []int
}

// GroupByLabel collects assignments into groups in first-seen label order.
// Sentinel topics never form a group.
func GroupByLabel(assignments []domain.Assignment) []Group {
	index := map[string]int{}
	var groups []Group
	for k, a := range assignments {
		if domain.IsSentinel(a.Topic) {
			continue
		}
		i, ok := index[a.Topic]
		if !ok {
			i = len(groups)
			index[a.Topic] = i
			groups = append(groups, Group{Label: a.Topic})
		}
		groups[i].Tabs = append(groups[i].Tabs, a.Tab)
		groups[i].Members = append(groups[i].Members, k)
	}
	return groups
}

// Merge folds every group whose label is within maxDistance edits of an
// earlier surviving label into that label, in one left-to-right sweep.
// A merged label is neither a target nor a source afterwards. Empty groups
// are dropped.
func Merge(groups []Group, maxDistance int) []Group {
	merged := make([]bool, len(groups))
	out := make([]Group, 0, len(groups))
	for i := range groups {
		if merged[i] {
			continue
		}
		g := Group{
			Label:   groups[i].Label,
			Tabs:    append([]domain.Tab(nil), groups[i].Tabs...),
			Members: append([]int(nil), groups[i].Members...),
		}
		for j := i + 1; j < len(groups); j++ {
			if merged[j] {
				continue
			}
			if similarity.EditDistance(groups[i].Label, groups[j].Label) <= maxDistance {
				g.Tabs = append(g.Tabs, groups[j].Tabs...)
				g.Members = append(g.Members, groups[j].Members...)
				merged[j] = true
			}
		}
		if len(g.Tabs) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Relabel rewrites assignments so each tab carries the label of the group it
// ended up in. groups must come from GroupByLabel over the same assignments,
// optionally passed through Merge. Tabs outside every group keep their
// original topic.
func Relabel(assignments []domain.Assignment, groups []Group) []domain.Assignment {
	out := append([]domain.Assignment(nil), assignments...)
	for _, g := range groups {
		for _, k := range g.Members {
			if k >= 0 && k < len(out) {
				out[k].Topic = g.Label
			}
		}
	}
	return out
}
