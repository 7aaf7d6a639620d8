package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/domain"
)

func tabs(ids ...string) []domain.Tab {
	out := make([]domain.Tab, len(ids))
	for i, id := range ids {
		out[i] = domain.Tab{ID: id}
	}
	return out
}

func assign(topic string, ids ...string) []domain.Assignment {
	var out []domain.Assignment
	for _, t := range tabs(ids...) {
		out = append(out, domain.Assignment{Tab: t, Topic: topic})
	}
	return out
}

func TestGroupByLabelSkipsSentinels(t *testing.T) {
	var in []domain.Assignment
	in = append(in, assign("Go", "1")...)
	in = append(in, assign(domain.NoTopic, "2")...)
	in = append(in, assign("Rust", "3")...)
	in = append(in, assign(domain.TopicUncategorized, "4")...)
	in = append(in, assign("Go", "5")...)
	in = append(in, assign(domain.TopicClassifyError, "6")...)

	groups := GroupByLabel(in)
	require.Len(t, groups, 2)
	assert.Equal(t, "Go", groups[0].Label)
	assert.Equal(t, tabs("1", "5"), groups[0].Tabs)
	assert.Equal(t, "Rust", groups[1].Label)
}

func TestMergeNearDuplicates(t *testing.T) {
	groups := []Group{
		{Label: "Research", Tabs: tabs("a", "b")},
		{Label: "Reseach", Tabs: tabs("c")},
	}
	out := Merge(groups, 2)
	require.Len(t, out, 1)
	assert.Equal(t, "Research", out[0].Label)
	assert.Equal(t, tabs("a", "b", "c"), out[0].Tabs)
}

func TestMergeIsSizePreserving(t *testing.T) {
	groups := []Group{
		{Label: "News", Tabs: tabs("1", "2")},
		{Label: "Cooking", Tabs: tabs("3")},
		{Label: "Newz", Tabs: tabs("4", "5")},
		{Label: "Cookin", Tabs: tabs("6")},
		{Label: "Travel", Tabs: tabs("7")},
	}
	out := Merge(groups, 2)

	seen := map[string]bool{}
	total := 0
	for _, g := range out {
		for _, tab := range g.Tabs {
			assert.False(t, seen[tab.ID], tab.ID)
			seen[tab.ID] = true
			total++
		}
	}
	assert.Equal(t, 7, total)
	assert.Len(t, out, 3)
}

func TestMergedLabelIsNotATarget(t *testing.T) {
	// "abcd" is 2 from "ab" and "abcdef"; "abcdef" is 4 from "ab"
	groups := []Group{
		{Label: "ab", Tabs: tabs("1")},
		{Label: "abcd", Tabs: tabs("2")},
		{Label: "abcdef", Tabs: tabs("3")},
	}
	out := Merge(groups, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "ab", out[0].Label)
	assert.Equal(t, tabs("1", "2"), out[0].Tabs)
	assert.Equal(t, "abcdef", out[1].Label)
}

func TestMergeDropsEmptyGroups(t *testing.T) {
	out := Merge([]Group{{Label: "Empty"}, {Label: "Music", Tabs: tabs("1")}}, 2)
	require.Len(t, out, 1)
	assert.Equal(t, "Music", out[0].Label)
}

func TestRelabel(t *testing.T) {
	in := append(assign("Research", "a"), assign("Reseach", "b")...)
	in = append(in, assign(domain.NoTopic, "c")...)
	out := Relabel(in, Merge(GroupByLabel(in), 2))
	assert.Equal(t, "Research", out[0].Topic)
	assert.Equal(t, "Research", out[1].Topic)
	assert.Equal(t, domain.NoTopic, out[2].Topic)
}

func TestRelabelDoesNotRelyOnTabIDs(t *testing.T) {
	// duplicate and empty IDs must not leak labels between tabs
	in := append(assign("Research", ""), assign("Music", "")...)
	in = append(in, assign("Reseach", "")...)
	in = append(in, assign("Cooking", "x", "x")...)

	groups := Merge(GroupByLabel(in), 2)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{0, 2}, groups[0].Members)
	assert.Equal(t, []int{1}, groups[1].Members)
	assert.Equal(t, []int{3, 4}, groups[2].Members)

	out := Relabel(in, groups)
	topics := make([]string, len(out))
	for i, a := range out {
		topics[i] = a.Topic
	}
	assert.Equal(t, []string{"Research", "Music", "Research", "Cooking", "Cooking"}, topics)
	assert.Equal(t, "Reseach", in[2].Topic)
}
