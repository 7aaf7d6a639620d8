// Package matcher attaches tabs to groups that already exist in the workspace.
package matcher

import (
	"go.uber.org/zap"

	"tabsort/internal/domain"
	"tabsort/internal/similarity"
	"tabsort/internal/vectorstore"
	"tabsort/internal/vectorstore/memory"
)

// Thresholds controls acceptance of a match.
type Thresholds struct {
	GroupSimilarity float64
	Boost           float64
	Fuzzy           float64
}

// Group is an existing group as seen by the matcher. Centroid is nil when no
// member could be embedded; such a group only takes part in the fuzzy pass.
type Group struct {
	Label    string
	Centroid domain.Embedding
	Titles   []string
}

// Match is the outcome for one tab.
type Match struct {
	Label string
	Score float64
	Fuzzy bool
}

// Matcher scores tabs against a fixed set of existing groups.
type Matcher struct {
	groups     []Group
	centroids  vectorstore.Storage
	thresholds Thresholds
	log        *zap.Logger
}

// New indexes the centroids of groups.
func New(groups []Group, th Thresholds, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Matcher{groups: groups, centroids: memory.NewStorage(), thresholds: th, log: log}
	for _, g := range groups {
		if len(g.Centroid) == 0 {
			continue
		}
		if err := m.centroids.Put(g.Label, g.Centroid); err != nil {
			log.Warn("skipping group centroid", zap.String("group", g.Label), zap.Error(err))
		}
	}
	return m
}

// Centroid averages the embeddings of a group's members, skipping absent ones.
// It returns nil when no member has an embedding.
func Centroid(members []domain.Embedding) domain.Embedding {
	valid := make([][]float64, 0, len(members))
	for _, e := range members {
		if len(e) > 0 {
			valid = append(valid, e)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		// a single member vector is its own centroid
		return domain.Embedding(valid[0])
	}
	return domain.Embedding(similarity.Average(valid))
}

// Match returns the existing group for a tab. The embedding pass keeps the
// highest boosted cosine score, the first group winning ties. When it accepts
// nothing, the fuzzy pass compares title against every member title and the
// last qualifying group wins.
func (m *Matcher) Match(embedding domain.Embedding, title string) (Match, bool) {
	if len(m.groups) == 0 {
		return Match{}, false
	}
	if len(embedding) > 0 {
		best := Match{Score: -1}
		for _, s := range m.centroids.Scores(embedding) {
			score := s.Score + m.thresholds.Boost
			if score > best.Score {
				best = Match{Label: s.Label, Score: score}
			}
		}
		if best.Label != "" && best.Score > m.thresholds.GroupSimilarity {
			return best, true
		}
	}

	var found Match
	ok := false
	for _, g := range m.groups {
		top := 0.0
		for _, t := range g.Titles {
			if sim := similarity.TitleSimilarity(title, t); sim > top {
				top = sim
			}
		}
		if top > m.thresholds.Fuzzy {
			found = Match{Label: g.Label, Score: top, Fuzzy: true}
			ok = true
		}
	}
	return found, ok
}

// MatchAll matches every tab. embeddings and titles are index-aligned with
// tabs; a nil embedding skips the embedding pass for that tab. labels is
// index-aligned with tabs and holds domain.NoTopic where nothing matched.
// Unmatched indices are returned in input order.
func (m *Matcher) MatchAll(tabs []domain.Tab, embeddings []domain.Embedding, titles []string) (labels []string, leftover []int) {
	labels = make([]string, len(tabs))
	for i, tab := range tabs {
		var emb domain.Embedding
		if i < len(embeddings) {
			emb = embeddings[i]
		}
		res, ok := m.Match(emb, titles[i])
		if !ok {
			leftover = append(leftover, i)
			continue
		}
		m.log.Debug("matched existing group",
			zap.Int("index", i),
			zap.String("tab", tab.ID),
			zap.String("group", res.Label),
			zap.Float64("score", res.Score),
			zap.Bool("fuzzy", res.Fuzzy))
		labels[i] = res.Label
	}
	return labels, leftover
}
