// Package service runs sort operations: it selects the remote classifier or
// the local embedding pipeline and turns the outcome into a grouping plan.
package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tabsort/internal/browser"
	"tabsort/internal/cluster"
	"tabsort/internal/config"
	"tabsort/internal/consolidate"
	"tabsort/internal/domain"
	"tabsort/internal/embedding"
	"tabsort/internal/matcher"
	"tabsort/internal/naming"
)

// State is the lifecycle state of a Sorter.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Embedder is the part of embedding.Provider the local pipeline needs.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	EmbedBatch(ctx context.Context, titles []string) []embedding.Result
}

// Namer labels a cluster from its titles.
type Namer interface {
	Name(ctx context.Context, titles []string) string
}

// Options selects the provider and tunes the local pipeline.
type Options struct {
	Provider      config.Provider
	Thresholds    config.ThresholdConfig
	FallbackLocal bool
}

// Group is one entry of the grouping plan. Existing is set when the label
// names a group already present in the workspace.
type Group struct {
	Label    string
	Existing bool
	Tabs     []domain.Tab
}

// Result is the outcome of one sort run. Assignments covers every candidate
// tab in input order; tabs left without a topic carry domain.NoTopic or a
// sentinel. Failed is set when more than one tab was considered and no group
// came out. Skipped is set when another run was already in progress.
type Result struct {
	RunID       string
	Provider    config.Provider
	Assignments []domain.Assignment
	Groups      []Group
	Failed      bool
	Skipped     bool
}

// Sorter orchestrates sort runs. At most one run is active at a time.
type Sorter struct {
	opts       Options
	embedder   Embedder
	namer      Namer
	classifier domain.Classifier
	log        *zap.Logger
	state      atomic.Int32
}

// NewSorter wires a Sorter. embedder and namer serve the local pipeline,
// classifier the remote one; either side may be nil when not configured.
func NewSorter(opts Options, embedder Embedder, namer Namer, classifier domain.Classifier, log *zap.Logger) *Sorter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sorter{opts: opts, embedder: embedder, namer: namer, classifier: classifier, log: log}
}

// State reports whether a run is in progress.
func (s *Sorter) State() State { return State(s.state.Load()) }

// Sort assigns a topic to every tab and builds the grouping plan. groups are
// the existing groups of the workspace. Sort never fails: every error degrades
// to tabs without a topic. A call made while another run is active returns
// immediately with Skipped set.
func (s *Sorter) Sort(ctx context.Context, tabs []domain.Tab, groups []domain.ExistingGroup) (res Result) {
	res = Result{Provider: s.opts.Provider}
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		s.log.Info("sort already running, skipping")
		res.Skipped = true
		return res
	}
	defer s.state.Store(int32(Idle))

	res.RunID = uuid.NewString()
	log := s.log.With(zap.String("run_id", res.RunID), zap.String("provider", string(s.opts.Provider)))
	log.Info("sort started", zap.Int("tabs", len(tabs)), zap.Int("existing_groups", len(groups)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("sort aborted", zap.Any("panic", r))
			res.Assignments = uniform(tabs, domain.NoTopic)
			res.Groups = nil
			res.Failed = len(tabs) > 1
		}
	}()

	if len(tabs) == 0 {
		log.Info("nothing to sort")
		return res
	}

	var d decision
	if s.opts.Provider == config.ProviderRemote {
		d = s.classifyRemote(ctx, log, tabs, groups)
	} else {
		d = s.classifyLocal(ctx, log, tabs, groups)
	}

	decided := d.decided()
	merged := consolidate.Merge(consolidate.GroupByLabel(decided), s.opts.Thresholds.ConsolidationDistance)
	for k, a := range consolidate.Relabel(decided, merged) {
		d.assignments[d.order[k]] = a
	}
	res.Assignments = d.assignments
	res.Groups = plan(merged, groups)
	res.Failed = len(res.Groups) == 0 && len(tabs) > 1

	log.Info("sort finished",
		zap.Int("groups", len(res.Groups)),
		zap.Bool("failed", res.Failed))
	return res
}

// decision holds one assignment per input tab, by position; tab IDs may be
// empty or repeated. order lists the positions in the order their topics were
// decided and sets the group order of the plan.
type decision struct {
	assignments []domain.Assignment
	order       []int
}

func (d decision) decided() []domain.Assignment {
	out := make([]domain.Assignment, len(d.order))
	for k, i := range d.order {
		out[k] = d.assignments[i]
	}
	return out
}

func inputOrder(tabs []domain.Tab, topic string) decision {
	order := make([]int, len(tabs))
	for i := range order {
		order[i] = i
	}
	return decision{assignments: uniform(tabs, topic), order: order}
}

func (s *Sorter) classifyRemote(ctx context.Context, log *zap.Logger, tabs []domain.Tab, groups []domain.ExistingGroup) decision {
	if s.classifier == nil {
		log.Warn("remote classifier not configured")
		return inputOrder(tabs, domain.TopicMissingAPIKey)
	}
	out, err := s.classifier.Classify(ctx, tabs, browser.Titles(tabs), browser.Labels(groups))
	if err == nil {
		// the i-th answer belongs to the i-th tab
		d := inputOrder(tabs, domain.TopicUncategorized)
		for i := 0; i < len(out) && i < len(tabs); i++ {
			d.assignments[i].Topic = out[i].Topic
		}
		return d
	}
	if errors.Is(err, domain.ErrConfiguration) {
		log.Warn("remote classification skipped", zap.Error(err))
		return inputOrder(tabs, domain.TopicMissingAPIKey)
	}
	log.Warn("remote classification failed", zap.Error(err), zap.Bool("fallback_local", s.opts.FallbackLocal))
	if s.opts.FallbackLocal && s.embedder != nil {
		return s.classifyLocal(ctx, log, tabs, groups)
	}
	return inputOrder(tabs, domain.TopicClassifyError)
}

// classifyLocal decides matched tabs first, then each named cluster. Tabs
// that end up in neither keep domain.NoTopic.
func (s *Sorter) classifyLocal(ctx context.Context, log *zap.Logger, tabs []domain.Tab, groups []domain.ExistingGroup) decision {
	d := decision{assignments: uniform(tabs, domain.NoTopic)}
	if s.embedder == nil {
		log.Warn("no embedding backend configured")
		return d
	}
	th := s.opts.Thresholds
	titles := browser.Titles(tabs)

	corpus := append([]string(nil), titles...)
	for _, g := range groups {
		corpus = append(corpus, g.Titles...)
	}
	if err := s.embedder.Prepare(corpus); err != nil {
		log.Warn("embedding backend prepare failed", zap.Error(err))
	}

	embs := embedding.Vectors(s.embedder.EmbedBatch(ctx, titles))

	existing := make([]matcher.Group, 0, len(groups))
	for _, g := range groups {
		centroid := matcher.Centroid(embedding.Vectors(s.embedder.EmbedBatch(ctx, g.Titles)))
		if centroid == nil {
			log.Debug("existing group has no embeddable members", zap.String("group", g.Label))
		}
		existing = append(existing, matcher.Group{Label: g.Label, Centroid: centroid, Titles: g.Titles})
	}
	m := matcher.New(existing, matcher.Thresholds{
		GroupSimilarity: th.GroupSimilarity,
		Boost:           th.ExistingGroupBoost,
		Fuzzy:           th.FuzzyMatch,
	}, log)
	labels, leftover := m.MatchAll(tabs, embs, titles)
	for i, label := range labels {
		if label != domain.NoTopic {
			d.assignments[i].Topic = label
			d.order = append(d.order, i)
		}
	}
	log.Debug("existing group matching done", zap.Int("matched", len(d.order)), zap.Int("leftover", len(leftover)))

	if len(leftover) < 2 {
		return d
	}
	rest := make([]domain.Embedding, len(leftover))
	for i, idx := range leftover {
		rest[i] = embs[idx]
	}
	if cluster.Valid(rest) < 2 {
		return d
	}
	for _, c := range cluster.Greedy(rest, th.Similarity) {
		names := make([]string, len(c))
		for i, k := range c {
			names[i] = titles[leftover[k]]
		}
		label := s.name(ctx, names)
		log.Debug("cluster formed", zap.String("label", label), zap.Int("size", len(c)))
		for _, k := range c {
			d.assignments[leftover[k]].Topic = label
			d.order = append(d.order, leftover[k])
		}
	}
	return d
}

func (s *Sorter) name(ctx context.Context, titles []string) string {
	if s.namer != nil {
		if label := s.namer.Name(ctx, titles); label != "" {
			return label
		}
	}
	return naming.Fallback(titles)
}

func uniform(tabs []domain.Tab, topic string) []domain.Assignment {
	out := make([]domain.Assignment, len(tabs))
	for i, t := range tabs {
		out[i] = domain.Assignment{Tab: t, Topic: topic}
	}
	return out
}

func plan(merged []consolidate.Group, existing []domain.ExistingGroup) []Group {
	labels := make(map[string]bool, len(existing))
	for _, g := range existing {
		labels[g.Label] = true
	}
	out := make([]Group, 0, len(merged))
	for _, g := range merged {
		out = append(out, Group{Label: g.Label, Existing: labels[g.Label], Tabs: g.Tabs})
	}
	return out
}
