package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/domain"
)

type fakeBackend struct {
	vectors  map[string][][]float64
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	panicOn  string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Embed(_ context.Context, text string) ([][]float64, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if text == f.panicOn {
		panic("model crashed")
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("no vector for " + text)
	}
	return v, nil
}

type preparingBackend struct {
	fakeBackend
	mu     sync.Mutex
	corpus []string
}

func (p *preparingBackend) Prepare(corpus []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corpus = corpus
	return nil
}

func TestEmbedPoolsAndNormalizes(t *testing.T) {
	backend := &fakeBackend{vectors: map[string][][]float64{
		"tokens": {{2, 0}, {0, 2}},
		"flat":   {{3, 4}},
	}}
	p := NewProvider(backend)

	res := p.Embed(context.Background(), "tokens")
	require.True(t, res.OK())
	assert.InDelta(t, 0.7071, res.Vector[0], 1e-3)
	assert.InDelta(t, 0.7071, res.Vector[1], 1e-3)

	res = p.Embed(context.Background(), "flat")
	require.True(t, res.OK())
	assert.InDelta(t, 0.6, res.Vector[0], 1e-9)
	assert.InDelta(t, 0.8, res.Vector[1], 1e-9)
}

func TestEmbedConvertsFailures(t *testing.T) {
	backend := &fakeBackend{vectors: map[string][][]float64{"empty": {}}, panicOn: "boom"}
	p := NewProvider(backend)

	for _, title := range []string{"missing", "empty", "boom"} {
		res := p.Embed(context.Background(), title)
		assert.False(t, res.OK(), title)
		assert.Nil(t, res.Vector, title)
		assert.True(t, errors.Is(res.Err, domain.ErrEmbeddingFailure), title)
	}
}

func TestEmbedRejectsZeroVector(t *testing.T) {
	backend := &fakeBackend{vectors: map[string][][]float64{
		"blank":  {{0, 0, 0}},
		"tokens": {{1, 0}, {-1, 0}},
	}}
	p := NewProvider(backend, WithMemo(time.Minute))

	for _, title := range []string{"blank", "tokens"} {
		res := p.Embed(context.Background(), title)
		assert.False(t, res.OK(), title)
		assert.Nil(t, res.Vector, title)
		assert.True(t, errors.Is(res.Err, domain.ErrEmbeddingFailure), title)
	}

	// failures are not memoized
	p.Embed(context.Background(), "blank")
	assert.EqualValues(t, 3, backend.calls.Load())

	assert.False(t, Result{Vector: domain.Embedding{0, 0}}.OK())
	assert.Equal(t, []domain.Embedding{nil}, Vectors([]Result{{Vector: domain.Embedding{0, 0}}}))
}

func TestEmbedBatchKeepsOrderAndBoundsConcurrency(t *testing.T) {
	titles := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	vectors := map[string][][]float64{}
	for i, title := range titles {
		if title == "f" {
			continue
		}
		vectors[title] = [][]float64{{float64(i + 1), 1}}
	}
	backend := &fakeBackend{vectors: vectors, delay: 5 * time.Millisecond}
	p := NewProvider(backend, WithBatchSize(5))

	results := p.EmbedBatch(context.Background(), titles)
	require.Len(t, results, len(titles))
	assert.LessOrEqual(t, backend.peak.Load(), int32(5))
	assert.EqualValues(t, len(titles), backend.calls.Load())

	for i, r := range results {
		if titles[i] == "f" {
			assert.False(t, r.OK())
			continue
		}
		require.True(t, r.OK(), titles[i])
		want := NewProvider(&fakeBackend{vectors: vectors}).Embed(context.Background(), titles[i])
		assert.Equal(t, want.Vector, r.Vector)
	}

	vecs := Vectors(results)
	assert.Nil(t, vecs[5])
	assert.NotNil(t, vecs[0])
}

func TestEmbedBatchCancelledContext(t *testing.T) {
	backend := &fakeBackend{vectors: map[string][][]float64{"a": {{1}}}}
	p := NewProvider(backend)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.EmbedBatch(ctx, []string{"a", "a"})
	for _, r := range results {
		assert.False(t, r.OK())
	}
	assert.EqualValues(t, 0, backend.calls.Load())
}

func TestMemoSkipsRepeatedTitles(t *testing.T) {
	backend := &fakeBackend{vectors: map[string][][]float64{"docs": {{1, 0}}}}
	p := NewProvider(backend, WithMemo(time.Minute), WithBatchSize(1))

	p.EmbedBatch(context.Background(), []string{"docs", "docs", "missing", "missing"})
	// the failing title is retried, the good one is not
	assert.EqualValues(t, 3, backend.calls.Load())
}

func TestPrepareFlushesMemo(t *testing.T) {
	backend := &preparingBackend{fakeBackend: fakeBackend{vectors: map[string][][]float64{"docs": {{1, 0}}}}}
	p := NewProvider(backend, WithMemo(time.Minute))

	require.NoError(t, p.Prepare([]string{"docs"}))
	assert.Equal(t, []string{"docs"}, backend.corpus)
	p.Embed(context.Background(), "docs")
	require.NoError(t, p.Prepare([]string{"docs", "news"}))
	p.Embed(context.Background(), "docs")
	assert.EqualValues(t, 2, backend.calls.Load())
}
