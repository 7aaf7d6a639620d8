// Package embedding turns tab titles into normalized embeddings.
//
// A Provider wraps a domain.EmbeddingBackend: it pools multi-vector output,
// L2-normalizes it, converts backend errors into per-item failures and runs
// batches with bounded concurrency.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tabsort/internal/chunker"
	"tabsort/internal/domain"
	"tabsort/internal/similarity"
)

// DefaultBatchSize caps simultaneous in-flight backend calls.
const DefaultBatchSize = 5

// Result is the outcome of embedding one title. Exactly one of Vector and Err is set.
type Result struct {
	Vector domain.Embedding
	Err    error
}

// OK reports whether the title produced a usable embedding. A zero vector is
// never usable.
func (r Result) OK() bool {
	return r.Err == nil && len(r.Vector) > 0 && !similarity.IsZero(r.Vector)
}

// Provider produces embeddings through a backend.
type Provider struct {
	backend   domain.EmbeddingBackend
	batchSize int
	memo      *cache.Cache
	log       *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBatchSize sets the number of titles embedded concurrently.
func WithBatchSize(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithMemo keeps successful embeddings in memory for ttl. Failures are never memoized.
func WithMemo(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.memo = cache.New(ttl, 2*ttl)
		}
	}
}

// WithLogger sets the logger used for per-item failures.
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// NewProvider wraps backend.
func NewProvider(backend domain.EmbeddingBackend, opts ...Option) *Provider {
	p := &Provider{backend: backend, batchSize: DefaultBatchSize, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend identifier.
func (p *Provider) Name() string { return p.backend.Name() }

// Prepare passes the corpus to backends that need it. Other backends ignore it.
func (p *Provider) Prepare(corpus []string) error {
	if pr, ok := p.backend.(domain.Preparer); ok {
		if p.memo != nil {
			// a re-fitted vocabulary invalidates earlier vectors
			p.memo.Flush()
		}
		return pr.Prepare(corpus)
	}
	return nil
}

// Embed returns the pooled, normalized embedding for title. Backend errors and
// panics come back as a failed Result.
func (p *Provider) Embed(ctx context.Context, title string) (res Result) {
	if p.memo != nil {
		if v, ok := p.memo.Get(title); ok {
			return Result{Vector: v.(domain.Embedding)}
		}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("%w: backend panic: %v", domain.ErrEmbeddingFailure, r)}
		}
	}()

	out, err := p.backend.Embed(ctx, title)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %s: %v", domain.ErrEmbeddingFailure, p.backend.Name(), err)}
	}
	pooled := similarity.Average(out)
	if len(pooled) == 0 {
		return Result{Err: fmt.Errorf("%w: %s returned no vector", domain.ErrEmbeddingFailure, p.backend.Name())}
	}
	if similarity.IsZero(pooled) {
		return Result{Err: fmt.Errorf("%w: %s returned a zero vector", domain.ErrEmbeddingFailure, p.backend.Name())}
	}
	vec := domain.Embedding(similarity.Normalize(pooled))
	if p.memo != nil {
		p.memo.SetDefault(title, vec)
	}
	return Result{Vector: vec}
}

// EmbedBatch embeds titles in consecutive chunks of the batch size. Titles in a
// chunk run concurrently; the next chunk starts only after the current one has
// finished. Results are index-aligned with titles.
func (p *Provider) EmbedBatch(ctx context.Context, titles []string) []Result {
	results := make([]Result, len(titles))
	for _, span := range chunker.Partition(len(titles), p.batchSize) {
		var g errgroup.Group
		g.SetLimit(p.batchSize)
		for i := span.Start; i < span.End; i++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Err: fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)}
					return nil
				}
				results[i] = p.Embed(ctx, titles[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := 0
	for i, r := range results {
		if !r.OK() {
			failed++
			p.log.Warn("embedding failed", zap.String("title", titles[i]), zap.Error(r.Err))
		}
	}
	if failed > 0 {
		p.log.Debug("batch embedded with failures", zap.Int("total", len(titles)), zap.Int("failed", failed))
	}
	return results
}

// Vectors extracts the embeddings of results, nil where a result failed.
func Vectors(results []Result) []domain.Embedding {
	out := make([]domain.Embedding, len(results))
	for i, r := range results {
		if r.OK() {
			out[i] = r.Vector
		}
	}
	return out
}
