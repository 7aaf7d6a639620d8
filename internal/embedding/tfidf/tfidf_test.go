package tfidf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabsort/internal/similarity"
)

func TestEmbedRequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "golang")
	assert.Error(t, err)
}

func TestPrepareRejectsEmptyCorpus(t *testing.T) {
	e := NewEmbedder()
	assert.Error(t, e.Prepare(nil))
	assert.Error(t, e.Prepare([]string{"the and of"}))
}

func TestRelatedTitlesScoreHigher(t *testing.T) {
	corpus := []string{
		"Golang concurrency patterns",
		"Golang generics tutorial",
		"Banana bread recipe",
	}
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	assert.Greater(t, e.Dimension(), 0)

	embed := func(s string) []float64 {
		out, err := e.Embed(context.Background(), s)
		require.NoError(t, err)
		require.Len(t, out, 1)
		return out[0]
	}
	a, b, c := embed(corpus[0]), embed(corpus[1]), embed(corpus[2])
	assert.Greater(t, similarity.Cosine(a, b), similarity.Cosine(a, c))
	assert.Equal(t, 0.0, similarity.Cosine(a, c))
}

func TestUnknownVocabularyFails(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"weather forecast"}))
	_, err := e.Embed(context.Background(), "quantum chromodynamics")
	assert.Error(t, err)
}
