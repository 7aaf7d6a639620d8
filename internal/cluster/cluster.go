// Package cluster forms provisional topic clusters from tab embeddings.
package cluster

import (
	"tabsort/internal/domain"
	"tabsort/internal/similarity"
)

// Cluster holds indices into the embedding slice passed to Greedy, in input order.
type Cluster []int

// Greedy groups embeddings by similarity to a seed. Each unassigned embedding,
// taken in input order, seeds a cluster that absorbs every later unassigned
// embedding whose cosine similarity to the seed exceeds threshold. Membership
// is not transitive and depends on input order. Nil embeddings never join a
// cluster, and clusters of one are dropped.
func Greedy(embeddings []domain.Embedding, threshold float64) []Cluster {
	assigned := make([]bool, len(embeddings))
	var out []Cluster
	for i, seed := range embeddings {
		if assigned[i] || len(seed) == 0 {
			continue
		}
		assigned[i] = true
		c := Cluster{i}
		for j := i + 1; j < len(embeddings); j++ {
			if assigned[j] || len(embeddings[j]) == 0 {
				continue
			}
			if similarity.Cosine(seed, embeddings[j]) > threshold {
				assigned[j] = true
				c = append(c, j)
			}
		}
		if len(c) > 1 {
			out = append(out, c)
		}
	}
	return out
}

// Valid counts the embeddings that can take part in clustering.
func Valid(embeddings []domain.Embedding) int {
	n := 0
	for _, e := range embeddings {
		if len(e) > 0 {
			n++
		}
	}
	return n
}
