package memory

import (
	"errors"
	"sync"

	"tabsort/internal/similarity"
	"tabsort/internal/vectorstore"
)

// Storage is an in-memory brute-force cosine index. One instance lives for a
// single sort run.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	labels    []string
	vectors   [][]float64
	index     map[string]int
}

// NewStorage returns an empty store.
func NewStorage() *Storage { return &Storage{index: map[string]int{}} }

// Put stores vector under label, replacing an earlier vector with the same
// label in place. All vectors must share one dimension.
func (s *Storage) Put(label string, vector []float64) error {
	if len(vector) == 0 {
		return errors.New("empty vector")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(vector)
	} else if len(vector) != s.dimension {
		return errors.New("vector dimension mismatch")
	}
	if i, ok := s.index[label]; ok {
		s.vectors[i] = vector
		return nil
	}
	s.index[label] = len(s.labels)
	s.labels = append(s.labels, label)
	s.vectors = append(s.vectors, vector)
	return nil
}

// Scores returns the cosine similarity of vector to every stored vector.
func (s *Storage) Scores(vector []float64) []vectorstore.Scored {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]vectorstore.Scored, len(s.labels))
	for i := range s.labels {
		out[i] = vectorstore.Scored{Label: s.labels[i], Score: similarity.Cosine(vector, s.vectors[i])}
	}
	return out
}

// Len returns the number of stored vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

// Clear drops every stored vector.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = 0
	s.labels = nil
	s.vectors = nil
	s.index = map[string]int{}
}
