package vectorstore

// Scored is a label with its similarity to a query vector.
type Scored struct {
	Label string
	Score float64
}

// Storage holds labelled vectors and scores queries against all of them.
// Scores are returned in insertion order so callers can apply their own
// tie-breaking.
type Storage interface {
	Put(label string, vector []float64) error
	Scores(vector []float64) []Scored
	Len() int
	Clear()
}
