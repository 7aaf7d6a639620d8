// Package similarity holds the string and vector measures used to compare tabs.
package similarity

import (
	"math"
	"strings"
)

// EditDistance returns the Levenshtein distance between a and b after case
// folding. Every insert, delete or substitution costs 1.
func EditDistance(a, b string) int {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// TitleSimilarity is 1 - distance/maxLen, in [0,1]. Two empty strings score 0.
func TitleSimilarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(EditDistance(a, b))/float64(longest)
}

// Cosine returns the cosine similarity of u and v, or 0 when the dimensions
// differ or either vector has zero norm.
func Cosine(u, v []float64) float64 {
	if len(u) != len(v) || len(u) == 0 {
		return 0
	}
	var dot, nu, nv float64
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 0
	}
	return dot / (math.Sqrt(nu) * math.Sqrt(nv))
}

// Average returns the elementwise mean of vectors. A single vector is returned
// unchanged. Vectors shorter than the first are treated as zero-padded.
func Average(vectors [][]float64) []float64 {
	switch len(vectors) {
	case 0:
		return nil
	case 1:
		return vectors[0]
	}
	avg := make([]float64, len(vectors[0]))
	for _, vec := range vectors {
		for i := 0; i < len(avg) && i < len(vec); i++ {
			avg[i] += vec[i]
		}
	}
	n := float64(len(vectors))
	for i := range avg {
		avg[i] /= n
	}
	return avg
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalize returns v scaled to unit length. A zero vector is returned as is.
func Normalize(v []float64) []float64 {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
