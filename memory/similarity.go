package memory

import "math"

// SimilarityFunc scores two equal-length vectors; higher means more similar.
type SimilarityFunc func(a, b []float32) float64

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// DotProduct returns the inner product of a and b. Equivalent to Cosine for
// unit-normalized embeddings and cheaper to compute.
func DotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
