package cache

import (
	"context"
	"math"
)

// Embedder produces a vector representation of request text for similarity
// matching. The cache works without one; similarity lookups then miss.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
