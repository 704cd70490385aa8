// Package vectormath provides the small set of vector operations shared by
// the retrieval store, the context guard, and the outlier detector.
package vectormath

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of two equal-length vectors,
// in [-1, 1]. If either vector has zero magnitude the result is 0.0
// rather than an error: degenerate embeddings are treated as
// "similar to nothing" instead of aborting a guard check.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Norm returns the Euclidean (L2) norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Mean returns the element-wise average of the given vectors.
// All vectors must share the same length. Returns an error for an
// empty input so callers cannot silently average nothing.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to average")
	}
	dim := len(vectors[0])
	acc := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has length %d, want %d", i, len(v), dim)
		}
		for j, x := range v {
			acc[j] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vectors))
	for j, s := range acc {
		out[j] = float32(s / n)
	}
	return out, nil
}
