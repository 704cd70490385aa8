// Package outlier flags stored embeddings whose magnitude is anomalous
// relative to the corpus population. Poisoned or adversarially crafted
// vectors frequently stand out by norm even when their direction is tuned
// to evade similarity checks, so this is a cheap whole-collection screen
// run periodically, not per query.
package outlier

import (
	"math"

	"github.com/perimeterlab/ragward/internal/vectormath"
)

// DefaultThreshold is the reference z-score cutoff.
const DefaultThreshold = 2.5

// epsilon keeps the z-score finite when every norm is identical.
const epsilon = 1e-8

// Report is the result of one batch scan.
type Report struct {
	// Outliers holds the indices of flagged vectors, ascending.
	Outliers []int
	// Norms[i] is the Euclidean norm of vector i.
	Norms []float64
	// ZScores[i] is (Norms[i] - mean) / (std + epsilon).
	ZScores []float64
}

// Detect computes per-vector norms, the population mean and standard
// deviation, and flags every vector whose |z-score| exceeds threshold.
// A non-positive threshold falls back to the default. Empty input yields
// an empty report.
func Detect(vectors [][]float32, threshold float64) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	n := len(vectors)
	rep := Report{
		Norms:   make([]float64, n),
		ZScores: make([]float64, n),
	}
	if n == 0 {
		return rep
	}

	var sum float64
	for i, v := range vectors {
		rep.Norms[i] = vectormath.Norm(v)
		sum += rep.Norms[i]
	}
	mean := sum / float64(n)

	var variance float64
	for _, nm := range rep.Norms {
		d := nm - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(n))

	for i, nm := range rep.Norms {
		z := (nm - mean) / (std + epsilon)
		rep.ZScores[i] = z
		if math.Abs(z) > threshold {
			rep.Outliers = append(rep.Outliers, i)
		}
	}
	return rep
}
