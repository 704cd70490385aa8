// Package reranking reorders retrieved context before it is assembled
// into a prompt. Similarity search alone is provenance-blind; the trust
// reranker pushes low-trust chunks toward the tail so a poisoned document
// cannot crowd trusted material out of the prompt window.
package reranking

import (
	"github.com/perimeterlab/ragward/internal/retrieval"
	"github.com/perimeterlab/ragward/internal/trust"
)

// Reranker reorders retrieved chunks. Implementations must not drop or
// duplicate chunks, only reorder them.
type Reranker interface {
	Rerank(chunks []retrieval.ContextChunk) []retrieval.ContextChunk
}

// TrustReranker partitions chunks by trust level: high-trust first, then
// everything else, with the incoming relative order preserved inside each
// partition. The incoming order is similarity-descending, so the result
// stays similarity-sorted within each trust band.
type TrustReranker struct{}

// NewTrustReranker creates a TrustReranker.
func NewTrustReranker() *TrustReranker {
	return &TrustReranker{}
}

// Rerank returns a new slice; the input is left untouched.
func (r *TrustReranker) Rerank(chunks []retrieval.ContextChunk) []retrieval.ContextChunk {
	out := make([]retrieval.ContextChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.TrustLevel == trust.High {
			out = append(out, c)
		}
	}
	for _, c := range chunks {
		if c.TrustLevel != trust.High {
			out = append(out, c)
		}
	}
	return out
}

// Noop passes chunks through unchanged. Used when reranking is disabled.
type Noop struct{}

func (Noop) Rerank(chunks []retrieval.ContextChunk) []retrieval.ContextChunk {
	return chunks
}
