package retrieval

import (
	"context"
	"time"

	"github.com/perimeterlab/ragward/internal/trust"
)

// ContextChunk is a retrieved context fragment with its similarity score
// and the provenance metadata the guard stages act on. Transient: exists
// only for the duration of one query.
type ContextChunk struct {
	ID         string
	Source     string
	TrustLevel trust.Level
	DocHash    string
	Text       string
	Score      float32
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant context.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar context chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]ContextChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(vec, topK)
	if err != nil {
		return nil, err
	}

	return scoredToChunks(scored), nil
}

func scoredToChunks(scored []ScoredRecord) []ContextChunk {
	chunks := make([]ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = ContextChunk{
			ID:         s.ID,
			Source:     s.Source,
			TrustLevel: s.TrustLevel,
			DocHash:    s.DocHash,
			Text:       s.TextChunk,
			Score:      s.Score,
			CreatedAt:  s.CreatedAt,
		}
	}
	return chunks
}
