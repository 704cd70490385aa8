package retrieval

import (
	"context"
	"fmt"

	"github.com/perimeterlab/ragward/internal/engine"
	"golang.org/x/sync/errgroup"
)

// embedConcurrency bounds parallel embedding calls so a large ingestion
// batch does not overwhelm the local inference backend.
const embedConcurrency = 4

// Embedder turns text into vectors via the inference engine, with a fixed
// model so every stored and queried vector lives in the same space.
type Embedder struct {
	engine engine.Engine
	model  string
}

// NewEmbedder creates an Embedder bound to the given model.
func NewEmbedder(e engine.Engine, model string) *Embedder {
	return &Embedder{engine: e, model: model}
}

// Embed returns the embedding vector for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds texts concurrently, preserving input order in the
// result. Nil or empty input returns nil without touching the engine.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.engine.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
