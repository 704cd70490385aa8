package engine

import "context"

// Engine abstracts the inference collaborators the guard pipeline depends
// on: text generation for the mutation detector and answer synthesis, and
// embeddings for retrieval and the context guard. The concrete backend is
// a local Ollama server, but guard code depends only on this interface.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response. When jsonSchema is non-nil, structured JSON output is
	// requested. Best effort: callers must not assume format compliance.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// Embed returns the embedding vector for the given text using the
	// specified model. Repeated calls on identical text are directionally
	// stable, not bit-identical.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of all locally available models.
	ListModels(ctx context.Context) ([]string, error)

	// HasModel reports whether the given model name is available locally.
	HasModel(ctx context.Context, name string) bool
}
