package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perimeterlab/ragward/internal/vectormath"
)

// baselineFile is the on-disk form of a topic baseline.
type baselineFile struct {
	Embedding []float32 `json:"embedding"`
}

// BuildBaseline embeds the given reference texts and averages them into a
// single baseline vector. The texts should describe the system's expected
// topic; the drift check measures how far live context strays from them.
func BuildBaseline(ctx context.Context, embedder BatchEmbedder, texts []string) ([]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no baseline texts given")
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding baseline texts: %w", err)
	}
	mean, err := vectormath.Mean(vectors)
	if err != nil {
		return nil, fmt.Errorf("averaging baseline embeddings: %w", err)
	}
	return mean, nil
}

// SaveBaseline writes the baseline embedding as JSON at path, creating
// parent directories as needed.
func SaveBaseline(path string, embedding []float32) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating baseline directory: %w", err)
		}
	}
	data, err := json.Marshal(baselineFile{Embedding: embedding})
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing baseline file: %w", err)
	}
	return nil
}

// LoadBaseline reads a baseline embedding previously written by
// SaveBaseline. A missing file returns ErrNoBaseline so callers can
// distinguish absent configuration from a corrupt file.
func LoadBaseline(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBaseline
		}
		return nil, fmt.Errorf("reading baseline file: %w", err)
	}
	var f baselineFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding baseline file: %w", err)
	}
	if len(f.Embedding) == 0 {
		return nil, fmt.Errorf("baseline file %s holds no embedding", path)
	}
	return f.Embedding, nil
}
