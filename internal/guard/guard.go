// Package guard screens assembled retrieval context before it reaches the
// generation model. Two checks run in strict order: a cheap lexical
// blocklist scan for injection phrasing, then a semantic drift check
// against a topic baseline embedding. The first hit wins. Findings are
// advisory; the pipeline records them and proceeds.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/perimeterlab/ragward/internal/vectormath"
)

// DefaultDriftFloor is the reference cosine-similarity floor. Context
// whose mean embedding falls below it relative to the baseline is flagged
// as drifted.
const DefaultDriftFloor = -0.40

// DefaultBlocklist is the reference injection-phrase list. Matching is
// case-insensitive substring containment.
var DefaultBlocklist = []string{
	"ignore previous",
	"forget previous instructions",
	"system override",
	"developer mode",
	"jailbreak",
	"reset all safety rules",
}

// ErrNoBaseline reports that the drift check was requested without a
// baseline embedding. A configuration fault, not a detection.
var ErrNoBaseline = errors.New("no baseline embedding configured")

// Alert kinds produced by the guard. AlertNoBaseline is a configuration
// fault, not a detection: it means the drift stage could not run at all.
const (
	AlertBlocklist  = "blocklist"
	AlertDrift      = "drift"
	AlertNoBaseline = "missing_baseline"
)

// Alert is one guard finding on the assembled context.
type Alert struct {
	Kind string
	// Phrase is the matched blocklist entry (AlertBlocklist only).
	Phrase string
	// Similarity is the cosine similarity to the baseline (AlertDrift only).
	Similarity float64
}

func (a Alert) String() string {
	switch a.Kind {
	case AlertBlocklist:
		return fmt.Sprintf("blocklisted phrase %q in retrieved context", a.Phrase)
	case AlertDrift:
		return fmt.Sprintf("context drifted from baseline (similarity %.3f)", a.Similarity)
	case AlertNoBaseline:
		return "drift check skipped: no baseline embedding (run: ragward baseline)"
	default:
		return a.Kind
	}
}

// BatchEmbedder embeds context chunks for the drift check.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ContextGuard runs blocklist and drift checks over retrieved chunk texts.
type ContextGuard struct {
	embedder  BatchEmbedder
	baseline  []float32
	blocklist []string
	floor     float64
}

// Option configures a ContextGuard.
type Option func(*ContextGuard)

// WithBlocklist replaces the default phrase list.
func WithBlocklist(phrases []string) Option {
	return func(g *ContextGuard) {
		if len(phrases) > 0 {
			g.blocklist = phrases
		}
	}
}

// WithDriftFloor replaces the default similarity floor.
func WithDriftFloor(floor float64) Option {
	return func(g *ContextGuard) { g.floor = floor }
}

// WithBaseline sets the topic baseline embedding. Without one, Check
// raises a missing_baseline alert and CheckDrift returns ErrNoBaseline.
func WithBaseline(baseline []float32) Option {
	return func(g *ContextGuard) { g.baseline = baseline }
}

// New creates a ContextGuard. embedder may be nil when only the lexical
// check is wanted.
func New(embedder BatchEmbedder, opts ...Option) *ContextGuard {
	g := &ContextGuard{
		embedder:  embedder,
		blocklist: DefaultBlocklist,
		floor:     DefaultDriftFloor,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasBaseline reports whether a drift baseline is configured.
func (g *ContextGuard) HasBaseline() bool {
	return len(g.baseline) > 0
}

// CheckBlocklist scans the joined chunk texts for blocklisted phrases.
// The first match wins; at most one alert is returned.
func (g *ContextGuard) CheckBlocklist(chunks []string) []Alert {
	joined := strings.ToLower(strings.Join(chunks, "\n"))
	for _, phrase := range g.blocklist {
		if strings.Contains(joined, strings.ToLower(phrase)) {
			return []Alert{{Kind: AlertBlocklist, Phrase: phrase}}
		}
	}
	return nil
}

// CheckDrift embeds every chunk, averages the embeddings element-wise,
// and compares the mean against the baseline. Similarity below the floor
// yields a drift alert. Empty chunks yield no alert.
func (g *ContextGuard) CheckDrift(ctx context.Context, chunks []string) ([]Alert, error) {
	if !g.HasBaseline() {
		return nil, ErrNoBaseline
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := g.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding context for drift check: %w", err)
	}

	mean, err := vectormath.Mean(vectors)
	if err != nil {
		return nil, fmt.Errorf("averaging context embeddings: %w", err)
	}
	sim, err := vectormath.Cosine(mean, g.baseline)
	if err != nil {
		return nil, fmt.Errorf("comparing context to baseline: %w", err)
	}

	if sim < g.floor {
		return []Alert{{Kind: AlertDrift, Similarity: sim}}, nil
	}
	return nil, nil
}

// Check runs the lexical scan and then the drift check, in that order.
// A blocklist hit short-circuits: the context is already flagged, so the
// embedding call is skipped and at most one alert comes back. A missing
// baseline raises a missing_baseline alert instead of silently skipping
// the drift stage.
func (g *ContextGuard) Check(ctx context.Context, chunks []string) ([]Alert, error) {
	if alerts := g.CheckBlocklist(chunks); len(alerts) > 0 {
		return alerts, nil
	}
	if !g.HasBaseline() {
		return []Alert{{Kind: AlertNoBaseline}}, nil
	}
	return g.CheckDrift(ctx, chunks)
}
