// Package pipeline orchestrates a guarded query: retrieval, trust-aware
// reranking, retrieval-stats drift detection, the context guard, the
// mutation detector, and finally answer generation. Every detection is
// advisory. Alerts are written to the ledger and surfaced on the answer,
// and generation proceeds regardless, so a defender sees what a blocking
// system would have hidden.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/engine"
	"github.com/perimeterlab/ragward/internal/guard"
	"github.com/perimeterlab/ragward/internal/mutation"
	"github.com/perimeterlab/ragward/internal/reranking"
	"github.com/perimeterlab/ragward/internal/retrieval"
	"github.com/perimeterlab/ragward/internal/stats"
)

const answerPrompt = `Use the following context to answer the question. If the context does not contain the answer, say so.

Context:
%s

Question: %s`

// Retriever finds context chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ContextChunk, error)
}

// StatsObserver records one retrieval batch and reports drift.
type StatsObserver interface {
	Observe(sources []string) ([]stats.Alert, error)
}

// ContextChecker screens assembled context text.
type ContextChecker interface {
	Check(ctx context.Context, chunks []string) ([]guard.Alert, error)
}

// MutationChecker asks the auditor model about policy mutations.
type MutationChecker interface {
	Check(ctx context.Context, chunks []string) (*mutation.Warning, error)
}

// Recorder appends guard findings to the ledger.
type Recorder interface {
	Record(event, source, docHash, status string) error
}

// Answer is the result of one guarded query.
type Answer struct {
	Text   string
	Chunks []retrieval.ContextChunk
	// Alerts holds every advisory finding raised during the query,
	// in detection order. Empty on a clean query.
	Alerts []string
	// DurationMs covers the full pipeline including generation.
	DurationMs int64
}

// Pipeline wires the guard stages around retrieval and generation.
type Pipeline struct {
	retriever Retriever
	reranker  reranking.Reranker
	tracker   StatsObserver
	guard     ContextChecker
	mutation  MutationChecker
	ledger    Recorder
	engine    engine.Engine
	chatModel string
	topK      int
	logger    *slog.Logger
}

// New creates a Pipeline. reranker and ledger may be nil to disable
// reranking or ledger persistence; every other collaborator is required.
// topK defaults to 4 when non-positive.
func New(
	retriever Retriever,
	reranker reranking.Reranker,
	tracker StatsObserver,
	contextGuard ContextChecker,
	mutationDetector MutationChecker,
	ledger Recorder,
	eng engine.Engine,
	chatModel string,
	topK int,
	logger *slog.Logger,
) *Pipeline {
	if topK <= 0 {
		topK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		reranker:  reranker,
		tracker:   tracker,
		guard:     contextGuard,
		mutation:  mutationDetector,
		ledger:    ledger,
		engine:    eng,
		chatModel: chatModel,
		topK:      topK,
		logger:    logger,
	}
}

// Query runs the guarded pipeline end to end. Infrastructure failures
// (store, ledger, inference backend) abort with an error; detections
// never do.
func (p *Pipeline) Query(ctx context.Context, query string) (Answer, error) {
	start := time.Now()
	var ans Answer

	chunks, err := p.retriever.Retrieve(ctx, query, p.topK)
	if err != nil {
		return ans, fmt.Errorf("retrieving context: %w", err)
	}
	if p.reranker != nil {
		chunks = p.reranker.Rerank(chunks)
	}
	ans.Chunks = chunks

	sources := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		sources[i] = c.Source
		texts[i] = c.Text
	}

	statsAlerts, err := p.tracker.Observe(sources)
	if err != nil {
		return ans, fmt.Errorf("recording retrieval stats: %w", err)
	}
	for _, a := range statsAlerts {
		if err := p.record(audit.EventDrift, a.Source, string(a.Kind)); err != nil {
			return ans, err
		}
		p.logger.Warn("retrieval drift", "source", a.Source, "kind", a.Kind)
		ans.Alerts = append(ans.Alerts, a.String())
	}

	guardAlerts, err := p.guard.Check(ctx, texts)
	if err != nil {
		return ans, fmt.Errorf("guarding context: %w", err)
	}
	for _, a := range guardAlerts {
		if err := p.record(audit.EventGuard, "", a.Kind); err != nil {
			return ans, err
		}
		p.logger.Warn("context guard", "kind", a.Kind)
		ans.Alerts = append(ans.Alerts, a.String())
	}

	warning, err := p.mutation.Check(ctx, texts)
	if err != nil {
		return ans, fmt.Errorf("checking for policy mutation: %w", err)
	}
	if warning != nil {
		if err := p.record(audit.EventMutation, "", "flagged"); err != nil {
			return ans, err
		}
		p.logger.Warn("policy mutation suspected", "verdict", warning.Verdict)
		ans.Alerts = append(ans.Alerts, warning.String())
	}

	text, err := p.generate(ctx, query, texts)
	if err != nil {
		return ans, fmt.Errorf("generating answer: %w", err)
	}
	ans.Text = text
	ans.DurationMs = time.Since(start).Milliseconds()

	p.logger.Debug("guarded query complete",
		"chunks", len(chunks),
		"alerts", len(ans.Alerts),
		"duration_ms", ans.DurationMs,
	)
	return ans, nil
}

func (p *Pipeline) record(event, source, status string) error {
	if p.ledger == nil {
		return nil
	}
	if err := p.ledger.Record(event, source, "", status); err != nil {
		return fmt.Errorf("recording %s event: %w", event, err)
	}
	return nil
}

func (p *Pipeline) generate(ctx context.Context, query string, texts []string) (string, error) {
	contextBlock := "(no relevant context found)"
	if len(texts) > 0 {
		contextBlock = strings.Join(texts, "\n---\n")
	}
	messages := []engine.Message{
		{Role: "user", Content: fmt.Sprintf(answerPrompt, contextBlock, query)},
	}
	return p.engine.Chat(ctx, p.chatModel, messages, nil)
}
