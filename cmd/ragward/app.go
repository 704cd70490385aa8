package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/chunker"
	"github.com/perimeterlab/ragward/internal/config"
	"github.com/perimeterlab/ragward/internal/engine"
	"github.com/perimeterlab/ragward/internal/guard"
	"github.com/perimeterlab/ragward/internal/ingest"
	"github.com/perimeterlab/ragward/internal/mutation"
	"github.com/perimeterlab/ragward/internal/outlier"
	"github.com/perimeterlab/ragward/internal/pipeline"
	"github.com/perimeterlab/ragward/internal/reranking"
	"github.com/perimeterlab/ragward/internal/retrieval"
	"github.com/perimeterlab/ragward/internal/stats"
	"github.com/perimeterlab/ragward/internal/storage"
	"github.com/perimeterlab/ragward/internal/trust"
)

// app holds the fully wired pipeline and its collaborators. Commands
// build it from config, use what they need, and Close it.
type app struct {
	cfg      config.Config
	store    *storage.Store
	ledger   *audit.Ledger
	engine   engine.Engine
	embedder *retrieval.Embedder
	vectors  *retrieval.SQLiteStore
	gate     *ingest.Gate
	pipeline *pipeline.Pipeline
	scanner  *outlier.Scanner
}

func newApp(cfg config.Config) (*app, error) {
	initLogging(cfg)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	ledger, err := audit.Open(cfg.LedgerPath())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening audit ledger: %w", err)
	}

	eng := engine.NewRetryEngine(engine.NewOllamaEngine(cfg.Ollama.BaseURL), 3, 60*time.Second)
	embedder := retrieval.NewEmbedder(eng, cfg.Ollama.EmbedModel)
	vectors := retrieval.NewSQLiteStore(store.DB())
	retriever := retrieval.NewRetriever(embedder, vectors)

	classifier, err := trust.New(trust.Config{
		Mode:         cfg.Trust.Mode,
		Markers:      cfg.Trust.Markers,
		Allowlist:    cfg.Trust.Allowlist,
		ManifestPath: cfg.Trust.ManifestPath,
	})
	if err != nil {
		ledger.Close()
		store.Close()
		return nil, fmt.Errorf("building trust classifier: %w", err)
	}

	splitter := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	gate := ingest.NewGate(store, vectors, embedder, splitter, classifier, ledger)

	tracker := stats.NewTracker(stats.NewFileStore(cfg.StatsPath()), cfg.Guard.DominanceRatio)

	guardOpts := []guard.Option{
		guard.WithBlocklist(cfg.Guard.Blocklist),
		guard.WithDriftFloor(cfg.Guard.DriftFloor),
	}
	if baseline, err := guard.LoadBaseline(cfg.BaselinePath()); err == nil {
		guardOpts = append(guardOpts, guard.WithBaseline(baseline))
	} else if !errors.Is(err, guard.ErrNoBaseline) {
		ledger.Close()
		store.Close()
		return nil, fmt.Errorf("loading drift baseline: %w", err)
	}
	contextGuard := guard.New(embedder, guardOpts...)

	detector := mutation.New(eng, cfg.Ollama.AuditModel, cfg.Mutation.RedFlags)

	var reranker reranking.Reranker
	if cfg.Retrieval.RerankingEnabled {
		reranker = reranking.NewTrustReranker()
	}

	p := pipeline.New(
		retriever,
		reranker,
		tracker,
		contextGuard,
		detector,
		ledger,
		eng,
		cfg.Ollama.ChatModel,
		cfg.Retrieval.TopK,
		slog.Default(),
	)

	scanner := outlier.NewScanner(vectors, ledger, cfg.Guard.OutlierThreshold, slog.Default())

	return &app{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		engine:   eng,
		embedder: embedder,
		vectors:  vectors,
		gate:     gate,
		pipeline: p,
		scanner:  scanner,
	}, nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing ledger: %v\n", err)
	}
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

func initLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}
