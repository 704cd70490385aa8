// Package ingest implements the ingestion gate: content hashing,
// trust classification, deduplication, chunking, and vector insertion.
// Every admit/skip decision is written to the provenance ledger.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/retrieval"
	"github.com/perimeterlab/ragward/internal/storage"
	"github.com/perimeterlab/ragward/internal/trust"
)

// Document is one raw corpus document handed to the gate.
type Document struct {
	Source string // filename or logical name
	Text   string
}

// DocumentStore persists ingestion records and answers dedup lookups.
type DocumentStore interface {
	SaveDocument(d storage.Document) error
	ExistingHashes() (map[string]struct{}, error)
}

// VectorInserter inserts chunk records into the vector index.
type VectorInserter interface {
	Insert(records []retrieval.Record) error
}

// BatchEmbedder generates embeddings for a batch of texts.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Recorder appends provenance events.
type Recorder interface {
	Record(event, source, docHash, status string) error
}

// Chunker splits document text into overlapping pieces.
type Chunker interface {
	Split(text string) []string
}

// Gate admits documents into the corpus. A document is identified by the
// SHA-256 of its bytes: the same content is never stored twice, regardless
// of filename. Trust level is attached here, at ingestion time, never
// inferred later.
type Gate struct {
	docs       DocumentStore
	vectors    VectorInserter
	embedder   BatchEmbedder
	chunker    Chunker
	classifier trust.Classifier
	ledger     Recorder
}

// NewGate wires an ingestion gate from its collaborators.
func NewGate(docs DocumentStore, vectors VectorInserter, embedder BatchEmbedder, ch Chunker, classifier trust.Classifier, ledger Recorder) *Gate {
	return &Gate{
		docs:       docs,
		vectors:    vectors,
		embedder:   embedder,
		chunker:    ch,
		classifier: classifier,
		ledger:     ledger,
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Added     []string // sources admitted
	Skipped   []string // sources skipped as duplicates
	NewChunks int
}

// ComputeHash returns the stable content hash of a document: SHA-256 over
// the UTF-8 bytes, hex encoded. Same bytes always produce the same digest;
// this is the dedup key.
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Ingest admits the batch. Duplicates (hash already stored, or repeated
// within the batch) are skipped and audited; admitted documents are
// chunked, embedded, and inserted with {source, trust_level, doc_hash}
// propagated onto every chunk.
func (g *Gate) Ingest(ctx context.Context, docs []Document) (Result, error) {
	var res Result

	existing, err := g.docs.ExistingHashes()
	if err != nil {
		return res, fmt.Errorf("loading stored hashes: %w", err)
	}

	type admitted struct {
		doc    Document
		hash   string
		level  trust.Level
		chunks []string
	}
	var batch []admitted
	var texts []string

	for _, d := range docs {
		hash := ComputeHash(d.Text)
		if _, dup := existing[hash]; dup {
			if err := g.ledger.Record(audit.EventDuplicate, d.Source, hash, "skipped"); err != nil {
				return res, fmt.Errorf("auditing duplicate %s: %w", d.Source, err)
			}
			res.Skipped = append(res.Skipped, d.Source)
			continue
		}
		// Seen within this batch too: same bytes under a second filename
		// are still a duplicate.
		existing[hash] = struct{}{}

		level := g.classifier.Classify(d.Source)
		chunks := g.chunker.Split(d.Text)

		if err := g.ledger.Record(audit.EventIngest, d.Source, hash, "added"); err != nil {
			return res, fmt.Errorf("auditing ingest %s: %w", d.Source, err)
		}

		batch = append(batch, admitted{doc: d, hash: hash, level: level, chunks: chunks})
		texts = append(texts, chunks...)
		res.Added = append(res.Added, d.Source)
	}

	if len(texts) == 0 {
		return res, nil
	}

	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return res, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}

	now := time.Now().UTC()
	records := make([]retrieval.Record, 0, len(texts))
	vi := 0
	for _, a := range batch {
		for _, chunk := range a.chunks {
			records = append(records, retrieval.Record{
				ID:         uuid.New().String(),
				Source:     a.doc.Source,
				TrustLevel: a.level,
				DocHash:    a.hash,
				TextChunk:  chunk,
				Embedding:  vectors[vi],
				CreatedAt:  now,
			})
			vi++
		}
	}

	if err := g.vectors.Insert(records); err != nil {
		return res, fmt.Errorf("inserting %d chunk vectors: %w", len(records), err)
	}

	for _, a := range batch {
		err := g.docs.SaveDocument(storage.Document{
			DocHash:    a.hash,
			Source:     a.doc.Source,
			TrustLevel: string(a.level),
			IngestedAt: now,
		})
		if err != nil {
			return res, fmt.Errorf("saving document record %s: %w", a.doc.Source, err)
		}
	}

	res.NewChunks = len(records)
	slog.Info("ingestion complete",
		"added", len(res.Added), "skipped", len(res.Skipped), "chunks", res.NewChunks)
	return res, nil
}
