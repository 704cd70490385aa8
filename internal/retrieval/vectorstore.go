package retrieval

import (
	"time"

	"github.com/perimeterlab/ragward/internal/trust"
)

// VectorStore is the contract between the guard pipeline and the vector
// index. The default implementation is SQLite with brute-force cosine
// similarity; any backend must preserve the metadata triple
// {source, trust_level, doc_hash} the ingestion gate writes, because every
// downstream guard stage depends on it.
type VectorStore interface {
	// Insert adds chunk records to the index.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the query vector.
	Search(vector []float32, topK int) ([]ScoredRecord, error)

	// ExportAll returns every record in the index, in insertion order.
	// Feeds the batch outlier scan.
	ExportAll() ([]Record, error)

	// Count returns the number of records in the index.
	Count() (int, error)
}

// Record is one stored chunk with its provenance metadata.
type Record struct {
	ID         string
	Source     string
	TrustLevel trust.Level
	DocHash    string
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
