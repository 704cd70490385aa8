package outlier

import (
	"fmt"
	"log/slog"

	"github.com/perimeterlab/ragward/internal/audit"
	"github.com/perimeterlab/ragward/internal/retrieval"
)

// Exporter yields every stored chunk vector for a full-collection scan.
type Exporter interface {
	ExportAll() ([]retrieval.Record, error)
}

// Recorder appends scan findings to the ledger.
type Recorder interface {
	Record(event, source, docHash, status string) error
}

// Finding ties a flagged vector back to the chunk it came from.
type Finding struct {
	ID      string
	Source  string
	DocHash string
	Norm    float64
	ZScore  float64
}

// Scanner runs the norm screen over an entire vector store.
type Scanner struct {
	store     Exporter
	ledger    Recorder
	threshold float64
	logger    *slog.Logger
}

// NewScanner wires a scanner over the given store. ledger may be nil when
// findings should not be persisted.
func NewScanner(store Exporter, ledger Recorder, threshold float64, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:     store,
		ledger:    ledger,
		threshold: threshold,
		logger:    logger,
	}
}

// Scan exports the collection, runs detection, and records one ledger
// entry per flagged vector. The scan itself never fails on findings,
// only on store or ledger errors.
func (s *Scanner) Scan() ([]Finding, error) {
	records, err := s.store.ExportAll()
	if err != nil {
		return nil, fmt.Errorf("export vectors: %w", err)
	}

	vectors := make([][]float32, len(records))
	for i, r := range records {
		vectors[i] = r.Embedding
	}

	rep := Detect(vectors, s.threshold)

	findings := make([]Finding, 0, len(rep.Outliers))
	for _, idx := range rep.Outliers {
		r := records[idx]
		f := Finding{
			ID:      r.ID,
			Source:  r.Source,
			DocHash: r.DocHash,
			Norm:    rep.Norms[idx],
			ZScore:  rep.ZScores[idx],
		}
		findings = append(findings, f)

		s.logger.Warn("embedding outlier",
			"source", f.Source,
			"chunk", f.ID,
			"norm", f.Norm,
			"zscore", f.ZScore)

		if s.ledger != nil {
			if err := s.ledger.Record(audit.EventOutlier, f.Source, f.DocHash, "flagged"); err != nil {
				return findings, fmt.Errorf("record outlier: %w", err)
			}
		}
	}
	return findings, nil
}
