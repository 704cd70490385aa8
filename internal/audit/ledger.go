// Package audit implements the append-only provenance ledger. Every
// ingestion decision and guard detection is recorded as one JSON line so
// a poisoning attempt can be reconstructed after the fact.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds recorded by the pipeline.
const (
	EventIngest    = "ingest"
	EventDuplicate = "duplicate"
	EventDrift     = "drift"
	EventGuard     = "guard"
	EventMutation  = "mutation"
	EventOutlier   = "outlier"
)

// Event is a single immutable ledger record.
type Event struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Source    string `json:"source,omitempty"`
	DocHash   string `json:"doc_hash,omitempty"`
	Status    string `json:"status"`
}

// Ledger appends events to a JSONL file. Writes are serialized by a mutex
// and fsynced before Record returns, so a crash immediately after a call
// cannot lose the record. A crash mid-append may leave a torn last line;
// that is acceptable for forensic-log semantics and Tail skips such lines.
type Ledger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// Open opens (or creates) the ledger file in append-only mode.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	return &Ledger{file: f, now: time.Now}, nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Record appends one event. One record per call, never batched,
// never reordered.
func (l *Ledger) Record(event, source, docHash, status string) error {
	e := Event{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Event:     event,
		Source:    source,
		DocHash:   docHash,
		Status:    status,
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing audit log: %w", err)
	}
	return nil
}

// Tail reads up to limit events from the end of the ledger file at path.
// Unparseable lines (e.g. a torn final line after a crash) are skipped.
// limit <= 0 returns all events. The pipeline never reads the ledger;
// this exists for operator inspection via the audit command.
func Tail(path string, limit int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}
