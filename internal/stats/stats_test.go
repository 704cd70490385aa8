package stats

import (
	"os"
	"path/filepath"
	"testing"
)

// memStore is an in-memory Store for tracker tests.
type memStore struct {
	data map[string]int
}

func (m *memStore) Load() (map[string]int, error) {
	out := make(map[string]int, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Save(stats map[string]int) error {
	m.data = make(map[string]int, len(stats))
	for k, v := range stats {
		m.data[k] = v
	}
	return nil
}

func newTestTracker() (*Tracker, *memStore) {
	st := &memStore{data: make(map[string]int)}
	return NewTracker(st, 0), st
}

func TestRecordRetrieval_CountsOccurrences(t *testing.T) {
	tr, st := newTestTracker()

	stats, err := tr.RecordRetrieval([]string{"a.txt", "b.txt", "a.txt"})
	if err != nil {
		t.Fatalf("RecordRetrieval: %v", err)
	}
	if stats["a.txt"] != 2 || stats["b.txt"] != 1 {
		t.Errorf("stats = %v, want a:2 b:1", stats)
	}
	if st.data["a.txt"] != 2 {
		t.Errorf("persisted a.txt = %d, want 2", st.data["a.txt"])
	}

	// Counts accumulate across calls.
	stats, err = tr.RecordRetrieval([]string{"a.txt"})
	if err != nil {
		t.Fatalf("RecordRetrieval: %v", err)
	}
	if stats["a.txt"] != 3 {
		t.Errorf("a.txt = %d, want 3", stats["a.txt"])
	}
}

func TestDetectDrift_Dominance(t *testing.T) {
	tr, _ := newTestTracker()

	alerts := tr.DetectDrift(map[string]int{"A": 96, "B": 4}, nil)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %v", len(alerts), alerts)
	}
	a := alerts[0]
	if a.Kind != AlertDominance || a.Source != "A" {
		t.Errorf("alert = %+v, want dominance on A", a)
	}
	if a.Ratio < 0.959 || a.Ratio > 0.961 {
		t.Errorf("ratio = %f, want 0.96", a.Ratio)
	}
}

func TestDetectDrift_NoDominanceAtThreshold(t *testing.T) {
	tr, _ := newTestTracker()
	// Exactly 95% does not exceed the threshold.
	alerts := tr.DetectDrift(map[string]int{"A": 95, "B": 5}, nil)
	if len(alerts) != 0 {
		t.Errorf("got alerts %v, want none at exactly the threshold", alerts)
	}
}

func TestDetectDrift_Novelty(t *testing.T) {
	tr, _ := newTestTracker()

	alerts := tr.DetectDrift(map[string]int{"A": 10}, []string{"A", "C"})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %v", len(alerts), alerts)
	}
	if alerts[0].Kind != AlertNovelty || alerts[0].Source != "C" {
		t.Errorf("alert = %+v, want novelty on C", alerts[0])
	}
}

func TestDetectDrift_BothChecksConcatenated(t *testing.T) {
	tr, _ := newTestTracker()

	alerts := tr.DetectDrift(map[string]int{"A": 99, "B": 1}, []string{"A", "NEW"})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %v", len(alerts), alerts)
	}
	if alerts[0].Kind != AlertDominance || alerts[1].Kind != AlertNovelty {
		t.Errorf("alerts = %v, want dominance then novelty", alerts)
	}
}

func TestDetectDrift_EmptyHistory(t *testing.T) {
	tr, _ := newTestTracker()
	if alerts := tr.DetectDrift(nil, []string{"A"}); alerts != nil {
		t.Errorf("alerts = %v, want nil with no history", alerts)
	}
}

func TestDetectDrift_CustomThreshold(t *testing.T) {
	st := &memStore{data: make(map[string]int)}
	tr := NewTracker(st, 0.5)

	alerts := tr.DetectDrift(map[string]int{"A": 6, "B": 4}, nil)
	if len(alerts) != 1 || alerts[0].Source != "A" {
		t.Errorf("alerts = %v, want dominance on A at 0.5 threshold", alerts)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "retriever_stats.json"))

	stats, err := fs.Load()
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("stats = %v, want empty for missing file", stats)
	}

	if err := fs.Save(map[string]int{"a.txt": 3, "b.txt": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err = fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats["a.txt"] != 3 || stats["b.txt"] != 1 {
		t.Errorf("stats = %v after round trip", stats)
	}
}

func TestFileStore_RejectsNegativeCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	fs := NewFileStore(path)
	if err := fs.Save(map[string]int{"x": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt the file with a negative count.
	if err := os.WriteFile(path, []byte(`{"x": -2}`), 0o644); err != nil {
		t.Fatalf("corrupting file: %v", err)
	}
	if _, err := fs.Load(); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestTracker_EndToEndWithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	tr := NewTracker(NewFileStore(path), 0)

	if _, err := tr.RecordRetrieval([]string{"good_policy.txt"}); err != nil {
		t.Fatalf("RecordRetrieval: %v", err)
	}

	// A new tracker over the same path sees the persisted counts.
	tr2 := NewTracker(NewFileStore(path), 0)
	stats, err := tr2.RecordRetrieval([]string{"good_policy.txt"})
	if err != nil {
		t.Fatalf("RecordRetrieval: %v", err)
	}
	if stats["good_policy.txt"] != 2 {
		t.Errorf("count = %d, want 2 across restarts", stats["good_policy.txt"])
	}
}

func TestObserve_ColdStoreProducesNoAlerts(t *testing.T) {
	tr, st := newTestTracker()

	alerts, err := tr.Observe([]string{"a.txt", "b.txt"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %v, want none on first observation", alerts)
	}
	if st.data["a.txt"] != 1 || st.data["b.txt"] != 1 {
		t.Errorf("persisted = %v, counts must still be recorded", st.data)
	}
}

func TestObserve_NoveltyAgainstPriorHistory(t *testing.T) {
	tr, st := newTestTracker()
	st.data = map[string]int{"a.txt": 10}

	alerts, err := tr.Observe([]string{"a.txt", "c.txt"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != AlertNovelty || alerts[0].Source != "c.txt" {
		t.Fatalf("alerts = %v, want novelty for c.txt", alerts)
	}
	if st.data["c.txt"] != 1 {
		t.Errorf("c.txt count = %d, want 1", st.data["c.txt"])
	}

	// The second observation of the same source is no longer novel.
	alerts, err = tr.Observe([]string{"c.txt"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	for _, a := range alerts {
		if a.Kind == AlertNovelty {
			t.Errorf("repeat source flagged as novel: %v", a)
		}
	}
}

func TestObserve_DominanceIncludesCurrentBatch(t *testing.T) {
	tr, st := newTestTracker()
	st.data = map[string]int{"a.txt": 95, "b.txt": 4}

	// This retrieval pushes a.txt from 95/99 to 96/100.
	alerts, err := tr.Observe([]string{"a.txt"})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != AlertDominance || alerts[0].Source != "a.txt" {
		t.Fatalf("alerts = %v, want dominance for a.txt", alerts)
	}
}
