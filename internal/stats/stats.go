// Package stats tracks per-source retrieval counts across sessions and
// detects retriever drift: a single source dominating results, or a
// source appearing in top-k with no retrieval history. Both are early
// indicators of index poisoning or embedding manipulation.
package stats

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultDominanceRatio is the reference threshold: deliberately loose,
// suited to small corpora. Production deployments tune it via config.
const DefaultDominanceRatio = 0.95

// Store persists the source → cumulative-count mapping.
type Store interface {
	Load() (map[string]int, error)
	Save(stats map[string]int) error
}

// AlertKind discriminates drift alerts.
type AlertKind string

const (
	AlertDominance AlertKind = "dominance"
	AlertNovelty   AlertKind = "novelty"
)

// Alert is one drift finding.
type Alert struct {
	Kind   AlertKind
	Source string
	// Ratio is the share of total retrievals, set for dominance alerts.
	Ratio float64
}

// String renders the alert for operator output.
func (a Alert) String() string {
	switch a.Kind {
	case AlertDominance:
		return fmt.Sprintf("drift suspected: source %q is too dominant (%.1f%% of retrievals)", a.Source, a.Ratio*100)
	case AlertNovelty:
		return fmt.Sprintf("new source: %q has no retrieval history", a.Source)
	default:
		return fmt.Sprintf("drift alert for %q", a.Source)
	}
}

// Tracker is the single writer for retrieval statistics. All mutation
// goes through RecordRetrieval under a mutex, so concurrent queries
// cannot lose updates.
type Tracker struct {
	mu             sync.Mutex
	store          Store
	dominanceRatio float64
}

// NewTracker creates a Tracker over the given store. A non-positive
// dominanceRatio falls back to the default.
func NewTracker(store Store, dominanceRatio float64) *Tracker {
	if dominanceRatio <= 0 || dominanceRatio >= 1 {
		dominanceRatio = DefaultDominanceRatio
	}
	return &Tracker{store: store, dominanceRatio: dominanceRatio}
}

// RecordRetrieval increments the count for each source occurrence (a
// source retrieved twice in one batch counts twice) and persists the
// full mapping. Returns the updated stats.
func (t *Tracker) RecordRetrieval(sources []string) (map[string]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading retrieval stats: %w", err)
	}
	if stats == nil {
		stats = make(map[string]int)
	}

	for _, src := range sources {
		stats[src]++
	}

	if err := t.store.Save(stats); err != nil {
		return nil, fmt.Errorf("saving retrieval stats: %w", err)
	}
	return stats, nil
}

// Observe records one retrieval batch and reports drift in a single
// locked step. Novelty is judged against the history as it stood before
// this batch; dominance against the history after it, so a source that
// just crossed the threshold is flagged on the query that crossed it.
func (t *Tracker) Observe(sources []string) ([]Alert, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading retrieval stats: %w", err)
	}
	if prior == nil {
		prior = make(map[string]int)
	}

	updated := make(map[string]int, len(prior))
	for src, c := range prior {
		updated[src] = c
	}
	for _, src := range sources {
		updated[src]++
	}

	// A cold store produces no alerts; everything is novel on the
	// first query and dominance ratios are meaningless.
	var alerts []Alert
	if len(prior) > 0 {
		alerts = append(alerts, t.dominance(updated)...)
		alerts = append(alerts, t.novelty(prior, sources)...)
	}

	if err := t.store.Save(updated); err != nil {
		return nil, fmt.Errorf("saving retrieval stats: %w", err)
	}
	return alerts, nil
}

// DetectDrift runs the dominance and novelty checks over the given stats
// and the sources of the current retrieval batch. Both checks always run;
// their alerts are concatenated. Returns nil when nothing is flagged or
// when there is no history at all.
func (t *Tracker) DetectDrift(stats map[string]int, current []string) []Alert {
	if len(stats) == 0 {
		return nil
	}
	var alerts []Alert
	alerts = append(alerts, t.dominance(stats)...)
	alerts = append(alerts, t.novelty(stats, current)...)
	return alerts
}

func (t *Tracker) dominance(stats map[string]int) []Alert {
	total := 0
	for _, c := range stats {
		total += c
	}
	if total == 0 {
		return nil
	}

	// Sorted iteration keeps alert order stable across runs.
	sources := make([]string, 0, len(stats))
	for src := range stats {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var alerts []Alert
	for _, src := range sources {
		ratio := float64(stats[src]) / float64(total)
		if ratio > t.dominanceRatio {
			alerts = append(alerts, Alert{Kind: AlertDominance, Source: src, Ratio: ratio})
		}
	}
	return alerts
}

func (t *Tracker) novelty(stats map[string]int, current []string) []Alert {
	var alerts []Alert
	seen := make(map[string]struct{}, len(current))
	for _, src := range current {
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		if _, ok := stats[src]; !ok {
			alerts = append(alerts, Alert{Kind: AlertNovelty, Source: src})
		}
	}
	return alerts
}
