// Package trust binds documents to a coarse trust level at ingestion time.
//
// The classification signal is deliberately pluggable: a naming convention
// is a lab-grade placeholder with no organizational backing, so deployments
// can swap in an allowlist registry or a signed manifest without touching
// the ingestion gate.
package trust

import (
	"fmt"
	"strings"
)

// Level is the coarse trust classification attached to a document and
// propagated to every derived chunk.
type Level string

const (
	High Level = "high"
	Low  Level = "low"
)

// Classifier maps a source identifier (filename or logical name) to a
// trust level.
type Classifier interface {
	Classify(source string) Level
}

// Classifier selection modes understood by New.
const (
	ModeNaming    = "naming"
	ModeAllowlist = "allowlist"
	ModeManifest  = "manifest"
)

// Config selects and parameterizes a classifier.
type Config struct {
	Mode string
	// Markers for ModeNaming: lower-case substrings that mark a source
	// as low trust.
	Markers []string
	// Allowlist for ModeAllowlist: sources classified high; all others low.
	Allowlist []string
	// ManifestPath for ModeManifest: JSON file mapping source to level.
	ManifestPath string
}

// New builds the classifier selected by cfg.Mode.
func New(cfg Config) (Classifier, error) {
	switch cfg.Mode {
	case "", ModeNaming:
		return NewNamingConvention(cfg.Markers), nil
	case ModeAllowlist:
		return NewAllowlist(cfg.Allowlist), nil
	case ModeManifest:
		return LoadManifest(cfg.ManifestPath)
	default:
		return nil, fmt.Errorf("unknown trust classifier mode %q", cfg.Mode)
	}
}

// NamingConvention classifies by filename markers: a source whose
// lower-cased name contains any marker is low trust, everything else high.
type NamingConvention struct {
	markers []string
}

// DefaultMarkers is the reference marker set.
var DefaultMarkers = []string{"poisoned"}

// NewNamingConvention creates a naming-convention classifier. Empty
// markers fall back to DefaultMarkers.
func NewNamingConvention(markers []string) *NamingConvention {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &NamingConvention{markers: lowered}
}

func (c *NamingConvention) Classify(source string) Level {
	name := strings.ToLower(source)
	for _, m := range c.markers {
		if strings.Contains(name, m) {
			return Low
		}
	}
	return High
}

// Allowlist classifies registry members as high trust and everything
// else as low. The inverse default of NamingConvention: unknown sources
// are distrusted.
type Allowlist struct {
	members map[string]struct{}
}

// NewAllowlist creates an allowlist classifier from the given sources.
func NewAllowlist(sources []string) *Allowlist {
	members := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		members[s] = struct{}{}
	}
	return &Allowlist{members: members}
}

func (c *Allowlist) Classify(source string) Level {
	if _, ok := c.members[source]; ok {
		return High
	}
	return Low
}
