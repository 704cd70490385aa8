package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document is the ingestion-time record of one corpus document. Immutable
// once written: a re-ingestion under the same hash is skipped, never
// re-added.
type Document struct {
	DocHash    string
	Source     string
	TrustLevel string
	IngestedAt time.Time
}
