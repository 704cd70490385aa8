// Package chunker splits document text into overlapping substrings for
// embedding. Splits prefer paragraph breaks, then line breaks, then
// sentence ends, falling back to a hard cut, so chunk boundaries land on
// natural seams when the text allows it.
package chunker

import "strings"

const (
	// DefaultChunkSize and DefaultOverlap match the reference ingestion
	// geometry (1200-rune chunks, 200-rune overlap).
	DefaultChunkSize = 1200
	DefaultOverlap   = 200
)

// Splitter produces overlapping chunks of at most ChunkSize runes, with
// consecutive chunks sharing roughly Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// New creates a Splitter. Non-positive chunkSize falls back to the
// default; overlap is clamped below chunkSize.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// separators in preference order. The final "" means hard cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Split returns the chunks of text. Empty or whitespace-only input yields
// no chunks. A text shorter than ChunkSize is returned as one chunk.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := s.findCut(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - s.Overlap
		if next <= start {
			next = cut // overlap would stall progress; advance without it
		}
		start = next
	}
	return chunks
}

// findCut locates the best split point at or before end, searching the
// separator list in preference order within the tail of the window.
func (s *Splitter) findCut(runes []rune, start, end int) int {
	window := string(runes[start:end])
	// Only consider cuts in the later half of the window so chunks stay
	// reasonably full.
	minCut := len([]rune(window)) / 2

	for _, sep := range separators {
		if sep == "" {
			return end
		}
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cutRunes := len([]rune(window[:idx+len(sep)]))
		if cutRunes >= minCut {
			return start + cutRunes
		}
	}
	return end
}
