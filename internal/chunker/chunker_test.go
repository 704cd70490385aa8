package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := New(100, 20)
	chunks := s.Split("short text")
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("chunks = %v, want single chunk", chunks)
	}
}

func TestSplit_Empty(t *testing.T) {
	s := New(100, 20)
	if chunks := s.Split("   \n  "); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	s := New(50, 10)
	text := strings.Repeat("word ", 100)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 50 {
			t.Errorf("chunk %d has %d runes, want <= 50", i, n)
		}
	}
}

func TestSplit_CoversAllContent(t *testing.T) {
	s := New(40, 10)
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi"
	chunks := s.Split(text)

	joined := strings.Join(chunks, " ")
	for _, w := range strings.Fields(text) {
		if !strings.Contains(joined, w) {
			t.Errorf("word %q lost during splitting", w)
		}
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	s := New(60, 20)
	text := strings.Repeat("one two three four five six seven eight nine ten ", 10)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1]
		if len(prevTail) > 20 {
			prevTail = prevTail[len(prevTail)-20:]
		}
		// Some shared text must appear at the head of the next chunk.
		head := chunks[i]
		if len(head) > 25 {
			head = head[:25]
		}
		shared := false
		for _, w := range strings.Fields(prevTail) {
			if len(w) >= 3 && strings.Contains(head, w) {
				shared = true
				break
			}
		}
		if !shared {
			t.Errorf("chunks %d and %d share no overlap text", i-1, i)
		}
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("a", 30)
	para2 := strings.Repeat("b", 30)
	s := New(50, 5)
	chunks := s.Split(para1 + "\n\n" + para2)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}
	if strings.Contains(chunks[0], "b") {
		t.Errorf("first chunk crosses paragraph boundary: %q", chunks[0])
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	s := New(100, 200)
	if s.Overlap >= s.ChunkSize {
		t.Errorf("overlap %d not clamped below chunk size %d", s.Overlap, s.ChunkSize)
	}
}
